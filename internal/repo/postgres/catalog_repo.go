package postgres

import (
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"

	"github.com/bakeryhq/ops-backend/internal/domain"
)

// CategoryRepo implements domain.CategoryRepository.
type CategoryRepo struct{ Pool Querier }

// NewCategoryRepo constructs a CategoryRepo.
func NewCategoryRepo(p Querier) *CategoryRepo { return &CategoryRepo{Pool: p} }

func (r *CategoryRepo) Create(ctx domain.Context, c domain.Category) (int64, error) {
	ctx, span := otel.Tracer("repo.categories").Start(ctx, "categories.Create")
	defer span.End()

	var id int64
	err := r.Pool.QueryRow(ctx, `INSERT INTO categories (name) VALUES ($1) RETURNING id`, c.Name).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("op=category.create: %w", err)
	}
	return id, nil
}

func (r *CategoryRepo) Get(ctx domain.Context, id int64) (domain.Category, error) {
	ctx, span := otel.Tracer("repo.categories").Start(ctx, "categories.Get")
	defer span.End()

	var c domain.Category
	c.ID = id
	if err := r.Pool.QueryRow(ctx, `SELECT name FROM categories WHERE id=$1`, id).Scan(&c.Name); err != nil {
		if err == pgx.ErrNoRows {
			return domain.Category{}, fmt.Errorf("op=category.get: %w", domain.ErrNotFound)
		}
		return domain.Category{}, fmt.Errorf("op=category.get: %w", err)
	}
	return c, nil
}

func (r *CategoryRepo) List(ctx domain.Context) ([]domain.Category, error) {
	ctx, span := otel.Tracer("repo.categories").Start(ctx, "categories.List")
	defer span.End()

	rows, err := r.Pool.Query(ctx, `SELECT id, name FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("op=category.list: %w", err)
	}
	defer rows.Close()

	var out []domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("op=category.list.scan: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ProductRepo implements domain.ProductRepository.
type ProductRepo struct{ Pool Querier }

// NewProductRepo constructs a ProductRepo.
func NewProductRepo(p Querier) *ProductRepo { return &ProductRepo{Pool: p} }

const productCols = `id, name, category_id, price, cost, unit, is_active`

func scanProduct(row pgx.Row) (domain.Product, error) {
	var p domain.Product
	if err := row.Scan(&p.ID, &p.Name, &p.CategoryID, &p.Price, &p.Cost, &p.Unit, &p.IsActive); err != nil {
		return domain.Product{}, err
	}
	return p, nil
}

func (r *ProductRepo) Create(ctx domain.Context, p domain.Product) (int64, error) {
	ctx, span := otel.Tracer("repo.products").Start(ctx, "products.Create")
	defer span.End()

	var id int64
	err := r.Pool.QueryRow(ctx, `INSERT INTO products (name, category_id, price, cost, unit, is_active)
		VALUES ($1,$2,$3,$4,$5,$6) RETURNING id`, p.Name, p.CategoryID, p.Price, p.Cost, p.Unit, p.IsActive).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("op=product.create: %w", err)
	}
	return id, nil
}

func (r *ProductRepo) Get(ctx domain.Context, id int64) (domain.Product, error) {
	ctx, span := otel.Tracer("repo.products").Start(ctx, "products.Get")
	defer span.End()

	p, err := scanProduct(r.Pool.QueryRow(ctx, `SELECT `+productCols+` FROM products WHERE id=$1`, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Product{}, fmt.Errorf("op=product.get: %w", domain.ErrNotFound)
		}
		return domain.Product{}, fmt.Errorf("op=product.get: %w", err)
	}
	return p, nil
}

func (r *ProductRepo) List(ctx domain.Context, activeOnly bool) ([]domain.Product, error) {
	ctx, span := otel.Tracer("repo.products").Start(ctx, "products.List")
	defer span.End()

	q := `SELECT ` + productCols + ` FROM products`
	if activeOnly {
		q += ` WHERE is_active = true`
	}
	rows, err := r.Pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("op=product.list: %w", err)
	}
	defer rows.Close()

	var out []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("op=product.list.scan: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *ProductRepo) Update(ctx domain.Context, p domain.Product) error {
	ctx, span := otel.Tracer("repo.products").Start(ctx, "products.Update")
	defer span.End()

	_, err := r.Pool.Exec(ctx, `UPDATE products SET name=$2, category_id=$3, price=$4, cost=$5, unit=$6, is_active=$7
		WHERE id=$1`, p.ID, p.Name, p.CategoryID, p.Price, p.Cost, p.Unit, p.IsActive)
	if err != nil {
		return fmt.Errorf("op=product.update: %w", err)
	}
	return nil
}

func (r *ProductRepo) SetActive(ctx domain.Context, id int64, active bool) error {
	ctx, span := otel.Tracer("repo.products").Start(ctx, "products.SetActive")
	defer span.End()

	_, err := r.Pool.Exec(ctx, `UPDATE products SET is_active=$2 WHERE id=$1`, id, active)
	if err != nil {
		return fmt.Errorf("op=product.set_active: %w", err)
	}
	return nil
}
