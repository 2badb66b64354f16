package postgres

import (
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"

	"github.com/bakeryhq/ops-backend/internal/domain"
)

// StaffProfileRepo implements domain.StaffProfileRepository.
type StaffProfileRepo struct{ Pool Querier }

// NewStaffProfileRepo constructs a StaffProfileRepo.
func NewStaffProfileRepo(p Querier) *StaffProfileRepo { return &StaffProfileRepo{Pool: p} }

const staffProfileCols = `id, full_name, phone_number, national_id, age, monthly_salary, role_preference, job_title, branch_id, linked_actor_id, is_active, hire_date, termination_date`

func scanStaffProfile(row pgx.Row) (domain.StaffProfile, error) {
	var p domain.StaffProfile
	if err := row.Scan(&p.ID, &p.FullName, &p.PhoneNumber, &p.NationalID, &p.Age, &p.MonthlySalary,
		&p.RolePreference, &p.JobTitle, &p.BranchID, &p.LinkedActorID, &p.IsActive, &p.HireDate, &p.TerminationDate); err != nil {
		return domain.StaffProfile{}, err
	}
	return p, nil
}

func (r *StaffProfileRepo) Create(ctx domain.Context, p domain.StaffProfile) (int64, error) {
	ctx, span := otel.Tracer("repo.staff_profiles").Start(ctx, "staff_profiles.Create")
	defer span.End()

	var id int64
	err := r.Pool.QueryRow(ctx, `INSERT INTO staff_profiles
		(full_name, phone_number, national_id, age, monthly_salary, role_preference, job_title, branch_id, linked_actor_id, is_active, hire_date, termination_date)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12) RETURNING id`,
		p.FullName, p.PhoneNumber, p.NationalID, p.Age, p.MonthlySalary, p.RolePreference, p.JobTitle,
		p.BranchID, p.LinkedActorID, p.IsActive, p.HireDate, p.TerminationDate).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("op=staff_profile.create: %w", err)
	}
	return id, nil
}

func (r *StaffProfileRepo) Get(ctx domain.Context, id int64) (domain.StaffProfile, error) {
	ctx, span := otel.Tracer("repo.staff_profiles").Start(ctx, "staff_profiles.Get")
	defer span.End()

	p, err := scanStaffProfile(r.Pool.QueryRow(ctx, `SELECT `+staffProfileCols+` FROM staff_profiles WHERE id=$1`, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.StaffProfile{}, fmt.Errorf("op=staff_profile.get: %w", domain.ErrNotFound)
		}
		return domain.StaffProfile{}, fmt.Errorf("op=staff_profile.get: %w", err)
	}
	return p, nil
}

func (r *StaffProfileRepo) Update(ctx domain.Context, p domain.StaffProfile) error {
	ctx, span := otel.Tracer("repo.staff_profiles").Start(ctx, "staff_profiles.Update")
	defer span.End()

	_, err := r.Pool.Exec(ctx, `UPDATE staff_profiles SET full_name=$2, phone_number=$3, national_id=$4, age=$5,
		monthly_salary=$6, role_preference=$7, job_title=$8, branch_id=$9, is_active=$10, termination_date=$11
		WHERE id=$1`, p.ID, p.FullName, p.PhoneNumber, p.NationalID, p.Age, p.MonthlySalary, p.RolePreference,
		p.JobTitle, p.BranchID, p.IsActive, p.TerminationDate)
	if err != nil {
		return fmt.Errorf("op=staff_profile.update: %w", err)
	}
	return nil
}

func (r *StaffProfileRepo) LinkActor(ctx domain.Context, profileID, actorID int64) error {
	ctx, span := otel.Tracer("repo.staff_profiles").Start(ctx, "staff_profiles.LinkActor")
	defer span.End()

	_, err := r.Pool.Exec(ctx, `UPDATE staff_profiles SET linked_actor_id=$2 WHERE id=$1`, profileID, actorID)
	if err != nil {
		return fmt.Errorf("op=staff_profile.link_actor: %w", err)
	}
	return nil
}

func (r *StaffProfileRepo) Unlink(ctx domain.Context, profileID int64) error {
	ctx, span := otel.Tracer("repo.staff_profiles").Start(ctx, "staff_profiles.Unlink")
	defer span.End()

	_, err := r.Pool.Exec(ctx, `UPDATE staff_profiles SET linked_actor_id=NULL WHERE id=$1`, profileID)
	if err != nil {
		return fmt.Errorf("op=staff_profile.unlink: %w", err)
	}
	return nil
}

func (r *StaffProfileRepo) SetActive(ctx domain.Context, id int64, active bool) error {
	ctx, span := otel.Tracer("repo.staff_profiles").Start(ctx, "staff_profiles.SetActive")
	defer span.End()

	_, err := r.Pool.Exec(ctx, `UPDATE staff_profiles SET is_active=$2 WHERE id=$1`, id, active)
	if err != nil {
		return fmt.Errorf("op=staff_profile.set_active: %w", err)
	}
	return nil
}
