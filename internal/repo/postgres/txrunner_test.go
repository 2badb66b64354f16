package postgres

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsTransientDbError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"connection terminated substring", errors.New("unexpected: Connection terminated"), true},
		{"pg admin_shutdown code", &pgconn.PgError{Code: "57P01"}, true},
		{"pg serialization_failure code", &pgconn.PgError{Code: "40001"}, true},
		{"pg unrelated code", &pgconn.PgError{Code: "23505"}, false},
		{"generic error", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isTransientDbError(tt.err); got != tt.want {
				t.Errorf("isTransientDbError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
