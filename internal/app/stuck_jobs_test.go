package app

import (
	"testing"
	"time"

	"github.com/bakeryhq/ops-backend/internal/domain"
	"github.com/bakeryhq/ops-backend/internal/usecase"
)

func TestNewArchiveSweeper_NilGuards(t *testing.T) {
	if s := NewArchiveSweeper(nil, nil, nil, time.Minute, -1); s != nil {
		t.Fatalf("expected nil sweeper when archive service is nil, got %+v", s)
	}
	if s := NewArchiveSweeper(&usecase.ArchiveService{}, nil, nil, time.Minute, -1); s != nil {
		t.Fatalf("expected nil sweeper when settings repo is nil, got %+v", s)
	}
}

func TestNewArchiveSweeper_DefaultsInterval(t *testing.T) {
	s := NewArchiveSweeper(&usecase.ArchiveService{}, fakeArchiveSettingsRepo{}, nil, 0, -1)
	if s == nil {
		t.Fatal("expected non-nil sweeper")
	}
	if s.interval != time.Hour {
		t.Fatalf("expected default interval of 1h, got %v", s.interval)
	}
}

type fakeArchiveSettingsRepo struct{}

func (fakeArchiveSettingsRepo) Get(domain.Context, int64) (domain.ArchiveSettings, error) {
	return domain.ArchiveSettings{}, nil
}

func (fakeArchiveSettingsRepo) Upsert(domain.Context, domain.ArchiveSettings) error { return nil }

func (fakeArchiveSettingsRepo) ListEnabled(domain.Context) ([]domain.ArchiveSettings, error) {
	return nil, nil
}

func (fakeArchiveSettingsRepo) ListAll(domain.Context) ([]domain.ArchiveSettings, error) {
	return nil, nil
}
