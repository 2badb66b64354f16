package usecase

import (
	"errors"
	"testing"
	"time"

	"github.com/bakeryhq/ops-backend/internal/domain"
)

func TestBatchService_EditWindow_DefaultsWhenUnset(t *testing.T) {
	s := &BatchService{}
	if got := s.editWindow(); got != defaultEditWindow {
		t.Fatalf("expected default edit window %v, got %v", defaultEditWindow, got)
	}
}

func TestBatchService_EditWindow_HonorsOverride(t *testing.T) {
	s := &BatchService{EditWindow: 5 * time.Minute}
	if got := s.editWindow(); got != 5*time.Minute {
		t.Fatalf("expected overridden edit window of 5m, got %v", got)
	}
}

func TestValidateBatchItems_RequiresAtLeastOne(t *testing.T) {
	err := validateBatchItems(nil)
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for empty items, got %v", err)
	}
}

func TestValidateBatchItems_RejectsSubOneQuantity(t *testing.T) {
	err := validateBatchItems([]BatchItemInput{{ProductID: 1, Quantity: 0.5, Source: domain.SourceBaked}})
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for sub-1 quantity, got %v", err)
	}
}

func TestValidateBatchItems_RejectsDuplicateProductSourcePair(t *testing.T) {
	items := []BatchItemInput{
		{ProductID: 1, Quantity: 2, Source: domain.SourceBaked},
		{ProductID: 1, Quantity: 3, Source: domain.SourceBaked},
	}
	err := validateBatchItems(items)
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for duplicate (product, source) line, got %v", err)
	}
}

func TestValidateBatchItems_AllowsSameProductDifferentSource(t *testing.T) {
	items := []BatchItemInput{
		{ProductID: 1, Quantity: 2, Source: domain.SourceBaked},
		{ProductID: 1, Quantity: 3, Source: domain.SourcePurchased},
	}
	if err := validateBatchItems(items); err != nil {
		t.Fatalf("expected no error for same product different source, got %v", err)
	}
}
