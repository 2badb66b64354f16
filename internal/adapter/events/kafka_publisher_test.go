package events_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bakeryhq/ops-backend/internal/adapter/events"
)

func TestNewKafkaPublisher_RequiresBrokers(t *testing.T) {
	_, err := events.NewKafkaPublisher(nil, "bakery-ops-backend")
	assert.Error(t, err)
}
