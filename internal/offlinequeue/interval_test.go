package offlinequeue_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bakeryhq/ops-backend/internal/offlinequeue"
)

func TestIntervalPolicy_NextInterval(t *testing.T) {
	p := offlinequeue.NewIntervalPolicy()

	got := p.NextInterval(offlinequeue.QualitySlow2G, offlinequeue.QueueCounts{})
	assert.Equal(t, 25*time.Second, got, "slow links always get the slowest interval")

	got = p.NextInterval(offlinequeue.QualityGood, offlinequeue.QueueCounts{Pending: 1})
	assert.Equal(t, 5*time.Second, got, "a backlog on a good link still polls fast")

	got = p.NextInterval(offlinequeue.QualityGood, offlinequeue.QueueCounts{})
	assert.Equal(t, 10*time.Second, got, "idle queue on a good link uses the steady-state interval")

	interval, quality, counts := p.Stats()
	assert.Equal(t, 10*time.Second, interval)
	assert.Equal(t, offlinequeue.QualityGood, quality)
	assert.Equal(t, offlinequeue.QueueCounts{}, counts)
}
