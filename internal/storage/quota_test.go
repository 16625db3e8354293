package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuotaTrackerReserve(t *testing.T) {
	q := NewQuotaTracker(1000, 100)

	assert.NoError(t, q.Reserve(600))
	assert.NoError(t, q.Reserve(400))
	assert.Equal(t, int64(1000), q.Used())
	assert.Equal(t, int64(0), q.Available())

	// Used bytes must not change on a rejected reservation.
	assert.Error(t, q.Reserve(1))
	assert.Equal(t, int64(1000), q.Used())
}

func TestQuotaTrackerReleaseFloorsAtZero(t *testing.T) {
	q := NewQuotaTracker(1000, 100)

	assert.NoError(t, q.Reserve(50))
	q.Release(20)
	assert.Equal(t, int64(30), q.Used())
	q.Release(500)
	assert.Equal(t, int64(0), q.Used())
}

func TestQuotaTrackerCheckFileSize(t *testing.T) {
	q := NewQuotaTracker(1000, 100)

	assert.NoError(t, q.CheckFileSize(100))
	assert.Error(t, q.CheckFileSize(101))
	assert.Equal(t, int64(0), q.Used())
}

func TestQuotaTrackerSwap(t *testing.T) {
	q := NewQuotaTracker(100, 100)
	assert.NoError(t, q.Reserve(90))

	assert.True(t, q.CanSwap(50, 60))
	assert.NoError(t, q.Swap(50, 60))
	assert.Equal(t, int64(100), q.Used())

	assert.False(t, q.CanSwap(10, 11))
	assert.Error(t, q.Swap(10, 11))
	assert.Equal(t, int64(100), q.Used())
}

func TestQuotaTrackerStats(t *testing.T) {
	q := NewQuotaTracker(1000, 10)
	assert.NoError(t, q.Reserve(250))

	assert.Equal(t, QuotaStats{
		UsedBytes:      250,
		CapacityBytes:  1000,
		AvailableBytes: 750,
		PerFileMax:     10,
	}, q.Stats())
}
