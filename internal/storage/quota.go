package storage

import "fmt"

// QuotaTracker is the single source of truth for committed bytes. It is not
// safe for concurrent use on its own; the Engine serializes access.
type QuotaTracker struct {
	capacity   int64
	perFileMax int64
	used       int64
}

// NewQuotaTracker creates a tracker bounded by capacity bytes in total and
// perFileMax bytes for any single file's current content.
func NewQuotaTracker(capacity, perFileMax int64) *QuotaTracker {
	return &QuotaTracker{capacity: capacity, perFileMax: perFileMax}
}

// Capacity returns the global cap in bytes.
func (q *QuotaTracker) Capacity() int64 { return q.capacity }

// PerFileMax returns the per-file cap in bytes.
func (q *QuotaTracker) PerFileMax() int64 { return q.perFileMax }

// Used returns the committed bytes.
func (q *QuotaTracker) Used() int64 { return q.used }

// Available returns the remaining headroom, never negative.
func (q *QuotaTracker) Available() int64 {
	if avail := q.capacity - q.used; avail > 0 {
		return avail
	}
	return 0
}

// CheckFileSize validates a single file's content length against the
// per-file cap. It does not touch the running total.
func (q *QuotaTracker) CheckFileSize(n int64) error {
	if n > q.perFileMax {
		return fmt.Errorf("%d bytes exceeds per-file limit of %d", n, q.perFileMax)
	}
	return nil
}

// CanReserve reports whether delta more bytes fit under the global cap.
func (q *QuotaTracker) CanReserve(delta int64) bool {
	return q.used+delta <= q.capacity
}

// Reserve admits delta bytes or fails without changing state.
func (q *QuotaTracker) Reserve(delta int64) error {
	if !q.CanReserve(delta) {
		return fmt.Errorf("reserving %d bytes would exceed capacity (%d of %d used)", delta, q.used, q.capacity)
	}
	q.used += delta
	return nil
}

// Release credits delta bytes back, floored at zero.
func (q *QuotaTracker) Release(delta int64) {
	q.used -= delta
	if q.used < 0 {
		q.used = 0
	}
}

// CanSwap reports whether releasing released bytes and then reserving
// reserved bytes stays under the global cap.
func (q *QuotaTracker) CanSwap(released, reserved int64) bool {
	return q.used-released+reserved <= q.capacity
}

// Swap releases released bytes and reserves reserved bytes as one admission
// decision. On failure nothing changes.
func (q *QuotaTracker) Swap(released, reserved int64) error {
	if !q.CanSwap(released, reserved) {
		return fmt.Errorf("replacing %d bytes with %d would exceed capacity (%d of %d used)",
			released, reserved, q.used, q.capacity)
	}
	q.Release(released)
	q.used += reserved
	return nil
}

// QuotaStats is a point-in-time view of the tracker.
type QuotaStats struct {
	UsedBytes      int64 `json:"used_bytes"`
	CapacityBytes  int64 `json:"capacity_bytes"`
	AvailableBytes int64 `json:"available_bytes"`
	PerFileMax     int64 `json:"per_file_max"`
}

// Stats returns the current quota statistics.
func (q *QuotaTracker) Stats() QuotaStats {
	return QuotaStats{
		UsedBytes:      q.used,
		CapacityBytes:  q.capacity,
		AvailableBytes: q.Available(),
		PerFileMax:     q.perFileMax,
	}
}
