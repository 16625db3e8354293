package storage

import (
	"slices"
	"time"
)

// Version describes one immutable snapshot of a file's content.
type Version struct {
	ID        uint64    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Size      int64     `json:"size"`
	Retained  bool      `json:"retained"`
}

// RetentionPolicy decides how many versions keep their chunks. The
// version history always lists every version ever created.
type RetentionPolicy struct {
	// Keep is the number of newest versions whose content is retained.
	// A negative Keep retains every version; 0 means the default of 1.
	Keep int `yaml:"keep" json:"keep"`
}

// LatestOnly retains the current version's content only.
var LatestOnly = RetentionPolicy{Keep: 1}

// RetainAll never discards version content.
var RetainAll = RetentionPolicy{Keep: -1}

type versionTrack struct {
	versions []Version
}

// VersionManager numbers and records versions per file.
type VersionManager struct {
	policy RetentionPolicy
	tracks map[string]*versionTrack
}

// NewVersionManager creates a manager applying policy on every append.
func NewVersionManager(policy RetentionPolicy) *VersionManager {
	if policy.Keep == 0 {
		policy = LatestOnly
	}
	return &VersionManager{policy: policy, tracks: make(map[string]*versionTrack)}
}

// Policy returns the retention policy in force.
func (vm *VersionManager) Policy() RetentionPolicy { return vm.policy }

// Next returns the id the next version of file would receive.
func (vm *VersionManager) Next(file string) uint64 {
	t, ok := vm.tracks[file]
	if !ok || len(t.versions) == 0 {
		return 1
	}
	return t.versions[len(t.versions)-1].ID + 1
}

// Plan returns the ids of retained versions that appending one more
// version to file would push out of the retention window, oldest first.
// It does not change state.
func (vm *VersionManager) Plan(file string) []uint64 {
	t, ok := vm.tracks[file]
	if !ok || vm.policy.Keep < 0 {
		return nil
	}
	var retained []uint64
	for _, v := range t.versions {
		if v.Retained {
			retained = append(retained, v.ID)
		}
	}
	// After the append there are len(retained)+1 retained versions.
	excess := len(retained) + 1 - vm.policy.Keep
	if excess <= 0 {
		return nil
	}
	return retained[:excess]
}

// Append records a new version of file and marks the versions named by
// pruned as no longer retained. pruned must come from Plan.
func (vm *VersionManager) Append(file string, size int64, at time.Time, pruned []uint64) Version {
	t, ok := vm.tracks[file]
	if !ok {
		t = &versionTrack{}
		vm.tracks[file] = t
	}
	for i := range t.versions {
		if slices.Contains(pruned, t.versions[i].ID) {
			t.versions[i].Retained = false
		}
	}
	v := Version{ID: vm.Next(file), CreatedAt: at, Size: size, Retained: true}
	t.versions = append(t.versions, v)
	return v
}

// Current returns the most recently created version of file.
func (vm *VersionManager) Current(file string) (Version, bool) {
	t, ok := vm.tracks[file]
	if !ok || len(t.versions) == 0 {
		return Version{}, false
	}
	return t.versions[len(t.versions)-1], true
}

// Get returns one version of file.
func (vm *VersionManager) Get(file string, id uint64) (Version, bool) {
	t, ok := vm.tracks[file]
	if !ok {
		return Version{}, false
	}
	for _, v := range t.versions {
		if v.ID == id {
			return v, true
		}
	}
	return Version{}, false
}

// History returns every version id of file, oldest first.
func (vm *VersionManager) History(file string) []uint64 {
	t, ok := vm.tracks[file]
	if !ok {
		return nil
	}
	ids := make([]uint64, len(t.versions))
	for i, v := range t.versions {
		ids[i] = v.ID
	}
	return ids
}

// Versions returns a copy of file's version records.
func (vm *VersionManager) Versions(file string) []Version {
	t, ok := vm.tracks[file]
	if !ok {
		return nil
	}
	return slices.Clone(t.versions)
}

// Retained returns the ids of file's versions that still hold content.
func (vm *VersionManager) Retained(file string) []uint64 {
	t, ok := vm.tracks[file]
	if !ok {
		return nil
	}
	var ids []uint64
	for _, v := range t.versions {
		if v.Retained {
			ids = append(ids, v.ID)
		}
	}
	return ids
}

// Drop forgets file's whole track and returns the ids that were retained.
func (vm *VersionManager) Drop(file string) []uint64 {
	ids := vm.Retained(file)
	delete(vm.tracks, file)
	return ids
}

// RetainedCount returns the number of retained versions across all files.
func (vm *VersionManager) RetainedCount() int {
	var n int
	for _, t := range vm.tracks {
		for _, v := range t.versions {
			if v.Retained {
				n++
			}
		}
	}
	return n
}
