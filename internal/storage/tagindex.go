package storage

import "sort"

// TagIndex maps each tag to the set of file names carrying it.
type TagIndex struct {
	tags map[string]map[string]struct{}
}

// NewTagIndex returns an empty index.
func NewTagIndex() *TagIndex {
	return &TagIndex{tags: make(map[string]map[string]struct{})}
}

// Add links file to every tag in tags.
func (ti *TagIndex) Add(file string, tags []string) {
	for _, tag := range tags {
		set, ok := ti.tags[tag]
		if !ok {
			set = make(map[string]struct{})
			ti.tags[tag] = set
		}
		set[file] = struct{}{}
	}
}

// Remove unlinks file from every tag in tags. Tags left empty are dropped.
func (ti *TagIndex) Remove(file string, tags []string) {
	for _, tag := range tags {
		set, ok := ti.tags[tag]
		if !ok {
			continue
		}
		delete(set, file)
		if len(set) == 0 {
			delete(ti.tags, tag)
		}
	}
}

// Replace moves file from oldTags to newTags, touching only the difference.
func (ti *TagIndex) Replace(file string, oldTags, newTags []string) {
	ti.Remove(file, difference(oldTags, newTags))
	ti.Add(file, difference(newTags, oldTags))
}

// Search returns files carrying any of the query tags, unordered.
func (ti *TagIndex) Search(query []string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, tag := range query {
		for file := range ti.tags[tag] {
			if _, dup := seen[file]; dup {
				continue
			}
			seen[file] = struct{}{}
			out = append(out, file)
		}
	}
	return out
}

// SearchAll returns files carrying every query tag, unordered. An empty
// query matches nothing.
func (ti *TagIndex) SearchAll(query []string) []string {
	if len(query) == 0 {
		return nil
	}
	var out []string
	for file := range ti.tags[query[0]] {
		all := true
		for _, tag := range query[1:] {
			if _, ok := ti.tags[tag][file]; !ok {
				all = false
				break
			}
		}
		if all {
			out = append(out, file)
		}
	}
	return out
}

// Has reports whether file is linked to tag.
func (ti *TagIndex) Has(tag, file string) bool {
	_, ok := ti.tags[tag][file]
	return ok
}

// Counts returns the number of files per tag.
func (ti *TagIndex) Counts() map[string]int {
	out := make(map[string]int, len(ti.tags))
	for tag, set := range ti.tags {
		out[tag] = len(set)
	}
	return out
}

// Tags returns every indexed tag, sorted.
func (ti *TagIndex) Tags() []string {
	out := make([]string, 0, len(ti.tags))
	for tag := range ti.tags {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

// difference returns the elements of a not present in b.
func difference(a, b []string) []string {
	if len(b) == 0 {
		return a
	}
	in := make(map[string]struct{}, len(b))
	for _, s := range b {
		in[s] = struct{}{}
	}
	var out []string
	for _, s := range a {
		if _, ok := in[s]; !ok {
			out = append(out, s)
		}
	}
	return out
}
