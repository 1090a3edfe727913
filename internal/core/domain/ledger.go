package domain

// HashSet is an in-memory index over content hashes. The persisted
// ledger is loaded into a HashSet once per run so that diffing is a
// set lookup per candidate rather than a scan.
type HashSet map[ContentHash]struct{}

// NewHashSet builds a set from the given hashes.
func NewHashSet(hashes ...ContentHash) HashSet {
	s := make(HashSet, len(hashes))
	for _, h := range hashes {
		s.Add(h)
	}
	return s
}

// Add inserts a hash into the set.
func (s HashSet) Add(h ContentHash) {
	s[h] = struct{}{}
}

// Contains reports whether the hash is in the set.
func (s HashSet) Contains(h ContentHash) bool {
	_, ok := s[h]
	return ok
}

// Len returns the number of hashes in the set.
func (s HashSet) Len() int {
	return len(s)
}

// Diff returns the candidates not present in the set, preserving
// candidate order. A nil or empty set returns all candidates: the
// first run sees everything as new.
func (s HashSet) Diff(candidates []ContentHash) []ContentHash {
	var missing []ContentHash
	for _, h := range candidates {
		if !s.Contains(h) {
			missing = append(missing, h)
		}
	}
	return missing
}
