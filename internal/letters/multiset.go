package letters

// Multiset counts letters by identity. It is a value type, so passing it
// around copies it and callers never see each other's changes.
type Multiset [alphabetSize]int

// Count builds a multiset from a letter sequence.
func Count(seq []Letter) Multiset {
	var m Multiset
	for _, l := range seq {
		m.Add(l, 1)
	}
	return m
}

// Add adds n copies of l.
func (m *Multiset) Add(l Letter, n int) {
	m[l.index()] += n
}

// Get returns how many copies of l are present.
func (m Multiset) Get(l Letter) int {
	return m[l.index()]
}

// Size is the total number of letters.
func (m Multiset) Size() int {
	total := 0
	for _, n := range m {
		total += n
	}
	return total
}

// Union returns m plus o.
func (m Multiset) Union(o Multiset) Multiset {
	for i := range m {
		m[i] += o[i]
	}
	return m
}

// CanForm reports whether word can be built from available, taking one
// matching instance per letter of word. On success leftover is available
// minus the consumed letters. On failure leftover is the zero value and
// available is untouched either way.
func CanForm(word []Letter, available Multiset) (leftover Multiset, ok bool) {
	work := available
	for _, l := range word {
		if !l.Valid() || work[l.index()] == 0 {
			return Multiset{}, false
		}
		work[l.index()]--
	}
	return work, true
}

// Remove deletes the first occurrence of each letter of take from seq,
// keeping the relative order of what remains. Letters of take that are not
// in seq are skipped and returned as missing.
func Remove(seq []Letter, take []Letter) (remaining []Letter, missing []Letter) {
	need := Count(take)
	remaining = make([]Letter, 0, len(seq))

	for _, l := range seq {
		if need[l.index()] > 0 {
			need[l.index()]--
			continue
		}
		remaining = append(remaining, l)
	}

	for _, l := range take {
		if need[l.index()] > 0 {
			need[l.index()]--
			missing = append(missing, l)
		}
	}

	return remaining, missing
}
