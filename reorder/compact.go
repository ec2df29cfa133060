package reorder

// Compact renumbers the sorted sequence to 0..n-1 and returns the writes that takes.
// A dense sequence yields no changes.
func Compact(seq []Item) ([]Item, []Change) {
	out := Sort(seq)
	return out, renumber(out, "")
}

// Dense reports whether the positions of seq are exactly 0..n-1.
func Dense(seq []Item) bool {
	for i, it := range Sort(seq) {
		if it.Position != i {
			return false
		}
	}
	return true
}
