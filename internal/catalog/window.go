package catalog

// Window selects a contiguous page of a catalog: skip the first Skip records,
// then take at most Top records. Zero values mean "from start" and "to end".
type Window struct {
	Skip int
	Top  int
}

// Bounds returns the half-open range [start, end) selected within n records.
func (w Window) Bounds(n int) (start, end int) {
	start = max(w.Skip, 0)
	if start > n {
		start = n
	}
	end = n
	if w.Top > 0 && start+w.Top < end {
		end = start + w.Top
	}
	return start, end
}

// Contains reports whether the record at position i is inside the window.
func (w Window) Contains(i int) bool {
	if i < max(w.Skip, 0) {
		return false
	}
	return w.Top <= 0 || i < max(w.Skip, 0)+w.Top
}

// past reports whether position i and everything after it is outside the window.
func (w Window) past(i int) bool {
	return w.Top > 0 && i >= max(w.Skip, 0)+w.Top
}
