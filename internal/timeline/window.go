package timeline

// Align selects where ScrollToIndex places the target item.
type Align int

const (
	// AlignStart puts the item's first line at the top of the viewport.
	AlignStart Align = iota
	// AlignCenter centers the item in the viewport.
	AlignCenter
)

// VisibleItem describes one item intersecting the render window.
// Start/End are virtual line offsets, End exclusive.
type VisibleItem struct {
	Index int
	Start int
	End   int
}

// VirtualWindow maintains item line geometry for a long list so views only
// render the slice intersecting the viewport. Heights start at a constant
// estimate and are corrected as items are actually rendered and measured;
// offsets self-correct on the next read after any measurement.
//
// The window is index-addressed; identity across regroups is the caller's
// concern (see RemapHeights). It is not safe for concurrent use; like the
// rest of the engine it belongs to a single event loop.
type VirtualWindow struct {
	estimate int
	overscan int

	heights []int // -1 while unmeasured
	offsets []int // prefix sums; len == count+1
	dirty   bool

	geom Geometry
}

// NewVirtualWindow creates a window with the given estimated item height
// (lines) and overscan (items rendered beyond each viewport edge).
func NewVirtualWindow(estimate, overscan int) *VirtualWindow {
	if estimate < 1 {
		estimate = 1
	}
	if overscan < 0 {
		overscan = 0
	}
	return &VirtualWindow{estimate: estimate, overscan: overscan, dirty: true}
}

// Attach binds the window to a geometry provider. A nil geometry detaches.
func (w *VirtualWindow) Attach(g Geometry) { w.geom = g }

// SetCount resizes the window to n items, discarding measurements for
// indices that no longer exist and marking new ones unmeasured.
func (w *VirtualWindow) SetCount(n int) {
	if n < 0 {
		n = 0
	}
	switch {
	case n < len(w.heights):
		w.heights = w.heights[:n]
	case n > len(w.heights):
		for len(w.heights) < n {
			w.heights = append(w.heights, -1)
		}
	}
	w.dirty = true
}

// Count returns the number of items.
func (w *VirtualWindow) Count() int { return len(w.heights) }

// Reset discards every measurement, e.g. after a width change invalidates
// all rendered heights.
func (w *VirtualWindow) Reset() {
	for i := range w.heights {
		w.heights[i] = -1
	}
	w.dirty = true
}

// RemapHeights carries measurements across a regroup. mapping[newIndex]
// names the old index whose height the item keeps, or -1 for unmeasured.
// The window is resized to len(mapping).
func (w *VirtualWindow) RemapHeights(mapping []int) {
	old := w.heights
	heights := make([]int, len(mapping))
	for i, from := range mapping {
		if from >= 0 && from < len(old) {
			heights[i] = old[from]
		} else {
			heights[i] = -1
		}
	}
	w.heights = heights
	w.dirty = true
}

// Measure records the rendered height of one item. Out-of-range indices and
// unchanged heights are ignored.
func (w *VirtualWindow) Measure(index, height int) {
	if index < 0 || index >= len(w.heights) || height < 1 {
		return
	}
	if w.heights[index] == height {
		return
	}
	w.heights[index] = height
	w.dirty = true
}

// ItemHeight returns the measured or estimated height of one item.
func (w *VirtualWindow) ItemHeight(index int) int {
	if index < 0 || index >= len(w.heights) {
		return 0
	}
	if h := w.heights[index]; h > 0 {
		return h
	}
	return w.estimate
}

func (w *VirtualWindow) rebuild() {
	if !w.dirty {
		return
	}
	if cap(w.offsets) < len(w.heights)+1 {
		w.offsets = make([]int, len(w.heights)+1)
	} else {
		w.offsets = w.offsets[:len(w.heights)+1]
	}
	off := 0
	for i := range w.heights {
		w.offsets[i] = off
		off += w.ItemHeight(i)
	}
	w.offsets[len(w.heights)] = off
	w.dirty = false
}

// TotalSize returns the summed height of all items in lines.
func (w *VirtualWindow) TotalSize() int {
	w.rebuild()
	return w.offsets[len(w.heights)]
}

// ItemStart returns the virtual line offset of an item's first line.
func (w *VirtualWindow) ItemStart(index int) (int, bool) {
	if index < 0 || index >= len(w.heights) {
		return 0, false
	}
	w.rebuild()
	return w.offsets[index], true
}

// Range returns the items intersecting [offset, offset+height), extended by
// the overscan count on both sides. Results are ordered by Start.
func (w *VirtualWindow) Range(offset, height int) []VisibleItem {
	n := len(w.heights)
	if n == 0 || height <= 0 {
		return nil
	}
	w.rebuild()

	total := w.offsets[n]
	if offset < 0 {
		offset = 0
	}
	if offset > total {
		offset = total
	}

	// Binary search for the first item whose end is past the offset.
	lo, hi := 0, n-1
	for lo < hi {
		mid := (lo + hi) / 2
		if w.offsets[mid+1] <= offset {
			lo = mid + 1
		} else {
			hi = mid
		}
	}

	// Walk forward to the last item starting before the viewport bottom.
	limit := offset + height
	last := lo
	for last+1 < n && w.offsets[last+1] < limit {
		last++
	}

	from := lo - w.overscan
	if from < 0 {
		from = 0
	}
	to := last + w.overscan
	if to > n-1 {
		to = n - 1
	}

	visible := make([]VisibleItem, 0, to-from+1)
	for i := from; i <= to; i++ {
		visible = append(visible, VisibleItem{Index: i, Start: w.offsets[i], End: w.offsets[i+1]})
	}
	return visible
}

// Visible returns the items intersecting the attached geometry's viewport,
// or nil when no geometry is attached or the view is unmounted.
func (w *VirtualWindow) Visible() []VisibleItem {
	if w.geom == nil || !w.geom.Mounted() {
		return nil
	}
	return w.Range(w.geom.ScrollOffset(), w.geom.ViewportHeight())
}

// ScrollToIndex computes the scroll offset that places the item according
// to align, clamped to the valid scroll range. Returns false when the index
// is out of range or no mounted geometry is attached.
func (w *VirtualWindow) ScrollToIndex(index int, align Align) (int, bool) {
	if w.geom == nil || !w.geom.Mounted() {
		return 0, false
	}
	if index < 0 || index >= len(w.heights) {
		return 0, false
	}
	w.rebuild()

	target := w.offsets[index]
	if align == AlignCenter {
		itemH := w.ItemHeight(index)
		target -= (w.geom.ViewportHeight() - itemH) / 2
	}
	return w.clampOffset(target), true
}

// clampOffset bounds an offset to [0, TotalSize - viewportHeight].
func (w *VirtualWindow) clampOffset(offset int) int {
	max := w.TotalSize() - w.geom.ViewportHeight()
	if max < 0 {
		max = 0
	}
	if offset > max {
		offset = max
	}
	if offset < 0 {
		offset = 0
	}
	return offset
}
