package screen

// Ring is an array-backed scrollback ring: a circular buffer of Lines
// addressed by a head index, whose capacity changes only when Resize
// needs more room than it has, replacing the doubly-linked
// line list the original implementation inherited from a pre-allocator
// design (nothing here needs prev/next pointers).
//
// The ring always holds every line currently on screen plus whatever
// scrollback history fits in its capacity. The most recent VisibleHeight
// lines are "the screen"; everything older is scrollback. cursor_y, owned
// by Screen, indexes into the visible window (0..VisibleHeight-1), never
// into the ring directly.
type Ring struct {
	buf           []Line
	head          int // index of the oldest line in buf
	count         int // number of valid lines in buf (<= cap)
	cap           int // physical capacity; grows, never shrinks
	cols          int
	visibleHeight int
}

// NewRing creates a ring holding exactly visibleHeight blank lines (no
// scrollback history yet), with room to grow to scrollbackCap additional
// lines before the oldest history starts being discarded.
func NewRing(visibleHeight, cols, scrollbackCap int) *Ring {
	if visibleHeight < 1 {
		visibleHeight = 1
	}
	capTotal := visibleHeight + scrollbackCap
	r := &Ring{
		buf:           make([]Line, capTotal),
		cap:           capTotal,
		cols:          cols,
		visibleHeight: visibleHeight,
	}
	for i := 0; i < visibleHeight; i++ {
		r.buf[i] = NewLine(cols)
	}
	r.count = visibleHeight
	return r
}

func (r *Ring) physIndex(logical int) int {
	return (r.head + logical) % r.cap
}

// Len returns the total number of lines held (visible + scrollback).
func (r *Ring) Len() int { return r.count }

// VisibleHeight returns the number of rows considered "on screen".
func (r *Ring) VisibleHeight() int { return r.visibleHeight }

// ScrollbackLen returns the number of lines scrolled off the top.
func (r *Ring) ScrollbackLen() int {
	n := r.count - r.visibleHeight
	if n < 0 {
		return 0
	}
	return n
}

// Visible returns a pointer to visible row (0-based, 0 is the top of the
// screen) for direct mutation. Panics-free: out-of-range rows return nil.
func (r *Ring) Visible(row int) *Line {
	if row < 0 || row >= r.visibleHeight {
		return nil
	}
	logical := r.count - r.visibleHeight + row
	if logical < 0 || logical >= r.count {
		return nil
	}
	return &r.buf[r.physIndex(logical)]
}

// Scrollback returns scrollback line index (0 is the oldest line).
func (r *Ring) Scrollback(index int) *Line {
	if index < 0 || index >= r.ScrollbackLen() {
		return nil
	}
	return &r.buf[r.physIndex(index)]
}

// PushLine appends a new blank line (filled with fill) at the bottom of
// the visible window, scrolling the top visible line into scrollback.
// When the ring is at capacity, the single oldest scrollback line is
// discarded to make room (head advances); visible-line count never
// shrinks as a result of this.
func (r *Ring) PushLine(fill Cell) {
	newLine := NewLine(r.cols)
	for i := range newLine.Cells {
		newLine.Cells[i] = fill
	}
	if r.count < r.cap {
		r.buf[r.physIndex(r.count)] = newLine
		r.count++
		return
	}
	// at capacity: drop the oldest line, advance head, append at tail
	r.buf[r.head] = newLine
	r.head = (r.head + 1) % r.cap
}

// Resize changes the visible window height and/or column width. The
// ring never holds fewer than newVisibleHeight lines after this call —
// growing past the lines held appends blank lines at the bottom of the
// visible window (existing lines keep their order and none is lost),
// shrinking only changes how many of the existing lines count as
// "visible"; no line is ever deleted by a resize.
func (r *Ring) Resize(newVisibleHeight, newCols int) {
	if newVisibleHeight < 1 {
		newVisibleHeight = 1
	}
	if newCols != r.cols {
		for i := 0; i < r.count; i++ {
			r.buf[r.physIndex(i)].Resize(newCols)
		}
		r.cols = newCols
	}
	if newVisibleHeight > r.count {
		// grow: add blank lines to reach the new visible height
		needed := newVisibleHeight - r.count
		if r.count+needed > r.cap {
			r.growCapacity(r.count + needed)
		}
		for i := 0; i < needed; i++ {
			r.buf[r.physIndex(r.count)] = NewLine(r.cols)
			r.count++
		}
	}
	r.visibleHeight = newVisibleHeight
}

// growCapacity reallocates buf to hold at least minCap lines, preserving
// logical order (physical index 0 becomes the current oldest line).
func (r *Ring) growCapacity(minCap int) {
	newCap := r.cap * 2
	if newCap < minCap {
		newCap = minCap
	}
	newBuf := make([]Line, newCap)
	for i := 0; i < r.count; i++ {
		newBuf[i] = r.buf[r.physIndex(i)]
	}
	r.buf = newBuf
	r.cap = newCap
	r.head = 0
}

// Clear blanks every visible line (scrollback history is left intact).
func (r *Ring) Clear(fill Cell) {
	for row := 0; row < r.visibleHeight; row++ {
		line := r.Visible(row)
		if line == nil {
			continue
		}
		for i := range line.Cells {
			line.Cells[i] = fill
		}
		line.Length = 0
		line.Wrapped = false
	}
}

// ClearScrollback discards all history, keeping only the visible window.
func (r *Ring) ClearScrollback() {
	if r.ScrollbackLen() == 0 {
		return
	}
	start := r.count - r.visibleHeight
	visible := make([]Line, r.visibleHeight)
	for i := range visible {
		visible[i] = r.buf[r.physIndex(start+i)]
	}
	copy(r.buf, visible)
	r.head = 0
	r.count = r.visibleHeight
}
