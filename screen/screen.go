package screen

import "image/color"

// Option configures a Screen during construction, following the
// functional-options idiom used elsewhere in this module for
// constructing long-lived objects.
type Option func(*Screen)

// WithScrollbackCapacity sets how many lines of history the ring keeps
// beyond the visible window. Default is 2000.
func WithScrollbackCapacity(n int) Option {
	return func(s *Screen) {
		s.scrollbackCap = n
	}
}

// WithRefresh sets the hook fired when ansi_animate is enabled and the
// current glyph's color differs from the previously printed glyph's
// color — the progressive-draw behavior ANSI art relies on.
func WithRefresh(fn func()) Option {
	return func(s *Screen) {
		s.RefreshFunc = fn
	}
}

// StatusHeight is the number of rows at the bottom of the display
// reserved for status-line display. Screen does not subtract it: New
// and Resize set the default scrolling region to every row they are
// given.
const StatusHeight = 1

// Screen holds cursor position, scroll region, current SGR template, the
// per-connection toggle set, and the scrollback ring it mutates through a
// single write funnel (so the ansi_animate refresh hook always fires from
// one place).
type Screen struct {
	ring *Ring
	cols int

	CursorX, CursorY int

	ScrollTop, ScrollBottom int // inclusive 0-based rows

	CurrentAttr  AttrMask
	CurrentColor ColorPair

	LineWrap      bool
	AnsiMusic     bool
	AnsiAnimate   bool
	DisplayNull   bool
	Strip8thBit   bool
	HardBackspace bool
	FullDuplex    bool
	LineFeedOnCR  bool

	savedX, savedY int
	haveSaved      bool

	tabStops []bool

	lastPrintColor ColorPair
	lastPrintValid bool

	RefreshFunc func()

	scrollbackCap int
}

// New creates a Screen of the given dimensions. Defaults: line wrap on,
// full scroll region, default color, tab stops every 8 columns.
func New(rows, cols int, opts ...Option) *Screen {
	s := &Screen{
		cols:          cols,
		LineWrap:      true,
		CurrentColor:  DefaultColor,
		scrollbackCap: 2000,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.ring = NewRing(rows, cols, s.scrollbackCap)
	s.ScrollTop = 0
	s.ScrollBottom = rows - 1
	s.tabStops = make([]bool, cols)
	for i := 0; i < cols; i += 8 {
		s.tabStops[i] = true
	}
	return s
}

// Rows returns the visible height.
func (s *Screen) Rows() int { return s.ring.VisibleHeight() }

// Cols returns the width.
func (s *Screen) Cols() int { return s.cols }

// Ring exposes the underlying scrollback ring, the non-owning view a
// screen driver reads from without touching cursor or mutation state.
func (s *Screen) Ring() *Ring { return s.ring }

// Cell returns the cell at (row, col) in the visible window.
func (s *Screen) Cell(row, col int) Cell {
	line := s.ring.Visible(row)
	if line == nil {
		return Cell{Glyph: ' '}
	}
	return line.Cell(col)
}

func (s *Screen) defaultBlank() Cell {
	return Cell{Glyph: ' ', Attr: 0, Color: DefaultColor}
}

// clamp restricts v to [lo, hi].
func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// --- Write funnel ---

// PrintGlyph writes cp at (cursor_y, cursor_x) using CurrentColor/
// CurrentAttr, then advances the cursor by its display width. If the
// cursor was at the right margin (or a wide glyph would split across
// it) and LineWrap is enabled, the glyph wraps to the next line first
// (scrolling within the region if already at the bottom); otherwise the
// column clamps at the margin and overwrites the last cell(s). A wide
// glyph (RuneWidth == 2, e.g. CJK art carried through a raw codepage)
// occupies two cells: the glyph itself, then a zero-Glyph continuation
// cell a screen driver skips when rendering. A zero-width glyph
// (RuneWidth == 0, combining marks) is dropped rather than printed,
// since a Cell holds exactly one rune. When AnsiAnimate is enabled and
// CurrentColor differs from the color of the last printed glyph,
// RefreshFunc fires before the write — this is the only way large
// ANSI art renders progressively on slow links.
func (s *Screen) PrintGlyph(cp rune) {
	width := RuneWidth(cp)
	if width == 0 {
		return
	}

	if s.CursorX >= s.cols || (width == 2 && s.CursorX == s.cols-1) {
		if s.LineWrap {
			s.lineFeed()
			s.CursorX = 0
			line := s.ring.Visible(s.prevRow())
			if line != nil {
				line.Wrapped = true
			}
		} else {
			s.CursorX = s.cols - width
			if s.CursorX < 0 {
				s.CursorX = 0
			}
		}
	}

	if s.AnsiAnimate {
		if !s.lastPrintValid || s.lastPrintColor != s.CurrentColor {
			if s.RefreshFunc != nil {
				s.RefreshFunc()
			}
		}
	}
	s.lastPrintColor = s.CurrentColor
	s.lastPrintValid = true

	line := s.ring.Visible(s.CursorY)
	if line != nil {
		line.Set(s.CursorX, Cell{Glyph: cp, Attr: s.CurrentAttr, Color: s.CurrentColor})
		if width == 2 {
			line.Set(s.CursorX+1, Cell{Attr: s.CurrentAttr, Color: s.CurrentColor})
		}
	}
	s.CursorX += width
}

func (s *Screen) prevRow() int {
	r := s.CursorY - 1
	if r < 0 {
		return 0
	}
	return r
}

// lineFeed advances the cursor one row, scrolling the region if the
// cursor is at (or below) scroll_bottom.
func (s *Screen) lineFeed() {
	if s.CursorY >= s.ScrollBottom {
		s.ScrollingRegionScrollUp(s.ScrollTop, s.ScrollBottom, 1)
	} else {
		s.CursorY++
	}
}

// LineFeed is the public entry point for LF control-byte handling.
func (s *Screen) LineFeed() {
	s.lastPrintValid = false
	s.lineFeed()
	if s.LineFeedOnCR {
		s.CursorX = 0
	}
}

// CarriageReturn moves the cursor to column 0.
func (s *Screen) CarriageReturn() {
	s.CursorX = 0
}

// --- Cursor motion ---

// cursorRegionBounds returns the vertical clamp range for the cursor: the
// scroll region if the cursor currently sits inside it, else the full
// screen.
func (s *Screen) cursorRegionBounds() (top, bottom int) {
	if s.CursorY >= s.ScrollTop && s.CursorY <= s.ScrollBottom {
		return s.ScrollTop, s.ScrollBottom
	}
	return 0, s.Rows() - 1
}

// CursorUp moves the cursor up n rows without wrapping.
func (s *Screen) CursorUp(n int) {
	top, _ := s.cursorRegionBounds()
	s.CursorY = clamp(s.CursorY-n, top, s.Rows()-1)
}

// CursorDown moves the cursor down n rows without wrapping.
func (s *Screen) CursorDown(n int) {
	_, bottom := s.cursorRegionBounds()
	s.CursorY = clamp(s.CursorY+n, 0, bottom)
}

// CursorLeft moves the cursor left n columns, clamped to the screen.
func (s *Screen) CursorLeft(n int) {
	s.CursorX = clamp(s.CursorX-n, 0, s.cols-1)
}

// CursorRight moves the cursor right n columns, clamped to the screen.
func (s *Screen) CursorRight(n int) {
	s.CursorX = clamp(s.CursorX+n, 0, s.cols-1)
}

// CursorPosition sets the absolute (0-based) cursor position, clamped to
// the screen bounds.
func (s *Screen) CursorPosition(row, col int) {
	s.CursorY = clamp(row, 0, s.Rows()-1)
	s.CursorX = clamp(col, 0, s.cols-1)
}

// CursorHorizontalAbsolute sets the column only (0-based).
func (s *Screen) CursorHorizontalAbsolute(col int) {
	s.CursorX = clamp(col, 0, s.cols-1)
}

// CursorVerticalAbsolute sets the row only (0-based).
func (s *Screen) CursorVerticalAbsolute(row int) {
	s.CursorY = clamp(row, 0, s.Rows()-1)
}

// SaveCursor stores the current (x, y) in the single save slot.
// Attributes and origin mode are deliberately NOT saved, matching
// ANSI.SYS (not DEC-compliant) behavior.
func (s *Screen) SaveCursor() {
	s.savedX, s.savedY = s.CursorX, s.CursorY
	s.haveSaved = true
}

// RestoreCursor restores the single-slot saved (x, y). A no-op if
// nothing was ever saved.
func (s *Screen) RestoreCursor() {
	if !s.haveSaved {
		return
	}
	s.CursorX, s.CursorY = s.savedX, s.savedY
}

// --- Erase operations ---

// EraseLine fills columns [colFrom, colTo] of row with the blank cell. If
// honorProtect is true, cells carrying AttrProtect are left untouched.
func (s *Screen) EraseLine(row, colFrom, colTo int, honorProtect bool) {
	line := s.ring.Visible(row)
	if line == nil {
		return
	}
	blank := s.defaultBlank()
	if !honorProtect {
		line.ClearRange(colFrom, colTo, blank)
		return
	}
	if colFrom < 0 {
		colFrom = 0
	}
	if colTo >= len(line.Cells) {
		colTo = len(line.Cells) - 1
	}
	for c := colFrom; c <= colTo; c++ {
		if line.Cells[c].Attr&AttrProtect != 0 {
			continue
		}
		line.Cells[c] = blank
	}
}

// EraseScreen fills rows [rowFrom, rowTo] entirely (colFrom/colTo applied
// only to the first/last row respectively, matching the J/K final
// conventions where a partial erase abuts the cursor).
func (s *Screen) EraseScreen(rowFrom, colFrom, rowTo, colTo int, honorProtect bool) {
	if rowFrom == rowTo {
		s.EraseLine(rowFrom, colFrom, colTo, honorProtect)
		return
	}
	s.EraseLine(rowFrom, colFrom, s.cols-1, honorProtect)
	for r := rowFrom + 1; r < rowTo; r++ {
		s.EraseLine(r, 0, s.cols-1, honorProtect)
	}
	s.EraseLine(rowTo, 0, colTo, honorProtect)
}

// ClearScreen blanks every visible row.
func (s *Screen) ClearScreen() {
	for r := 0; r < s.Rows(); r++ {
		s.EraseLine(r, 0, s.cols-1, false)
	}
}

// FormFeed clears the screen and homes the cursor (FF control byte / the
// ESC-driven full-screen-clear behavior).
func (s *Screen) FormFeed() {
	s.ClearScreen()
	s.CursorX, s.CursorY = 0, 0
}

// --- Intra-line shift ---

// InsertBlanks inserts n blank cells at the cursor column, shifting
// existing cells right; cells pushed past the right margin are
// discarded.
func (s *Screen) InsertBlanks(n int) {
	line := s.ring.Visible(s.CursorY)
	if line == nil || n <= 0 {
		return
	}
	blank := s.defaultBlank()
	width := len(line.Cells)
	for c := width - 1; c >= s.CursorX; c-- {
		src := c - n
		if src >= s.CursorX {
			line.Cells[c] = line.Cells[src]
		} else {
			line.Cells[c] = blank
		}
	}
	line.Length = clamp(line.Length+n, 0, width)
}

// DeleteCharacter deletes n cells at the cursor column, shifting the
// remainder of the line left and filling the vacated tail with blanks.
func (s *Screen) DeleteCharacter(n int) {
	line := s.ring.Visible(s.CursorY)
	if line == nil || n <= 0 {
		return
	}
	blank := s.defaultBlank()
	width := len(line.Cells)
	for c := s.CursorX; c < width; c++ {
		src := c + n
		if src < width {
			line.Cells[c] = line.Cells[src]
		} else {
			line.Cells[c] = blank
		}
	}
	line.Length = clamp(line.Length-n, 0, width)
}

// --- Region scrolling ---

// ScrollingRegionScrollUp scrolls rows [top, bottom] up by n, moving the
// top n lines into scrollback (only when top is the very top of the
// ring's visible window) and filling the bottom with blanks. Used for
// LF-at-bottom, IL, DL.
func (s *Screen) ScrollingRegionScrollUp(top, bottom, n int) {
	if n <= 0 {
		return
	}
	height := bottom - top + 1
	if n > height {
		n = height
	}
	blank := s.defaultBlank()
	if top == 0 {
		for i := 0; i < n; i++ {
			s.ring.PushLine(blank)
		}
		// PushLine shifts the *whole* visible window up by one and adds
		// the blank line at the bottom of the screen; when the region
		// ends above the screen's last row, move the rows below the
		// region back down and blank the region's bottom n rows instead.
		if bottom < s.Rows()-1 {
			for r := s.Rows() - 1; r > bottom; r-- {
				src := s.ring.Visible(r - n)
				dst := s.ring.Visible(r)
				if src != nil && dst != nil {
					*dst = src.Copy()
				}
			}
			for r := bottom - n + 1; r <= bottom; r++ {
				line := s.ring.Visible(r)
				if line != nil {
					line.Clear(blank)
				}
			}
		}
		return
	}
	for r := top; r <= bottom-n; r++ {
		src := s.ring.Visible(r + n)
		dst := s.ring.Visible(r)
		if src != nil && dst != nil {
			*dst = src.Copy()
		}
	}
	for r := bottom - n + 1; r <= bottom; r++ {
		line := s.ring.Visible(r)
		if line != nil {
			line.Clear(blank)
		}
	}
}

// ScrollingRegionScrollDown scrolls rows [top, bottom] down by n,
// discarding the bottom n lines and filling the top with blanks.
func (s *Screen) ScrollingRegionScrollDown(top, bottom, n int) {
	if n <= 0 {
		return
	}
	height := bottom - top + 1
	if n > height {
		n = height
	}
	blank := s.defaultBlank()
	for r := bottom; r >= top+n; r-- {
		src := s.ring.Visible(r - n)
		dst := s.ring.Visible(r)
		if src != nil && dst != nil {
			*dst = src.Copy()
		}
	}
	for r := top; r < top+n; r++ {
		line := s.ring.Visible(r)
		if line != nil {
			line.Clear(blank)
		}
	}
}

// InsertLines inserts n blank lines at the cursor row, scrolling the
// rest of the region down from cursor_y to scroll_bottom (CSI L).
func (s *Screen) InsertLines(n int) {
	top, bottom := s.cursorRegionBounds()
	if s.CursorY < top || s.CursorY > bottom {
		return
	}
	s.ScrollingRegionScrollDown(s.CursorY, bottom, n)
}

// DeleteLines deletes n lines at the cursor row, scrolling the rest of
// the region up (CSI M).
func (s *Screen) DeleteLines(n int) {
	top, bottom := s.cursorRegionBounds()
	if s.CursorY < top || s.CursorY > bottom {
		return
	}
	height := bottom - s.CursorY + 1
	nn := n
	if nn > height {
		nn = height
	}
	blank := s.defaultBlank()
	for r := s.CursorY; r <= bottom-nn; r++ {
		src := s.ring.Visible(r + nn)
		dst := s.ring.Visible(r)
		if src != nil && dst != nil {
			*dst = src.Copy()
		}
	}
	for r := bottom - nn + 1; r <= bottom; r++ {
		line := s.ring.Visible(r)
		if line != nil {
			line.Clear(blank)
		}
	}
}

// --- Resize ---

// Resize grows or shrinks the visible window, re-clamping cursor and
// scroll region. The ring itself never shrinks below the new height.
func (s *Screen) Resize(rows, cols int) {
	s.ring.Resize(rows, cols)
	s.cols = cols
	if cols != len(s.tabStops) {
		stops := make([]bool, cols)
		for i := 0; i < cols && i < len(s.tabStops); i++ {
			stops[i] = s.tabStops[i]
		}
		for i := len(s.tabStops); i < cols; i += 8 {
			if i%8 == 0 {
				stops[i] = true
			}
		}
		s.tabStops = stops
	}
	s.CursorX = clamp(s.CursorX, 0, cols-1)
	s.CursorY = clamp(s.CursorY, 0, rows-1)
	s.ScrollTop = 0
	s.ScrollBottom = rows - 1
}

// SetScrollRegion sets the scrolling region (0-based, inclusive).
func (s *Screen) SetScrollRegion(top, bottom int) {
	top = clamp(top, 0, s.Rows()-1)
	bottom = clamp(bottom, 0, s.Rows()-1)
	if top > bottom {
		top, bottom = 0, s.Rows()-1
	}
	s.ScrollTop, s.ScrollBottom = top, bottom
}

// --- Tab stops ---

// SetTabStop marks col as a tab stop.
func (s *Screen) SetTabStop(col int) {
	if col >= 0 && col < len(s.tabStops) {
		s.tabStops[col] = true
	}
}

// ClearTabStop removes the tab stop at col.
func (s *Screen) ClearTabStop(col int) {
	if col >= 0 && col < len(s.tabStops) {
		s.tabStops[col] = false
	}
}

// ClearAllTabStops removes every tab stop.
func (s *Screen) ClearAllTabStops() {
	for i := range s.tabStops {
		s.tabStops[i] = false
	}
}

// NextTabStop returns the next tab stop strictly after from, or column
// 79 (clamped to cols-1) if none is set and from is already past the
// last default stop — matching the "advance to next multiple of 8 or col
// 79" rule the I (CHT) final specifies.
func (s *Screen) NextTabStop(from int) int {
	for c := from + 1; c < len(s.tabStops); c++ {
		if s.tabStops[c] {
			return c
		}
	}
	last := 79
	if last > s.cols-1 {
		last = s.cols - 1
	}
	return last
}

// --- Color/attribute template ---

// ResetAttr resets the current color/attr template to the default.
func (s *Screen) ResetAttr() {
	s.CurrentAttr = 0
	s.CurrentColor = DefaultColor
}

// Palette maps a 3-bit ANSI color index to a concrete RGBA value for the
// (out-of-scope) screen driver to render.
type Palette [8]color.RGBA

// DefaultPalette is the conventional 8-color ANSI palette.
var DefaultPalette = Palette{
	{0, 0, 0, 255},       // black
	{170, 0, 0, 255},     // red
	{0, 170, 0, 255},     // green
	{170, 85, 0, 255},    // yellow/brown
	{0, 0, 170, 255},     // blue
	{170, 0, 170, 255},   // magenta
	{0, 170, 170, 255},   // cyan
	{170, 170, 170, 255}, // white
}

// brightPalette is DefaultPalette brightened, used when AttrBold is set
// on the foreground — the conventional ANSI.SYS/BBS "bold means bright"
// behavior.
var brightPalette = Palette{
	{85, 85, 85, 255},
	{255, 85, 85, 255},
	{85, 255, 85, 255},
	{255, 255, 85, 255},
	{85, 85, 255, 255},
	{255, 85, 255, 255},
	{85, 255, 255, 255},
	{255, 255, 255, 255},
}

// RGBA resolves a cell's packed color plus the bold attribute to
// driver-ready colors.
func (c ColorPair) RGBA(p Palette, bold bool) (fg, bg color.RGBA) {
	bg = p[c.BG()]
	if bold {
		fg = brightPalette[c.FG()]
	} else {
		fg = p[c.FG()]
	}
	return fg, bg
}

