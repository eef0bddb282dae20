package screen

import "testing"

func TestPrintGlyphAdvancesCursor(t *testing.T) {
	s := New(5, 10)
	s.PrintGlyph('H')
	s.PrintGlyph('i')
	if s.CursorX != 2 {
		t.Fatalf("CursorX = %d, want 2", s.CursorX)
	}
	if got := s.Cell(0, 0).Glyph; got != 'H' {
		t.Fatalf("cell(0,0) = %q, want 'H'", got)
	}
}

func TestPrintGlyphWrapsAtMargin(t *testing.T) {
	s := New(3, 4)
	for _, r := range "abcde" {
		s.PrintGlyph(r)
	}
	if s.CursorY != 1 || s.CursorX != 1 {
		t.Fatalf("cursor = (%d,%d), want (1,1) after wrap", s.CursorY, s.CursorX)
	}
	if !s.Ring().Visible(0).Wrapped {
		t.Fatalf("first line should be marked Wrapped after autowrap")
	}
}

func TestCursorPositionClampsToScreen(t *testing.T) {
	s := New(5, 10)
	s.CursorPosition(100, 100)
	if s.CursorY != 4 || s.CursorX != 9 {
		t.Fatalf("cursor = (%d,%d), want clamped to (4,9)", s.CursorY, s.CursorX)
	}
}

func TestSaveRestoreCursorSingleSlot(t *testing.T) {
	s := New(5, 10)
	s.CursorPosition(2, 3)
	s.SaveCursor()
	s.CursorPosition(4, 4)
	s.RestoreCursor()
	if s.CursorY != 2 || s.CursorX != 3 {
		t.Fatalf("cursor = (%d,%d), want restored (2,3)", s.CursorY, s.CursorX)
	}
}

func TestRestoreCursorNoopWithoutSave(t *testing.T) {
	s := New(5, 10)
	s.CursorPosition(2, 3)
	s.RestoreCursor()
	if s.CursorY != 2 || s.CursorX != 3 {
		t.Fatalf("RestoreCursor with nothing saved moved the cursor")
	}
}

func TestEraseLineHonorsProtect(t *testing.T) {
	s := New(5, 10)
	line := s.Ring().Visible(0)
	line.Set(2, Cell{Glyph: 'X', Attr: AttrProtect})
	s.EraseLine(0, 0, 9, true)
	if got := line.Cell(2).Glyph; got != 'X' {
		t.Fatalf("protected cell erased, got %q", got)
	}
	if got := line.Cell(0).Glyph; got != ' ' {
		t.Fatalf("unprotected cell not erased, got %q", got)
	}
}

func TestScrollingRegionScrollUpPushesIntoScrollback(t *testing.T) {
	s := New(3, 5)
	for row := 0; row < 3; row++ {
		s.Ring().Visible(row).Set(0, Cell{Glyph: rune('A' + row)})
	}
	s.ScrollingRegionScrollUp(0, 2, 1)
	if got := s.Cell(0, 0).Glyph; got != 'B' {
		t.Fatalf("row 0 after scroll = %q, want 'B'", got)
	}
	if got := s.Cell(2, 0).Glyph; got != ' ' {
		t.Fatalf("new bottom row should be blank, got %q", got)
	}
}

func TestScrollingRegionScrollUpWithinSubregion(t *testing.T) {
	s := New(5, 5)
	for row := 0; row < 5; row++ {
		s.Ring().Visible(row).Set(0, Cell{Glyph: rune('A' + row)})
	}
	// scroll only rows 1..3 up by 1; rows 0 and 4 must be untouched
	s.ScrollingRegionScrollUp(1, 3, 1)
	if got := s.Cell(0, 0).Glyph; got != 'A' {
		t.Fatalf("row 0 outside region changed: %q", got)
	}
	if got := s.Cell(4, 0).Glyph; got != 'E' {
		t.Fatalf("row 4 outside region changed: %q", got)
	}
	if got := s.Cell(1, 0).Glyph; got != 'C' {
		t.Fatalf("row 1 after sub-region scroll = %q, want 'C'", got)
	}
	if got := s.Cell(3, 0).Glyph; got != ' ' {
		t.Fatalf("region bottom after scroll should be blank, got %q", got)
	}
}

func TestInsertBlanksShiftsRight(t *testing.T) {
	s := New(1, 5)
	for i, r := range "ABCDE" {
		s.Ring().Visible(0).Set(i, Cell{Glyph: r})
	}
	s.CursorPosition(0, 1)
	s.InsertBlanks(2)
	want := "A  BC"
	for i, r := range want {
		if got := s.Cell(0, i).Glyph; got != r {
			t.Fatalf("col %d = %q, want %q (line %q)", i, got, r, want)
		}
	}
}

func TestDeleteCharacterShiftsLeft(t *testing.T) {
	s := New(1, 5)
	for i, r := range "ABCDE" {
		s.Ring().Visible(0).Set(i, Cell{Glyph: r})
	}
	s.CursorPosition(0, 1)
	s.DeleteCharacter(2)
	want := "ADE  "
	for i, r := range want {
		if got := s.Cell(0, i).Glyph; got != r {
			t.Fatalf("col %d = %q, want %q (line %q)", i, got, r, want)
		}
	}
}

func TestResizeNeverShrinksRingBelowVisible(t *testing.T) {
	s := New(10, 20)
	for i := 0; i < 30; i++ {
		s.Ring().PushLine(Cell{Glyph: ' '})
	}
	s.Resize(5, 20)
	if s.Ring().Len() < 5 {
		t.Fatalf("ring length %d below visible height 5 after resize", s.Ring().Len())
	}
}

func TestAnsiAnimateFiresOnlyOnColorChange(t *testing.T) {
	s := New(3, 10, WithRefresh(func() {}))
	s.AnsiAnimate = true
	calls := 0
	s.RefreshFunc = func() { calls++ }
	s.PrintGlyph('A')
	s.PrintGlyph('B')
	if calls != 1 {
		t.Fatalf("refresh fired %d times for two same-color glyphs, want 1", calls)
	}
	s.CurrentColor = NewColorPair(1, 0)
	s.PrintGlyph('C')
	if calls != 2 {
		t.Fatalf("refresh did not fire on color change, calls=%d", calls)
	}
}

func TestColorPairRGBABoldUsesBrightPalette(t *testing.T) {
	c := NewColorPair(1, 0)
	fgNormal, _ := c.RGBA(DefaultPalette, false)
	fgBold, _ := c.RGBA(DefaultPalette, true)
	if fgNormal == fgBold {
		t.Fatalf("bold foreground should differ from normal foreground")
	}
}
