// Package screen implements the cell grid, scrollback ring, and cursor
// model that the ANSI emulator mutates and a screen driver reads.
package screen

// AttrMask is a bitset of cell rendering attributes, kept strictly
// separate from color so that SGR attribute changes never touch the
// color field and vice versa.
type AttrMask uint16

const (
	AttrBold AttrMask = 1 << iota
	AttrDim
	AttrUnderline
	AttrBlink
	AttrReverse
	AttrInvisible
	AttrProtect
)

// ColorPair packs a 3-bit foreground and a 3-bit background index into a
// single byte: color = (fg<<3)|bg.
type ColorPair uint8

// DefaultColor is white-on-black, the ANSI.SYS power-on default.
const DefaultColor ColorPair = (7 << 3) | 0

// NewColorPair packs a foreground/background pair (each masked to its
// low 3 bits).
func NewColorPair(fg, bg int) ColorPair {
	fg &= 0x7
	bg &= 0x7
	return ColorPair(fg<<3 | bg)
}

// FG returns the foreground index (0-7).
func (c ColorPair) FG() int { return int(c>>3) & 0x7 }

// BG returns the background index (0-7).
func (c ColorPair) BG() int { return int(c) & 0x7 }

// WithFG returns a copy of c with the foreground index replaced.
func (c ColorPair) WithFG(fg int) ColorPair { return NewColorPair(fg, c.BG()) }

// WithBG returns a copy of c with the background index replaced.
func (c ColorPair) WithBG(bg int) ColorPair { return NewColorPair(c.FG(), bg) }

// Cell is a single screen position: a glyph, its attributes, and its
// packed color. The zero Cell has Glyph 0 and color 0 (black on black);
// blank fill uses BlankCell or an explicit space instead.
type Cell struct {
	Glyph rune
	Attr  AttrMask
	Color ColorPair
}

// BlankCell returns a cell holding a space in the given color/attr
// template, used to fill erased regions.
func BlankCell(attr AttrMask, color ColorPair) Cell {
	return Cell{Glyph: ' ', Attr: attr, Color: color}
}

// IsBlank reports whether the cell is an unattributed space, used by
// Line.ClearRange to trim trailing blanks.
func (c Cell) IsBlank() bool {
	return c.Glyph == ' ' && c.Attr == 0 && c.Color == DefaultColor
}
