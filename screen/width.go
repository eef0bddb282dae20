package screen

import "github.com/unilibs/uniwidth"

// RuneWidth returns the display width of cp: 2 for wide characters (CJK
// ideographs, fullwidth forms, emoji), 1 for normal glyphs, 0 for
// zero-width marks and control characters.
func RuneWidth(cp rune) int {
	return uniwidth.RuneWidth(cp)
}
