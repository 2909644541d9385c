// Package cc608 implements the CEA-608 (analog line-21) closed caption
// decoder: the pop-on/roll-up/paint-on/text mode state machine, PAC and
// mid-row code tables, and the two double-buffered 15x32 screens each
// channel owns (§3.2, §4.2).
//
// Grounded on original_source/src/lib_ccx/ccx_decoders_608.c, carried into
// the teacher's stateful-struct, no-allocation style (internal/scte35
// command decoders).
package cc608

import "github.com/zsiec/ccx/subtitle"

// ScreenRows and ScreenCols are the CEA-608 caption grid dimensions.
const (
	ScreenRows = 15
	ScreenCols = 32
)

// rowForPAC maps the PAC row index (0..15, derived from (c1<<1&14)|(c2>>5&1))
// to the 1-based caption row. Index 1 is unused (-1): not a valid PAC code.
var rowForPAC = [16]int{11, -1, 1, 2, 3, 4, 12, 13, 14, 15, 5, 6, 7, 8, 9, 10}

// pacAttr is one entry of the 32-entry PAC2/mid-row attribute table: colour,
// font, and indent column, indexed by (c2 & 0x1F) after folding the 0x40/0x60
// and 0x20 bases together.
type pacAttr struct {
	Color  subtitle.Color
	Font   subtitle.Font
	Indent int
}

var pac2Attribs = [32]pacAttr{
	{subtitle.ColorWhite, subtitle.FontRegular, 0},
	{subtitle.ColorWhite, subtitle.FontUnderlined, 0},
	{subtitle.ColorGreen, subtitle.FontRegular, 0},
	{subtitle.ColorGreen, subtitle.FontUnderlined, 0},
	{subtitle.ColorBlue, subtitle.FontRegular, 0},
	{subtitle.ColorBlue, subtitle.FontUnderlined, 0},
	{subtitle.ColorCyan, subtitle.FontRegular, 0},
	{subtitle.ColorCyan, subtitle.FontUnderlined, 0},
	{subtitle.ColorRed, subtitle.FontRegular, 0},
	{subtitle.ColorRed, subtitle.FontUnderlined, 0},
	{subtitle.ColorYellow, subtitle.FontRegular, 0},
	{subtitle.ColorYellow, subtitle.FontUnderlined, 0},
	{subtitle.ColorMagenta, subtitle.FontRegular, 0},
	{subtitle.ColorMagenta, subtitle.FontUnderlined, 0},
	{subtitle.ColorWhite, subtitle.FontItalics, 0},
	{subtitle.ColorWhite, subtitle.FontUnderlinedItalics, 0},
	{subtitle.ColorWhite, subtitle.FontRegular, 0},
	{subtitle.ColorWhite, subtitle.FontUnderlined, 0},
	{subtitle.ColorWhite, subtitle.FontRegular, 4},
	{subtitle.ColorWhite, subtitle.FontUnderlined, 4},
	{subtitle.ColorWhite, subtitle.FontRegular, 8},
	{subtitle.ColorWhite, subtitle.FontUnderlined, 8},
	{subtitle.ColorWhite, subtitle.FontRegular, 12},
	{subtitle.ColorWhite, subtitle.FontUnderlined, 12},
	{subtitle.ColorWhite, subtitle.FontRegular, 16},
	{subtitle.ColorWhite, subtitle.FontUnderlined, 16},
	{subtitle.ColorWhite, subtitle.FontRegular, 20},
	{subtitle.ColorWhite, subtitle.FontUnderlined, 20},
	{subtitle.ColorWhite, subtitle.FontRegular, 24},
	{subtitle.ColorWhite, subtitle.FontUnderlined, 24},
	{subtitle.ColorWhite, subtitle.FontRegular, 28},
	{subtitle.ColorWhite, subtitle.FontUnderlined, 28},
}

// screen is one of the two double-buffered caption grids a channel owns.
type screen struct {
	chars   [ScreenRows][ScreenCols]byte
	colors  [ScreenRows][ScreenCols]subtitle.Color
	fonts   [ScreenRows][ScreenCols]subtitle.Font
	rowUsed [ScreenRows]bool
	empty   bool
}

func newScreen() *screen {
	s := &screen{}
	s.clear()
	return s
}

func (s *screen) clear() {
	for r := 0; r < ScreenRows; r++ {
		for c := 0; c < ScreenCols; c++ {
			s.chars[r][c] = ' '
			s.colors[r][c] = subtitle.ColorWhite
			s.fonts[r][c] = subtitle.FontRegular
		}
		s.rowUsed[r] = false
	}
	s.empty = true
}

// clearRow blanks a single row, used by PAC's "erase rows below" behaviour
// in roll-up modes and by the roll itself.
func (s *screen) clearRow(row int) {
	for c := 0; c < ScreenCols; c++ {
		s.chars[row][c] = ' '
		s.colors[row][c] = subtitle.ColorWhite
		s.fonts[row][c] = subtitle.FontRegular
	}
	s.rowUsed[row] = false
}

// toSubtitleScreen snapshots the buffer into the immutable record type that
// crosses the package boundary.
func (s *screen) toSubtitleScreen() *subtitle.CC608Screen {
	out := &subtitle.CC608Screen{Empty: s.empty}
	for r := 0; r < ScreenRows; r++ {
		out.Rows[r].Used = s.rowUsed[r]
		for c := 0; c < ScreenCols; c++ {
			out.Rows[r].Cells[c] = subtitle.CC608Cell{
				Char:  rune(s.chars[r][c]),
				Color: s.colors[r][c],
				Font:  s.fonts[r][c],
			}
		}
	}
	return out
}

// text renders the buffer as plain text, rows joined by newline, trimming
// trailing spaces from each used row and dropping unused rows entirely.
func (s *screen) text() string {
	var out []byte
	first := true
	for r := 0; r < ScreenRows; r++ {
		if !s.rowUsed[r] {
			continue
		}
		end := ScreenCols
		for end > 0 && s.chars[r][end-1] == ' ' {
			end--
		}
		if !first {
			out = append(out, '\n')
		}
		first = false
		out = append(out, s.chars[r][:end]...)
	}
	return string(out)
}
