package cc608

import "github.com/zsiec/ccx/subtitle"

// Region is one contiguous, uniformly-styled run of text on the currently
// visible screen: a maximal span within one row sharing colour and font.
type Region struct {
	Row      int
	StartCol int
	Text     string
	Color    subtitle.Color
	Font     subtitle.Font
}

// StyledRegions decomposes the currently visible screen into styled runs,
// one per contiguous same-colour/same-font span within a used row.
func (d *Decoder) StyledRegions() []Region {
	buf := d.visibleBuffer()
	var out []Region
	for r := 0; r < ScreenRows; r++ {
		if !buf.rowUsed[r] {
			continue
		}
		col := 0
		for col < ScreenCols {
			if buf.chars[r][col] == ' ' {
				col++
				continue
			}
			startCol := col
			color := buf.colors[r][col]
			font := buf.fonts[r][col]
			var text []byte
			for col < ScreenCols && buf.colors[r][col] == color && buf.fonts[r][col] == font && buf.chars[r][col] != 0 {
				if buf.chars[r][col] == ' ' {
					// allow a single embedded space to continue the run,
					// but stop a run of two or more trailing spaces.
					if col+1 >= ScreenCols || buf.chars[r][col+1] == ' ' {
						break
					}
				}
				text = append(text, buf.chars[r][col])
				col++
			}
			out = append(out, Region{Row: r, StartCol: startCol, Text: string(text), Color: color, Font: font})
		}
	}
	return out
}
