package cc708

import "github.com/zsiec/ccx/subtitle"

// Region is one contiguous run of text within a single row of the TV grid
// (or, if no grid has been composited yet, within a visible window), all
// sharing the same originating window number.
type Region struct {
	Row      int
	StartCol int
	Text     string
	Window   int
}

// StyledRegions decomposes the emitted TV grid that TakeSubtitle has not
// yet taken into contiguous per-row text runs. If no such grid is pending,
// it falls back to each currently visible window's own rows.
func (s *Service) StyledRegions() []Region {
	if s.pendingEmit != nil && s.pendingEmit.CC708 != nil {
		return regionsFromGrid(&s.pendingEmit.CC708.Rows)
	}
	var out []Region
	for i := range s.Windows {
		w := &s.Windows[i]
		if !w.Defined || !w.Visible {
			continue
		}
		for r := 0; r < w.RowCount && r < windowRows; r++ {
			col := 0
			for col < w.ColCount && col < windowCols {
				if w.grid[r][col].Len == 0 {
					col++
					continue
				}
				start := col
				var text []byte
				for col < w.ColCount && col < windowCols && w.grid[r][col].Len != 0 {
					text = append(text, []byte(string(w.grid[r][col].Sym))...)
					col++
				}
				out = append(out, Region{Row: r, StartCol: start, Text: string(text), Window: i})
			}
		}
	}
	return out
}

func regionsFromGrid(rows *[75][210]subtitle.CC708Symbol) []Region {
	var out []Region
	for r := 0; r < len(rows); r++ {
		col := 0
		for col < len(rows[r]) {
			if rows[r][col].Len == 0 {
				col++
				continue
			}
			start := col
			var text []byte
			for col < len(rows[r]) && rows[r][col].Len != 0 {
				text = append(text, []byte(string(rows[r][col].Sym))...)
				col++
			}
			out = append(out, Region{Row: r, StartCol: start, Text: string(text), Window: -1})
		}
	}
	return out
}
