// Package cc708 implements the CEA-708 (DTVCC) service decoder: the
// packetiser, service-block code-group dispatch, DefineWindow geometry,
// and the per-service TV-grid compositor (§4.3).
//
// Grounded on original_source's lack of a complete 708 implementation
// (ccx_decoders_708.c sits outside the retrieved slice) and on the
// teacher's test/tools/inject-captions/cea708.go encoder, read in reverse
// to recover the opcode values, bit-packed parameter layouts, and the
// service-block/packet header formats it constructs.
package cc708

import (
	"github.com/zsiec/ccx/subtitle"
	"github.com/zsiec/ccx/timing"
)

// C0 control codes (0x00-0x1F).
const (
	c0NUL  = 0x00
	c0ETX  = 0x03
	c0BS   = 0x08
	c0FF   = 0x0C
	c0CR   = 0x0D
	c0HCR  = 0x0E
	c0EXT1 = 0x10
	c0P16  = 0x18
)

// C1 window/pen commands (0x80-0x9F).
const (
	c1CW0 = 0x80 // .. 0x87 CW7
	c1CLW = 0x88
	c1DSW = 0x89
	c1HDW = 0x8A
	c1TGW = 0x8B
	c1DLW = 0x8C
	c1DLY = 0x8D
	c1DLC = 0x8E
	c1RST = 0x8F
	c1SPA = 0x90
	c1SPC = 0x91
	c1SPL = 0x92
	c1SWA = 0x97
	c1DF0 = 0x98 // .. 0x9F DF7
)

// commandLen returns the total byte length (opcode included) of a C1
// command, or 0 if b isn't a recognised C1 opcode.
func commandLen(b byte) int {
	switch {
	case b >= c1CW0 && b <= 0x87:
		return 1
	case b == c1CLW, b == c1DSW, b == c1HDW, b == c1TGW, b == c1DLW, b == c1DLY:
		return 2
	case b == c1DLC, b == c1RST:
		return 1
	case b == c1SPA:
		return 3
	case b == c1SPC:
		return 4
	case b == c1SPL:
		return 3
	case b == c1SWA:
		return 5
	case b >= c1DF0 && b <= 0x9F:
		return 7
	}
	return 0
}

// Service is one of up to 63 CEA-708 caption services: its 8 windows, the
// currently selected window, and the 75x210 TV grid windows composite onto
// (§3.3, §3.4).
type Service struct {
	Windows       [8]Window
	CurrentWindow int

	grid [tvGridRows][tvGridCols]subtitle.CC708Symbol

	Timing *timing.Context
	Field  timing.Field

	pendingEmit *subtitle.Subtitle
}

// NewCEA708Service returns a Service with no windows defined and a private
// timing Context on the 708-specific field counter.
func NewCEA708Service() *Service {
	s := &Service{Timing: timing.NewContext(), Field: timing.Field708}
	for i := range s.Windows {
		s.Windows[i].Number = i
	}
	return s
}

// ProcessBlock consumes one service block's command bytes and returns
// whether the call produced a display change worth reading via
// DisplayText/StyledRegions (matching the reference harness's boolean
// "did anything change" convention).
func (s *Service) ProcessBlock(data []byte) bool {
	changed := false
	i := 0
	for i < len(data) {
		b := data[i]
		switch {
		case b < 0x20:
			i += s.handleC0(data[i:])
		case b < 0x80:
			s.writeSymbol(subtitle.CC708Symbol{Sym: g0(b), Len: 1})
			i++
		case b < 0xA0:
			n := commandLen(b)
			if n == 0 || i+n > len(data) {
				return changed
			}
			if s.handleC1(data[i : i+n]) {
				changed = true
			}
			i += n
		default:
			s.writeSymbol(subtitle.CC708Symbol{Sym: g1(b), Len: 1})
			i++
		}
	}
	return changed
}

func (s *Service) handleC0(data []byte) int {
	if len(data) == 0 {
		return 1
	}
	w := s.currentWindow()
	switch data[0] {
	case c0NUL, c0ETX:
		return 1
	case c0BS:
		if w != nil && w.PenCol > 0 {
			w.PenCol--
		}
		return 1
	case c0FF:
		if w != nil {
			w.PenRow, w.PenCol = 0, 0
		}
		return 1
	case c0CR:
		s.carriageReturn(w)
		return 1
	case c0HCR:
		if w != nil {
			w.clearRow(w.PenRow)
			w.PenCol = 0
		}
		return 1
	case c0EXT1:
		if len(data) < 2 {
			return len(data)
		}
		return 1 + s.handleExtended(data[1:])
	case c0P16:
		if len(data) < 3 {
			return len(data)
		}
		sym := uint16(data[1])<<8 | uint16(data[2])
		s.writeSymbol(subtitle.CC708Symbol{Sym: rune(sym), Len: 2})
		return 3
	}
	return 1
}

// handleExtended dispatches the EXT1-prefixed C2/G2/C3/G3 groups (§4.3.2).
// Returns the number of bytes consumed AFTER the EXT1 byte itself.
func (s *Service) handleExtended(data []byte) int {
	if len(data) == 0 {
		return 0
	}
	b := data[0]
	switch {
	case b <= 0x07:
		return 1
	case b <= 0x0F:
		return min(2, len(data))
	case b <= 0x17:
		return min(3, len(data))
	case b <= 0x1F:
		return min(4, len(data))
	case b >= 0x20 && b <= 0x7F:
		s.writeSymbol(subtitle.CC708Symbol{Sym: g2(b), Len: 1})
		return 1
	case b >= 0x80 && b <= 0x9F:
		return min(2, len(data))
	default: // 0xA0-0xFF: G3
		s.writeSymbol(subtitle.CC708Symbol{Sym: g3(b), Len: 1})
		return 1
	}
}

func (s *Service) currentWindow() *Window {
	w := &s.Windows[s.CurrentWindow]
	if !w.Defined {
		return nil
	}
	return w
}

func (s *Service) writeSymbol(sym subtitle.CC708Symbol) {
	w := s.currentWindow()
	if w == nil {
		return
	}
	w.putSymbol(sym)
}

func (s *Service) carriageReturn(w *Window) {
	if w == nil {
		return
	}
	switch w.Attrs.PrintDir {
	case DirLeftToRight, DirRightToLeft:
		if w.PenRow >= w.RowCount-1 {
			s.scrollWindow(w)
		} else {
			w.PenRow++
		}
	default:
		if w.PenCol >= w.ColCount-1 {
			s.scrollWindow(w)
		} else {
			w.PenCol++
		}
	}
}

func (s *Service) scrollWindow(w *Window) {
	if w.Attrs.ScrollDir == DirTopToBottom || w.Attrs.ScrollDir == DirBottomToTop {
		for r := 0; r < w.RowCount-1; r++ {
			w.grid[r] = w.grid[r+1]
		}
		w.clearRow(w.RowCount - 1)
	} else {
		for r := 0; r < windowRows; r++ {
			copy(w.grid[r][:], w.grid[r][1:])
			w.grid[r][w.ColCount-1] = subtitle.CC708Symbol{}
		}
	}
}

// handleC1 dispatches a window/pen command. Returns true when the call
// altered the composited TV grid (a window became visible, hidden, or the
// grid was recomposed), which is what ProcessBlock surfaces as "changed".
func (s *Service) handleC1(cmd []byte) bool {
	op := cmd[0]
	switch {
	case op >= c1CW0 && op <= 0x87:
		s.CurrentWindow = int(op - c1CW0)
		return false
	case op == c1CLW:
		return false
	case op == c1DSW:
		return s.setWindowsVisible(cmd[1], true)
	case op == c1HDW:
		return s.setWindowsVisible(cmd[1], false)
	case op == c1TGW:
		bits := cmd[1]
		changed := false
		for i := 0; i < 8; i++ {
			if bits&(1<<uint(i)) != 0 {
				if s.setWindowsVisible(1<<uint(i), !s.Windows[i].Visible) {
					changed = true
				}
			}
		}
		return changed
	case op == c1DLW:
		bits := cmd[1]
		for i := 0; i < 8; i++ {
			if bits&(1<<uint(i)) != 0 {
				s.Windows[i] = Window{Number: i}
			}
		}
		return false
	case op == c1DLY, op == c1DLC:
		return false
	case op == c1RST:
		s.reset()
		return true
	case op == c1SPA:
		s.setPenAttributes(cmd[1], cmd[2])
		return false
	case op == c1SPC:
		s.setPenColor(cmd[1], cmd[2], cmd[3])
		return false
	case op == c1SPL:
		s.setPenLocation(cmd[1], cmd[2])
		return false
	case op == c1SWA:
		s.setWindowAttributes(cmd[1:5])
		return false
	case op >= c1DF0 && op <= 0x9F:
		return s.defineWindow(int(op-c1DF0), cmd[1:])
	}
	return false
}

func (s *Service) setPenAttributes(b1, b2 byte) {
	w := s.currentWindow()
	if w == nil {
		return
	}
	w.Pen.Size = (b1 >> 6) & 0x03
	w.Pen.Offset = (b1 >> 4) & 0x03
	w.Pen.TextTag = b1 & 0x0F
	w.Pen.FontTag = (b2 >> 5) & 0x07
	w.Pen.EdgeType = (b2 >> 2) & 0x07
	w.Pen.Underline = (b2>>1)&0x01 == 1
	w.Pen.Italic = b2&0x01 == 1
}

func (s *Service) setPenColor(b1, b2, b3 byte) {
	w := s.currentWindow()
	if w == nil {
		return
	}
	w.Color.FGOpacity = (b1 >> 6) & 0x03
	w.Color.FGColor = b1 & 0x3F
	w.Color.BGOpacity = (b2 >> 6) & 0x03
	w.Color.BGColor = b2 & 0x3F
	w.Color.EdgeColor = (b3 >> 2) & 0x3F
}

func (s *Service) setPenLocation(b1, b2 byte) {
	w := s.currentWindow()
	if w == nil {
		return
	}
	w.PenRow = int(b1 & 0x0F)
	w.PenCol = int(b2 & 0x3F)
}

func (s *Service) setWindowAttributes(p []byte) {
	w := s.currentWindow()
	if w == nil {
		return
	}
	w.Attrs.FillOpacity = (p[0] >> 6) & 0x03
	w.Attrs.FillColor = p[0] & 0x3F
	w.Attrs.BorderColor = p[1] & 0x3F
	w.Attrs.BorderType = ((p[2] >> 7) & 0x01) | (((p[1] >> 6) & 0x03) << 1)
	w.Attrs.PrintDir = Direction((p[2] >> 5) & 0x03)
	w.Attrs.ScrollDir = Direction((p[2] >> 3) & 0x03)
	w.Attrs.Justify = (p[2] >> 1) & 0x03
	w.Attrs.WordWrap = p[2]&0x01 == 1
	w.Attrs.DisplayEffect = (p[3] >> 6) & 0x03
	w.Attrs.EffectDir = (p[3] >> 4) & 0x03
	w.Attrs.EffectSpeed = p[3] & 0x0F
}

func (s *Service) setWindowsVisible(bits byte, visible bool) bool {
	changed := false
	for i := 0; i < 8; i++ {
		if bits&(1<<uint(i)) == 0 {
			continue
		}
		w := &s.Windows[i]
		if !w.Defined || w.Visible == visible {
			continue
		}
		w.Visible = visible
		changed = true
		if visible {
			w.timeShowMS = s.visibleStart()
		} else {
			w.timeHideMS = s.visibleEnd()
			s.composite(w)
		}
	}
	return changed
}

func (s *Service) defineWindow(num int, p []byte) bool {
	if num < 0 || num >= 8 || len(p) < 6 {
		return false
	}
	var raw [6]byte
	copy(raw[:], p[:6])

	w := &s.Windows[num]
	if w.haveLastDefine && w.lastDefineBytes == raw {
		return false
	}
	w.lastDefineBytes = raw
	w.haveLastDefine = true

	params := decodeDefineWindow(p)

	if !w.Defined {
		w.clearGrid()
		w.PenRow, w.PenCol = 0, 0
	}
	w.Number = num
	w.Defined = true
	w.Priority = params.Priority
	w.ColLock = params.ColLock
	w.RowLock = params.RowLock
	w.Visible = params.Visible
	w.AnchorV = params.AnchorV
	w.RelativePos = params.RelativePos
	w.AnchorH = params.AnchorH
	w.RowCount = params.RowCount
	w.ColCount = params.ColCount
	w.Anchor = params.AnchorPoint
	w.PenStyle = params.PenStyle
	w.WinStyle = params.WinStyle
	s.CurrentWindow = num
	return false
}

func (s *Service) reset() {
	for i := range s.Windows {
		s.Windows[i] = Window{Number: i}
	}
	s.CurrentWindow = 0
	for r := 0; r < tvGridRows; r++ {
		for c := 0; c < tvGridCols; c++ {
			s.grid[r][c] = subtitle.CC708Symbol{}
		}
	}
}

// composite copies a hidden window's rows onto the TV grid at its anchored
// position (§4.3.4), then emits the grid as a Subtitle if no window
// remains visible.
func (s *Service) composite(w *Window) {
	row, col := topLeftFor(w.Anchor, w.AnchorV, w.AnchorH, w.RowCount, w.ColCount)
	for r := 0; r < w.RowCount; r++ {
		for c := 0; c < w.ColCount; c++ {
			gr, gc := row+r, col+c
			if gr < 0 || gr >= tvGridRows || gc < 0 || gc >= tvGridCols {
				continue
			}
			s.grid[gr][gc] = w.grid[r][c]
		}
	}

	anyVisible := false
	for i := range s.Windows {
		if s.Windows[i].Defined && s.Windows[i].Visible {
			anyVisible = true
			break
		}
	}
	if !anyVisible {
		s.emitGrid(w.timeShowMS, w.timeHideMS)
	}
}

func (s *Service) emitGrid(startMS, endMS int64) {
	grid := &subtitle.CC708Screen{}
	grid.Rows = s.grid
	s.pendingEmit = &subtitle.Subtitle{
		Kind:    subtitle.KindCC708,
		StartMS: startMS,
		EndMS:   endMS,
		CC708:   grid,
		Text:    s.gridText(),
	}
	for r := 0; r < tvGridRows; r++ {
		for c := 0; c < tvGridCols; c++ {
			s.grid[r][c] = subtitle.CC708Symbol{}
		}
	}
}

func (s *Service) gridText() string {
	var out []byte
	first := true
	for r := 0; r < tvGridRows; r++ {
		end := tvGridCols
		for end > 0 && s.grid[r][end-1].Len == 0 {
			end--
		}
		if end == 0 {
			continue
		}
		if !first {
			out = append(out, '\n')
		}
		first = false
		for c := 0; c < end; c++ {
			sym := s.grid[r][c]
			if sym.Len == 0 {
				out = append(out, ' ')
				continue
			}
			out = append(out, []byte(string(sym.Sym))...)
		}
	}
	return string(out)
}

// DisplayText renders the currently visible window(s) as plain text: the
// composited TV grid if a grid snapshot was just emitted, else whichever
// window is both defined and visible (pop-up/paint-on preview).
func (s *Service) DisplayText() string {
	if s.pendingEmit != nil {
		return s.pendingEmit.Text
	}
	var parts []string
	for i := range s.Windows {
		w := &s.Windows[i]
		if w.Defined && w.Visible {
			if t := w.text(); t != "" {
				parts = append(parts, t)
			}
		}
	}
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += "\n"
		}
		out += p
	}
	return out
}

// TakeSubtitle returns and clears the most recently emitted grid-composite
// Subtitle record, or nil if none is pending.
func (s *Service) TakeSubtitle() *subtitle.Subtitle {
	sub := s.pendingEmit
	s.pendingEmit = nil
	return sub
}

func (s *Service) visibleStart() int64 {
	if s.Timing == nil {
		return 0
	}
	return s.Timing.GetVisibleStart(s.Field)
}

func (s *Service) visibleEnd() int64 {
	if s.Timing == nil {
		return 0
	}
	return s.Timing.GetVisibleEnd(s.Field)
}
