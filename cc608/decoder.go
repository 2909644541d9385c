package cc608

import (
	"github.com/zsiec/ccx/subtitle"
	"github.com/zsiec/ccx/timing"
)

// Decoder is one CEA-608 channel's caption state machine: mode, cursor,
// the two double-buffered screens, and the small amount of transient state
// (duplicate-code memory, channel tracking, pop-on/roll-up transition
// timing) the command handlers in §4.2.2 depend on.
//
// A Decoder does not filter by channel itself; callers are expected to
// route each logical channel's byte pairs to its own Decoder instance
// (see the root ExtractCaptions/CC608Pair API), matching how the reference
// harness keys one Decoder per CC1..CC4. The channel-parity bookkeeping
// below (channel/newChannel) still runs so PAC and extended-character
// handling can apply the same "new_channel > 2 -> -2" correction the
// original decoder performs when a channel-2 code arrives on what looks
// like a channel-1 stream.
type Decoder struct {
	Timing *timing.Context
	Field  timing.Field

	mode    Mode
	visible int // 1 or 2: which of buf1/buf2 is currently on screen

	buf1 *screen
	buf2 *screen

	cursorRow int
	cursorCol int

	currentColor subtitle.Color
	font         subtitle.Font

	channel    int
	newChannel int

	lastC1, lastC2 byte
	haveLast       bool

	haveCursorPosition bool
	rollupBaseRow      int
	rollupFromPopOn    bool

	tsStartOfCurrentLine int64
	tsLastCharReceived   int64
	visibleStartMS       int64

	screenfuls int

	// Transcript-style emission: when true, CR also flushes the cursor
	// line (§4.2.2 edge case); unset by default (binary/native emission).
	TranscriptMode bool

	// DefaultColor lets callers honour the "-usercolor" override the
	// original decoder supports; zero value (ColorWhite) matches stock
	// behaviour.
	DefaultColor subtitle.Color

	pending []*subtitle.Subtitle
}

// NewCEA608Decoder returns a fresh decoder in pop-on mode with both screens
// cleared, owning a private timing Context on Field1. Callers that need to
// share timing across decoders (e.g. one per channel, same field) should
// set Timing/Field themselves before the first Decode call.
func NewCEA608Decoder() *Decoder {
	d := &Decoder{
		Timing:               timing.NewContext(),
		Field:                timing.Field1,
		mode:                 ModePopOn,
		visible:              1,
		buf1:                 newScreen(),
		buf2:                 newScreen(),
		channel:              1,
		newChannel:           1,
		rollupBaseRow:        14,
		tsStartOfCurrentLine: -1,
		tsLastCharReceived:   -1,
	}
	return d
}

func (d *Decoder) writingBuffer() *screen {
	switch d.mode {
	case ModePopOn:
		if d.visible == 1 {
			return d.buf2
		}
		return d.buf1
	default:
		if d.visible == 1 {
			return d.buf1
		}
		return d.buf2
	}
}

func (d *Decoder) visibleBuffer() *screen {
	if d.visible == 1 {
		return d.buf1
	}
	return d.buf2
}

// Decode is the single entry point matching the reference harness's calling
// convention: feed one CEA-608 byte pair, get back the plain text of the
// screen most recently emitted by this call (empty string if nothing was
// emitted). Callers after richer data use Process, which returns the full
// Subtitle record(s).
func (d *Decoder) Decode(b1, b2 byte) string {
	subs := d.Process(b1, b2)
	if len(subs) == 0 {
		return ""
	}
	last := subs[len(subs)-1]
	return last.Text
}

// Process implements the 608 decoder's process operation (§4.2): strips
// parity, drops padding, de-duplicates repeated control codes, and
// dispatches the pair. Returns zero or more Subtitle records emitted as a
// side effect of this pair (pop-on EOC, roll-up CR scroll, EDM, explicit
// flush commands).
func (d *Decoder) Process(b1, b2 byte) []*subtitle.Subtitle {
	d.pending = d.pending[:0]

	hi := b1 & 0x7F
	lo := b2 & 0x7F
	if hi == 0 && lo == 0 {
		return nil
	}

	if hi >= 0x10 && hi <= 0x1F {
		if d.haveLast && d.lastC1 == hi && d.lastC2 == lo {
			d.haveLast = false
			return nil
		}
		d.lastC1, d.lastC2 = hi, lo
		d.haveLast = true
	} else {
		d.haveLast = false
	}

	// Dispatch ranges below must not overlap: mid-row/special-char live
	// only at hi==0x11 (their channel-2 twin, 0x19, normalises down to
	// 0x11 before reaching here — see Splitter), extended only at
	// hi==0x12/0x13, misc control codes only at hi==0x14/0x15 (plus their
	// un-normalised 0x1C/0x1D forms, for callers feeding a Decoder raw
	// field bytes directly), and PAC spans the whole 0x10-0x17 row but
	// only at lo>=0x40, which none of the others reach.
	switch {
	case hi == 0x11 && lo >= 0x20 && lo <= 0x2F:
		d.handleMidRow(hi, lo)
	case hi == 0x11 && lo >= 0x30 && lo <= 0x3F:
		d.handleSpecialChar(hi, lo)
	case (hi == 0x12 || hi == 0x13) && lo >= 0x20 && lo <= 0x3F:
		d.handleExtended(hi, lo)
	case hi >= 0x10 && hi <= 0x17 && lo >= 0x40 && lo <= 0x7F:
		d.handlePAC(hi, lo)
	case (hi == 0x14 || hi == 0x15 || hi == 0x1C || hi == 0x1D) && lo >= 0x20 && lo <= 0x2F:
		d.handleCommand(hi, lo)
	case (hi == 0x17 || hi == 0x1F) && lo >= 0x21 && lo <= 0x23:
		d.handleTabOffset(hi, lo)
	case hi >= 0x20 && hi <= 0x7F:
		d.updateChannel(hi)
		if d.channel == 1 {
			d.writeChar(byte(hi))
			d.writeChar(byte(lo))
		}
	}

	return d.pending
}

func (d *Decoder) updateChannel(c1 byte) {
	if c1 >= 0x10 && c1 <= 0x17 {
		d.newChannel = 1
	} else if c1 >= 0x18 && c1 <= 0x1E {
		d.newChannel = 2
	}
	d.channel = d.newChannel
}

func (d *Decoder) emit(s *screen) {
	if s.empty {
		return
	}
	start := d.visibleStartMS
	end := d.Timing.GetVisibleEnd(d.Field)
	if start >= end {
		return
	}
	sub := &subtitle.Subtitle{
		Kind:    subtitle.KindCC608,
		StartMS: start,
		EndMS:   end,
		CC608:   s.toSubtitleScreen(),
		Text:    s.text(),
		Channel: d.channel,
		Field:   int(d.Field),
		Mode:    d.mode.String(),
	}
	d.screenfuls++
	d.pending = append(d.pending, sub)
}

// emitVisible flushes the currently-visible buffer, per write_cc_buffer.
func (d *Decoder) emitVisible() bool {
	if d.mode == ModeRollUp1 && d.tsStartOfCurrentLine != -1 {
		d.visibleStartMS = d.tsStartOfCurrentLine
	}
	before := len(d.pending)
	d.emit(d.visibleBuffer())
	return len(d.pending) > before
}

func (d *Decoder) eraseMemory(displayed bool) {
	var buf *screen
	if displayed {
		buf = d.visibleBuffer()
	} else {
		if d.visible == 1 {
			buf = d.buf2
		} else {
			buf = d.buf1
		}
	}
	buf.clear()
}

func (d *Decoder) writeChar(c byte) {
	if d.mode == ModeText {
		return
	}
	buf := d.writingBuffer()
	if d.cursorRow >= ScreenRows || d.cursorCol >= ScreenCols {
		return
	}
	buf.chars[d.cursorRow][d.cursorCol] = c
	buf.colors[d.cursorRow][d.cursorCol] = d.currentColor
	buf.fonts[d.cursorRow][d.cursorCol] = d.font
	buf.rowUsed[d.cursorRow] = true

	if buf.empty {
		if d.mode != ModePopOn && !d.rollupFromPopOn {
			d.visibleStartMS = d.Timing.GetVisibleStart(d.Field)
		}
	}
	buf.empty = false

	if d.cursorCol < ScreenCols-1 {
		d.cursorCol++
	}
	if d.tsStartOfCurrentLine == -1 {
		d.tsStartOfCurrentLine = d.Timing.GetFTS(d.Field)
	}
	d.tsLastCharReceived = d.Timing.GetFTS(d.Field)
}

func (d *Decoder) handleMidRow(c1, c2 byte) {
	d.updateChannel(c1)
	if d.channel != 1 {
		return
	}
	i := c2 - 0x20
	attr := pac2Attribs[i]
	d.currentColor = attr.Color
	d.font = attr.Font
	d.writeChar(' ')
}

func (d *Decoder) handleSpecialChar(c1, c2 byte) {
	if d.channel != 1 {
		return
	}
	if c2 >= 0x30 && c2 <= 0x3F {
		d.writeChar(c2 + 0x50)
	}
}

func (d *Decoder) handleExtended(hi, lo byte) {
	if d.newChannel > 2 {
		d.newChannel -= 2
	}
	d.channel = d.newChannel
	if d.channel != 1 {
		return
	}
	var c byte
	switch hi {
	case 0x12:
		c = lo + 0x70
	case 0x13:
		c = lo + 0x90
	}
	if d.cursorCol > 0 {
		d.cursorCol--
	}
	d.writeChar(c)
}

func (d *Decoder) handlePAC(c1, c2 byte) {
	if d.newChannel > 2 {
		d.newChannel -= 2
	}
	d.channel = d.newChannel
	if d.channel != 1 {
		return
	}

	row := rowForPAC[((c1<<1)&14)|((c2>>5)&1)]
	if row < 1 {
		return
	}

	var idx byte
	switch {
	case c2 >= 0x40 && c2 <= 0x5F:
		idx = c2 - 0x40
	case c2 >= 0x60 && c2 <= 0x7F:
		idx = c2 - 0x60
	default:
		return
	}

	attr := pac2Attribs[idx]
	d.currentColor = attr.Color
	d.font = attr.Font
	if d.DefaultColor == subtitle.ColorUserDefined && (attr.Color == subtitle.ColorWhite || attr.Color == subtitle.ColorTransparent) {
		d.currentColor = subtitle.ColorUserDefined
	}

	if d.mode != ModeText {
		d.cursorRow = row - 1
	}
	d.rollupBaseRow = row - 1
	d.cursorCol = attr.Indent
	d.haveCursorPosition = true

	if d.mode.isRollUp() {
		buf := d.writingBuffer()
		for j := row; j < ScreenRows; j++ {
			if buf.rowUsed[j] {
				buf.clearRow(j)
			}
		}
	}
}

func (d *Decoder) handleTabOffset(c1, c2 byte) {
	d.updateChannel(c1)
	if d.channel != 1 {
		return
	}
	switch c2 {
	case 0x21:
		if d.cursorCol < ScreenCols-1 {
			d.cursorCol++
		}
	case 0x22:
		d.cursorCol += 2
	case 0x23:
		d.cursorCol += 3
	}
	if d.cursorCol > ScreenCols-1 {
		d.cursorCol = ScreenCols - 1
	}
}

// checkRollUp reports whether the next physical roll_up would push a used
// row off the top of the screen (i.e. actually delete a line), mirroring
// check_roll_up.
func (d *Decoder) checkRollUp() bool {
	buf := d.visibleBuffer()
	keep := d.mode.keepLines()
	if keep == 0 {
		return false
	}
	if buf.rowUsed[0] {
		return true
	}
	first, last := -1, -1
	for i := 0; i < ScreenRows; i++ {
		if buf.rowUsed[i] {
			if first == -1 {
				first = i
			}
			last = i
		}
	}
	if last == -1 {
		return false
	}
	if last-first+1 >= keep {
		return true
	}
	if first-1 <= d.cursorRow-keep {
		return true
	}
	return false
}

// rollUp physically scrolls the visible buffer up by one line within the
// keep-lines window, mirroring roll_up.
func (d *Decoder) rollUp() {
	buf := d.visibleBuffer()
	keep := d.mode.keepLines()

	first, last := -1, -1
	rowsOrig := 0
	for i := 0; i < ScreenRows; i++ {
		if buf.rowUsed[i] {
			rowsOrig++
			if first == -1 {
				first = i
			}
			last = i
		}
	}
	if last == -1 {
		return
	}

	for j := last - keep + 1; j < last; j++ {
		if j >= 0 {
			buf.chars[j] = buf.chars[j+1]
			buf.colors[j] = buf.colors[j+1]
			buf.fonts[j] = buf.fonts[j+1]
			buf.rowUsed[j] = buf.rowUsed[j+1]
		}
	}
	for j := 0; j < 1+d.cursorRow-keep; j++ {
		if j >= 0 && j < ScreenRows {
			buf.clearRow(j)
		}
	}
	buf.clearRow(last)

	rowsNow := 0
	for i := 0; i < ScreenRows; i++ {
		if buf.rowUsed[i] {
			rowsNow++
		}
	}
	if rowsNow == 0 {
		buf.empty = true
	}
}

func (d *Decoder) enterRollUp(newMode Mode) {
	if d.mode == ModePopOn || d.mode == ModePaintOn {
		if d.emitVisible() {
			d.screenfuls++
		}
		d.eraseMemory(true)
		d.rollupFromPopOn = true
		d.tsStartOfCurrentLine = -1
	}
	d.eraseMemory(false)

	if d.mode != ModeText && !d.haveCursorPosition {
		d.cursorRow = 14
		d.cursorCol = 0
		d.haveCursorPosition = true
	}
	d.mode = newMode
}

func (d *Decoder) handleCommand(c1, c2 byte) {
	d.channel = d.newChannel
	if d.channel != 1 {
		return
	}

	if c1 == 0x15 || c1 == 0x1D {
		c1--
	}

	switch {
	case (c1 == 0x14 || c1 == 0x1C) && c2 == 0x21: // BS
		if d.cursorCol > 0 {
			d.cursorCol--
			d.writingBuffer().chars[d.cursorRow][d.cursorCol] = ' '
		}
	case (c1 == 0x14 || c1 == 0x1C) && c2 == 0x24: // DER
		if d.mode != ModeText && d.cursorRow < ScreenRows {
			buf := d.writingBuffer()
			for i := d.cursorCol; i < ScreenCols; i++ {
				buf.chars[d.cursorRow][i] = ' '
				buf.colors[d.cursorRow][i] = d.DefaultColor
				buf.fonts[d.cursorRow][i] = d.font
			}
		}
	case (c1 == 0x14 || c1 == 0x1C) && c2 == 0x20: // RCL
		d.mode = ModePopOn
	case (c1 == 0x14 || c1 == 0x1C) && c2 == 0x2B: // RTD
		d.mode = ModeText
	case (c1 == 0x14 || c1 == 0x1C) && c2 == 0x29: // RDC
		d.mode = ModePaintOn
	case (c1 == 0x14 || c1 == 0x1C) && c2 == 0x25: // RU2
		d.enterRollUp(ModeRollUp2)
	case (c1 == 0x14 || c1 == 0x1C) && c2 == 0x26: // RU3
		d.enterRollUp(ModeRollUp3)
	case (c1 == 0x14 || c1 == 0x1C) && c2 == 0x27: // RU4
		d.enterRollUp(ModeRollUp4)
	case (c1 == 0x14 || c1 == 0x1C) && c2 == 0x2D: // CR
		d.handleCarriageReturn()
	case (c1 == 0x14 || c1 == 0x1C) && c2 == 0x2E: // ENM
		d.eraseMemory(false)
	case (c1 == 0x14 || c1 == 0x1C) && c2 == 0x2C: // EDM
		d.handleEDM()
	case (c1 == 0x14 || c1 == 0x1C) && c2 == 0x2F: // EOC
		d.handleEOC()
	case (c1 == 0x14 || c1 == 0x1C) && (c2 == 0x22 || c2 == 0x23): // ALARM off/on, no-op
	}
}

func (d *Decoder) handleCarriageReturn() {
	if d.mode == ModePaintOn {
		return
	}
	if d.mode == ModePopOn {
		d.cursorCol = 0
		if d.cursorRow < ScreenRows {
			d.cursorRow++
		}
		return
	}

	if d.TranscriptMode {
		d.emitCursorLine()
	}

	changes := d.checkRollUp()
	if changes {
		if d.rollupFromPopOn && d.tsStartOfCurrentLine > 0 {
			d.visibleStartMS = d.tsStartOfCurrentLine
			d.rollupFromPopOn = false
		}
		if !d.TranscriptMode {
			if d.emitVisible() {
				d.screenfuls++
			}
		}
	}
	d.rollUp()

	if d.rollupFromPopOn && !changes {
		d.tsStartOfCurrentLine = d.Timing.GetFTS(d.Field)
	} else {
		d.tsStartOfCurrentLine = -1
	}
	if changes {
		d.visibleStartMS = d.Timing.GetVisibleStart(d.Field)
	}
	d.cursorCol = 0
}

// emitCursorLine flushes only the row the cursor sits on, used by
// transcript-mode CR and by transcript-mode EDM in roll-up, avoiding the
// duplicate lines a whole-buffer flush would produce.
func (d *Decoder) emitCursorLine() {
	buf := d.visibleBuffer()
	if !buf.rowUsed[d.rollupBaseRow] {
		return
	}
	end := d.Timing.GetVisibleEnd(d.Field)
	sub := &subtitle.Subtitle{
		Kind:    subtitle.KindCC608,
		StartMS: d.visibleStartMS,
		EndMS:   end,
		Text:    lineText(buf, d.rollupBaseRow),
		Channel: d.channel,
		Field:   int(d.Field),
		Mode:    d.mode.String(),
	}
	d.pending = append(d.pending, sub)
}

func lineText(s *screen, row int) string {
	end := ScreenCols
	for end > 0 && s.chars[row][end-1] == ' ' {
		end--
	}
	return string(s.chars[row][:end])
}

func (d *Decoder) handleEDM() {
	if d.TranscriptMode && d.mode.isRollUp() {
		d.emitCursorLine()
	} else {
		if d.TranscriptMode {
			d.tsStartOfCurrentLine = d.visibleStartMS
		}
		if d.emitVisible() {
			d.screenfuls++
		}
	}
	d.eraseMemory(true)
	d.visibleStartMS = d.Timing.GetVisibleStart(d.Field)
}

func (d *Decoder) handleEOC() {
	if d.emitVisible() {
		d.screenfuls++
	}
	if d.visible == 1 {
		d.visible = 2
	} else {
		d.visible = 1
	}
	d.visibleStartMS = d.Timing.GetVisibleStart(d.Field)
	d.cursorCol = 0
	d.cursorRow = 0
	d.currentColor = d.DefaultColor
	d.font = subtitle.FontRegular
	d.mode = ModePopOn
}

// Flush forces emission of the current visible screen, as if an EDM had
// been received; used by callers at end-of-stream.
func (d *Decoder) Flush() []*subtitle.Subtitle {
	d.pending = d.pending[:0]
	d.handleEDM()
	return d.pending
}

// Screenfuls returns how many complete screens this decoder has emitted.
func (d *Decoder) Screenfuls() int { return d.screenfuls }
