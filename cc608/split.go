package cc608

import "github.com/zsiec/ccx/xds"

// Splitter demultiplexes one NTSC field's raw CEA-608 byte-pair stream
// into its two channels (CC1/CC2 on field 1, CC3/CC4 on field 2). CEA-608
// packs two independent channels onto a single field: control codes in
// the 0x10-0x17 range select "the first channel of this field", 0x18-0x1E
// select "the second", and everything else (printable pairs, 0x1F tab
// offsets) stays addressed to whichever channel was last selected.
//
// A Splitter also normalises every control code it emits down into its
// "first channel" numbering (subtracting 0x08 from codes in 0x18-0x1F),
// so a Decoder fed only one channel's output never has to know which of
// the two channels it actually is — the same "new_channel > 2 -> -2"
// trick Decoder.handlePAC/handleExtended already apply for PAC/extended
// codes is generalised here to every control-code class, run once up
// front instead of duplicated per code path.
//
// Field 2 additionally interleaves XDS packets (§4.4) in the same
// byte-pair stream, distinguished from CC3/CC4 data only by an
// in-XDS-packet latch: a Splitter constructed with baseChannel 3 owns an
// xds.Decoder and, once a byte pair's hi lands in the XDS start range,
// routes every subsequent pair to it (even pairs that would otherwise
// look like printable CC text) until the end-of-packet code closes the
// packet. Pairs consumed this way are never handed back as a CC608Pair;
// callers collect whatever events resulted via TakeXDSEvents.
type Splitter struct {
	// BaseChannel is the channel number of this field's first sub-channel
	// (1 for field 1 giving CC1/CC2, 3 for field 2 giving CC3/CC4).
	BaseChannel int

	selected int // 1 or 2, within-field

	xds       *xds.Decoder
	inXDS     bool
	xdsEvents []xds.Event
}

// NewSplitter returns a Splitter for a field whose first sub-channel is
// numbered baseChannel. Only baseChannel 3 (field 2) wires up XDS packet
// interception, matching §4.4's field-2-only framing.
func NewSplitter(baseChannel int) *Splitter {
	s := &Splitter{BaseChannel: baseChannel, selected: 1}
	if baseChannel == 3 {
		s.xds = xds.NewDecoder()
	}
	return s
}

// Split resolves the absolute channel number a raw byte pair belongs to
// and returns the pair with its control-code byte normalised into
// first-channel numbering. ok is false when the pair was consumed by the
// XDS side channel instead (field 2 only) — the caller should not treat
// it as a CC608 pair, and should drain TakeXDSEvents for anything the
// XDS decoder completed.
func (s *Splitter) Split(hi, lo byte) (channel int, normHi, normLo byte, ok bool) {
	h := hi & 0x7F
	l := lo & 0x7F

	if s.xds != nil {
		switch {
		case h >= 0x01 && h <= 0x0E:
			s.inXDS = true
			s.xdsEvents = append(s.xdsEvents, s.xds.Process(h, l)...)
			return 0, 0, 0, false
		case h == 0x0F && s.inXDS:
			s.inXDS = false
			s.xdsEvents = append(s.xdsEvents, s.xds.Process(h, l)...)
			return 0, 0, 0, false
		case s.inXDS:
			s.xdsEvents = append(s.xdsEvents, s.xds.Process(h, l)...)
			return 0, 0, 0, false
		}
	}

	switch {
	case h >= 0x10 && h <= 0x17:
		s.selected = 1
	case h >= 0x18 && h <= 0x1E:
		s.selected = 2
	}

	normHi = hi
	if h >= 0x18 && h <= 0x1F {
		normHi = hi - 0x08
	}

	return s.BaseChannel + (s.selected - 1), normHi, lo, true
}

// TakeXDSEvents returns and clears whatever XDS events have completed
// since the last call. Only meaningful for a field-2 Splitter.
func (s *Splitter) TakeXDSEvents() []xds.Event {
	ev := s.xdsEvents
	s.xdsEvents = nil
	return ev
}
