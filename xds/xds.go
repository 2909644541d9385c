// Package xds implements the Extended Data Services decoder that shares
// field 2 with CC3/CC4 (§4.4): 8-class packet framing, a two's-complement
// checksum, and typed program/channel/misc metadata events with
// change-suppression caching.
//
// Grounded on original_source/src/lib_ccx/ccx_decoders_xds.c's class/type
// table and ccx_decoders_608.c's in_xds_mode hookup, carried into the
// teacher's small stateful-decoder style.
package xds

// Class is the XDS packet class ((hi-1)/2 of the start byte hi, §4.4).
type Class int

const (
	ClassCurrent Class = iota
	ClassFuture
	ClassChannel
	ClassMisc
	ClassPublic
	ClassReserved
	ClassPrivate
	ClassEnd
)

func classOf(hi byte) (class Class, isNew bool) {
	class = Class((hi - 1) / 2)
	isNew = hi&1 == 1
	return
}

// EventKind identifies which typed event a completed packet produced.
type EventKind int

const (
	EventProgramIdentification EventKind = iota
	EventLengthAndElapsed
	EventProgramName
	EventProgramType
	EventContentAdvisory
	EventCGMS
	EventAspectRatio
	EventNetworkName
	EventCallLetters
	EventTSID
	EventTimeOfDay
	EventLocalTimeZone
	EventReservedOrPrivate
)

// Event is one decoded XDS packet, emitted only when its payload differs
// from the last emission for the same (class, type).
type Event struct {
	Class   Class
	Type    byte
	Kind    EventKind
	Text    string
	Bytes   []byte
	Ints    []int
}

type inflight struct {
	class  Class
	typ    byte
	data   []byte
	sum    int
	active bool
}

// Decoder maintains up to 8 in-flight packet buffers (keyed by class/type)
// plus the last-emitted payload per (class, type) for change suppression.
type Decoder struct {
	slots [8]inflight
	last  map[[2]byte]string

	pending []Event
}

// NewDecoder returns an empty XDS decoder.
func NewDecoder() *Decoder {
	return &Decoder{last: make(map[[2]byte]string)}
}

func (d *Decoder) slotFor(class Class, typ byte) *inflight {
	for i := range d.slots {
		if d.slots[i].active && d.slots[i].class == class && d.slots[i].typ == typ {
			return &d.slots[i]
		}
	}
	for i := range d.slots {
		if !d.slots[i].active {
			d.slots[i] = inflight{class: class, typ: typ, active: true}
			return &d.slots[i]
		}
	}
	// No free slot: evict the first one (matches the original's fixed
	// 8-buffer ring when an encoder exceeds the documented 8 classes).
	d.slots[0] = inflight{class: class, typ: typ, active: true}
	return &d.slots[0]
}

// Process feeds one XDS byte pair (as routed by cc608.Splitter on field 2:
// control pairs with hi in 0x01..0x0F, and the data pairs that follow a
// start) and returns any events completed as a result.
func (d *Decoder) Process(hi, lo byte) []Event {
	d.pending = d.pending[:0]

	switch {
	case hi >= 0x01 && hi <= 0x0E:
		class, _ := classOf(hi)
		s := d.slotFor(class, lo)
		s.data = s.data[:0]
		s.sum = int(hi) + int(lo)
		s.typ = lo
	case hi == 0x0F:
		d.endPacket(lo)
	case hi >= 0x20 && hi <= 0x7F:
		for i := range d.slots {
			if d.slots[i].active {
				d.slots[i].data = append(d.slots[i].data, hi, lo)
				d.slots[i].sum += int(hi) + int(lo)
			}
		}
	}
	return d.pending
}

func (d *Decoder) endPacket(checksum byte) {
	for i := range d.slots {
		s := &d.slots[i]
		if !s.active {
			continue
		}
		total := (s.sum + int(0x0F) + int(checksum)) & 0x7F
		if total != 0 {
			s.active = false
			continue
		}
		d.emit(s)
		s.active = false
	}
}

func (d *Decoder) emit(s *inflight) {
	key := [2]byte{byte(s.class), s.typ}
	sig := string(s.data)
	if prev, ok := d.last[key]; ok && prev == sig {
		return
	}
	d.last[key] = sig

	ev := Event{Class: s.class, Type: s.typ, Bytes: append([]byte(nil), s.data...)}
	ev.Kind, ev.Text, ev.Ints = decodePayload(s.class, s.typ, s.data)
	d.pending = append(d.pending, ev)
}

// decodePayload interprets a packet body per the (class, type) table in
// §4.4. Unrecognised (class, type) combinations are carried verbatim as
// EventReservedOrPrivate.
func decodePayload(class Class, typ byte, data []byte) (EventKind, string, []int) {
	clean := make([]byte, len(data))
	for i, b := range data {
		clean[i] = b & 0x7F
	}

	switch class {
	case ClassCurrent, ClassFuture:
		switch typ {
		case 0x01: // Program Identification
			if len(clean) >= 2 {
				day := int(clean[0] & 0x1F)
				month := int(clean[1] & 0x0F)
				return EventProgramIdentification, "", []int{day, month}
			}
		case 0x02: // Length/elapsed
			if len(clean) >= 2 {
				return EventLengthAndElapsed, "", []int{int(clean[0] & 0x3F), int(clean[1] & 0x3F)}
			}
		case 0x03: // Program name
			return EventProgramName, string(clean), nil
		case 0x04: // Program type
			ints := make([]int, len(clean))
			for i, b := range clean {
				ints[i] = int(b)
			}
			return EventProgramType, "", ints
		case 0x05: // Content advisory
			if len(clean) >= 2 {
				return EventContentAdvisory, "", []int{int(clean[0]), int(clean[1])}
			}
		case 0x08: // CGMS
			if len(clean) >= 1 {
				return EventCGMS, "", []int{int(clean[0])}
			}
		case 0x09: // Aspect ratio
			if len(clean) >= 2 {
				return EventAspectRatio, "", []int{int(clean[0]), int(clean[1])}
			}
		}
	case ClassChannel:
		switch typ {
		case 0x01:
			return EventNetworkName, string(clean), nil
		case 0x02:
			return EventCallLetters, string(clean), nil
		case 0x03:
			ints := make([]int, len(clean))
			for i, b := range clean {
				ints[i] = int(b & 0x0F)
			}
			return EventTSID, "", ints
		}
	case ClassMisc:
		switch typ {
		case 0x01:
			if len(clean) >= 4 {
				return EventTimeOfDay, "", []int{int(clean[0]), int(clean[1]), int(clean[2]), int(clean[3])}
			}
		case 0x04:
			if len(clean) >= 1 {
				return EventLocalTimeZone, "", []int{int(clean[0] & 0x1F)}
			}
		}
	}
	return EventReservedOrPrivate, string(clean), nil
}
