// Package router implements the CC data router (§4.6): the single entry
// point a demuxer drives, dispatching each 3-byte (flags, byte_a, byte_b)
// record to the field-1/field-2/708 counters, enforcing the
// extraction_start/extraction_end FTS window, and optionally mirroring
// every record into an RCWT pass-through stream (§6.3).
//
// Grounded on the teacher's single-threaded, synchronous pipeline shape
// (internal/mpegts's demuxer-drives-callback pattern) generalised from
// MPEG-TS PES payloads to raw cc_data triples.
package router

import (
	"encoding/binary"
	"fmt"
	"log/slog"

	"github.com/zsiec/ccx/timing"
)

// Record is one raw (flags, byte_a, byte_b) caption data triple as found
// in an ATSC A/53 cc_data() structure or an RCWT frame.
type Record struct {
	Flags byte
	ByteA byte
	ByteB byte
}

// CCValid reports the cc_valid bit (bit 2 of Flags).
func (r Record) CCValid() bool { return r.Flags&0x04 != 0 }

// CCType reports the 2-bit cc_type field (bits 0-1 of Flags).
func (r Record) CCType() int { return int(r.Flags & 0x03) }

const (
	ccTypeNTSCField1 = 0
	ccTypeNTSCField2 = 1
	ccTypeDTVCCPkt   = 2
	ccTypeDTVCCStart = 3
)

// Context holds the router's mutable state: the timing context it drives
// and the extraction window. Per-field/per-708 block counters (§5) live on
// the attached timing.Context, since SetFTS/NotifyNewFile already own
// their reset semantics.
type Context struct {
	Timing *timing.Context

	FixPadding bool

	// ExtractionStartMS/ExtractionEndMS bound the FTS window records are
	// accepted in. A zero ExtractionEndMS means "no upper bound".
	ExtractionStartMS int64
	ExtractionEndMS   int64

	// ProcessedEnough is set once a record's FTS crosses ExtractionEndMS;
	// the demuxer is expected to check it after every call and stop.
	ProcessedEnough bool

	rcwt *RCWTWriter

	// Log receives DEBUG_608/DEBUG_708-style diagnostics (dropped records,
	// extraction-window exits). A per-Context logger rather than process-wide
	// state, per the pluggable-diagnostic-sink design note; nil means
	// slog.Default().
	Log *slog.Logger
}

// NewContext returns a Context with padding fix-up enabled and no
// extraction window (accepts everything).
func NewContext(t *timing.Context) *Context {
	return &Context{Timing: t, FixPadding: true}
}

func (c *Context) log() *slog.Logger {
	if c.Log != nil {
		return c.Log
	}
	return slog.Default()
}

// SetRCWTWriter attaches a pass-through sink: every accepted record is
// also mirrored into the RCWT stream via this writer.
func (c *Context) SetRCWTWriter(w *RCWTWriter) { c.rcwt = w }

// ProcessCCData routes one batch of records (§4.6), returning the subset
// that passed validity/window filtering and advancing the router's
// counters and (if attached) RCWT mirror.
func (c *Context) ProcessCCData(records []Record) []Record {
	var out []Record
	var frame []Record

	for _, r := range records {
		if !r.CCValid() && r.CCType() != ccTypeDTVCCStart {
			continue
		}

		if c.FixPadding && r.CCType() <= ccTypeNTSCField2 && r.ByteA == 0 && r.ByteB == 0 {
			r.ByteA, r.ByteB = 0x80, 0x80
		}

		fts := c.Timing.GetFTS(fieldFor(r.CCType()))
		if fts < c.ExtractionStartMS {
			continue
		}
		if c.ExtractionEndMS > 0 && fts > c.ExtractionEndMS {
			c.ProcessedEnough = true
			c.log().Debug("extraction window closed", "fts_ms", fts, "extraction_end_ms", c.ExtractionEndMS)
			break
		}

		out = append(out, r)
		frame = append(frame, r)
	}

	if c.rcwt != nil && len(frame) > 0 {
		c.rcwt.WriteFrame(c.Timing.GetFTSMax(), frame)
	}

	return out
}

func fieldFor(ccType int) timing.Field {
	if ccType == ccTypeNTSCField2 {
		return timing.Field2
	}
	return timing.Field1
}

// rcwtMagic is the 3-byte "CCExtractor CC Dump" signature (§6.3).
var rcwtMagic = [3]byte{0xCC, 0xCC, 0xED}

// WriteRCWTHeader writes the bit-exact 11-byte RCWT header.
func WriteRCWTHeader(w writer) error {
	header := []byte{
		rcwtMagic[0], rcwtMagic[1], rcwtMagic[2],
		0xCC,       // creating-program id
		0x00, 0x50, // program version (80)
		0x00, 0x01, // file-format version (1)
		0x00, 0x00, 0x00, // padding
	}
	_, err := w.Write(header)
	return err
}

// writer is the minimal surface RCWTWriter needs; satisfied by io.Writer
// without importing it solely for this one method.
type writer interface {
	Write(p []byte) (int, error)
}

// RCWTWriter serialises caption records into the RCWT pass-through
// format: one header, then a stream of (fts_ms, n_records, records...)
// frames.
type RCWTWriter struct {
	w            writer
	wroteHeader  bool
}

// NewRCWTWriter wraps w, deferring the header write to the first frame.
func NewRCWTWriter(w writer) *RCWTWriter {
	return &RCWTWriter{w: w}
}

// WriteFrame appends one frame: the header is emitted lazily before the
// first frame so a writer that never receives records produces an empty
// stream rather than a header-only one.
func (rw *RCWTWriter) WriteFrame(ftsMS int64, records []Record) error {
	if !rw.wroteHeader {
		if err := WriteRCWTHeader(rw.w); err != nil {
			return err
		}
		rw.wroteHeader = true
	}

	buf := make([]byte, 8+2+len(records)*3)
	binary.LittleEndian.PutUint64(buf[0:8], uint64(ftsMS))
	binary.LittleEndian.PutUint16(buf[8:10], uint16(len(records)))
	for i, r := range records {
		off := 10 + i*3
		buf[off] = r.Flags
		buf[off+1] = r.ByteA
		buf[off+2] = r.ByteB
	}
	_, err := rw.w.Write(buf)
	return err
}

// RCWTFrame is one decoded frame from an RCWT stream.
type RCWTFrame struct {
	FTSMS   int64
	Records []Record
}

// ReadRCWT parses a complete RCWT byte stream (header + frames) into its
// constituent frames. The reader tolerates a zero record count
// (keep-alive frames) and requires whole-frame alignment.
func ReadRCWT(data []byte) ([]RCWTFrame, error) {
	if len(data) < 11 {
		return nil, fmt.Errorf("rcwt: stream too short for header: %d bytes", len(data))
	}
	if data[0] != rcwtMagic[0] || data[1] != rcwtMagic[1] || data[2] != rcwtMagic[2] {
		return nil, fmt.Errorf("rcwt: bad magic % x", data[0:3])
	}

	var frames []RCWTFrame
	pos := 11
	for pos < len(data) {
		if pos+10 > len(data) {
			return nil, fmt.Errorf("rcwt: truncated frame header at offset %d", pos)
		}
		ftsMS := int64(binary.LittleEndian.Uint64(data[pos : pos+8]))
		n := int(binary.LittleEndian.Uint16(data[pos+8 : pos+10]))
		pos += 10

		if pos+n*3 > len(data) {
			return nil, fmt.Errorf("rcwt: truncated frame body at offset %d (want %d records)", pos, n)
		}
		recs := make([]Record, n)
		for i := 0; i < n; i++ {
			off := pos + i*3
			recs[i] = Record{Flags: data[off], ByteA: data[off+1], ByteB: data[off+2]}
		}
		pos += n * 3

		frames = append(frames, RCWTFrame{FTSMS: ftsMS, Records: recs})
	}
	return frames, nil
}
