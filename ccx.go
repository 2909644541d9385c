// Package ccx is the root facade over the caption-decoding core: it wires
// together SEI extraction, the CEA-608 channel splitters, and the two
// decoder families behind the small, synchronous call surface a demuxer
// drives one access unit at a time (§5, §6.1).
//
// Grounded on the teacher's own top-level re-export style (demux/aac.go,
// demux/h265.go exposing parse functions directly off the package) and,
// for the NAL/SEI walk specifically, on internal/demux/h264.go's
// Annex-B-plus-SEI-payload-loop shape, carried into router.ExtractCaptions
// and specialised here to ATSC A/53 cc_data.
package ccx

import (
	"github.com/zsiec/ccx/cc608"
	"github.com/zsiec/ccx/cc708"
	"github.com/zsiec/ccx/router"
	"github.com/zsiec/ccx/xds"
)

// CEA608Decoder is the single-channel CEA-608 caption state machine.
type CEA608Decoder = cc608.Decoder

// NewCEA608Decoder returns a fresh CEA-608 decoder in pop-on mode, ready
// to receive one channel's already-demultiplexed byte pairs (see
// CC608Pair.Channel, produced by ExtractCaptions).
func NewCEA608Decoder() *CEA608Decoder {
	return cc608.NewCEA608Decoder()
}

// CEA708Service is the CEA-708 DTVCC service-block state machine: windows,
// pens, and the composited TV grid.
type CEA708Service = cc708.Service

// NewCEA708Service returns a fresh CEA-708 service decoder with no windows
// defined.
func NewCEA708Service() *CEA708Service {
	return cc708.NewCEA708Service()
}

// DTVCCPacketSize returns the byte length (including header) of a DTVCC
// packet whose header byte is hdr.
func DTVCCPacketSize(hdr byte) int { return cc708.DTVCCPacketSize(hdr) }

// Block is one service block extracted from a DTVCC packet.
type Block = cc708.Block

// ParseDTVCCPacket walks a complete DTVCC packet into its service blocks.
func ParseDTVCCPacket(packet []byte) []Block { return cc708.ParseDTVCCPacket(packet) }

// CC608Pair is one CEA-608 byte pair already resolved to its absolute
// channel (1-4) and field, with its control-code byte normalised into
// single-channel numbering (see cc608.Splitter) so it can be handed
// straight to that channel's own CEA608Decoder.
type CC608Pair struct {
	Channel int
	Field   int
	Data    [2]byte
}

// DTVCCPair is one CEA-708 byte pair pulled off cc_type 2/3 records, in
// bitstream order; Start marks a cc_type-3 packet-start pair so the
// caller knows to flush and restart its Packetiser.
type DTVCCPair struct {
	Start bool
	Data  [2]byte
}

// XDSEvent is one decoded Extended Data Services record, surfaced
// end-to-end from field 2's interleaved XDS packets (§4.4).
type XDSEvent = xds.Event

// CaptionData is everything ExtractCaptions found in one access unit's
// SEI messages, split by destination.
type CaptionData struct {
	CC608Pairs []CC608Pair
	DTVCC      []DTVCCPair
	XDSEvents  []XDSEvent
}

// extractor holds the two field-scoped channel splitters that
// ExtractCaptions needs across calls to track which of CC1/CC2 (resp.
// CC3/CC4) is currently selected within each field's byte stream.
type extractor struct {
	field1 *cc608.Splitter
	field2 *cc608.Splitter
}

var defaultExtractor = newExtractor()

func newExtractor() *extractor {
	return &extractor{
		field1: cc608.NewSplitter(1),
		field2: cc608.NewSplitter(3),
	}
}

// ExtractCaptions parses the raw bytes of one SEI NAL unit (header byte
// included, as produced by an Annex-B walk) for ATSC A/53 cc_data(), and
// splits the resulting records into channel-resolved CC608Pairs and
// bitstream-order DTVCC pairs. Returns nil if the NAL carries no caption
// payload.
//
// CC608 channel resolution is stateful across calls (field 1's CC1/CC2
// selection, and field 2's CC3/CC4 selection, both persist), matching
// §5's single-threaded, synchronous pipeline: call this once per access
// unit's SEI NALs, in bitstream order, from a single goroutine.
func ExtractCaptions(naluData []byte) *CaptionData {
	return defaultExtractor.extract(naluData)
}

func (e *extractor) extract(naluData []byte) *CaptionData {
	// router.ExtractCaptions walks Annex-B start codes; prefix one so a bare
	// NAL unit (no start code of its own) is found as well.
	records := router.ExtractCaptions(append([]byte{0x00, 0x00, 0x00, 0x01}, naluData...))
	if len(records) == 0 {
		return nil
	}

	out := &CaptionData{}
	for _, r := range records {
		switch r.CCType() {
		case 0: // NTSC field 1
			ch, hi, lo, ok := e.field1.Split(r.ByteA, r.ByteB)
			if ok {
				out.CC608Pairs = append(out.CC608Pairs, CC608Pair{Channel: ch, Field: 1, Data: [2]byte{hi, lo}})
			}
		case 1: // NTSC field 2
			ch, hi, lo, ok := e.field2.Split(r.ByteA, r.ByteB)
			if ok {
				out.CC608Pairs = append(out.CC608Pairs, CC608Pair{Channel: ch, Field: 2, Data: [2]byte{hi, lo}})
			}
		case 2: // DTVCC packet data
			out.DTVCC = append(out.DTVCC, DTVCCPair{Data: [2]byte{r.ByteA, r.ByteB}})
		case 3: // DTVCC packet start
			out.DTVCC = append(out.DTVCC, DTVCCPair{Start: true, Data: [2]byte{r.ByteA, r.ByteB}})
		}
	}
	out.XDSEvents = append(out.XDSEvents, e.field2.TakeXDSEvents()...)

	if len(out.CC608Pairs) == 0 && len(out.DTVCC) == 0 && len(out.XDSEvents) == 0 {
		return nil
	}
	return out
}
