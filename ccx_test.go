package ccx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zsiec/ccx/xds"
)

// buildSEINAL wraps one or more cc_data triples (flags, byte_a, byte_b) in
// a user_data_registered_itu_t_t35 SEI message the same way router's own
// tests do, without reaching into the router package's unexported guts.
func buildSEINAL(triples [][3]byte) []byte {
	var body []byte
	body = append(body, 0xB5)             // ATSC country code
	body = append(body, 0x00, 0x31)       // provider code
	body = append(body, 0x47, 0x41, 0x39, 0x34) // "GA94"
	body = append(body, 0x03)             // cc_data user data type
	body = append(body, 0x40|byte(len(triples)&0x1F))
	body = append(body, 0xFF)
	for _, tr := range triples {
		body = append(body, tr[0], tr[1], tr[2])
	}

	var sei []byte
	sei = append(sei, 0x06) // NAL header, type 6 = SEI
	sei = append(sei, 0x04) // payload type: user_data_registered_itu_t_t35
	sei = append(sei, byte(len(body)))
	sei = append(sei, body...)
	sei = append(sei, 0x80)
	return sei
}

func TestExtractCaptionsResolvesChannelsAcrossCalls(t *testing.T) {
	e := newExtractor()

	// Field-1 channel-2 select (CR, 0x9C/0x1C with parity), then a
	// printable pair that should land on CC2.
	nal1 := buildSEINAL([][3]byte{
		{0x04, 0x9C, 0xAD}, // cc_valid=1, cc_type=0 (field1); control code selecting channel 2
		{0x04, 0x41, 0x42}, // printable pair, stays on whichever channel is selected
	})
	cd := e.extract(nal1)
	require.NotNil(t, cd)
	require.Len(t, cd.CC608Pairs, 2)
	assert.Equal(t, 2, cd.CC608Pairs[0].Channel)
	assert.Equal(t, 2, cd.CC608Pairs[1].Channel)
	assert.Equal(t, byte(0x41), cd.CC608Pairs[1].Data[0])
}

func TestExtractCaptionsSplitsDTVCCPairs(t *testing.T) {
	e := newExtractor()
	nal := buildSEINAL([][3]byte{
		{0x07, 0x02, 0xAA}, // cc_valid=1, cc_type=3 (DTVCC start)
		{0x06, 0xBB, 0xCC}, // cc_valid=1, cc_type=2 (DTVCC continuation)
	})
	cd := e.extract(nal)
	require.NotNil(t, cd)
	require.Len(t, cd.DTVCC, 2)
	assert.True(t, cd.DTVCC[0].Start)
	assert.False(t, cd.DTVCC[1].Start)
}

// TestEndToEndPopOnCaption exercises the full path: SEI -> ExtractCaptions
// -> per-channel CEA608Decoder -> decoded text, replacing the teacher's
// MPEG-TS-file-driven harness with a synthetic access unit (no transport
// demuxing is in scope here).
func TestEndToEndPopOnCaption(t *testing.T) {
	e := newExtractor()

	rcl := byte(0x94) // RCL (resume caption loading), channel 1, parity set
	pac := byte(0x91) // PAC row 1 col 0 white, channel 1 (0x91 0x40)
	eoc := byte(0x94)

	nal := buildSEINAL([][3]byte{
		{0x04, rcl, 0x20},
		{0x04, pac, 0x40},
		{0x04, 'H', 'I'},
		{0x04, eoc, 0x2F},
	})

	cd := e.extract(nal)
	require.NotNil(t, cd)

	dec := NewCEA608Decoder()
	var lastText string
	for _, pair := range cd.CC608Pairs {
		if pair.Channel != 1 {
			continue
		}
		if text := dec.Decode(pair.Data[0], pair.Data[1]); text != "" {
			lastText = text
		}
	}
	// EOC only puts "HI" on screen (the screen it replaces was empty, so
	// nothing is emitted yet); the text is emitted when it leaves the screen.
	assert.Empty(t, lastText)
	_ = dec.StyledRegions()
	flushed := dec.Flush()
	require.Len(t, flushed, 1)
	assert.Equal(t, "HI", flushed[0].Text)
}

// TestExtractCaptionsSurfacesXDSEvents covers S4 through the full public
// entry point: an XDS program-name packet interleaved in field 2's
// cc_data triples must come back as a CaptionData.XDSEvents record, not
// as a CC608Pair on CC3/CC4.
func TestExtractCaptionsSurfacesXDSEvents(t *testing.T) {
	e := newExtractor()

	sum := int(0x01) + int(0x03) + int('A') + int('B') + int(0x0F)
	cs := byte((-sum) & 0x7F)

	nal := buildSEINAL([][3]byte{
		{0x05, 0x01, 0x03}, // cc_valid=1, cc_type=1 (field2); XDS class=current, type=program name
		{0x05, 'A', 'B'},
		{0x05, 0x0F, cs}, // end-of-packet, checksum
	})

	cd := e.extract(nal)
	require.NotNil(t, cd)
	require.Empty(t, cd.CC608Pairs)
	require.Len(t, cd.XDSEvents, 1)
	assert.Equal(t, xds.EventProgramName, cd.XDSEvents[0].Kind)
	assert.Equal(t, "AB", cd.XDSEvents[0].Text)
}
