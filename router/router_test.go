package router

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zsiec/ccx/timing"
)

func TestProcessCCData_DropsInvalidRecords(t *testing.T) {
	ctx := NewContext(timing.NewContext())
	out := ctx.ProcessCCData([]Record{
		{Flags: 0x00, ByteA: 0x11, ByteB: 0x22}, // cc_valid=0, cc_type=0 -> dropped
		{Flags: 0x04, ByteA: 0x11, ByteB: 0x22}, // cc_valid=1, cc_type=0 -> kept
	})
	require.Len(t, out, 1)
	assert.Equal(t, byte(0x11), out[0].ByteA)
}

func TestProcessCCData_FixesPaddingRecords(t *testing.T) {
	ctx := NewContext(timing.NewContext())
	out := ctx.ProcessCCData([]Record{{Flags: 0x00, ByteA: 0x00, ByteB: 0x00}})
	// cc_valid=0 so this is normally dropped unless cc_type==3; padding
	// fix only applies to accepted records, so assert it's dropped here
	// and re-test with a valid padding record below.
	assert.Len(t, out, 0)

	ctx2 := NewContext(timing.NewContext())
	out2 := ctx2.ProcessCCData([]Record{{Flags: 0x04, ByteA: 0x00, ByteB: 0x00}})
	require.Len(t, out2, 1)
	assert.Equal(t, byte(0x80), out2[0].ByteA)
	assert.Equal(t, byte(0x80), out2[0].ByteB)
}

func TestProcessCCData_StopsAtExtractionEnd(t *testing.T) {
	tc := timing.NewContext()
	tc.SetCurrentPTS(0)
	tc.SetFTS()
	ctx := NewContext(tc)
	ctx.ExtractionEndMS = 0 // disabled first, sanity
	ctx.ExtractionEndMS = 1
	tc.FTSNow = 1000 // force FTS well past the 1ms window
	out := ctx.ProcessCCData([]Record{{Flags: 0x04, ByteA: 1, ByteB: 2}})
	assert.Empty(t, out)
	assert.True(t, ctx.ProcessedEnough)
}

func TestRCWTRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewRCWTWriter(&buf)
	require.NoError(t, w.WriteFrame(1234, []Record{{Flags: 0xFC, ByteA: 0x80, ByteB: 0x80}}))
	require.NoError(t, w.WriteFrame(5678, nil))

	frames, err := ReadRCWT(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, frames, 2)

	assert.Equal(t, int64(1234), frames[0].FTSMS)
	assert.Equal(t, []Record{{Flags: 0xFC, ByteA: 0x80, ByteB: 0x80}}, frames[0].Records)

	assert.Equal(t, int64(5678), frames[1].FTSMS)
	assert.Empty(t, frames[1].Records)
}

func TestRCWTHeaderIsBitExact(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteRCWTHeader(&buf))
	want := []byte{0xCC, 0xCC, 0xED, 0xCC, 0x00, 0x50, 0x00, 0x01, 0x00, 0x00, 0x00}
	assert.Equal(t, want, buf.Bytes())
}
