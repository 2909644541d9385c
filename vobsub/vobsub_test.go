package vobsub

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zsiec/ccx/internal/bitio"
)

func TestDecodeSPU_RejectsShortPacket(t *testing.T) {
	d := NewDecoder()
	_, err := d.DecodeSPU([]byte{0x00, 0x01})
	assert.Error(t, err)
}

func TestReadRunFourBitCode(t *testing.T) {
	// 0x9 -> code=9 (>=4): colour = 9&3 = 1, run = 9>>2 = 2.
	nr := bitio.NewNibbleReader([]byte{0x90})
	color, run, ok := readRun(nr)
	require.True(t, ok)
	assert.Equal(t, byte(1), color)
	assert.Equal(t, 2, run)
}

func TestReadRunFourteenBitFillToEndOfLine(t *testing.T) {
	// Four zero nibbles: never reaches >= threshold in the first three
	// cases, so the 14-bit terminal case fires with run=0 ("fill to end").
	nr := bitio.NewNibbleReader([]byte{0x00, 0x00})
	color, run, ok := readRun(nr)
	require.True(t, ok)
	assert.Equal(t, byte(0), color)
	assert.Equal(t, 0, run)
}

// buildDisplayAreaBytes packs x1,x2,y1,y2 (12 bits each) the way command
// 0x05 expects, matching decodeSPU's bitio.BitReader consumer.
func buildDisplayAreaBytes(x1, x2, y1, y2 int) []byte {
	var bw uint64
	bw |= uint64(x1&0xFFF) << 36
	bw |= uint64(x2&0xFFF) << 24
	bw |= uint64(y1&0xFFF) << 12
	bw |= uint64(y2 & 0xFFF)
	out := make([]byte, 6)
	for i := 0; i < 6; i++ {
		out[5-i] = byte(bw >> (8 * uint(i)))
	}
	return out
}

// TestDecodeSPU_MinimalPacket builds a tiny but fully spec-compliant SPU
// packet (2x2 bitmap, solid colour index 1, opaque) and checks the decoded
// Bitmap's geometry and pixel plane.
func TestDecodeSPU_MinimalPacket(t *testing.T) {
	// RLE: each field's one line is a single run (code=9 ->
	// colour 1, run 2) filling the whole 2-pixel-wide line. Field 1 has
	// row 0, field 2 has row 1 (1 row each), so each field's nibble
	// stream is one 4-bit code, byte-aligned after.
	rleField1 := []byte{0x90}
	rleField2 := []byte{0x90}

	area := buildDisplayAreaBytes(0, 1, 0, 1) // w=2, h=2

	var ctrl []byte
	ctrl = append(ctrl, 0x00, 0x00) // date
	ctrl = append(ctrl, 0x00, 0x00) // next_ctrl placeholder
	ctrl = append(ctrl, 0x01)       // start-display
	ctrl = append(ctrl, 0x05)
	ctrl = append(ctrl, area...)
	ctrl = append(ctrl, 0x03, 0x11, 0x11) // colours: all index 1
	ctrl = append(ctrl, 0x04, 0xFF, 0xFF) // alpha: all opaque (0xF nibbles)
	ctrl = append(ctrl, 0x06)
	ctrl = append(ctrl, 0x00, 0x04, 0x00, 0x05) // field offsets: packet positions of each field's RLE bytes
	ctrl = append(ctrl, 0xFF)

	ctrlOffset := 4 + len(rleField1) + len(rleField2)
	spuSize := ctrlOffset + len(ctrl)

	buf := make([]byte, 0, spuSize)
	buf = append(buf, byte(spuSize>>8), byte(spuSize))
	buf = append(buf, byte(ctrlOffset>>8), byte(ctrlOffset))
	buf = append(buf, rleField1...)
	buf = append(buf, rleField2...)
	buf = append(buf, ctrl...)

	nextCtrlPos := ctrlOffset + 2
	buf[nextCtrlPos] = byte(ctrlOffset >> 8)
	buf[nextCtrlPos+1] = byte(ctrlOffset)

	d := NewDecoder()
	sub, err := d.DecodeSPU(buf)
	require.NoError(t, err)
	require.NotNil(t, sub.Bmp)
	assert.Equal(t, 2, sub.Bmp.W)
	assert.Equal(t, 2, sub.Bmp.H)
	assert.Len(t, sub.Bmp.Pixels, 4)
	assert.Equal(t, []byte{1, 1, 1, 1}, sub.Bmp.Pixels)
}
