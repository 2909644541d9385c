package cc708

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDTVCCPacketSize(t *testing.T) {
	assert.Equal(t, 128, DTVCCPacketSize(0x00))
	assert.Equal(t, 6, DTVCCPacketSize(0x03))  // size_code=3 -> 6 bytes
	assert.Equal(t, 126, DTVCCPacketSize(0x3F)) // size_code=63 -> 126 bytes
}

func TestParseDTVCCPacketWalksServiceBlocks(t *testing.T) {
	// header: seq=0, size_code=2 (a 4-byte packet); only 3 bytes are given,
	// and ParseDTVCCPacket walks just the bytes it is handed.
	// service block: service_no=1, block_len=1, one data byte 'A'.
	packet := []byte{0x02, (1 << 5) | 1, 'A'}
	blocks := ParseDTVCCPacket(packet)
	require.Len(t, blocks, 1)
	assert.Equal(t, 1, blocks[0].ServiceNum)
	assert.Equal(t, []byte("A"), blocks[0].Data)
}

func TestParseDTVCCPacketStopsOnIllegalService0Data(t *testing.T) {
	// header: seq=0, size_code=3 -> packet is 6 bytes total.
	// first block: service_no=1, block_len=1, data byte 'A' (kept).
	// second block header claims service_no=0 with a non-zero block_len,
	// which is illegal and must stop the walk rather than be parsed as
	// trailing padding reinterpreted as more service blocks.
	packet := []byte{0x03, (1 << 5) | 1, 'A', (0 << 5) | 2, 'X', 'Y'}
	blocks := ParseDTVCCPacket(packet)
	require.Len(t, blocks, 1)
	assert.Equal(t, 1, blocks[0].ServiceNum)
	assert.Equal(t, []byte("A"), blocks[0].Data)
}

func TestPacketiserAssemblesAcrossTriplets(t *testing.T) {
	p := NewPacketiser()
	// size_code = 2 -> total packet length 4 bytes: header + 3 more.
	header := byte(0x02)
	pkt := p.Feed(3, header, 0xAA)
	assert.Nil(t, pkt, "packet incomplete after first triplet")

	pkt = p.Feed(2, 0xBB, 0xCC)
	require.NotNil(t, pkt)
	assert.Equal(t, []byte{header, 0xAA, 0xBB, 0xCC}, pkt)
}

func buildServiceBlockBytes(serviceNo int, payload []byte) []byte {
	header := byte((serviceNo&0x07)<<5) | byte(len(payload)&0x1F)
	return append([]byte{header}, payload...)
}

func TestDefineWindowThenWriteThenDisplay(t *testing.T) {
	svc := NewCEA708Service()

	// DF0 opcode 0x98, 6 param bytes: priority (bits 0-2), col_lock (bit 3),
	// row_lock (bit 4), visible (bit 5) in byte0; anchor_v (bits 0-6) +
	// relative_pos (bit 7) in byte1; anchor_h (full byte) in byte2;
	// row_count (bits 0-3, +1) + anchor_point (bits 4-7) in byte3; col_count
	// (bits 0-5, +1) in byte4; pen_style (bits 0-2) + win_style (bits 3-5)
	// in byte5.
	df := []byte{
		0x98,
		0x20,    // visible=1 (bit 5), rest 0
		10,      // anchor_v=10, relative_pos=0
		20,      // anchor_h=20
		(0 << 4) | 1, // anchor_point=TopLeft(0), row_count=2
		9 - 1,   // col_count=9
		0,
	}
	block := buildServiceBlockBytes(1, df)
	changed := svc.ProcessBlock(block[1:]) // strip the service-block header; ProcessBlock takes raw command bytes
	assert.False(t, changed)               // DFx itself doesn't composite

	// Write "HI" into the window.
	text := buildServiceBlockBytes(1, []byte("HI"))
	svc.ProcessBlock(text[1:])

	w := &svc.Windows[0]
	assert.True(t, w.Defined)
	assert.Contains(t, w.text(), "HI")
}

func TestSetCurrentWindowSwitchesTarget(t *testing.T) {
	svc := NewCEA708Service()
	df0 := []byte{0x98, 0x20, 0, 0, 1, 3, 0} // window 0, row_count=2,col_count=4
	svc.ProcessBlock(df0)
	df1 := []byte{0x99, 0x20, 0, 0, 1, 3, 0} // window 1
	svc.ProcessBlock(df1)

	svc.ProcessBlock([]byte{0x81}) // CW1
	assert.Equal(t, 1, svc.CurrentWindow)
}

func TestRepeatedIdenticalDefineWindowIgnored(t *testing.T) {
	svc := NewCEA708Service()
	df := []byte{0x98, 0x20, 0, 0, 1, 3, 0}
	svc.ProcessBlock(df)
	svc.Windows[0].PenRow = 5 // mutate state the repeat must NOT reset
	svc.ProcessBlock(df)
	assert.Equal(t, 5, svc.Windows[0].PenRow)
}
