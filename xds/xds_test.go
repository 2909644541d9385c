package xds

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// checksum computes the two's-complement-mod-128 trailer for a packet body
// so tests can construct valid packets.
func checksum(hi, lo byte, body [][2]byte) byte {
	sum := int(hi) + int(lo)
	for _, p := range body {
		sum += int(p[0]) + int(p[1])
	}
	sum += int(0x0F)
	return byte((-sum) & 0x7F)
}

// TestValidPacketEmitsEvent covers S4: a well-formed program-name packet
// with a correct checksum must decode and emit exactly once.
func TestValidPacketEmitsEvent(t *testing.T) {
	d := NewDecoder()
	body := [][2]byte{{'A' | 0, 'B'}, {'C', 'D'}}
	cs := checksum(0x01, 0x03, body)

	d.Process(0x01, 0x03) // class=current, type=program name
	for _, p := range body {
		d.Process(p[0], p[1])
	}
	events := d.Process(0x0F, cs)
	assert.Len(t, events, 1)
	assert.Equal(t, EventProgramName, events[0].Kind)
	assert.Equal(t, "ABCD", events[0].Text)
}

func TestBadChecksumDropsPacketSilently(t *testing.T) {
	d := NewDecoder()
	d.Process(0x01, 0x03)
	d.Process('A', 'B')
	events := d.Process(0x0F, 0x00) // wrong checksum
	assert.Empty(t, events)
}

func TestUnchangedPayloadSuppressed(t *testing.T) {
	d := NewDecoder()
	body := [][2]byte{{'A', 'B'}}
	cs := checksum(0x01, 0x03, body)

	d.Process(0x01, 0x03)
	d.Process('A', 'B')
	first := d.Process(0x0F, cs)
	assert.Len(t, first, 1)

	d.Process(0x01, 0x03)
	d.Process('A', 'B')
	second := d.Process(0x0F, cs)
	assert.Empty(t, second, "identical payload must be suppressed")
}

func TestChannelClassNetworkName(t *testing.T) {
	d := NewDecoder()
	body := [][2]byte{{'H', 'B'}, {'O', ' '}}
	cs := checksum(0x05, 0x01, body) // class=channel (index 2), type=1 network name
	d.Process(0x05, 0x01)
	for _, p := range body {
		d.Process(p[0], p[1])
	}
	events := d.Process(0x0F, cs)
	if assert.Len(t, events, 1) {
		assert.Equal(t, EventNetworkName, events[0].Kind)
	}
}
