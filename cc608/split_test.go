package cc608

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitterDefaultsToFirstChannel(t *testing.T) {
	s := NewSplitter(1)
	ch, hi, lo, ok := s.Split(0x20, 0x41)
	assert.True(t, ok)
	assert.Equal(t, 1, ch)
	assert.Equal(t, byte(0x20), hi)
	assert.Equal(t, byte(0x41), lo)
}

func TestSplitterSelectsSecondChannelOnControlCode(t *testing.T) {
	s := NewSplitter(1)
	ch, hi, _, ok := s.Split(0x1C, 0x2D) // channel-2 CR
	assert.True(t, ok)
	assert.Equal(t, 2, ch)
	assert.Equal(t, byte(0x14), hi) // normalised down to channel-1 numbering

	// Subsequent printable pairs stay on channel 2 until another control
	// code re-selects channel 1.
	ch2, hi2, lo2, ok2 := s.Split(0x41, 0x42)
	assert.True(t, ok2)
	assert.Equal(t, 2, ch2)
	assert.Equal(t, byte(0x41), hi2)
	assert.Equal(t, byte(0x42), lo2)
}

func TestSplitterSwitchesBackToFirstChannel(t *testing.T) {
	s := NewSplitter(3) // field 2 -> CC3/CC4
	ch, _, _, ok := s.Split(0x1D, 0x20)
	assert.True(t, ok)
	assert.Equal(t, 4, ch)

	ch2, hi2, _, ok2 := s.Split(0x15, 0x20)
	assert.True(t, ok2)
	assert.Equal(t, 3, ch2)
	assert.Equal(t, byte(0x15), hi2)
}

// TestSplitterRoutesXDSPacketAwayFromCC3CC4 covers S4 end-to-end at the
// Splitter layer: an XDS program-name packet interleaved in field 2's
// byte stream must be consumed by the XDS side channel (ok == false,
// nothing added to CC3/CC4) and surfaced via TakeXDSEvents, even though
// its body bytes ('A', 'B') fall in the same 0x20-0x7F range as ordinary
// CC3/CC4 printable pairs.
func TestSplitterRoutesXDSPacketAwayFromCC3CC4(t *testing.T) {
	s := NewSplitter(3)

	_, _, _, ok := s.Split(0x01, 0x03) // class=current, type=program name
	assert.False(t, ok)

	_, _, _, ok = s.Split('A', 'B')
	assert.False(t, ok)

	// two's-complement-mod-128 checksum over 0x01,0x03,'A','B',0x0F
	sum := int(0x01) + int(0x03) + int('A') + int('B') + int(0x0F)
	cs := byte((-sum) & 0x7F)
	_, _, _, ok = s.Split(0x0F, cs)
	assert.False(t, ok)

	events := s.TakeXDSEvents()
	if assert.Len(t, events, 1) {
		assert.Equal(t, "AB", events[0].Text)
	}

	// Normal CC3/CC4 traffic is unaffected once the XDS packet has ended.
	ch, hi, lo, ok := s.Split(0x20, 0x41)
	assert.True(t, ok)
	assert.Equal(t, 3, ch)
	assert.Equal(t, byte(0x20), hi)
	assert.Equal(t, byte(0x41), lo)
}
