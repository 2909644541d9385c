package rechunk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormaliseCollapsesWhitespace(t *testing.T) {
	assert.Equal(t, "hello world", normalise("hello\n\n  world  "))
}

func TestNormaliseRepairsPipeToI(t *testing.T) {
	assert.Equal(t, "I can't", normalise("| can't"))
	assert.Equal(t, "say I'm here", normalise("say |'m here"))
}

func TestNormaliseLeavesMidWordPipeAlone(t *testing.T) {
	assert.Equal(t, "a|b", normalise("a|b"))
}

func TestChunkerEmitsCompleteSentences(t *testing.T) {
	c := NewChunker()
	c.Add("Hello there. How are", 0, 1000)
	c.Add("How are you doing today?", 1000, 2000)

	subs := c.Drain()
	require.Len(t, subs, 2)
	assert.Equal(t, "Hello there.", subs[0].Text)
	assert.Equal(t, "How are you doing today?", subs[1].Text)
}

func TestChunkerTreatsAdjacentTerminatorsAsOneSplitPoint(t *testing.T) {
	c := NewChunker()
	c.Add("Really?! Yes.", 0, 1000)
	subs := c.Drain()
	require.Len(t, subs, 2)
	assert.Equal(t, "Really?!", subs[0].Text)
	assert.Equal(t, "Yes.", subs[1].Text)
}

func TestChunkerFlushEmitsRemainder(t *testing.T) {
	c := NewChunker()
	c.Add("no terminator here", 0, 500)
	c.Drain()
	sub := c.Flush()
	require.NotNil(t, sub)
	assert.Equal(t, "no terminator here", sub.Text)
}

func TestDedupCutPointMergesOverlappingRecognitions(t *testing.T) {
	c := NewChunker()
	c.Add("the quick brown fox", 0, 1000)
	c.Add("brown fox jumps over", 1000, 2000)
	subs := c.Drain()
	_ = subs
	full := c.Flush()
	require.NotNil(t, full)
	assert.Equal(t, "the quick brown fox jumps over", full.Text)
}
