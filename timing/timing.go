// Package timing implements the PTS-to-FTS synchronisation engine that
// turns MPEG presentation timestamps into a monotonic, per-field output
// timeline (File Time Stamp, FTS). Every CC608/CC708/XDS/VOBSUB decoder
// consults a *Context to stamp the subtitles it emits.
//
// Grounded on the original_source/src/lib_ccx/ccx_common_timing.{c,h}
// field layout (fts_now, fts_offset, fts_global, fts_max, minimum_fts,
// pts_set, sync_pts) and on the teacher's hand-rolled, allocation-free
// stateful-struct style (internal/scte35 command decoders, internal/demux
// Demuxer) rather than a generic timestamp library.
package timing

import (
	"fmt"
	"time"
)

// MPEGClockFreq is the 90kHz clock rate PTS values are expressed in.
const MPEGClockFreq = 90000

// DefaultMaxDifSeconds is the default discontinuity tolerance (§4.1):
// a set_current_pts call further than this many seconds from the current
// PTS is treated as a reset when sync checking is enabled.
const DefaultMaxDifSeconds = 5

// NTSCFieldMs is the duration of one NTSC field (1001/60000 s * 1000),
// used by get_fts to fan consecutive byte-pairs within a single frame out
// across monotonically increasing timestamps.
const NTSCFieldMs = float64(1001) / 60

// PTSSetState tracks how much timing information has been observed.
type PTSSetState int

const (
	// PTSNone means no PTS has been seen yet.
	PTSNone PTSSetState = iota
	// PTSGotFirst means at least one PTS has been recorded.
	PTSGotFirst
	// PTSMinSet means the minimum PTS baseline has been established.
	PTSMinSet
)

// PictureCodingType mirrors MPEG picture coding types, used only to
// annotate the timing context; the core does not interpret GOP structure
// beyond carrying it through.
type PictureCodingType int

const (
	PictureUnknown PictureCodingType = iota
	PictureI
	PictureP
	PictureB
	PictureD
)

// GOPTimeCode is the decoded group-of-pictures time code carried by some
// container formats. The core stores it opaquely; it never derives FTS
// from GOP time directly (elementary-stream sync is PTS-based only).
type GOPTimeCode struct {
	DropFrame bool
	Hours     int
	Minutes   int
	Seconds   int
	Pictures  int
	Inited    bool
}

// Field selects which NTSC field (or the field-independent CC708 stream)
// a get_fts-family call is for.
type Field int

const (
	Field1 Field = 1
	Field2 Field = 2
	// Field708 is passed to get_fts for CEA-708 data, which is not tied
	// to a specific analog field.
	Field708 Field = 3
)

// Context is the per-stream timing state described in §3.6. All methods
// mutate state in place; none allocate. A single Context must not be
// shared across programs/streams processed concurrently — §5 requires a
// separate Context per program for parallel processing.
type Context struct {
	// Config
	MaxDifSeconds       int
	DisableSyncCheck    bool
	NoSync              bool
	IsElementaryStream  bool
	CurrentFPS          float64

	// PTS side
	CurrentPTS int64
	MinPTS     int64
	MaxPTS     int64
	SyncPTS    int64
	PTSSet     PTSSetState
	PTSReset   bool

	// FTS side, all milliseconds
	FTSOffset   int64
	FTSGlobal   int64
	FTSNow      int64
	FTSMax      int64
	MinimumFTS  int64

	// Picture/GOP bookkeeping, carried but not interpreted by FTS math.
	CurrentPictureCodingType PictureCodingType
	CurrentTref              int
	FramesSinceRefTime        int
	GOPTime                   GOPTimeCode

	// Per-field/per-708 block counters, reset by set_fts and by
	// notify_new_file.
	CBField1 int
	CBField2 int
	CB708    int
}

// NewContext returns a Context with the defaults the original decoder
// initializes at stream start: min_pts at the 33-bit ceiling so the first
// real PTS always looks like a new minimum, current_fps at NTSC 29.97.
func NewContext() *Context {
	return &Context{
		MaxDifSeconds: DefaultMaxDifSeconds,
		CurrentFPS:    float64(30000) / 1001,
		MinPTS:        0x01FFFFFFFF,
	}
}

// SetCurrentPTS implements set_current_pts (§4.1): sets the absolute PTS,
// detecting discontinuities when sync checking is enabled.
func (c *Context) SetCurrentPTS(pts int64) {
	if c.PTSSet == PTSNone {
		c.PTSSet = PTSGotFirst
		c.SyncPTS = pts
		c.MinPTS = pts
		c.MaxPTS = pts
		c.CurrentPTS = pts
		return
	}

	if !c.DisableSyncCheck {
		maxDif := int64(c.MaxDifSeconds) * MPEGClockFreq
		if pts < c.CurrentPTS-maxDif || pts > c.CurrentPTS+maxDif {
			c.PTSReset = true
			c.FTSOffset = c.FTSMax
			c.SyncPTS = pts
			c.MinPTS = pts
		}
	}

	c.CurrentPTS = pts
	if pts < c.MinPTS {
		c.MinPTS = pts
	}
	if pts > c.MaxPTS {
		c.MaxPTS = pts
	}
}

// AddCurrentPTS implements add_current_pts: advances by delta ticks of
// the 90kHz clock, used by formats that only supply frame durations.
func (c *Context) AddCurrentPTS(delta int64) {
	c.SetCurrentPTS(c.CurrentPTS + delta)
}

// SetFTS implements set_fts (§4.1): recomputes fts_now from the current
// PTS relative to sync_pts, clamped so it never regresses, and bumps
// fts_max when a new high-water mark is reached.
func (c *Context) SetFTS() bool {
	var candidate int64
	if c.IsElementaryStream && c.DisableSyncCheck {
		// No reliable PTS reference: advance by nominal frame duration.
		if c.CurrentFPS > 0 {
			candidate = c.FTSNow + int64(1000/c.CurrentFPS)
		} else {
			candidate = c.FTSNow
		}
	} else {
		candidate = (c.CurrentPTS-c.SyncPTS)/(MPEGClockFreq/1000) + c.FTSOffset
	}

	if candidate < c.FTSNow {
		// Never let wall-clock time go backwards within a file.
		candidate = c.FTSNow
	}
	c.FTSNow = candidate

	advanced := false
	if c.FTSNow > c.FTSMax {
		c.FTSMax = c.FTSNow
		advanced = true
	}

	c.CBField1 = 0
	c.CBField2 = 0
	c.CB708 = 0
	return advanced
}

// fieldCounter returns a pointer to the per-field block counter used to
// fan consecutive byte pairs out across a single frame's duration. It does
// not change the counter; GetFTS reads it and then bumps it.
func (c *Context) fieldCounter(field Field) *int {
	switch field {
	case Field1:
		return &c.CBField1
	case Field2:
		return &c.CBField2
	default:
		return &c.CB708
	}
}

// GetFTS implements get_fts (§4.1): returns fts_now + fts_global, offset
// by however many byte-pairs have already been charged to this field
// since the last SetFTS, so two pairs in the same frame don't collide.
func (c *Context) GetFTS(field Field) int64 {
	counter := c.fieldCounter(field)
	offset := int64(float64(*counter) * NTSCFieldMs / 2)
	*counter++
	return c.FTSNow + c.FTSGlobal + offset
}

// GetFTSMax returns the highest FTS value observed in the current file,
// not including fts_global.
func (c *Context) GetFTSMax() int64 {
	return c.FTSMax
}

// GetVisibleStart implements get_visible_start: an FTS guaranteed to be
// strictly greater than the end of the previous screen, so adjacent cues
// on the same channel never overlap (invariant §8.1.1).
func (c *Context) GetVisibleStart(field Field) int64 {
	fts := c.GetFTS(field)
	if fts <= c.MinimumFTS {
		fts = c.MinimumFTS + 1
	}
	return fts
}

// GetVisibleEnd implements get_visible_end, and records the new floor for
// the next GetVisibleStart call on this context.
func (c *Context) GetVisibleEnd(field Field) int64 {
	fts := c.GetFTS(field)
	if fts <= c.MinimumFTS {
		fts = c.MinimumFTS + 1
	}
	c.MinimumFTS = fts
	return fts
}

// NotifyNewFile implements notify_new_file: accumulates fts_global so
// that timestamps in a subsequently concatenated file continue where the
// previous one left off (the -delay-style semantics for multi-file runs).
// Per-field counters reset; XDS state is untouched by the caller, which
// owns its own buffers independently of the timing context.
func (c *Context) NotifyNewFile() {
	c.FTSGlobal += c.FTSMax
	c.FTSOffset = 0
	c.FTSMax = 0
	c.FTSNow = 0
	c.MinimumFTS = 0
	c.CBField1 = 0
	c.CBField2 = 0
	c.CB708 = 0
	c.PTSSet = PTSNone
	c.PTSReset = false
}

// FormatMS renders a millisecond duration as "HH:MM:SS.mmm", matching the
// sign-handling behaviour of the original print_mstime_buff: negative
// durations are rendered with a leading '-' over the magnitude.
func FormatMS(ms int64) string {
	neg := ms < 0
	if neg {
		ms = -ms
	}
	d := time.Duration(ms) * time.Millisecond
	hh := int(d / time.Hour)
	d -= time.Duration(hh) * time.Hour
	mm := int(d / time.Minute)
	d -= time.Duration(mm) * time.Minute
	ss := int(d / time.Second)
	d -= time.Duration(ss) * time.Second
	msRem := int(d / time.Millisecond)

	sign := ""
	if neg {
		sign = "-"
	}
	return fmt.Sprintf("%s%02d:%02d:%02d.%03d", sign, hh, mm, ss, msRem)
}
