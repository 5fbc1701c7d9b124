// Package track implements the generic track engine (§4.4, §4.5, §4.9):
// seeking a (cyl, side) pair, building the rotational sector map, and the
// streaming read/write state machine that ties a drive's rotational
// position to encoded bitcells and back to sector payloads. It drives the
// format-specific mfm and fm packages but knows nothing about image file
// layout itself (that's package geometry's job).
package track

import (
	"fmt"
	"io"

	"github.com/sergev/fdimage/fm"
	"github.com/sergev/fdimage/ferr"
	"github.com/sergev/fdimage/geometry"
	"github.com/sergev/fdimage/mfm"
)

// Fetcher reads and writes sector payloads given their absolute file
// offset; it is the track package's only dependency on the file/image
// layer, so the engine can be driven by any Image regardless of opener.
type Fetcher interface {
	ReadSectorAt(off int64, size int) ([]byte, error)
	WriteSectorAt(off int64, data []byte) error
}

// Cursor is the engine's entire mutable per-track state, reinitialized by
// every SetupTrack call (§3's Cursor type).
type Cursor struct {
	im      *geometry.Image
	fetcher Fetcher

	Track int
	Cyl   int
	Side  int

	Trk       geometry.TrackDescriptor
	Secs      []geometry.SectorDescriptor
	SecMap    []int // rotational -> logical

	TrackOffset  int64
	MFMTiming    mfm.TrackTiming
	FMTiming     fm.TrackTiming
	raw          []byte // full encoded track, built lazily by ensureEncoded
	PostCRCSyncs int

	// Decoder cursor, named after §4.5's calc_start_pos fields.
	DecodePos     int
	TrkSec        int
	RdSecPos      int
	DecodeDataPos int
	CRC           uint16

	// ReadPos is how many bytes of raw have already been delivered to the
	// host via ReadTrack.
	ReadPos int

	// writeBuf accumulates raw bitcells handed to WriteTrack until a full
	// track's worth has arrived.
	writeBuf []byte
}

// NewCursor builds a Cursor bound to im and fetcher. postCRCSyncs is the
// image-wide §3 post_crc_syncs parameter (normally 0).
func NewCursor(im *geometry.Image, fetcher Fetcher, postCRCSyncs int) *Cursor {
	return &Cursor{im: im, fetcher: fetcher, PostCRCSyncs: postCRCSyncs}
}

// buildSecMap computes the rotational->logical sector permutation per
// §4.4/§8: starting index (cyl*cskew + side*hskew) mod nrSectors, stepping
// by interleave, skipping already-filled rotational slots.
func buildSecMap(cyl, side int, trk geometry.TrackDescriptor) []int {
	n := trk.NrSectors
	secMap := make([]int, n)
	for i := range secMap {
		secMap[i] = -1
	}
	if n == 0 {
		return secMap
	}
	interleave := trk.Interleave
	if interleave < 1 {
		interleave = 1
	}
	start := (cyl*trk.CSkew + side*trk.HSkew) % n
	if start < 0 {
		start += n
	}
	pos := start
	for logical := 0; logical < n; logical++ {
		for secMap[pos] != -1 {
			pos = (pos + 1) % n
		}
		secMap[pos] = logical
		pos = (pos + interleave) % n
	}
	return secMap
}

// SeekTrack resolves (cyl, side)'s TrackDescriptor, sectors, and
// rotational sec_map, per §4.4's seek_track.
func (c *Cursor) SeekTrack(cyl, side int) error {
	trk, err := c.im.TrackAt(cyl, side)
	if err != nil {
		return err
	}
	off, err := c.im.TrackOffset(cyl, side)
	if err != nil {
		return err
	}
	c.Cyl, c.Side = cyl, side
	c.Trk = trk
	c.Secs = c.im.Sectors(trk)
	c.TrackOffset = off
	if trk.NrSectors > 0 {
		c.SecMap = buildSecMap(cyl, side, trk)
	} else {
		c.SecMap = nil
	}
	c.raw = nil
	return nil
}

// SetupTrack resolves a drive track number into (cyl, side) per §4.5,
// reseeks, recomputes timing, and positions the decoder cursor at
// startPos system ticks (aligned to a 16-bitcell boundary, wrapped at
// tracklen_bc) via CalcStartPos.
func (c *Cursor) SetupTrack(trackNum int, startPos int64, ticksPerCell float64) error {
	cyl, side := c.im.DecodeTrackNumber(trackNum)
	if err := c.SeekTrack(cyl, side); err != nil {
		return err
	}
	c.Track = trackNum
	if err := c.ensureEncoded(); err != nil {
		return err
	}

	trackLenBC := c.trackLenBC()
	var bc int
	if ticksPerCell > 0 {
		bc = int(float64(startPos) / ticksPerCell)
	}
	bc -= bc % 16
	if trackLenBC > 0 {
		bc = ((bc % trackLenBC) + trackLenBC) % trackLenBC
	} else {
		bc = 0
	}

	angle := 0.0
	if trackLenBC > 0 {
		angle = float64(bc) / float64(trackLenBC)
	}
	c.CalcStartPos(angle)
	c.ReadPos = c.DecodePos
	c.writeBuf = c.writeBuf[:0]
	return nil
}

func (c *Cursor) trackLenBC() int {
	if c.Trk.IsFM {
		return c.FMTiming.TrackLenBC
	}
	return c.MFMTiming.TrackLenBC
}

func (c *Cursor) idxSzBytes() int {
	if c.Trk.IsFM {
		return c.FMTiming.IdxSzBytes
	}
	return c.MFMTiming.IdxSzBytes
}

func (c *Cursor) essBytes() []int {
	if c.Trk.IsFM {
		return c.FMTiming.EssBytes
	}
	return c.MFMTiming.EssBytes
}

// CalcStartPos derives the decoder cursor fields from a fractional
// rotational angle (0..1), per §4.5/§8, matching img.c's calc_start_pos:
// `bc = cur_bc - track_delay_bc`, wrapping at `tracklen_bc` if negative,
// before resolving the sector offset. For track_delay_bc=0 (every layout
// but XDF's cyl>0 head 1), angle 0 always yields the zero state
// {decode_pos:0, trk_sec:0, rd_sec_pos:0, decode_data_pos:0, crc:0xFFFF};
// a nonzero delay shifts that zero crossing later in the rotation, so
// the same angle decodes to a different position on head 1 than head 0.
func (c *Cursor) CalcStartPos(angle float64) {
	if len(c.SecMap) == 0 {
		c.DecodePos, c.TrkSec, c.RdSecPos, c.DecodeDataPos = 0, 0, 0, 0
		c.CRC = 0xFFFF
		return
	}

	trackLenBC := c.trackLenBC()
	targetBC := int(angle * float64(trackLenBC))
	targetBC -= c.Trk.TrackDelayBC
	if targetBC < 0 {
		targetBC += trackLenBC
	}
	offset := targetBC/16 - c.idxSzBytes()
	if offset < 0 {
		c.DecodePos, c.TrkSec, c.RdSecPos, c.DecodeDataPos = 0, 0, 0, 0
		c.CRC = 0xFFFF
		return
	}

	ess := c.essBytes()
	for i := range c.SecMap {
		if offset < ess[i] {
			c.TrkSec = i
			c.DecodePos = (targetBC / 16) - offset
			c.RdSecPos = offset
			c.DecodeDataPos = 0
			c.CRC = 0xFFFF
			return
		}
		offset -= ess[i]
	}
	c.TrkSec = 0
	c.DecodePos, c.RdSecPos, c.DecodeDataPos = 0, 0, 0
	c.CRC = 0xFFFF
}

func (c *Cursor) sectorPayload(logical int) ([]byte, error) {
	s := c.Secs[logical]
	off := c.im.SectorFileOffset(c.Trk, c.TrackOffset, logical)
	return c.fetcher.ReadSectorAt(off, s.Size())
}

func (c *Cursor) ensureEncoded() error {
	if c.raw != nil {
		return nil
	}
	if c.Trk.IsFM {
		timing, err := fm.PrepTrack(c.Trk, c.Secs)
		if err != nil {
			return err
		}
		c.FMTiming = timing
		raw, err := fm.EncodeTrack(c.Cyl, c.Side, c.Trk, c.Secs, c.SecMap, timing, c.sectorPayload)
		if err != nil {
			return err
		}
		c.raw = raw
		return nil
	}
	timing, err := mfm.PrepTrack(c.Trk, c.Secs, c.PostCRCSyncs)
	if err != nil {
		return err
	}
	c.MFMTiming = timing
	raw, err := mfm.EncodeTrack(c.Cyl, c.Side, c.Trk, c.Secs, c.SecMap, timing, c.PostCRCSyncs, c.sectorPayload)
	if err != nil {
		return err
	}
	c.raw = raw
	return nil
}

// ReadTrack emits up to len(buf) raw bitcell bytes starting from the
// decoder cursor, per §6.1's read_track contract: returns the number of
// bytes copied and whether the track's content is exhausted. It never
// blocks; if the ring (buf) has no room it simply copies 0 bytes.
func (c *Cursor) ReadTrack(buf []byte) (n int, done bool, err error) {
	if err := c.ensureEncoded(); err != nil {
		return 0, false, err
	}
	if c.ReadPos >= len(c.raw) {
		c.ReadPos = 0 // wrap to the next revolution
	}
	n = copy(buf, c.raw[c.ReadPos:])
	c.ReadPos += n
	c.DecodePos = c.ReadPos
	return n, c.ReadPos >= len(c.raw), nil
}

// WriteTrack consumes raw bitcells captured from a real write, accumulates
// them, and once a full track's worth has arrived, decodes it and writes
// every sector whose payload it can extract back to the file via fetcher.
// Per §7/§9, a CRC mismatch is logged but does not abort the write: the
// payload is still persisted.
func (c *Cursor) WriteTrack(chunk []byte, logf func(format string, args ...any)) (flushed bool, err error) {
	if err := c.ensureEncoded(); err != nil {
		return false, err
	}
	c.writeBuf = append(c.writeBuf, chunk...)
	trackLenBytes := c.trackLenBC() / 8
	if len(c.writeBuf) < trackLenBytes {
		return false, nil
	}

	var decoded []decodedCommon
	if c.Trk.IsFM {
		for _, s := range fm.ScanTrack(c.writeBuf) {
			decoded = append(decoded, decodedCommon(s))
		}
	} else {
		for _, s := range mfm.ScanTrack(c.writeBuf) {
			decoded = append(decoded, decodedCommon(s))
		}
	}

	for _, d := range decoded {
		if !d.HeaderCRCOK {
			if logf != nil {
				logf("write_track: header CRC mismatch at cyl %d side %d sector %d", d.Cyl, d.Head, d.R)
			}
			continue
		}
		if d.Data == nil {
			continue
		}
		if !d.CRCOK {
			if logf != nil {
				logf("write_track: data CRC mismatch at cyl %d side %d sector %d, persisting anyway", d.Cyl, d.Head, d.R)
			}
		}
		logical, ok := c.findLogical(d.R, d.N)
		if !ok {
			continue
		}
		s := c.Secs[logical]
		payload := d.Data
		if c.Trk.InvertData {
			inv := make([]byte, len(payload))
			for i, b := range payload {
				inv[i] = b ^ 0xFF
			}
			payload = inv
		}
		off := c.im.SectorFileOffset(c.Trk, c.TrackOffset, logical)
		if err := c.fetcher.WriteSectorAt(off, payload[:s.Size()]); err != nil {
			return false, err
		}
	}

	c.writeBuf = c.writeBuf[:0]
	return true, nil
}

// decodedCommon unifies mfm.DecodedSector and fm.DecodedSector since both
// types share the same field shape.
type decodedCommon struct {
	Cyl, Head, R, N int
	Data            []byte
	CRCOK           bool
	HeaderCRCOK     bool
}

func (c *Cursor) findLogical(r, n int) (int, bool) {
	for i, s := range c.Secs {
		if int(s.R) == r && int(s.N) == n {
			return i, true
		}
	}
	return 0, false
}

// Extend grows the backing file to the canonical size implied by the
// geometry, per §4.4's extend operation, failing if w can't seek/write
// there.
func Extend(im *geometry.Image, w io.WriterAt) error {
	size, err := im.Extend()
	if err != nil {
		return err
	}
	if size == 0 {
		return fmt.Errorf("%w: extend target size is 0", ferr.ErrFormatInvalid)
	}
	if _, err := w.WriteAt([]byte{0}, size-1); err != nil {
		return err
	}
	return nil
}
