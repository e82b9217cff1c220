// Package blockpool owns the contiguous array of data blocks and the
// free-block bitmap for a file system. It is the lowest layer of the engine:
// claim/release of a single block, plus the byte-exact snapshot/restore pair
// the engine's rollback path depends on.
package blockpool

import (
	"fmt"

	"github.com/boljen/go-bitmap"

	"github.com/pasha112sergey/minifs/errors"
	"github.com/pasha112sergey/minifs/sizecalc"
)

// BlockIndex identifies a single data block within a Pool.
type BlockIndex uint32

// Pool owns the backing byte array for every data block plus the bitmap
// tracking which ones are free. A bitmap bit of 1 means free, matching the
// on-disk convention.
type Pool struct {
	freeMap bitmap.Bitmap
	blocks  [][sizecalc.DataBlockSize]byte
}

// New creates a Pool with totalBlocks blocks, all initially free and zeroed.
func New(totalBlocks uint) *Pool {
	freeMap := bitmap.New(int(totalBlocks))
	for i := 0; i < int(totalBlocks); i++ {
		freeMap.Set(i, true)
	}
	return &Pool{
		freeMap: freeMap,
		blocks:  make([][sizecalc.DataBlockSize]byte, totalBlocks),
	}
}

// Total returns the total number of blocks in the pool.
func (p *Pool) Total() uint {
	return uint(len(p.blocks))
}

// Available returns the number of blocks that are currently free.
func (p *Pool) Available() uint {
	count := uint(0)
	for i := 0; i < len(p.blocks); i++ {
		if p.freeMap.Get(i) {
			count++
		}
	}
	return count
}

// ClaimOne reserves the lowest-indexed free block, zeroes it, and returns its
// index. Claims are deterministic so that callers (and tests) can predict
// which block will be handed out next.
func (p *Pool) ClaimOne() (BlockIndex, error) {
	for i := 0; i < len(p.blocks); i++ {
		if p.freeMap.Get(i) {
			p.freeMap.Set(i, false)
			p.blocks[i] = [sizecalc.DataBlockSize]byte{}
			return BlockIndex(i), nil
		}
	}
	return 0, errors.ErrNoFreeBlock
}

// Release marks idx as free again. The block's contents are left untouched;
// callers must not depend on them being zeroed until the block is claimed
// again.
func (p *Pool) Release(idx BlockIndex) error {
	if uint(idx) >= uint(len(p.blocks)) {
		return errors.ErrInvalidInput.WithMessage(
			fmt.Sprintf("block index %d not in range [0, %d)", idx, len(p.blocks)),
		)
	}
	p.freeMap.Set(int(idx), true)
	return nil
}

// IsFree reports whether idx is currently unclaimed.
func (p *Pool) IsFree(idx BlockIndex) bool {
	return p.freeMap.Get(int(idx))
}

// Block returns a pointer to the raw contents of block idx. Callers are
// expected to read and write through this pointer directly; the pool performs
// no bounds-agnostic copying.
func (p *Pool) Block(idx BlockIndex) *[sizecalc.DataBlockSize]byte {
	return &p.blocks[idx]
}

// Snapshot captures the pool's bitmap and block contents as a single opaque
// value, suitable for byte-exact comparison or restoration. The engine uses it
// to roll back a WriteAppend or Modify that fails after its capacity check
// passed; INSUFFICIENT_DBLOCKS itself is returned before anything is changed.
type Snapshot struct {
	freeMap []byte
	blocks  [][sizecalc.DataBlockSize]byte
}

// Snapshot returns a deep copy of the pool's current state.
func (p *Pool) Snapshot() Snapshot {
	freeMapCopy := make([]byte, len(p.freeMap))
	copy(freeMapCopy, p.freeMap)

	blocksCopy := make([][sizecalc.DataBlockSize]byte, len(p.blocks))
	copy(blocksCopy, p.blocks)

	return Snapshot{freeMap: freeMapCopy, blocks: blocksCopy}
}

// Restore overwrites the pool's state with a previously captured Snapshot.
func (p *Pool) Restore(snap Snapshot) {
	p.freeMap = bitmap.Bitmap(append([]byte(nil), snap.freeMap...))
	p.blocks = append([][sizecalc.DataBlockSize]byte(nil), snap.blocks...)
}

// FreeBitmapBytes returns a copy of the free-block bitmap's raw bytes, in the
// on-disk layout image.Save expects.
func (p *Pool) FreeBitmapBytes() []byte {
	raw := make([]byte, len(p.freeMap))
	copy(raw, p.freeMap)
	return raw
}

// RawBlock returns a copy of block idx's contents, for serializing the whole
// pool out to an image.
func (p *Pool) RawBlock(idx BlockIndex) [sizecalc.DataBlockSize]byte {
	return p.blocks[idx]
}

// NewFromRaw reconstructs a Pool from a previously serialized free bitmap and
// block array, as produced by image.Load. The caller guarantees freeBitmap's
// length matches what bitmap.New(len(blocks)) would allocate.
func NewFromRaw(freeBitmap []byte, blocks [][sizecalc.DataBlockSize]byte) *Pool {
	freeMap := make(bitmap.Bitmap, len(freeBitmap))
	copy(freeMap, freeBitmap)
	return &Pool{
		freeMap: freeMap,
		blocks:  append([][sizecalc.DataBlockSize]byte(nil), blocks...),
	}
}
