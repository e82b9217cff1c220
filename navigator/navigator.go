// Package navigator translates a logical byte offset within an inode into a
// physical block index and an offset within that block. It never mutates the
// pool or the inode; it only walks pointers already present in them.
package navigator

import (
	"encoding/binary"

	"github.com/pasha112sergey/minifs/blockpool"
	"github.com/pasha112sergey/minifs/errors"
	"github.com/pasha112sergey/minifs/inodetable"
	"github.com/pasha112sergey/minifs/sizecalc"
)

// nextPointerOffset is where the chain's "next index block" pointer lives
// within an index block: the last IndexPointerSize bytes.
const nextPointerOffset = sizecalc.DataBlockSize - sizecalc.IndexPointerSize

// Resolve returns the physical block holding logical byte offset of inode,
// and the byte offset within that block. offset must address a byte already
// reserved by inode (engine.Read clamps to file_size before calling in; the
// engine's growth path writes new blocks directly rather than through
// Resolve, since nothing is there to resolve yet).
func Resolve(inode *inodetable.Record, pool *blockpool.Pool, offset uint64) (blockpool.BlockIndex, uint, error) {
	if inode == nil || pool == nil {
		return 0, 0, errors.ErrInvalidInput.WithMessage("nil inode or pool")
	}

	b := offset / sizecalc.DataBlockSize
	r := uint(offset % sizecalc.DataBlockSize)

	if b < sizecalc.DirectSlots {
		return inode.DirectData[b], r, nil
	}

	k := b - sizecalc.DirectSlots
	chainHops := k / sizecalc.IndexEntriesPerBlock
	slot := k % sizecalc.IndexEntriesPerBlock

	indexBlock := inode.IndirectBlock
	for i := uint64(0); i < chainHops; i++ {
		indexBlock = ReadNext(pool, indexBlock)
	}

	return ReadSlot(pool, indexBlock, slot), r, nil
}

// ReadNext returns the "next index block" pointer stored at the tail of
// indexBlock. Exported so the engine can walk an existing chain while
// planning growth or shrinkage without duplicating the little-endian layout
// knowledge.
func ReadNext(pool *blockpool.Pool, indexBlock blockpool.BlockIndex) blockpool.BlockIndex {
	raw := pool.Block(indexBlock)
	return blockpool.BlockIndex(binary.LittleEndian.Uint32(raw[nextPointerOffset:]))
}

// ReadSlot returns the data-block pointer stored in entry slot of indexBlock.
func ReadSlot(pool *blockpool.Pool, indexBlock blockpool.BlockIndex, slot uint64) blockpool.BlockIndex {
	raw := pool.Block(indexBlock)
	start := slot * sizecalc.IndexPointerSize
	return blockpool.BlockIndex(binary.LittleEndian.Uint32(raw[start : start+sizecalc.IndexPointerSize]))
}

// WriteNext stores next as the chain pointer at the tail of indexBlock.
func WriteNext(pool *blockpool.Pool, indexBlock blockpool.BlockIndex, next blockpool.BlockIndex) {
	raw := pool.Block(indexBlock)
	binary.LittleEndian.PutUint32(raw[nextPointerOffset:], uint32(next))
}

// WriteSlot stores physical as the data-block pointer in entry slot of
// indexBlock.
func WriteSlot(pool *blockpool.Pool, indexBlock blockpool.BlockIndex, slot uint64, physical blockpool.BlockIndex) {
	raw := pool.Block(indexBlock)
	start := slot * sizecalc.IndexPointerSize
	binary.LittleEndian.PutUint32(raw[start:start+sizecalc.IndexPointerSize], uint32(physical))
}
