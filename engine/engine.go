// Package engine implements the core inode data operations: write_append,
// read, modify, shrink, and release_data. Every method runs to completion
// without suspending, mutates the backing block pool in place, and either
// succeeds completely or leaves the pool byte-for-byte as it found it.
package engine

import (
	"github.com/hashicorp/go-multierror"

	"github.com/pasha112sergey/minifs/blockpool"
	"github.com/pasha112sergey/minifs/errors"
	"github.com/pasha112sergey/minifs/inodetable"
	"github.com/pasha112sergey/minifs/navigator"
	"github.com/pasha112sergey/minifs/sizecalc"
)

// Engine executes data operations against inode records backed by a single
// block pool. It does not own inodes directly; callers pass in the record to
// operate on, the same way inodetable.Table.Get hands out a pointer for the
// caller to mutate.
type Engine struct {
	pool *blockpool.Pool
}

// New returns an Engine operating over pool.
func New(pool *blockpool.Pool) *Engine {
	return &Engine{pool: pool}
}

func (e *Engine) validate(record *inodetable.Record) error {
	if record == nil || e.pool == nil {
		return errors.ErrInvalidInput.WithMessage("nil inode or engine")
	}
	return nil
}

// WriteAppend appends data to the end of record's content. The whole
// operation either succeeds or leaves the pool untouched: capacity is
// checked against the additional blocks required before any block is
// claimed.
func (e *Engine) WriteAppend(record *inodetable.Record, data []byte) error {
	if err := e.validate(record); err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}

	extraBlocks := sizecalc.TotalBlocksNeeded(record.FileSize+uint64(len(data))) -
		sizecalc.TotalBlocksNeeded(record.FileSize)
	if extraBlocks > uint64(e.pool.Available()) {
		return errors.ErrInsufficientBlocks
	}

	snap := e.pool.Snapshot()
	backup := *record
	if err := e.appendPayload(record, data); err != nil {
		e.pool.Restore(snap)
		*record = backup
		return err
	}
	return nil
}

// Read copies up to len(buffer) bytes starting at offset into buffer and
// returns how many bytes were actually copied. Reading past file_size is not
// an error: it simply yields zero bytes. Read never mutates the engine's
// state.
func (e *Engine) Read(record *inodetable.Record, offset uint64, buffer []byte) (int, error) {
	if err := e.validate(record); err != nil {
		return 0, err
	}
	if offset >= record.FileSize {
		return 0, nil
	}

	want := uint64(len(buffer))
	remaining := record.FileSize - offset
	if want > remaining {
		want = remaining
	}

	var done uint64
	for done < want {
		physical, within, err := navigator.Resolve(record, e.pool, offset+done)
		if err != nil {
			return int(done), err
		}
		block := e.pool.Block(physical)
		chunk := uint64(sizecalc.DataBlockSize) - uint64(within)
		if left := want - done; chunk > left {
			chunk = left
		}
		copy(buffer[done:done+chunk], block[within:uint64(within)+chunk])
		done += chunk
	}
	return int(done), nil
}

// Modify overwrites n bytes starting at offset, extending the file if the
// write reaches past its current end. offset must not exceed the current
// file_size. The overlapping region is overwritten in place without claiming
// new blocks; only the portion past the current end consumes new capacity,
// and that capacity is checked before anything is written.
func (e *Engine) Modify(record *inodetable.Record, offset uint64, data []byte) error {
	if err := e.validate(record); err != nil {
		return err
	}
	if offset > record.FileSize {
		return errors.ErrInvalidInput.WithMessage("offset exceeds file_size")
	}
	if len(data) == 0 {
		return nil
	}

	n := uint64(len(data))
	var overlap uint64
	if record.FileSize > offset {
		overlap = record.FileSize - offset
		if overlap > n {
			overlap = n
		}
	}
	extend := n - overlap

	if extend > 0 {
		extraBlocks := sizecalc.TotalBlocksNeeded(record.FileSize+extend) -
			sizecalc.TotalBlocksNeeded(record.FileSize)
		if extraBlocks > uint64(e.pool.Available()) {
			return errors.ErrInsufficientBlocks
		}
	}

	snap := e.pool.Snapshot()
	backup := *record

	if overlap > 0 {
		if err := e.overwriteInPlace(record, offset, data[:overlap]); err != nil {
			e.pool.Restore(snap)
			*record = backup
			return err
		}
	}
	if extend > 0 {
		if err := e.appendPayload(record, data[overlap:]); err != nil {
			e.pool.Restore(snap)
			*record = backup
			return err
		}
	}
	return nil
}

// Shrink releases every block beyond new_size and truncates record to it.
// new_size must not exceed the current file_size.
func (e *Engine) Shrink(record *inodetable.Record, newSize uint64) error {
	if err := e.validate(record); err != nil {
		return err
	}
	if newSize > record.FileSize {
		return errors.ErrInvalidInput.WithMessage("new_size exceeds file_size")
	}
	if newSize == record.FileSize {
		return nil
	}

	oldDataBlocks := sizecalc.DataBlocks(record.FileSize)
	newDataBlocks := sizecalc.DataBlocks(newSize)
	oldIndexBlocks := sizecalc.IndexBlocks(record.FileSize)
	newIndexBlocks := sizecalc.IndexBlocks(newSize)

	indexChain := make([]blockpool.BlockIndex, 0, oldIndexBlocks)
	if oldIndexBlocks > 0 {
		idx := record.IndirectBlock
		indexChain = append(indexChain, idx)
		for i := uint64(1); i < oldIndexBlocks; i++ {
			idx = navigator.ReadNext(e.pool, idx)
			indexChain = append(indexChain, idx)
		}
	}

	// Release data blocks from the last one backward: indirect blocks first,
	// then direct slots 3 -> 0, zeroing each pointer as it's released. A
	// Release failure here should be impossible - every physical index was
	// read back from the record or chain we're walking - but rather than
	// abandon the rest of the unwind on the first one, every failure is
	// collected and the unwind keeps going.
	var releaseErrs error
	for b := oldDataBlocks; b > newDataBlocks; b-- {
		dataBlockNum := b - 1
		var physical blockpool.BlockIndex
		if dataBlockNum < sizecalc.DirectSlots {
			physical = record.DirectData[dataBlockNum]
			record.DirectData[dataBlockNum] = 0
		} else {
			k := dataBlockNum - sizecalc.DirectSlots
			chainIdx := k / sizecalc.IndexEntriesPerBlock
			slot := k % sizecalc.IndexEntriesPerBlock
			physical = navigator.ReadSlot(e.pool, indexChain[chainIdx], slot)
			navigator.WriteSlot(e.pool, indexChain[chainIdx], slot, 0)
		}
		if err := e.pool.Release(physical); err != nil {
			releaseErrs = multierror.Append(releaseErrs, err)
		}
	}

	// An index block is released exactly when it no longer addresses any
	// live data block: everything from newIndexBlocks onward in the chain.
	for i := oldIndexBlocks; i > newIndexBlocks; i-- {
		if err := e.pool.Release(indexChain[i-1]); err != nil {
			releaseErrs = multierror.Append(releaseErrs, err)
		}
	}

	if newIndexBlocks == 0 {
		record.IndirectBlock = 0
	} else if newIndexBlocks < oldIndexBlocks {
		navigator.WriteNext(e.pool, indexChain[newIndexBlocks-1], 0)
	}

	record.FileSize = newSize
	return releaseErrs
}

// ReleaseData frees every block record holds, equivalent to Shrink(record, 0).
func (e *Engine) ReleaseData(record *inodetable.Record) error {
	return e.Shrink(record, 0)
}

// overwriteInPlace writes data starting at offset, which must lie entirely
// within [0, record.FileSize). It claims no new blocks.
func (e *Engine) overwriteInPlace(record *inodetable.Record, offset uint64, data []byte) error {
	var done uint64
	n := uint64(len(data))
	for done < n {
		physical, within, err := navigator.Resolve(record, e.pool, offset+done)
		if err != nil {
			return err
		}
		block := e.pool.Block(physical)
		chunk := uint64(sizecalc.DataBlockSize) - uint64(within)
		if left := n - done; chunk > left {
			chunk = left
		}
		copy(block[within:uint64(within)+chunk], data[done:done+chunk])
		done += chunk
	}
	return nil
}

// appendPayload writes payload starting at record.FileSize, claiming
// whatever new data and index blocks it needs along the way, and advances
// record.FileSize by len(payload). Callers must have already verified
// capacity and taken their own rollback snapshot; appendPayload itself
// performs no feasibility check and does not unwind partial claims on error
// - WriteAppend and Modify own that via blockpool.Pool.Snapshot/Restore.
func (e *Engine) appendPayload(record *inodetable.Record, payload []byte) error {
	s0 := record.FileSize
	oldDataBlocks := sizecalc.DataBlocks(s0)
	pos := s0
	remaining := payload

	// Fill whatever free space is left in the current tail block first; this
	// claims nothing.
	if s0 > 0 && s0%sizecalc.DataBlockSize != 0 && len(remaining) > 0 {
		physical, within, err := navigator.Resolve(record, e.pool, s0-1)
		if err != nil {
			return err
		}
		within++
		block := e.pool.Block(physical)
		n := copy(block[within:], remaining)
		remaining = remaining[n:]
		pos += uint64(n)
	}

	chain := newChainCursor(record, e.pool, s0)
	dataBlockNum := oldDataBlocks
	for len(remaining) > 0 {
		if dataBlockNum >= sizecalc.DirectSlots {
			if err := chain.ensureSlotExists(dataBlockNum); err != nil {
				return err
			}
		}

		physical, err := e.pool.ClaimOne()
		if err != nil {
			return err
		}

		if dataBlockNum < sizecalc.DirectSlots {
			record.DirectData[dataBlockNum] = physical
		} else {
			chain.setSlot(dataBlockNum, physical)
		}

		block := e.pool.Block(physical)
		n := copy(block[:], remaining)
		remaining = remaining[n:]
		pos += uint64(n)
		dataBlockNum++
	}

	record.FileSize = pos
	return nil
}

// chainCursor tracks the index-block chain while appendPayload extends an
// inode past its direct slots, claiming and linking new index blocks exactly
// when the existing chain doesn't reach far enough yet.
type chainCursor struct {
	record          *inodetable.Record
	pool            *blockpool.Pool
	indexBlockCount uint64
	tail            blockpool.BlockIndex
}

func newChainCursor(record *inodetable.Record, pool *blockpool.Pool, s0 uint64) *chainCursor {
	count := sizecalc.IndexBlocks(s0)
	c := &chainCursor{record: record, pool: pool, indexBlockCount: count}
	if count > 0 {
		idx := record.IndirectBlock
		for i := uint64(1); i < count; i++ {
			idx = navigator.ReadNext(pool, idx)
		}
		c.tail = idx
	}
	return c
}

// ensureSlotExists claims and links a new index block if the chain doesn't
// yet reach the index block that would hold dataBlockNum. It never claims
// the data block itself; the tie-break rule requires the index block to be
// reserved first.
func (c *chainCursor) ensureSlotExists(dataBlockNum uint64) error {
	k := dataBlockNum - sizecalc.DirectSlots
	chainIdx := k / sizecalc.IndexEntriesPerBlock
	if chainIdx < c.indexBlockCount {
		return nil
	}

	newIndexBlock, err := c.pool.ClaimOne()
	if err != nil {
		return err
	}
	if c.indexBlockCount == 0 {
		c.record.IndirectBlock = newIndexBlock
	} else {
		navigator.WriteNext(c.pool, c.tail, newIndexBlock)
	}
	c.tail = newIndexBlock
	c.indexBlockCount++
	return nil
}

// setSlot writes physical into the slot addressing dataBlockNum. The index
// block must already exist (ensureSlotExists must have been called first).
func (c *chainCursor) setSlot(dataBlockNum uint64, physical blockpool.BlockIndex) {
	k := dataBlockNum - sizecalc.DirectSlots
	slot := k % sizecalc.IndexEntriesPerBlock
	navigator.WriteSlot(c.pool, c.tail, slot, physical)
}
