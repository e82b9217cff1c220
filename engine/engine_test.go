package engine_test

import (
	"testing"

	"github.com/pasha112sergey/minifs/blockpool"
	"github.com/pasha112sergey/minifs/engine"
	"github.com/pasha112sergey/minifs/errors"
	"github.com/pasha112sergey/minifs/inodetable"
	"github.com/pasha112sergey/minifs/navigator"
	"github.com/pasha112sergey/minifs/sizecalc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ascending(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i)
	}
	return data
}

// S1: empty inode, write_append of 200 bytes of ascending values.
func TestWriteAppendScenarioS1(t *testing.T) {
	pool := blockpool.New(16)
	eng := engine.New(pool)
	record := &inodetable.Record{}

	require.NoError(t, eng.WriteAppend(record, ascending(200)))
	assert.EqualValues(t, 200, record.FileSize)
	assert.EqualValues(t, 0, record.IndirectBlock)
	for _, slot := range record.DirectData {
		assert.False(t, pool.IsFree(slot))
	}

	buf := make([]byte, 200)
	n, err := eng.Read(record, 0, buf)
	require.NoError(t, err)
	assert.Equal(t, 200, n)
	assert.Equal(t, ascending(200), buf)
}

// S2: continuing S1, write_append of 100 more bytes crosses into indirect
// addressing: one index block plus one data block are claimed.
func TestWriteAppendScenarioS2(t *testing.T) {
	pool := blockpool.New(16)
	eng := engine.New(pool)
	record := &inodetable.Record{}

	require.NoError(t, eng.WriteAppend(record, ascending(200)))
	availableBefore := pool.Available()

	more := make([]byte, 100)
	for i := range more {
		more[i] = byte(200 + i)
	}
	require.NoError(t, eng.WriteAppend(record, more))

	assert.EqualValues(t, 300, record.FileSize)
	assert.NotEqualValues(t, 0, record.IndirectBlock)
	assert.EqualValues(t, availableBefore-2, pool.Available())

	buf := make([]byte, 300)
	n, err := eng.Read(record, 0, buf)
	require.NoError(t, err)
	assert.Equal(t, 300, n)
	assert.Equal(t, ascending(300), buf)
}

// S3: insufficient capacity leaves the pool byte-for-byte unchanged.
func TestWriteAppendInsufficientBlocksLeavesNoTrace(t *testing.T) {
	needed := sizecalc.TotalBlocksNeeded(4096)
	pool := blockpool.New(uint(needed) - 1)
	eng := engine.New(pool)
	record := &inodetable.Record{}

	snapshotAvailable := pool.Available()
	snap := pool.Snapshot()

	err := eng.WriteAppend(record, make([]byte, 4096))
	assert.ErrorIs(t, err, errors.ErrInsufficientBlocks)
	assert.EqualValues(t, 0, record.FileSize)
	assert.EqualValues(t, snapshotAvailable, pool.Available())
	assert.Equal(t, snap, pool.Snapshot())

	pool.Restore(snap)
	assert.EqualValues(t, snapshotAvailable, pool.Available())
}

// S4: after S1, shrink to 64 releases direct slots 1..3 and clears them.
func TestShrinkScenarioS4(t *testing.T) {
	pool := blockpool.New(16)
	eng := engine.New(pool)
	record := &inodetable.Record{}
	require.NoError(t, eng.WriteAppend(record, ascending(200)))

	availableBefore := pool.Available()
	firstBlock := record.DirectData[0]

	require.NoError(t, eng.Shrink(record, 64))
	assert.EqualValues(t, 64, record.FileSize)
	assert.Equal(t, firstBlock, record.DirectData[0])
	assert.EqualValues(t, 0, record.DirectData[1])
	assert.EqualValues(t, 0, record.DirectData[2])
	assert.EqualValues(t, 0, record.DirectData[3])
	assert.EqualValues(t, availableBefore+3, pool.Available())
}

// S5: a file crossing into a second index block.
func TestWriteAppendScenarioS5(t *testing.T) {
	size := 64*15*2 + 1
	pool := blockpool.New(100)
	eng := engine.New(pool)
	record := &inodetable.Record{}

	require.NoError(t, eng.WriteAppend(record, ascending(size)))
	assert.EqualValues(t, 2, sizecalc.IndexBlocks(uint64(size)))
	assert.EqualValues(t, 27, sizecalc.IndirectDataBlocks(uint64(size)))

	firstIndexBlock := record.IndirectBlock
	secondIndexBlock := navigator.ReadNext(pool, firstIndexBlock)
	assert.NotEqualValues(t, 0, secondIndexBlock)

	buf := make([]byte, 1)
	n, err := eng.Read(record, uint64(size-1), buf)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.EqualValues(t, byte(size-1), buf[0])
}

// S6: modify overwrites an interior block without changing file_size.
func TestModifyScenarioS6(t *testing.T) {
	pool := blockpool.New(16)
	eng := engine.New(pool)
	record := &inodetable.Record{}
	require.NoError(t, eng.WriteAppend(record, ascending(300)))

	directCopy := record.DirectData
	overwrite := make([]byte, 64)
	for i := range overwrite {
		overwrite[i] = 0xAA
	}

	require.NoError(t, eng.Modify(record, 128, overwrite))
	assert.EqualValues(t, 300, record.FileSize)
	assert.Equal(t, directCopy, record.DirectData)

	buf := make([]byte, 64)
	n, err := eng.Read(record, 128, buf)
	require.NoError(t, err)
	assert.Equal(t, 64, n)
	assert.Equal(t, overwrite, buf)
}

func TestModifyExtendsPastEndGrowsFileSize(t *testing.T) {
	pool := blockpool.New(16)
	eng := engine.New(pool)
	record := &inodetable.Record{}
	require.NoError(t, eng.WriteAppend(record, ascending(100)))

	payload := ascending(150)
	require.NoError(t, eng.Modify(record, 50, payload))
	assert.EqualValues(t, 200, record.FileSize)

	buf := make([]byte, 150)
	n, err := eng.Read(record, 50, buf)
	require.NoError(t, err)
	assert.Equal(t, 150, n)
	assert.Equal(t, payload, buf)
}

func TestModifyOffsetBeyondFileSizeIsInvalidInput(t *testing.T) {
	pool := blockpool.New(16)
	eng := engine.New(pool)
	record := &inodetable.Record{}
	require.NoError(t, eng.WriteAppend(record, ascending(10)))

	err := eng.Modify(record, 100, []byte{1})
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}

func TestReadPastFileSizeReturnsZero(t *testing.T) {
	pool := blockpool.New(16)
	eng := engine.New(pool)
	record := &inodetable.Record{}
	require.NoError(t, eng.WriteAppend(record, ascending(10)))

	buf := make([]byte, 5)
	n, err := eng.Read(record, 10, buf)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestReleaseDataThenWriteAppendRoundTrips(t *testing.T) {
	pool := blockpool.New(16)
	eng := engine.New(pool)
	record := &inodetable.Record{}
	require.NoError(t, eng.WriteAppend(record, ascending(200)))

	require.NoError(t, eng.ReleaseData(record))
	assert.EqualValues(t, 0, record.FileSize)
	assert.EqualValues(t, 16, pool.Available())

	data := ascending(90)
	require.NoError(t, eng.WriteAppend(record, data))

	buf := make([]byte, 90)
	n, err := eng.Read(record, 0, buf)
	require.NoError(t, err)
	assert.Equal(t, 90, n)
	assert.Equal(t, data, buf)
}

func TestShrinkToZeroClearsIndirectBlock(t *testing.T) {
	pool := blockpool.New(100)
	eng := engine.New(pool)
	record := &inodetable.Record{}
	require.NoError(t, eng.WriteAppend(record, ascending(300)))
	require.NotEqualValues(t, 0, record.IndirectBlock)

	require.NoError(t, eng.Shrink(record, 0))
	assert.EqualValues(t, 0, record.FileSize)
	assert.EqualValues(t, 0, record.IndirectBlock)
	assert.EqualValues(t, 100, pool.Available())
}

func TestShrinkRejectsGrowingSize(t *testing.T) {
	pool := blockpool.New(16)
	eng := engine.New(pool)
	record := &inodetable.Record{}
	require.NoError(t, eng.WriteAppend(record, ascending(10)))

	err := eng.Shrink(record, 20)
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}
