package sizecalc_test

import (
	"testing"

	"github.com/pasha112sergey/minifs/sizecalc"
	"github.com/stretchr/testify/assert"
)

func TestDataBlocks(t *testing.T) {
	assert.EqualValues(t, 0, sizecalc.DataBlocks(0))
	assert.EqualValues(t, 1, sizecalc.DataBlocks(1))
	assert.EqualValues(t, 1, sizecalc.DataBlocks(64))
	assert.EqualValues(t, 2, sizecalc.DataBlocks(65))
	assert.EqualValues(t, 4, sizecalc.DataBlocks(200))
}

func TestIndirectDataBlocks(t *testing.T) {
	assert.EqualValues(t, 0, sizecalc.IndirectDataBlocks(200))
	assert.EqualValues(t, 0, sizecalc.IndirectDataBlocks(256))
	assert.EqualValues(t, 1, sizecalc.IndirectDataBlocks(257))
}

func TestIndexBlocks(t *testing.T) {
	assert.EqualValues(t, 0, sizecalc.IndexBlocks(256))
	assert.EqualValues(t, 1, sizecalc.IndexBlocks(257))
	// 15 indirect data blocks exactly fill one index block.
	assert.EqualValues(t, 1, sizecalc.IndexBlocks(256+15*64))
	// The 16th indirect data block needs a second index block.
	assert.EqualValues(t, 2, sizecalc.IndexBlocks(256+15*64+1))
}

// Scenario S5 from the spec: 64*15*2 + 1 bytes crosses into a second index
// block. data_blocks(1921) = ceil(1921/64) = 31, so indirect_data_blocks =
// 31 - 4 = 27, which needs ceil(27/15) = 2 index blocks.
func TestIndexBlocksCrossesSecondChain(t *testing.T) {
	size := uint64(64*15*2 + 1)
	assert.EqualValues(t, 2, sizecalc.IndexBlocks(size))
	assert.EqualValues(t, 27, sizecalc.IndirectDataBlocks(size))
}

func TestTotalBlocksNeeded(t *testing.T) {
	// Scenario S1: 200 bytes needs exactly 4 direct blocks, no index blocks.
	assert.EqualValues(t, 4, sizecalc.TotalBlocksNeeded(200))

	// Scenario S2: 300 bytes needs 4 direct + 1 index + 1 indirect data block.
	assert.EqualValues(t, 6, sizecalc.TotalBlocksNeeded(300))

	// Scenario S3: 4096 bytes.
	dataBlocks := sizecalc.DataBlocks(4096)
	indexBlocks := sizecalc.IndexBlocks(4096)
	assert.EqualValues(t, dataBlocks+indexBlocks, sizecalc.TotalBlocksNeeded(4096))
}

func TestZeroSizeNeedsNoBlocks(t *testing.T) {
	assert.EqualValues(t, 0, sizecalc.TotalBlocksNeeded(0))
}
