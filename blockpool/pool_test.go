package blockpool_test

import (
	"testing"

	"github.com/pasha112sergey/minifs/blockpool"
	"github.com/pasha112sergey/minifs/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClaimOneIsLowestIndexFirst(t *testing.T) {
	pool := blockpool.New(4)
	assert.EqualValues(t, 4, pool.Available())

	first, err := pool.ClaimOne()
	require.NoError(t, err)
	assert.EqualValues(t, 0, first)

	second, err := pool.ClaimOne()
	require.NoError(t, err)
	assert.EqualValues(t, 1, second)

	assert.EqualValues(t, 2, pool.Available())
}

func TestClaimedBlockIsZeroed(t *testing.T) {
	pool := blockpool.New(2)
	idx, err := pool.ClaimOne()
	require.NoError(t, err)

	block := pool.Block(idx)
	for i := range block {
		block[i] = 0xAA
	}
	require.NoError(t, pool.Release(idx))

	idx2, err := pool.ClaimOne()
	require.NoError(t, err)
	assert.Equal(t, idx, idx2)

	block2 := pool.Block(idx2)
	for _, b := range block2 {
		assert.EqualValues(t, 0, b)
	}
}

func TestClaimOneFailsWhenExhausted(t *testing.T) {
	pool := blockpool.New(1)
	_, err := pool.ClaimOne()
	require.NoError(t, err)

	_, err = pool.ClaimOne()
	assert.ErrorIs(t, err, errors.ErrNoFreeBlock)
}

func TestReleaseMakesBlockAvailableAgain(t *testing.T) {
	pool := blockpool.New(1)
	idx, err := pool.ClaimOne()
	require.NoError(t, err)
	assert.EqualValues(t, 0, pool.Available())

	require.NoError(t, pool.Release(idx))
	assert.EqualValues(t, 1, pool.Available())
}

func TestReleaseOutOfRangeIsInvalidInput(t *testing.T) {
	pool := blockpool.New(1)
	err := pool.Release(5)
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}

func TestSnapshotRestoreRoundTrips(t *testing.T) {
	pool := blockpool.New(3)
	idx, err := pool.ClaimOne()
	require.NoError(t, err)
	pool.Block(idx)[0] = 0x42

	snap := pool.Snapshot()

	_, err = pool.ClaimOne()
	require.NoError(t, err)
	pool.Block(idx)[0] = 0xFF

	pool.Restore(snap)
	assert.EqualValues(t, 2, pool.Available())
	assert.EqualValues(t, 0x42, pool.Block(idx)[0])
}
