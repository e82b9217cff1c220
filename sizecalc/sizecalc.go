// Package sizecalc contains the only functions in the module allowed to
// translate a file size in bytes into a count of data and index blocks. The
// block pool, navigator, engine, and image codec all call through here rather
// than re-deriving the arithmetic themselves.
package sizecalc

// DataBlockSize is the fixed size, in bytes, of a single data block.
const DataBlockSize = 64

// DirectSlots is the number of direct data-block pointers stored inline in an
// inode record.
const DirectSlots = 4

// IndexPointerSize is the width, in bytes, of one data-block index as stored
// inside an index block.
const IndexPointerSize = 4

// IndexEntriesPerBlock is the number of data-block pointers held by a single
// index block; the last IndexPointerSize bytes of the block are reserved for
// the "next" chain pointer.
const IndexEntriesPerBlock = DataBlockSize/IndexPointerSize - 1

// DataBlocks returns the number of data blocks needed to hold S bytes.
func DataBlocks(size uint64) uint64 {
	if size == 0 {
		return 0
	}
	return (size + DataBlockSize - 1) / DataBlockSize
}

// IndirectDataBlocks returns the number of data blocks addressed indirectly
// (i.e. beyond the four direct slots).
func IndirectDataBlocks(size uint64) uint64 {
	total := DataBlocks(size)
	if total <= DirectSlots {
		return 0
	}
	return total - DirectSlots
}

// IndexBlocks returns the number of index blocks needed to address
// IndirectDataBlocks(size) data blocks.
func IndexBlocks(size uint64) uint64 {
	indirect := IndirectDataBlocks(size)
	if indirect == 0 {
		return 0
	}
	return (indirect + IndexEntriesPerBlock - 1) / IndexEntriesPerBlock
}

// TotalBlocksNeeded returns the total number of blocks (data + index) that an
// inode of the given size must hold reserved.
func TotalBlocksNeeded(size uint64) uint64 {
	return DataBlocks(size) + IndexBlocks(size)
}
