// Package inodetable owns the fixed array of inode records and the
// free-inode bitmap. Inode 0 is reserved for the root directory and is never
// handed out by Claim.
package inodetable

import (
	"fmt"

	"github.com/boljen/go-bitmap"

	"github.com/pasha112sergey/minifs/blockpool"
	"github.com/pasha112sergey/minifs/errors"
)

// FileType distinguishes a plain file from a directory. Directories are
// ordinary files whose payload is a sequence of directory entries (dirent).
type FileType uint8

const (
	DataFile FileType = iota
	Directory
)

// Permission bits, matching spec.md section 3.
const (
	PermRead = 1 << iota
	PermWrite
	PermExecute
)

// MaxFileNameLen is the maximum number of bytes a file name occupies inline
// in an inode record.
const MaxFileNameLen = 14

// Record is the fixed-layout metadata describing one file or directory.
type Record struct {
	FileType      FileType
	FileSize      uint64
	FileName      [MaxFileNameLen]byte
	FilePerms     uint8
	DirectData    [4]blockpool.BlockIndex
	IndirectBlock blockpool.BlockIndex
}

// SetName stores name zero-padded to MaxFileNameLen bytes. A name longer
// than MaxFileNameLen is rejected with ErrNameTooLong and nothing is stored.
func (r *Record) SetName(name string) error {
	if len(name) > MaxFileNameLen {
		return errors.ErrNameTooLong.WithMessage(
			fmt.Sprintf("%q is %d bytes, max is %d", name, len(name), MaxFileNameLen),
		)
	}
	r.FileName = [MaxFileNameLen]byte{}
	copy(r.FileName[:], name)
	return nil
}

// Name returns the file name with trailing zero padding stripped.
func (r *Record) Name() string {
	end := len(r.FileName)
	for end > 0 && r.FileName[end-1] == 0 {
		end--
	}
	return string(r.FileName[:end])
}

// Index identifies a single inode within a Table.
type Index uint32

// RootIndex is the inode index permanently reserved for the root directory.
const RootIndex = Index(0)

// Table owns the backing array of inode records and the bitmap tracking
// which ones are free. A bitmap bit of 1 means free.
type Table struct {
	freeMap bitmap.Bitmap
	records []Record
}

// New creates a Table with totalInodes records. Inode 0 (the root) is marked
// allocated from the start and initialized as an empty directory.
func New(totalInodes uint) *Table {
	freeMap := bitmap.New(int(totalInodes))
	for i := 1; i < int(totalInodes); i++ {
		freeMap.Set(i, true)
	}

	records := make([]Record, totalInodes)
	records[0].FileType = Directory
	records[0].FilePerms = PermRead | PermWrite | PermExecute

	return &Table{freeMap: freeMap, records: records}
}

// Total returns the total number of inode slots in the table.
func (t *Table) Total() uint {
	return uint(len(t.records))
}

// Available returns the number of inodes that are currently free.
func (t *Table) Available() uint {
	count := uint(0)
	for i := 0; i < len(t.records); i++ {
		if t.freeMap.Get(i) {
			count++
		}
	}
	return count
}

// Claim reserves the lowest-indexed free inode (never index 0) and returns a
// freshly zeroed record for the caller to populate.
func (t *Table) Claim() (Index, error) {
	for i := 1; i < len(t.records); i++ {
		if t.freeMap.Get(i) {
			t.freeMap.Set(i, false)
			t.records[i] = Record{}
			return Index(i), nil
		}
	}
	return 0, errors.ErrNoFreeInode
}

// Release returns idx to the free pool. The caller must have already released
// all data blocks the inode held (engine.ReleaseData) before calling this;
// the table does not enforce that on its own.
func (t *Table) Release(idx Index) error {
	if idx == RootIndex {
		return errors.ErrInvalidInput.WithMessage("cannot release the root inode")
	}
	if uint(idx) >= uint(len(t.records)) {
		return errors.ErrInvalidInput.WithMessage(
			fmt.Sprintf("inode index %d not in range [0, %d)", idx, len(t.records)),
		)
	}
	t.freeMap.Set(int(idx), true)
	return nil
}

// Get returns a pointer to the record at idx, letting the caller mutate it
// in place.
func (t *Table) Get(idx Index) *Record {
	return &t.records[idx]
}

// IsAllocated reports whether idx currently refers to a live inode.
func (t *Table) IsAllocated(idx Index) bool {
	return !t.freeMap.Get(int(idx))
}

// FreeBitmapBytes returns a copy of the free-inode bitmap's raw bytes, in the
// on-disk layout image.Save expects.
func (t *Table) FreeBitmapBytes() []byte {
	raw := make([]byte, len(t.freeMap))
	copy(raw, t.freeMap)
	return raw
}

// NewFromRaw reconstructs a Table from a previously serialized free bitmap
// and record array, as produced by image.Load.
func NewFromRaw(freeBitmap []byte, records []Record) *Table {
	freeMap := make(bitmap.Bitmap, len(freeBitmap))
	copy(freeMap, freeBitmap)
	return &Table{
		freeMap: freeMap,
		records: append([]Record(nil), records...),
	}
}
