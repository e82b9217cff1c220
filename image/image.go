// Package image (de)serializes a complete file system — geometry, bitmaps,
// inode table, and block array — to and from a single bit-exact byte image,
// the on-disk layout spec.md section 6 names as the system's only external
// interface. It's grounded on unixv1.Format/Mount's sequential-writer idiom:
// a fixed-size buffer written through once via bytewriter, read back through
// a seekable view via bytesextra.
package image

import (
	"encoding/binary"
	"io"

	"github.com/noxer/bytewriter"
	"github.com/sirupsen/logrus"
	"github.com/xaionaro-go/bytesextra"

	"github.com/pasha112sergey/minifs/blockpool"
	"github.com/pasha112sergey/minifs/errors"
	"github.com/pasha112sergey/minifs/geometry"
	"github.com/pasha112sergey/minifs/inodetable"
	"github.com/pasha112sergey/minifs/sizecalc"
)

// FileSystem bundles the geometry, block pool, and inode table that together
// make up one file system instance.
type FileSystem struct {
	Geometry geometry.Geometry
	Pool     *blockpool.Pool
	Inodes   *inodetable.Table
}

// New constructs a fresh, empty FileSystem of the given geometry.
func New(g geometry.Geometry) (*FileSystem, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return &FileSystem{
		Geometry: g,
		Pool:     blockpool.New(g.DblockCount),
		Inodes:   inodetable.New(g.InodeCount),
	}, nil
}

// headerSize is the fixed size, in bytes, of the image header: inode_count,
// dblock_count, available-inode cursor, available-dblock cursor, each a
// little-endian uint16.
const headerSize = 2 + 2 + 2 + 2

type header struct {
	InodeCount   uint16
	DblockCount  uint16
	InodeCursor  uint16
	DblockCursor uint16
}

// rawInode is the on-disk layout of one inode record, per spec.md section 6:
// file_type, file_perms, a 14-byte inline name, an 8-byte little-endian
// file_size, four 2-byte little-endian direct block pointers, and a 2-byte
// little-endian indirect block pointer.
type rawInode struct {
	FileType      uint8
	FilePerms     uint8
	FileName      [inodetable.MaxFileNameLen]byte
	FileSize      uint64
	DirectData    [sizecalc.DirectSlots]uint16
	IndirectBlock uint16
}

const rawInodeSize = 1 + 1 + inodetable.MaxFileNameLen + 8 + sizecalc.DirectSlots*2 + 2

func bitmapByteLen(bits uint) int {
	return int((bits + 7) / 8)
}

func toRawInode(r *inodetable.Record) rawInode {
	raw := rawInode{
		FileType:      uint8(r.FileType),
		FilePerms:     r.FilePerms,
		FileName:      r.FileName,
		FileSize:      r.FileSize,
		IndirectBlock: uint16(r.IndirectBlock),
	}
	for i, d := range r.DirectData {
		raw.DirectData[i] = uint16(d)
	}
	return raw
}

func fromRawInode(raw rawInode) inodetable.Record {
	r := inodetable.Record{
		FileType:      inodetable.FileType(raw.FileType),
		FilePerms:     raw.FilePerms,
		FileName:      raw.FileName,
		FileSize:      raw.FileSize,
		IndirectBlock: blockpool.BlockIndex(raw.IndirectBlock),
	}
	for i, d := range raw.DirectData {
		r.DirectData[i] = blockpool.BlockIndex(d)
	}
	return r
}

// firstFreeBit returns the index of the lowest bit in raw that is set (1 =
// free), purely as an allocation-cursor optimization hint; -1 if none.
func firstFreeBit(raw []byte, totalBits uint) int {
	for i := uint(0); i < totalBits; i++ {
		if raw[i/8]&(1<<(i%8)) != 0 {
			return int(i)
		}
	}
	return -1
}

// imageSize returns the total number of bytes Save will write for a
// FileSystem of geometry g.
func imageSize(g geometry.Geometry) int {
	return headerSize +
		bitmapByteLen(g.InodeCount) +
		bitmapByteLen(g.DblockCount) +
		int(g.InodeCount)*rawInodeSize +
		int(g.DblockCount)*sizecalc.DataBlockSize
}

// Save serializes fs into a freshly allocated byte slice, the bit-exact
// image format spec.md section 6 describes. It writes sequentially through
// bytewriter, the same way unixv1.Format builds its superblock.
func Save(fs *FileSystem) ([]byte, error) {
	if fs == nil || fs.Pool == nil || fs.Inodes == nil {
		return nil, errors.ErrInvalidInput.WithMessage("nil file system")
	}

	buf := make([]byte, imageSize(fs.Geometry))
	writer := bytewriter.New(buf)

	inodeCursor := firstFreeBit(fs.Inodes.FreeBitmapBytes(), fs.Inodes.Total())
	dblockCursor := firstFreeBit(fs.Pool.FreeBitmapBytes(), fs.Pool.Total())

	hdr := header{
		InodeCount:   uint16(fs.Geometry.InodeCount),
		DblockCount:  uint16(fs.Geometry.DblockCount),
		InodeCursor:  uint16(clampCursor(inodeCursor)),
		DblockCursor: uint16(clampCursor(dblockCursor)),
	}
	if err := binary.Write(writer, binary.LittleEndian, hdr); err != nil {
		return nil, errors.ErrCorruptImage.Wrap(err)
	}

	if _, err := writer.Write(fs.Inodes.FreeBitmapBytes()); err != nil {
		return nil, errors.ErrCorruptImage.Wrap(err)
	}
	if _, err := writer.Write(fs.Pool.FreeBitmapBytes()); err != nil {
		return nil, errors.ErrCorruptImage.Wrap(err)
	}

	for i := uint(0); i < fs.Geometry.InodeCount; i++ {
		raw := toRawInode(fs.Inodes.Get(inodetable.Index(i)))
		if err := binary.Write(writer, binary.LittleEndian, raw); err != nil {
			return nil, errors.ErrCorruptImage.Wrap(err)
		}
	}

	for i := uint(0); i < fs.Geometry.DblockCount; i++ {
		block := fs.Pool.RawBlock(blockpool.BlockIndex(i))
		if _, err := writer.Write(block[:]); err != nil {
			return nil, errors.ErrCorruptImage.Wrap(err)
		}
	}

	logrus.WithFields(logrus.Fields{
		"inode_count":  fs.Geometry.InodeCount,
		"dblock_count": fs.Geometry.DblockCount,
	}).Info("file system image saved")

	return buf, nil
}

func clampCursor(idx int) int {
	if idx < 0 {
		return 0
	}
	return idx
}

// Load parses a previously Save-d image back into a FileSystem. Corruption
// checks mirror UnixV1Driver.Mount's bitmap-size sanity checks: the header's
// counts must agree with how large the rest of the image actually is.
func Load(data []byte) (*FileSystem, error) {
	if len(data) < headerSize {
		return nil, errors.ErrCorruptImage.WithMessage("image shorter than the header")
	}

	reader := bytesextra.NewReadWriteSeeker(data)

	var hdr header
	if err := binary.Read(reader, binary.LittleEndian, &hdr); err != nil {
		return nil, errors.ErrCorruptImage.Wrap(err)
	}

	g := geometry.Geometry{
		InodeCount:  uint(hdr.InodeCount),
		DblockCount: uint(hdr.DblockCount),
	}
	if err := g.Validate(); err != nil {
		return nil, errors.ErrCorruptImage.Wrap(err)
	}

	wantSize := imageSize(g)
	if len(data) != wantSize {
		return nil, errors.ErrCorruptImage.WithMessage("image length does not match its own header")
	}

	inodeBitmap := make([]byte, bitmapByteLen(g.InodeCount))
	if _, err := io.ReadFull(reader, inodeBitmap); err != nil {
		return nil, errors.ErrCorruptImage.Wrap(err)
	}
	dblockBitmap := make([]byte, bitmapByteLen(g.DblockCount))
	if _, err := io.ReadFull(reader, dblockBitmap); err != nil {
		return nil, errors.ErrCorruptImage.Wrap(err)
	}

	records := make([]inodetable.Record, g.InodeCount)
	for i := range records {
		var raw rawInode
		if err := binary.Read(reader, binary.LittleEndian, &raw); err != nil {
			return nil, errors.ErrCorruptImage.Wrap(err)
		}
		records[i] = fromRawInode(raw)
	}

	blocks := make([][sizecalc.DataBlockSize]byte, g.DblockCount)
	for i := range blocks {
		if _, err := io.ReadFull(reader, blocks[i][:]); err != nil {
			return nil, errors.ErrCorruptImage.Wrap(err)
		}
	}

	if actual := firstFreeBit(inodeBitmap, g.InodeCount); actual != int(hdr.InodeCursor) && actual != -1 {
		logrus.WithFields(logrus.Fields{
			"stored_cursor": hdr.InodeCursor,
			"actual_cursor": actual,
		}).Warn("inode allocation cursor does not match the free bitmap; bitmap wins")
	}
	if actual := firstFreeBit(dblockBitmap, g.DblockCount); actual != int(hdr.DblockCursor) && actual != -1 {
		logrus.WithFields(logrus.Fields{
			"stored_cursor": hdr.DblockCursor,
			"actual_cursor": actual,
		}).Warn("data block allocation cursor does not match the free bitmap; bitmap wins")
	}

	fs := &FileSystem{
		Geometry: g,
		Pool:     blockpool.NewFromRaw(dblockBitmap, blocks),
		Inodes:   inodetable.NewFromRaw(inodeBitmap, records),
	}

	logrus.WithFields(logrus.Fields{
		"inode_count":  g.InodeCount,
		"dblock_count": g.DblockCount,
	}).Info("file system image loaded")

	return fs, nil
}
