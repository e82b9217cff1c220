// Package dirent implements the fixed-width directory entry format and the
// directory-reading/writing helpers built on top of the engine. A directory
// is just a regular file whose payload is a flat sequence of these records;
// the engine never interprets them.
package dirent

import (
	"encoding/binary"

	"github.com/pasha112sergey/minifs/engine"
	"github.com/pasha112sergey/minifs/errors"
	"github.com/pasha112sergey/minifs/inodetable"
)

// NameLen is the number of bytes reserved for the entry's name, matching
// inodetable.MaxFileNameLen.
const NameLen = inodetable.MaxFileNameLen

// EntrySize is the on-disk size of one directory entry: a 2-byte
// little-endian inode index followed by NameLen bytes of name.
const EntrySize = 2 + NameLen

// Entry is one (inode, name) pair in a directory's payload.
type Entry struct {
	InodeIndex inodetable.Index
	Name       [NameLen]byte
}

// IsTombstone reports whether e is an all-zero entry, marking a deleted slot.
// ReadDir returns tombstones like any other entry; AppendEntry reuses the
// first one it finds.
func (e Entry) IsTombstone() bool {
	if e.InodeIndex != 0 {
		return false
	}
	for _, b := range e.Name {
		if b != 0 {
			return false
		}
	}
	return true
}

// NameString returns the entry's name with trailing zero padding stripped.
func (e Entry) NameString() string {
	end := len(e.Name)
	for end > 0 && e.Name[end-1] == 0 {
		end--
	}
	return string(e.Name[:end])
}

// Encode serializes e into its fixed 16-byte on-disk form.
func Encode(e Entry) [EntrySize]byte {
	var raw [EntrySize]byte
	binary.LittleEndian.PutUint16(raw[0:2], uint16(e.InodeIndex))
	copy(raw[2:], e.Name[:])
	return raw
}

// Decode parses a fixed 16-byte on-disk record back into an Entry.
func Decode(raw [EntrySize]byte) Entry {
	var e Entry
	e.InodeIndex = inodetable.Index(binary.LittleEndian.Uint16(raw[0:2]))
	copy(e.Name[:], raw[2:])
	return e
}

// NewEntry builds an Entry for inodeIndex/name, rejecting names that don't
// fit in NameLen bytes.
func NewEntry(inodeIndex inodetable.Index, name string) (Entry, error) {
	if len(name) > NameLen {
		return Entry{}, errors.ErrNameTooLong.WithMessage(name)
	}
	var e Entry
	e.InodeIndex = inodeIndex
	copy(e.Name[:], name)
	return e, nil
}

// ReadDir reads every entry in record's payload, including tombstones, in
// on-disk order. record must hold a directory's data, not a regular file's.
func ReadDir(eng *engine.Engine, record *inodetable.Record) ([]Entry, error) {
	if record.FileSize%EntrySize != 0 {
		return nil, errors.ErrCorruptImage.WithMessage("directory size is not a multiple of the entry size")
	}

	count := record.FileSize / EntrySize
	entries := make([]Entry, 0, count)
	buf := make([]byte, record.FileSize)
	if _, err := eng.Read(record, 0, buf); err != nil {
		return nil, err
	}

	for i := uint64(0); i < count; i++ {
		var raw [EntrySize]byte
		copy(raw[:], buf[i*EntrySize:(i+1)*EntrySize])
		entries = append(entries, Decode(raw))
	}
	return entries, nil
}

// AppendEntry adds a new entry to the end of a directory's payload. It
// reuses the first tombstone slot it finds instead of growing the file when
// one is available.
func AppendEntry(eng *engine.Engine, record *inodetable.Record, entry Entry) error {
	existing, err := ReadDir(eng, record)
	if err != nil {
		return err
	}

	for i, candidate := range existing {
		if candidate.IsTombstone() {
			raw := Encode(entry)
			return eng.Modify(record, uint64(i)*EntrySize, raw[:])
		}
	}

	raw := Encode(entry)
	return eng.WriteAppend(record, raw[:])
}

// RemoveEntry overwrites the directory entry named name with a tombstone.
// It returns errors.ErrNotFound if no live entry has that name.
func RemoveEntry(eng *engine.Engine, record *inodetable.Record, name string) error {
	existing, err := ReadDir(eng, record)
	if err != nil {
		return err
	}

	for i, candidate := range existing {
		if candidate.IsTombstone() {
			continue
		}
		if candidate.NameString() == name {
			var tombstone [EntrySize]byte
			return eng.Modify(record, uint64(i)*EntrySize, tombstone[:])
		}
	}
	return errors.ErrNotFound.WithMessage(name)
}
