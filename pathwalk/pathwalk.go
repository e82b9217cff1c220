// Package pathwalk is a thin shell-command layer over engine and dirent: it
// turns POSIX-style paths into inode lookups and exposes the handful of
// operations a shell needs (list, tree, change_directory, new_file,
// remove_directory). It performs no permission checks and never follows
// symlinks — this file system has none — matching the scope
// driver.BaseDriver fills for the teacher's pluggable drivers, narrowed down
// to exactly the operations this engine supports.
package pathwalk

import (
	"fmt"
	posixpath "path"
	"strings"

	"github.com/pasha112sergey/minifs/dirent"
	"github.com/pasha112sergey/minifs/engine"
	"github.com/pasha112sergey/minifs/errors"
	"github.com/pasha112sergey/minifs/image"
	"github.com/pasha112sergey/minifs/inodetable"
)

// Walker resolves paths against a single FileSystem and tracks a current
// working directory.
type Walker struct {
	fs     *image.FileSystem
	engine *engine.Engine
	cwd    string
}

// New returns a Walker rooted at fs, with the working directory set to "/".
func New(fs *image.FileSystem) *Walker {
	return &Walker{fs: fs, engine: engine.New(fs.Pool), cwd: "/"}
}

// NormalizePath resolves path against the working directory and collapses
// "." / ".." components, the same way driver.BaseDriver.NormalizePath does.
func (w *Walker) NormalizePath(path string) string {
	cleaned := posixpath.Clean(path)
	if !posixpath.IsAbs(cleaned) {
		cleaned = posixpath.Join(w.cwd, cleaned)
	}
	return cleaned
}

// resolve walks path from the root and returns the inode index and record it
// names.
func (w *Walker) resolve(path string) (inodetable.Index, *inodetable.Record, error) {
	normalized := w.NormalizePath(path)
	idx := inodetable.RootIndex
	record := w.fs.Inodes.Get(idx)

	if normalized == "/" {
		return idx, record, nil
	}

	components := strings.Split(strings.Trim(normalized, "/"), "/")
	for _, name := range components {
		if record.FileType != inodetable.Directory {
			return 0, nil, errors.ErrNotADirectory.WithMessage(normalized)
		}

		entries, err := dirent.ReadDir(w.engine, record)
		if err != nil {
			return 0, nil, err
		}

		found := false
		for _, e := range entries {
			if e.IsTombstone() || e.NameString() != name {
				continue
			}
			idx = e.InodeIndex
			record = w.fs.Inodes.Get(idx)
			found = true
			break
		}
		if !found {
			return 0, nil, errors.ErrNotFound.WithMessage(normalized)
		}
	}
	return idx, record, nil
}

// ChangeDirectory updates the working directory to path, which must name an
// existing directory.
func (w *Walker) ChangeDirectory(path string) error {
	_, record, err := w.resolve(path)
	if err != nil {
		return err
	}
	if record.FileType != inodetable.Directory {
		return errors.ErrNotADirectory.WithMessage(path)
	}
	w.cwd = w.NormalizePath(path)
	return nil
}

// List returns the live (non-tombstone) entries of the directory at path.
func (w *Walker) List(path string) ([]dirent.Entry, error) {
	_, record, err := w.resolve(path)
	if err != nil {
		return nil, err
	}
	if record.FileType != inodetable.Directory {
		return nil, errors.ErrNotADirectory.WithMessage(path)
	}

	all, err := dirent.ReadDir(w.engine, record)
	if err != nil {
		return nil, err
	}

	live := make([]dirent.Entry, 0, len(all))
	for _, e := range all {
		if !e.IsTombstone() {
			live = append(live, e)
		}
	}
	return live, nil
}

// Tree renders path and everything beneath it as an indented listing.
func (w *Walker) Tree(path string) (string, error) {
	_, record, err := w.resolve(path)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	if err := w.writeTree(&b, record, 0); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (w *Walker) writeTree(b *strings.Builder, record *inodetable.Record, depth int) error {
	if record.FileType != inodetable.Directory {
		return nil
	}
	entries, err := dirent.ReadDir(w.engine, record)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsTombstone() {
			continue
		}
		fmt.Fprintf(b, "%s%s\n", strings.Repeat("  ", depth), e.NameString())
		child := w.fs.Inodes.Get(e.InodeIndex)
		if child.FileType == inodetable.Directory {
			if err := w.writeTree(b, child, depth+1); err != nil {
				return err
			}
		}
	}
	return nil
}

// NewFile creates an empty file or directory named by the last component of
// path, inside the directory named by everything before it.
func (w *Walker) NewFile(path string, fileType inodetable.FileType, perms uint8) (inodetable.Index, error) {
	normalized := w.NormalizePath(path)
	parentPath, name := posixpath.Split(normalized)
	if name == "" {
		return 0, errors.ErrInvalidInput.WithMessage("path must not end in a slash")
	}

	_, parent, err := w.resolve(parentPath)
	if err != nil {
		return 0, err
	}
	if parent.FileType != inodetable.Directory {
		return 0, errors.ErrNotADirectory.WithMessage(parentPath)
	}

	existing, err := dirent.ReadDir(w.engine, parent)
	if err != nil {
		return 0, err
	}
	for _, e := range existing {
		if !e.IsTombstone() && e.NameString() == name {
			return 0, errors.ErrExists.WithMessage(name)
		}
	}

	idx, err := w.fs.Inodes.Claim()
	if err != nil {
		return 0, err
	}
	child := w.fs.Inodes.Get(idx)
	child.FileType = fileType
	child.FilePerms = perms
	if err := child.SetName(name); err != nil {
		w.fs.Inodes.Release(idx)
		return 0, err
	}

	entry, err := dirent.NewEntry(idx, name)
	if err != nil {
		w.fs.Inodes.Release(idx)
		return 0, err
	}
	if err := dirent.AppendEntry(w.engine, parent, entry); err != nil {
		w.fs.Inodes.Release(idx)
		return 0, err
	}

	return idx, nil
}

// RemoveFile deletes the data file at path, releasing its inode and data
// blocks. It refuses to remove a directory; use RemoveDirectory for that.
func (w *Walker) RemoveFile(path string) error {
	normalized := w.NormalizePath(path)

	idx, record, err := w.resolve(normalized)
	if err != nil {
		return err
	}
	if record.FileType == inodetable.Directory {
		return errors.ErrIsADirectory.WithMessage(normalized)
	}

	parentPath, name := posixpath.Split(normalized)
	_, parent, err := w.resolve(parentPath)
	if err != nil {
		return err
	}

	if err := w.engine.ReleaseData(record); err != nil {
		return err
	}
	if err := dirent.RemoveEntry(w.engine, parent, name); err != nil {
		return err
	}
	return w.fs.Inodes.Release(idx)
}

// RemoveDirectory deletes the empty directory at path.
func (w *Walker) RemoveDirectory(path string) error {
	normalized := w.NormalizePath(path)
	if normalized == "/" {
		return errors.ErrInvalidInput.WithMessage("cannot remove the root directory")
	}

	idx, record, err := w.resolve(normalized)
	if err != nil {
		return err
	}
	if record.FileType != inodetable.Directory {
		return errors.ErrNotADirectory.WithMessage(normalized)
	}

	entries, err := dirent.ReadDir(w.engine, record)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if !e.IsTombstone() {
			return errors.ErrDirectoryNotEmpty.WithMessage(normalized)
		}
	}

	parentPath, name := posixpath.Split(normalized)
	_, parent, err := w.resolve(parentPath)
	if err != nil {
		return err
	}

	if err := w.engine.ReleaseData(record); err != nil {
		return err
	}
	if err := dirent.RemoveEntry(w.engine, parent, name); err != nil {
		return err
	}
	return w.fs.Inodes.Release(idx)
}
