// Package errors' sentinel values implement the retcode taxonomy from the
// engine's failure model: INVALID_INPUT, INSUFFICIENT_DBLOCKS, NO_FREE_INODE,
// and the narrower conditions the block pool and inode table raise on their
// own. SUCCESS has no sentinel; it's simply a nil error.
package errors

import "fmt"

type EngineErrno string

const ErrInvalidInput = EngineErrno("invalid input")
const ErrInsufficientBlocks = EngineErrno("insufficient data blocks available")
const ErrNoFreeBlock = EngineErrno("no free data block")
const ErrNoFreeInode = EngineErrno("no free inode")
const ErrCorruptImage = EngineErrno("file system image is corrupt")
const ErrNameTooLong = EngineErrno("file name too long")

// The following are raised by the pathwalk layer, which sits above the engine
// and owns path resolution; the engine itself never produces them.
const ErrNotADirectory = EngineErrno("not a directory")
const ErrNotFound = EngineErrno("no such file or directory")
const ErrExists = EngineErrno("file exists")
const ErrDirectoryNotEmpty = EngineErrno("directory not empty")
const ErrIsADirectory = EngineErrno("is a directory")

func (e EngineErrno) Error() string {
	return string(e)
}

func (e EngineErrno) WithMessage(message string) EngineError {
	return decoratedError{
		message:  fmt.Sprintf("%s: %s", e.Error(), message),
		original: e,
	}
}

func (e EngineErrno) Wrap(err error) EngineError {
	return decoratedError{
		message:  fmt.Sprintf("%s: %s", e.Error(), err.Error()),
		original: err,
		sentinel: e,
	}
}
