package dbpf

import "errors"

// Fatal-per-archive errors (spec.md §7.1). Each is wrapped with the
// archive path and, where relevant, the specific failed check before it
// reaches the caller.
var (
	ErrTooShort          = errors.New("dbpf: file shorter than 64 bytes")
	ErrBadMagic          = errors.New("dbpf: bad magic, expected \"DBPF\"")
	ErrBadVersion        = errors.New("dbpf: unsupported version combination")
	ErrIndexOutOfBounds  = errors.New("dbpf: index region out of bounds")
	ErrHoleOutOfBounds   = errors.New("dbpf: hole index region out of bounds")
	ErrIndexSizeMismatch = errors.New("dbpf: index size does not match entry_count*stride")

	ErrValidationFailed = errors.New("dbpf: rewritten archive failed validation")
)
