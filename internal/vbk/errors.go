package vbk

import "errors"

// Fatal errors abort Open; all other conditions are recovered by the caller
// seeing an empty/absent result instead of a propagated error.
var (
	ErrInvalidHeader    = errors.New("vbk: invalid file header")
	ErrCorruptSlots     = errors.New("vbk: neither slot passed validation")
	ErrDirectoryTooDeep = errors.New("vbk: directory recursion exceeded depth limit")
)

// maxDirectoryDepth bounds directory-tree recursion against cyclic or
// pathologically deep corrupted inputs (spec section 5).
const maxDirectoryDepth = 64
