package format

import "errors"

var (
	// ErrSignatureMismatch indicates a structure had an unexpected magic.
	ErrSignatureMismatch = errors.New("format: signature mismatch")
	// ErrTruncated indicates the buffer lacked the bytes required for a structure.
	ErrTruncated = errors.New("format: truncated buffer")
	// ErrFreeCell indicates a cell marked free was encountered where allocation was required.
	ErrFreeCell = errors.New("format: cell not in use")
	// ErrSanityLimit indicates a declared count or length exceeded the
	// format's plausible bounds, pointing at corruption or a crafted hive.
	ErrSanityLimit = errors.New("format: sanity limit exceeded")
	// ErrChecksum indicates a stored checksum did not match the computed one.
	ErrChecksum = errors.New("format: checksum mismatch")
	// ErrMisaligned indicates a bin whose recorded offset disagrees with its
	// position in the file.
	ErrMisaligned = errors.New("format: misaligned hbin")
)
