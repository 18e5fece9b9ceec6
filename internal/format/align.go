package format

// Align8 returns n rounded up to the next 8-byte boundary. Cells within a bin
// are 8-byte aligned.
func Align8(n int) int {
	return (n + CellAlignmentMask) & ^CellAlignmentMask
}

// AlignHBIN returns n rounded up to the next 4 KiB boundary. Bins start and
// end on 4 KiB boundaries.
func AlignHBIN(n int) int {
	return (n + HBINAlignmentMask) & ^HBINAlignmentMask
}
