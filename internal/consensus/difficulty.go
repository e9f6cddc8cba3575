package consensus

// ToDifficulty converts a compact-form target ("bits") to the
// conventional difficulty ratio relative to the 0x1d00ffff limit.
// Invalid or zero mantissas yield zero.
func ToDifficulty(bits uint32) float64 {
	shift := (bits >> 24) & 0xff
	mant := bits & 0x00ffffff
	if mant == 0 {
		return 0
	}
	diff := float64(0x0000ffff) / float64(mant)
	for shift < 29 {
		diff *= 256
		shift++
	}
	for shift > 29 {
		diff /= 256
		shift--
	}
	return diff
}
