/*
Package bitint provides the power-of-2 helpers used when sizing analysis
frames. FFT implementations run fastest on power-of-2 lengths, so frame
sizes are checked with IsPowerOfTwo and suggestions are made with
NextPowerOfTwo.

The subtraction in NextPowerOfTwo keeps exact powers of 2 unchanged:

	size 8:  bits.Len(7) = 3, 1 << 3 = 8
	size 9:  bits.Len(8) = 4, 1 << 4 = 16
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of 2 >= size.
// Zero and negative sizes return 1.
func NextPowerOfTwo(size int) int {
	if size <= 0 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// IsPowerOfTwo reports whether n is a positive power of 2.
// A power of 2 has exactly one bit set, so n & (n-1) clears it to zero.
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}
