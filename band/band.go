// Package band classifies a spot frequency into one of the twelve amateur
// bands the skew estimator tracks.
package band

import "math"

// Count is the number of tracked bands, indices 0..Count-1.
const Count = 12

// Names are the human-friendly band labels, indexed the same way as the
// band index returned by Index.
var Names = [Count]string{
	"160m", "80m", "60m", "40m", "30m", "20m", "17m", "15m", "12m", "10m", "6m", "2m",
}

// Index classifies a frequency in kHz into a band index 0..Count-1. The
// second return value is false when the frequency does not fall on a
// tracked amateur band; the spot should be dropped from correlation (but
// not from the spot window) in that case.
func Index(freqKHz float64) (int, bool) {
	switch int(math.Round(freqKHz / 1000.0)) {
	case 2:
		return 0, true // 160m
	case 3, 4:
		return 1, true // 80m
	case 5:
		return 2, true // 60m
	case 7:
		return 3, true // 40m
	case 10:
		return 4, true // 30m
	case 14:
		return 5, true // 20m
	case 18:
		return 6, true // 17m
	case 21:
		return 7, true // 15m
	case 25:
		return 8, true // 12m
	case 28, 29, 30:
		return 9, true // 10m
	case 50, 51, 52, 53, 54:
		return 10, true // 6m
	case 144, 145, 146:
		return 11, true // 2m
	default:
		return -1, false
	}
}

// Name returns the human-friendly band label for a valid index, or ""
// for an out-of-range one.
func Name(idx int) string {
	if idx < 0 || idx >= Count {
		return ""
	}
	return Names[idx]
}
