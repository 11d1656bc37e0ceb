package pipeline

// PerImageDuration splits the narration duration evenly across n images so
// the visual track and the narration end together. n <= 0 returns 0; callers
// check for an empty image set before allocating.
func PerImageDuration(totalSec float64, n int) float64 {
	if n <= 0 {
		return 0
	}
	return totalSec / float64(n)
}
