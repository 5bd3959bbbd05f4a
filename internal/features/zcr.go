package features

// zeroThreshold is the magnitude at or below which a sample counts as zero.
// Zero is treated as positive.
const zeroThreshold = 1e-10

// ZeroCrossingRate returns the mean, over centred FFTSize-sample frames with a
// HopLength hop, of the fraction of adjacent sample pairs whose sign differs.
// The signal is extended at both ends by repeating its edge samples.
func ZeroCrossingRate(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}

	half := FFTSize / 2
	n := len(samples)
	negative := func(i int) bool {
		// i indexes the padded signal.
		j := i - half
		if j < 0 {
			j = 0
		} else if j >= n {
			j = n - 1
		}
		return samples[j] < -zeroThreshold
	}

	frames := frameCount(n)
	var total float64
	for t := 0; t < frames; t++ {
		start := t * HopLength
		crossings := 0
		prev := negative(start)
		for i := start + 1; i < start+FFTSize; i++ {
			cur := negative(i)
			if cur != prev {
				crossings++
			}
			prev = cur
		}
		total += float64(crossings) / FFTSize
	}

	return total / float64(frames)
}
