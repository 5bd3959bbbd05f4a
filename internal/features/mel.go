package features

import "math"

// Slaney mel scale: linear below 1 kHz, logarithmic above.
const (
	melLinearStep = 200.0 / 3
	melLogMinHz   = 1000.0
	melLogMin     = melLogMinHz / melLinearStep
)

var melLogStep = math.Log(6.4) / 27

// melFilter is one triangular filter stored as its non-zero span of FFT bins.
type melFilter struct {
	start   int
	weights []float64
}

func hzToMel(hz float64) float64 {
	if hz >= melLogMinHz {
		return melLogMin + math.Log(hz/melLogMinHz)/melLogStep
	}
	return hz / melLinearStep
}

func melToHz(mel float64) float64 {
	if mel >= melLogMin {
		return melLogMinHz * math.Exp(melLogStep*(mel-melLogMin))
	}
	return melLinearStep * mel
}

// melFilterBank builds MelBands triangular filters spanning 0 Hz to Nyquist,
// each scaled to unit area (Slaney normalisation).
func melFilterBank(sampleRate int) []melFilter {
	maxMel := hzToMel(float64(sampleRate) / 2)
	edges := make([]float64, MelBands+2)
	for i := range edges {
		edges[i] = melToHz(maxMel * float64(i) / float64(MelBands+1))
	}

	freqs := binFrequencies(sampleRate)
	bank := make([]melFilter, MelBands)

	for band := 0; band < MelBands; band++ {
		lo, center, hi := edges[band], edges[band+1], edges[band+2]
		norm := 2 / (hi - lo)

		first, last := -1, -1
		weights := make([]float64, len(freqs))
		for k, f := range freqs {
			rising := (f - lo) / (center - lo)
			falling := (hi - f) / (hi - center)
			w := math.Max(0, math.Min(rising, falling))
			if w > 0 {
				if first < 0 {
					first = k
				}
				last = k
			}
			weights[k] = w * norm
		}

		if first < 0 {
			// Band narrower than one FFT bin.
			bank[band] = melFilter{}
			continue
		}
		bank[band] = melFilter{start: first, weights: weights[first : last+1]}
	}

	return bank
}
