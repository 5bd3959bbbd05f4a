package features

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	powerFloor = 1e-10
	topDB      = 80.0
)

// spectrum holds the per-frame results of one STFT pass.
type spectrum struct {
	frames    int
	centroids []float64
	// melPower is MelBands x frames.
	melPower *mat.Dense
}

// analyze runs a centred, zero-padded STFT over samples and collects the
// per-frame spectral centroid and mel band power in one pass.
func analyze(samples []float64, sampleRate int) *spectrum {
	frames := frameCount(len(samples))
	bins := FFTSize/2 + 1

	padded := make([]float64, len(samples)+FFTSize)
	copy(padded[FFTSize/2:], samples)

	window := periodicHann(FFTSize)
	bank := melFilterBank(sampleRate)
	freqs := binFrequencies(sampleRate)

	fft := fourier.NewFFT(FFTSize)
	fftIn := make([]float64, FFTSize)
	coeffs := make([]complex128, bins)
	magnitude := make([]float64, bins)
	power := make([]float64, bins)

	spec := &spectrum{
		frames:    frames,
		centroids: make([]float64, frames),
		melPower:  mat.NewDense(MelBands, frames, nil),
	}

	for t := 0; t < frames; t++ {
		start := t * HopLength
		floats.MulTo(fftIn, padded[start:start+FFTSize], window)
		fft.Coefficients(coeffs, fftIn)

		for k, c := range coeffs {
			re, im := real(c), imag(c)
			power[k] = re*re + im*im
			magnitude[k] = math.Sqrt(power[k])
		}

		if total := floats.Sum(magnitude); total > 0 {
			spec.centroids[t] = floats.Dot(freqs, magnitude) / total
		}

		for band, filter := range bank {
			energy := floats.Dot(filter.weights, power[filter.start:filter.start+len(filter.weights)])
			spec.melPower.Set(band, t, energy)
		}
	}

	return spec
}

// mfcc converts the mel power spectrogram to decibels, floors it at topDB below
// its peak, and projects each frame onto the first CepstralCoefficients
// orthonormal DCT-II basis vectors. The result is CepstralCoefficients x frames.
func (s *spectrum) mfcc() *mat.Dense {
	logMel := mat.DenseCopyOf(s.melPower)
	logMel.Apply(func(_, _ int, v float64) float64 {
		return 10 * math.Log10(math.Max(v, powerFloor))
	}, logMel)

	floor := mat.Max(logMel) - topDB
	logMel.Apply(func(_, _ int, v float64) float64 {
		return math.Max(v, floor)
	}, logMel)

	var out mat.Dense
	out.Mul(dctBasis(CepstralCoefficients, MelBands), logMel)
	return &out
}

// periodicHann returns the DFT-even Hann window of length n.
func periodicHann(n int) []float64 {
	window := make([]float64, n)
	for i := range window {
		window[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n))
	}
	return window
}

func binFrequencies(sampleRate int) []float64 {
	freqs := make([]float64, FFTSize/2+1)
	for k := range freqs {
		freqs[k] = float64(k) * float64(sampleRate) / FFTSize
	}
	return freqs
}

// dctBasis returns the rows x n orthonormal DCT-II matrix truncated to its
// first rows coefficients.
func dctBasis(rows, n int) *mat.Dense {
	basis := mat.NewDense(rows, n, nil)
	for k := 0; k < rows; k++ {
		scale := math.Sqrt(2 / float64(n))
		if k == 0 {
			scale = math.Sqrt(1 / float64(n))
		}
		for i := 0; i < n; i++ {
			basis.Set(k, i, scale*math.Cos(math.Pi*float64(k)*(2*float64(i)+1)/(2*float64(n))))
		}
	}
	return basis
}
