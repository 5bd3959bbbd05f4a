// Package features computes the acoustic statistics the classifier scores:
// spectral centroid, zero-crossing rate and the variance of a 13-coefficient
// MFCC matrix.
//
// Analysis uses 2048-sample frames with a 512-sample hop, centred on the
// signal. The STFT pads with zeros and the zero-crossing framing pads by
// repeating the edge samples.
package features

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const (
	FFTSize              = 2048
	HopLength            = 512
	MelBands             = 128
	CepstralCoefficients = 13
)

// Vector is the feature summary of one waveform.
type Vector struct {
	SpectralCentroid float64 `json:"spectralCentroid"`
	ZeroCrossingRate float64 `json:"zeroCrossingRate"`
	CepstralVariance float64 `json:"cepstralVariance"`
	Frames           int     `json:"frames"`
}

// ProcessingError reports a failure while computing features.
type ProcessingError struct {
	Stage string
	Err   error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("features %s: %v", e.Stage, e.Err)
}

func (e *ProcessingError) Unwrap() error {
	return e.Err
}

var (
	errEmptyWaveform = errors.New("waveform has no samples")
	errNonFinite     = errors.New("non-finite value")
)

// Extract computes the feature vector of a mono waveform.
func Extract(samples []float64, sampleRate int) (Vector, error) {
	if len(samples) == 0 {
		return Vector{}, &ProcessingError{Stage: "input", Err: errEmptyWaveform}
	}
	if sampleRate <= 0 {
		return Vector{}, &ProcessingError{Stage: "input", Err: fmt.Errorf("invalid sample rate %d", sampleRate)}
	}
	if floats.HasNaN(samples) {
		return Vector{}, &ProcessingError{Stage: "input", Err: errNonFinite}
	}

	spec := analyze(samples, sampleRate)

	mfcc := spec.mfcc()
	vec := Vector{
		SpectralCentroid: stat.Mean(spec.centroids, nil),
		ZeroCrossingRate: ZeroCrossingRate(samples),
		CepstralVariance: stat.PopVariance(mfcc.RawMatrix().Data, nil),
		Frames:           spec.frames,
	}

	checks := []struct {
		stage string
		value float64
	}{
		{"centroid", vec.SpectralCentroid},
		{"zcr", vec.ZeroCrossingRate},
		{"cepstral", vec.CepstralVariance},
	}
	for _, check := range checks {
		if math.IsNaN(check.value) || math.IsInf(check.value, 0) {
			return Vector{}, &ProcessingError{Stage: check.stage, Err: errNonFinite}
		}
	}

	return vec, nil
}

// frameCount is the number of centred analysis frames for n samples.
func frameCount(n int) int {
	return 1 + n/HopLength
}
