// Package classifier turns a feature vector into a labelled verdict using a
// fixed linear decision statistic. There is no trained model; the constants
// below are the whole decision logic and must not drift.
package classifier

import (
	"math"
	"strconv"

	"voice-detect/internal/features"
)

// Label is the classification outcome.
type Label string

const (
	Human       Label = "HUMAN"
	AIGenerated Label = "AI_GENERATED"
)

const (
	centroidScale = 5000.0
	zcrScale      = 10.0
	cepstralScale = 100.0

	// Threshold is compared against the signed score; equality is HUMAN.
	Threshold = 1.0

	MinConfidence = 0.5
	MaxConfidence = 0.99
)

const (
	humanExplanation     = "Natural pitch variation and human speech characteristics detected"
	syntheticExplanation = "Unnatural spectral consistency and synthetic speech patterns detected"
)

// Verdict is the immutable result of classifying one clip.
type Verdict struct {
	Label       Label   `json:"classification"`
	Confidence  float64 `json:"confidenceScore"`
	Explanation string  `json:"explanation"`
	Score       float64 `json:"score"`
}

// Score computes the decision statistic
//
//	centroid/5000 + zcr*10 - cepstralVariance/100
func Score(vec features.Vector) float64 {
	return vec.SpectralCentroid/centroidScale + vec.ZeroCrossingRate*zcrScale - vec.CepstralVariance/cepstralScale
}

// Classify scores vec and maps the score to a verdict.
func Classify(vec features.Vector) Verdict {
	return FromScore(Score(vec))
}

// FromScore labels a raw score. The label follows the signed score while the
// confidence follows its magnitude, so a strongly negative score is a
// confident HUMAN verdict.
func FromScore(score float64) Verdict {
	v := Verdict{
		Label:       Human,
		Explanation: humanExplanation,
		Confidence:  Confidence(score),
		Score:       score,
	}
	if score > Threshold {
		v.Label = AIGenerated
		v.Explanation = syntheticExplanation
	}
	return v
}

// Confidence clips |score| to [MinConfidence, MaxConfidence] and rounds it to
// two decimal places.
func Confidence(score float64) float64 {
	c := math.Min(math.Max(math.Abs(score), MinConfidence), MaxConfidence)
	return roundCents(c)
}

// roundCents rounds the exact binary value of v to two decimals, ties to even.
// Scaling by 100 first would round 0.585 (stored just below the tie) up.
func roundCents(v float64) float64 {
	rounded, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 2, 64), 64)
	if err != nil {
		return math.Round(v*100) / 100
	}
	return rounded
}
