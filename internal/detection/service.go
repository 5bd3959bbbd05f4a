// Package detection validates voice detection requests and runs the
// decode, feature extraction and scoring pipeline for them.
package detection

import (
	"errors"
	"log"

	"voice-detect/internal/audio"
	"voice-detect/internal/classifier"
	"voice-detect/internal/features"
	"voice-detect/internal/models"
)

// Result is the outcome of one successful detection.
type Result struct {
	Language string
	Verdict  classifier.Verdict
	Features features.Vector
}

// WaveformDecoder turns encoded audio into a waveform.
type WaveformDecoder interface {
	Decode(data []byte) (*audio.Waveform, error)
}

// Service checks requests against the configured languages and classifies the
// audio they carry. It holds no per-request state and is safe for concurrent
// use.
type Service struct {
	languages map[string]struct{}
	decoder   WaveformDecoder
	logger    *log.Logger
}

// NewService returns a Service accepting the given languages (matched exactly).
func NewService(languages []string, decoder WaveformDecoder, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}

	s := &Service{
		languages: make(map[string]struct{}, len(languages)),
		decoder:   decoder,
		logger:    logger,
	}
	for _, lang := range languages {
		s.languages[lang] = struct{}{}
	}
	return s
}

// SupportsLanguage reports whether lang is one of the configured languages.
func (s *Service) SupportsLanguage(lang string) bool {
	_, ok := s.languages[lang]
	return ok
}

// Detect validates req and classifies its audio. Checks run in a fixed order
// and the first failure is returned as an *Error.
func (s *Service) Detect(req models.DetectionRequest) (Result, error) {
	if !s.SupportsLanguage(req.Language) {
		return Result{}, newError(KindValidation, MsgUnsupportedLanguage, nil)
	}
	if req.AudioFormat != audio.Format {
		return Result{}, newError(KindValidation, MsgOnlyMP3, nil)
	}
	if req.AudioBase64 == "" {
		return Result{}, newError(KindValidation, MsgAudioMissing, nil)
	}

	clip, err := decodeAudio(req.AudioBase64)
	if err != nil {
		return Result{}, err
	}

	wave, err := s.decoder.Decode(clip)
	if err != nil {
		if errors.Is(err, audio.ErrEmptyClip) {
			return Result{}, newError(KindValidation, MsgAudioMissing, err)
		}
		return Result{}, newError(KindDecode, MsgProcessingFailed, err)
	}

	vec, verdict, err := Analyze(wave)
	if err != nil {
		return Result{}, newError(KindProcessing, MsgProcessingFailed, err)
	}

	s.logger.Printf("classified %s clip: %s score=%.4f confidence=%.2f frames=%d rate=%d",
		req.Language, verdict.Label, verdict.Score, verdict.Confidence, wave.Frames, wave.SampleRate)

	return Result{Language: req.Language, Verdict: verdict, Features: vec}, nil
}

// Analyze extracts features from a decoded waveform and classifies them.
func Analyze(wave *audio.Waveform) (features.Vector, classifier.Verdict, error) {
	if wave == nil {
		return features.Vector{}, classifier.Verdict{}, &features.ProcessingError{Stage: "input", Err: errors.New("nil waveform")}
	}

	vec, err := features.Extract(wave.Samples, wave.SampleRate)
	if err != nil {
		return features.Vector{}, classifier.Verdict{}, err
	}
	return vec, classifier.Classify(vec), nil
}
