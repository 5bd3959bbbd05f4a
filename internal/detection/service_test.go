package detection

import (
	"encoding/base64"
	"errors"
	"io"
	"log"
	"math"
	"net/http"
	"os"
	"strings"
	"testing"

	"voice-detect/internal/audio"
	"voice-detect/internal/audio/audiotest"
	"voice-detect/internal/classifier"
	"voice-detect/internal/models"
)

var testLanguages = []string{"Tamil", "English", "Hindi", "Malayalam", "Telugu"}

type countingDecoder struct {
	calls int
	wave  *audio.Waveform
	err   error
}

func (d *countingDecoder) Decode(data []byte) (*audio.Waveform, error) {
	d.calls++
	return d.wave, d.err
}

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func validRequest(clip []byte) models.DetectionRequest {
	return models.DetectionRequest{
		Language:    "English",
		AudioFormat: "mp3",
		AudioBase64: base64.StdEncoding.EncodeToString(clip),
	}
}

func assertKind(t *testing.T, err error, kind Kind, message string) {
	t.Helper()
	var detErr *Error
	if !errors.As(err, &detErr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if detErr.Kind != kind {
		t.Fatalf("expected kind %s, got %s", kind, detErr.Kind)
	}
	if detErr.Message != message {
		t.Fatalf("expected message %q, got %q", message, detErr.Message)
	}
}

func TestDetectSilentClip(t *testing.T) {
	scratch := t.TempDir()
	service := NewService(testLanguages, audio.NewDecoder(scratch), quietLogger())

	result, err := service.Detect(validRequest(audiotest.SilentMP3(8)))
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}

	if result.Language != "English" {
		t.Fatalf("expected language echo, got %q", result.Language)
	}
	// Silence has a large cepstral variance and no brightness, so the score is
	// strongly negative.
	if result.Verdict.Label != classifier.Human {
		t.Fatalf("expected HUMAN for silence, got %s", result.Verdict.Label)
	}
	if result.Verdict.Confidence != 0.99 {
		t.Fatalf("expected confidence 0.99, got %v", result.Verdict.Confidence)
	}

	entries, err := os.ReadDir(scratch)
	if err != nil {
		t.Fatalf("read scratch: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected scratch dir to be empty after detection")
	}
}

func TestDetectValidationOrder(t *testing.T) {
	clip := audiotest.SilentMP3(1)

	cases := []struct {
		name    string
		req     models.DetectionRequest
		kind    Kind
		message string
	}{
		{
			name:    "unsupported language wins over everything",
			req:     models.DetectionRequest{Language: "French", AudioFormat: "wav", AudioBase64: "%%%"},
			kind:    KindValidation,
			message: MsgUnsupportedLanguage,
		},
		{
			name:    "language match is exact",
			req:     models.DetectionRequest{Language: "english", AudioFormat: "mp3", AudioBase64: base64.StdEncoding.EncodeToString(clip)},
			kind:    KindValidation,
			message: MsgUnsupportedLanguage,
		},
		{
			name:    "wav rejected regardless of payload",
			req:     models.DetectionRequest{Language: "Tamil", AudioFormat: "wav", AudioBase64: base64.StdEncoding.EncodeToString(clip)},
			kind:    KindValidation,
			message: MsgOnlyMP3,
		},
		{
			name:    "missing format",
			req:     models.DetectionRequest{Language: "Tamil", AudioBase64: "AAAA"},
			kind:    KindValidation,
			message: MsgOnlyMP3,
		},
		{
			name:    "missing audio",
			req:     models.DetectionRequest{Language: "Hindi", AudioFormat: "mp3"},
			kind:    KindValidation,
			message: MsgAudioMissing,
		},
		{
			name:    "malformed base64",
			req:     models.DetectionRequest{Language: "Telugu", AudioFormat: "mp3", AudioBase64: "not*base64!"},
			kind:    KindEncoding,
			message: MsgInvalidBase64,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			decoder := &countingDecoder{}
			service := NewService(testLanguages, decoder, quietLogger())

			_, err := service.Detect(tc.req)
			assertKind(t, err, tc.kind, tc.message)

			if decoder.calls != 0 {
				t.Fatalf("decoder must not run for rejected requests")
			}
		})
	}
}

func TestDetectWhitespaceOnlyPayloadIsMissingAudio(t *testing.T) {
	service := NewService(testLanguages, audio.NewDecoder(t.TempDir()), quietLogger())

	_, err := service.Detect(models.DetectionRequest{Language: "English", AudioFormat: "mp3", AudioBase64: " \n "})
	assertKind(t, err, KindValidation, MsgAudioMissing)
}

func TestDetectAcceptsWrappedBase64(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString(audiotest.SilentMP3(2))
	var wrapped strings.Builder
	for i := 0; i < len(encoded); i += 76 {
		end := min(i+76, len(encoded))
		wrapped.WriteString(encoded[i:end])
		wrapped.WriteString("\r\n")
	}

	service := NewService(testLanguages, audio.NewDecoder(t.TempDir()), quietLogger())
	req := models.DetectionRequest{Language: "Malayalam", AudioFormat: "mp3", AudioBase64: wrapped.String()}
	if _, err := service.Detect(req); err != nil {
		t.Fatalf("Detect: %v", err)
	}
}

func TestDetectDecodeFailure(t *testing.T) {
	scratch := t.TempDir()
	service := NewService(testLanguages, audio.NewDecoder(scratch), quietLogger())

	_, err := service.Detect(validRequest([]byte("this is not an mp3 file")))
	assertKind(t, err, KindDecode, MsgProcessingFailed)

	var decodeErr *audio.DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("expected wrapped DecodeError, got %v", err)
	}
	if got := AsError(err).Kind.HTTPStatus(); got != http.StatusInternalServerError {
		t.Fatalf("expected 500 for decode failure, got %d", got)
	}

	entries, err := os.ReadDir(scratch)
	if err != nil {
		t.Fatalf("read scratch: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected scratch dir to be empty after decode failure")
	}
}

func TestDetectProcessingFailure(t *testing.T) {
	decoder := &countingDecoder{wave: &audio.Waveform{Samples: []float64{0.1, math.NaN()}, SampleRate: 16000}}
	service := NewService(testLanguages, decoder, quietLogger())

	_, err := service.Detect(validRequest([]byte{1, 2, 3}))
	assertKind(t, err, KindProcessing, MsgProcessingFailed)
	if decoder.calls != 1 {
		t.Fatalf("expected decoder to run once, got %d", decoder.calls)
	}
}

func TestAnalyzeNilWaveform(t *testing.T) {
	if _, _, err := Analyze(nil); err == nil {
		t.Fatalf("expected error for nil waveform")
	}
}
