package detection

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/farcloser/primordium/fault"

	"voice-detect/internal/models"
)

var (
	errEmptyBody    = errors.New("request body is empty")
	errTrailingData = errors.New("unexpected data after JSON object")
)

// ParseRequest decodes a detection request body. A missing body, malformed
// JSON, a non-object value, an empty object and anything following the object
// are all rejected as invalid JSON.
func ParseRequest(r io.Reader) (models.DetectionRequest, error) {
	dec := json.NewDecoder(r)

	var fields map[string]json.RawMessage
	if err := dec.Decode(&fields); err != nil {
		if errors.Is(err, io.EOF) {
			err = errEmptyBody
		}
		return models.DetectionRequest{}, invalidJSON(err)
	}

	var extra json.RawMessage
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		if err == nil {
			err = errTrailingData
		}
		return models.DetectionRequest{}, invalidJSON(err)
	}
	if len(fields) == 0 {
		return models.DetectionRequest{}, invalidJSON(errEmptyBody)
	}

	var req models.DetectionRequest
	for name, target := range map[string]*string{
		"language":    &req.Language,
		"audioFormat": &req.AudioFormat,
		"audioBase64": &req.AudioBase64,
	} {
		raw, ok := fields[name]
		if !ok || string(raw) == "null" {
			continue
		}
		if err := json.Unmarshal(raw, target); err != nil {
			return models.DetectionRequest{}, invalidJSON(fmt.Errorf("field %s: %w", name, err))
		}
	}

	return req, nil
}

func invalidJSON(err error) *Error {
	return newError(KindValidation, MsgInvalidJSON, fmt.Errorf("%w: %w", fault.ErrInvalidJSON, err))
}

// decodeAudio decodes the base64 payload. Whitespace, including the line
// breaks of wrapped base64, is ignored.
func decodeAudio(payload string) ([]byte, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r':
			return -1
		}
		return r
	}, payload)

	data, err := base64.StdEncoding.DecodeString(cleaned)
	if err != nil {
		return nil, newError(KindEncoding, MsgInvalidBase64, err)
	}
	return data, nil
}
