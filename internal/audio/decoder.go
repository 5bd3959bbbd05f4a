// Package audio turns encoded MP3 clips into mono floating-point waveforms.
//
// Every clip passes through a per-call scratch file that is removed before
// Decode returns, whatever the outcome. Stereo sources are reduced to mono by
// averaging the left and right channels; mono sources come out of the PCM
// decoder duplicated on both channels, so the average reproduces them exactly.
package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/farcloser/primordium/fault"
	"github.com/hajimehoshi/go-mp3"
)

const (
	// Format is the only container tag the decoder accepts.
	Format = "mp3"

	bytesPerStereoSample = 4
	int16Scale           = 32768.0
	pcmBufferSize        = 16 * 1024
)

// ErrEmptyClip is returned when Decode is handed no bytes at all. It is kept
// apart from DecodeError so callers can report a missing payload differently
// from an unreadable one.
var ErrEmptyClip = errors.New("audio clip is empty")

// DecodeError reports that a clip could not be turned into a waveform.
type DecodeError struct {
	Op  string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Op, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Waveform is a decoded mono clip at its native sample rate.
type Waveform struct {
	Samples        []float64
	SampleRate     int
	SourceChannels int
	Frames         int
	Duration       time.Duration
	Tags           *Tags
}

// Decoder decodes MP3 clips through short-lived scratch files.
type Decoder struct {
	scratchDir string
}

// NewDecoder returns a Decoder that places scratch files in scratchDir. An
// empty scratchDir uses the system temporary directory.
func NewDecoder(scratchDir string) *Decoder {
	return &Decoder{scratchDir: scratchDir}
}

// Decode writes data to a private scratch file, decodes it, and removes the
// file before returning.
func (d *Decoder) Decode(data []byte) (*Waveform, error) {
	if len(data) == 0 {
		return nil, ErrEmptyClip
	}

	path, release, err := d.writeScratch(data)
	if err != nil {
		return nil, &DecodeError{Op: "scratch", Err: err}
	}
	defer release()

	return DecodeFile(path)
}

// DecodeFile decodes the MP3 file at path in place.
func DecodeFile(path string) (*Waveform, error) {
	info, err := probeFrames(path)
	if err != nil {
		return nil, &DecodeError{Op: "probe", Err: err}
	}

	samples, sampleRate, err := decodePCM(path)
	if err != nil {
		return nil, &DecodeError{Op: "pcm", Err: err}
	}
	if len(samples) == 0 {
		return nil, &DecodeError{Op: "pcm", Err: errors.New("no samples decoded")}
	}

	return &Waveform{
		Samples:        samples,
		SampleRate:     sampleRate,
		SourceChannels: info.Channels,
		Frames:         info.Frames,
		Duration:       info.Duration,
		Tags:           readTags(path),
	}, nil
}

func (d *Decoder) writeScratch(data []byte) (string, func(), error) {
	f, err := os.CreateTemp(d.scratchDir, "clip-*.mp3")
	if err != nil {
		return "", nil, err
	}
	path := f.Name()
	release := func() {
		_ = os.Remove(path)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		release()
		return "", nil, err
	}
	if err := f.Close(); err != nil {
		release()
		return "", nil, err
	}
	return path, release, nil
}

func decodePCM(path string) ([]float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", fault.ErrReadFailure, err)
	}
	defer f.Close()

	decoder, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, 0, err
	}

	var samples []float64
	if length := decoder.Length(); length > 0 {
		samples = make([]float64, 0, length/bytesPerStereoSample)
	}

	samples, err = readStereo16(decoder, samples, pcmBufferSize)
	if err != nil {
		return nil, 0, err
	}

	return samples, decoder.SampleRate(), nil
}

// readStereo16 reads interleaved little-endian 16-bit stereo PCM from r and
// appends the mono average of each sample pair to dst. A pair split across
// reads is carried over to the next read.
func readStereo16(r io.Reader, dst []float64, bufSize int) ([]float64, error) {
	if bufSize < bytesPerStereoSample {
		bufSize = bytesPerStereoSample
	}

	buf := make([]byte, bufSize)
	pending := 0
	for {
		n, err := r.Read(buf[pending:])
		n += pending

		whole := n - n%bytesPerStereoSample
		dst = downmixStereo16(buf[:whole], dst)
		pending = copy(buf, buf[whole:n])

		if err != nil {
			if errors.Is(err, io.EOF) {
				return dst, nil
			}
			return nil, fmt.Errorf("%w: %w", fault.ErrReadFailure, err)
		}
	}
}

// downmixStereo16 appends one mono sample in [-1, 1) per whole 4-byte
// left/right pair in buf. Trailing partial pairs are ignored.
func downmixStereo16(buf []byte, dst []float64) []float64 {
	for i := 0; i+bytesPerStereoSample <= len(buf); i += bytesPerStereoSample {
		left := int16(binary.LittleEndian.Uint16(buf[i:]))
		right := int16(binary.LittleEndian.Uint16(buf[i+2:]))
		dst = append(dst, (float64(left)+float64(right))/2/int16Scale)
	}
	return dst
}
