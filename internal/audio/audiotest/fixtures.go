// Package audiotest builds small MP3 fixtures for tests.
package audiotest

import "encoding/binary"

const (
	// SampleRate is the sample rate of the generated frames.
	SampleRate = 44100
	// SamplesPerFrame is the number of PCM samples per MPEG-1 layer III frame.
	SamplesPerFrame = 1152

	monoFrameSize = 417 // 144 * 128000 / 44100, no padding
)

// SilentMP3 returns frames consecutive MPEG-1 layer III mono frames at
// 128 kbps / 44.1 kHz. Side information and main data are all zero, so every
// frame decodes to digital silence.
func SilentMP3(frames int) []byte {
	out := make([]byte, 0, frames*monoFrameSize)
	for i := 0; i < frames; i++ {
		frame := make([]byte, monoFrameSize)
		frame[0] = 0xFF
		frame[1] = 0xFB // MPEG-1, layer III, no CRC
		frame[2] = 0x90 // 128 kbps, 44.1 kHz, no padding
		frame[3] = 0xC0 // single channel
		out = append(out, frame...)
	}
	return out
}

// WithTitle prefixes clip with an ID3v2.3 tag carrying a TIT2 title frame.
func WithTitle(clip []byte, title string) []byte {
	return WithTags(clip, title, "", "")
}

// WithTags prefixes clip with an ID3v2.3 tag carrying TIT2, TPE1 and TALB
// frames for whichever of title, artist and album are non-empty.
func WithTags(clip []byte, title, artist, album string) []byte {
	var frames []byte
	for _, f := range []struct{ id, value string }{
		{"TIT2", title},
		{"TPE1", artist},
		{"TALB", album},
	} {
		if f.value != "" {
			frames = append(frames, textFrame(f.id, f.value)...)
		}
	}

	size := len(frames)
	header := []byte{
		'I', 'D', '3', 0x03, 0x00, 0x00,
		byte(size>>21) & 0x7F,
		byte(size>>14) & 0x7F,
		byte(size>>7) & 0x7F,
		byte(size) & 0x7F,
	}

	out := make([]byte, 0, len(header)+size+len(clip))
	out = append(out, header...)
	out = append(out, frames...)
	out = append(out, clip...)
	return out
}

// textFrame encodes an ID3v2.3 text frame with ISO-8859-1 encoding.
func textFrame(id, value string) []byte {
	payload := append([]byte{0x00}, value...)

	frame := make([]byte, 10, 10+len(payload))
	copy(frame, id)
	binary.BigEndian.PutUint32(frame[4:8], uint32(len(payload)))
	return append(frame, payload...)
}
