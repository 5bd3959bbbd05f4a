package audio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dhowden/tag"
	"github.com/tcolgate/mp3"
)

// Tags holds the optional ID3 metadata carried by a clip.
type Tags struct {
	Title  string `json:"title,omitempty"`
	Artist string `json:"artist,omitempty"`
	Album  string `json:"album,omitempty"`
	Format string `json:"format,omitempty"`
}

type streamInfo struct {
	Frames     int
	SampleRate int
	Channels   int
	Duration   time.Duration
}

var errNoFrames = errors.New("no MPEG layer III frames found")

// probeFrames walks the MPEG frames in the file and reports the stream layout
// taken from the first layer III frame. Frames of other layers are treated as
// false syncs and skipped.
func probeFrames(path string) (streamInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return streamInfo{}, err
	}
	defer f.Close()

	if err := skipID3v2(f); err != nil {
		return streamInfo{}, err
	}

	decoder := mp3.NewDecoder(f)
	var frame mp3.Frame
	var skipped int
	var info streamInfo

	for {
		err := decoder.Decode(&frame, &skipped)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			if info.Frames > 0 {
				// Trailing junk after a valid stream.
				break
			}
			return streamInfo{}, err
		}

		header := frame.Header()
		if header.Layer() != mp3.Layer3 {
			continue
		}

		if info.Frames == 0 {
			info.SampleRate = int(header.SampleRate())
			info.Channels = 2
			if header.ChannelMode() == mp3.SingleChannel {
				info.Channels = 1
			}
		}
		info.Frames++
		info.Duration += frame.Duration()
	}

	if info.Frames == 0 {
		return streamInfo{}, errNoFrames
	}
	return info, nil
}

// skipID3v2 positions f after a leading ID3v2 tag so the frame scanner does
// not mistake tag payload (embedded artwork in particular) for sync words.
func skipID3v2(f io.ReadSeeker) error {
	header := make([]byte, 10)
	n, err := io.ReadFull(f, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return err
	}

	if n < 10 || string(header[:3]) != "ID3" {
		_, err := f.Seek(0, io.SeekStart)
		return err
	}

	size := int64(header[6]&0x7F)<<21 | int64(header[7]&0x7F)<<14 | int64(header[8]&0x7F)<<7 | int64(header[9]&0x7F)
	size += 10
	if header[5]&0x10 != 0 {
		size += 10
	}

	if _, err := f.Seek(size, io.SeekStart); err != nil {
		return fmt.Errorf("skip id3 tag: %w", err)
	}
	return nil
}

func readTags(path string) *Tags {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	meta, err := tag.ReadFrom(f)
	if err != nil {
		return nil
	}

	tags := &Tags{
		Title:  strings.TrimSpace(meta.Title()),
		Artist: strings.TrimSpace(meta.Artist()),
		Album:  strings.TrimSpace(meta.Album()),
		Format: string(meta.Format()),
	}
	if tags.Title == "" && tags.Artist == "" && tags.Album == "" {
		return nil
	}
	return tags
}
