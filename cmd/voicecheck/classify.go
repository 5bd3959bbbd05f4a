//nolint:wrapcheck
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/farcloser/primordium/format"
	"github.com/urfave/cli/v3"

	"voice-detect/internal/audio"
	"voice-detect/internal/classifier"
	"voice-detect/internal/detection"
	"voice-detect/internal/features"
	"voice-detect/internal/version"
)

var (
	errNoFiles       = errors.New("expected at least one MP3 file")
	errSomeFailed    = errors.New("one or more files could not be classified")
	errUnknownFormat = errors.New("unknown output format")
)

// report is the outcome for one input file. Err is set when the file could
// not be classified.
type report struct {
	Path     string
	Wave     *audio.Waveform
	Features features.Vector
	Verdict  classifier.Verdict
	Err      error
}

func classifyCommand() *cli.Command {
	return &cli.Command{
		Name:      "classify",
		Usage:     "Decode MP3 files and print a verdict for each",
		ArgsUsage: "<file.mp3>...",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: console, json",
				Value:   "console",
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			if cmd.NArg() == 0 {
				return errNoFiles
			}

			formatName := cmd.String("format")
			if formatName != "console" && formatName != "json" {
				return fmt.Errorf("%w: %q", errUnknownFormat, formatName)
			}

			reports := classifyFiles(cmd.Args().Slice())
			if err := printReports(cmd.Root().Writer, reports, formatName); err != nil {
				return err
			}

			for _, r := range reports {
				if r.Err != nil {
					return errSomeFailed
				}
			}
			return nil
		},
	}
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Print the build version",
		Action: func(_ context.Context, cmd *cli.Command) error {
			_, err := fmt.Fprintf(cmd.Root().Writer, "%s %s %s\n", version.Name(), version.Version(), version.Commit())
			return err
		},
	}
}

// classifyFiles runs every path through the pipeline. A failure on one file
// does not stop the others.
func classifyFiles(paths []string) []report {
	reports := make([]report, 0, len(paths))
	for _, path := range paths {
		r := report{Path: path}

		wave, err := audio.DecodeFile(path)
		if err != nil {
			r.Err = err
			reports = append(reports, r)
			continue
		}
		r.Wave = wave

		vec, verdict, err := detection.Analyze(wave)
		if err != nil {
			r.Err = err
		} else {
			r.Features = vec
			r.Verdict = verdict
		}
		reports = append(reports, r)
	}
	return reports
}

func printReports(w io.Writer, reports []report, formatName string) error {
	formatter, err := format.GetFormatter(formatName)
	if err != nil {
		return err
	}

	data := make([]*format.Data, 0, len(reports))
	for _, r := range reports {
		data = append(data, &format.Data{
			Object: r.Path,
			Meta:   reportMeta(r, formatName == "json"),
		})
	}

	return formatter.PrintAll(data, w)
}

func reportMeta(r report, detailed bool) map[string]any {
	if r.Err != nil {
		return map[string]any{"error": r.Err.Error()}
	}

	meta := map[string]any{
		"classification":  string(r.Verdict.Label),
		"confidenceScore": r.Verdict.Confidence,
		"explanation":     r.Verdict.Explanation,
		"duration":        r.Wave.Duration.Round(time.Millisecond).String(),
	}

	if r.Wave.Tags != nil && r.Wave.Tags.Title != "" {
		meta["title"] = r.Wave.Tags.Title
	}

	if detailed {
		meta["score"] = r.Verdict.Score
		meta["features"] = map[string]any{
			"spectralCentroid": r.Features.SpectralCentroid,
			"zeroCrossingRate": r.Features.ZeroCrossingRate,
			"cepstralVariance": r.Features.CepstralVariance,
			"frames":           r.Features.Frames,
		}
		meta["sampleRate"] = r.Wave.SampleRate
		meta["channels"] = r.Wave.SourceChannels
		if tags := tagMeta(r.Wave.Tags); len(tags) > 0 {
			meta["tags"] = tags
		}
	}

	return meta
}

func tagMeta(tags *audio.Tags) map[string]any {
	meta := make(map[string]any)
	if tags == nil {
		return meta
	}

	for key, value := range map[string]string{
		"title":  tags.Title,
		"artist": tags.Artist,
		"album":  tags.Album,
		"format": tags.Format,
	} {
		if value != "" {
			meta[key] = value
		}
	}
	return meta
}
