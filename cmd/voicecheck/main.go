package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"voice-detect/internal/version"
)

func newApp() *cli.Command {
	return &cli.Command{
		Name:    version.Name(),
		Usage:   "Classify MP3 voice clips as human or AI-generated",
		Version: version.Version() + " " + version.Commit(),
		Commands: []*cli.Command{
			classifyCommand(),
			versionCommand(),
		},
	}
}

func main() {
	ctx := context.Background()

	if err := newApp().Run(ctx, os.Args); err != nil {
		slog.Error("failed to run", "error", err)
		os.Exit(1)
	}
}
