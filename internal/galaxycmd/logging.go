package galaxycmd

import (
	"log/slog"
	"os"
	"strings"
)

func setupLogging(verbose bool) {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)
}

func joinNames(names []string) string {
	return strings.Join(names, ", ")
}
