package slogutil

import (
	"io"
	"log/slog"

	"onefile/internal/config"
	"onefile/internal/paths"
)

// LoggerFactory builds the CLI logger from configuration and verbosity flags.
// Precedence for the stderr level: CLI flags > logging.level > info.
type LoggerFactory struct {
	root     string
	config   *config.Config
	cliLevel *slog.Level
	stderr   io.Writer
	closers  []io.Closer
}

// NewLoggerFactory creates a new logger factory. cliLevel is nil when no
// verbosity flag was given.
func NewLoggerFactory(root string, cfg *config.Config, cliLevel *slog.Level, stderr io.Writer) *LoggerFactory {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &LoggerFactory{
		root:     root,
		config:   cfg,
		cliLevel: cliLevel,
		stderr:   stderr,
	}
}

// CLILogger returns a logger writing to stderr, teed into
// <root>/.onefile/logs/onefile.log when logging.file is enabled.
// File logging failures degrade to stderr only.
func (f *LoggerFactory) CLILogger() *slog.Logger {
	level := f.effectiveLevel()
	console := NewHandler(f.stderr, &Options{Level: level})

	if !f.config.Logging.File || f.root == "" {
		return slog.New(console)
	}

	if _, err := paths.EnsureLogsDir(f.root); err != nil {
		return slog.New(console)
	}

	fileLevel := LevelFromString(f.config.Logging.Level)
	if level < fileLevel {
		fileLevel = level
	}
	rf, err := f.openLogFile(paths.GetLogPath(f.root))
	if err != nil {
		return slog.New(console)
	}
	f.closers = append(f.closers, rf)

	file := NewHandler(rf, &Options{Level: fileLevel, Timestamps: true})
	return slog.New(fanout{console, file})
}

func (f *LoggerFactory) openLogFile(path string) (io.WriteCloser, error) {
	return OpenRotatingFile(path, ParseSize(f.config.Logging.MaxSize), f.config.Logging.MaxBackups)
}

func (f *LoggerFactory) effectiveLevel() slog.Level {
	if f.cliLevel != nil {
		return *f.cliLevel
	}
	if f.config.Logging.Level != "" {
		return LevelFromString(f.config.Logging.Level)
	}
	return slog.LevelInfo
}

// Close closes all open log files.
func (f *LoggerFactory) Close() error {
	var firstErr error
	for _, c := range f.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	f.closers = nil
	return firstErr
}
