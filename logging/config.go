package logging

import (
	"io"
	"log/slog"
)

// Backend selects the slog handler implementation.
type Backend string

const (
	BackendStd Backend = "std" // text in dev, JSON elsewhere
	BackendZap Backend = "zap" // zap core bridged through slog-zap
)

// Config describes how the process logs.
type Config struct {
	Service    string
	Version    string
	InstanceID string

	Level     slog.Level
	Env       Env
	Backend   Backend
	AddSource bool

	// Zap sampling per second; zero uses 100 / 10.
	SampleInitial    int
	SampleThereafter int

	// Output defaults to os.Stdout.
	Output io.Writer
}
