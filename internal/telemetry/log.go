// Package telemetry wires up the structured logger every component
// takes a handle to. It never sees ciphertext, key material, or bucket
// indices — components own that privacy boundary themselves.
package telemetry

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// New returns a zerolog.Logger writing human-readable output to w,
// tagged with component, at the given level. Passing a nil w defaults to
// os.Stderr.
func New(component string, level zerolog.Level, w io.Writer) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	console := zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	return zerolog.New(console).
		Level(level).
		With().
		Timestamp().
		Str("component", component).
		Logger()
}
