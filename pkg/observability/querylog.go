package observability

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

const queryLogPerm = 0o644

// OpenQueryLog opens path for appending and returns a text logger writing to
// it. Every record is kept regardless of the process log level. The caller
// closes the returned Closer.
func OpenQueryLog(path string) (*slog.Logger, io.Closer, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, queryLogPerm)
	if err != nil {
		return nil, nil, fmt.Errorf("open query log: %w", err)
	}

	return NewQueryLogger(file), file, nil
}

// NewQueryLogger returns a text logger for query traces written to w.
func NewQueryLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}
