// Package logging builds the logrus logger shared by the server and CLI.
package logging

import (
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
)

// New returns a logger writing format ("text" or "json") at level to w.
// A nil w means os.Stderr.
func New(format string, level log.Level, w io.Writer) (*log.Logger, error) {
	if w == nil {
		w = os.Stderr
	}
	logger := log.New()
	logger.SetOutput(w)
	logger.SetLevel(level)
	switch format {
	case "", "text":
		logger.SetFormatter(&log.TextFormatter{FullTimestamp: true, DisableColors: true})
	case "json":
		logger.SetFormatter(&log.JSONFormatter{})
	default:
		return nil, fmt.Errorf("unsupported log format: %s", format)
	}
	return logger, nil
}

// Event logs a compact event line: event=<name> plus fields.
func Event(logger log.FieldLogger, event string, fields log.Fields) {
	entry := logger.WithField("event", event)
	if len(fields) > 0 {
		entry = entry.WithFields(fields)
	}
	if err, ok := fields["error"]; ok && err != nil {
		entry.Warn(event)
		return
	}
	entry.Info(event)
}
