package jsruntime

import (
	"os"

	"github.com/rs/zerolog/log"
)

// stdoutWriter backs print(value, true): user code explicitly asked for a
// raw stdout line rather than a structured log entry.
type stdoutWriter struct{}

func (stdoutWriter) Write(p []byte) (int, error) {
	return os.Stdout.Write(p)
}

// logWriter backs print(value, false): routed through the same structured
// logger the rest of the server uses.
type logWriter struct{}

func (logWriter) Write(p []byte) (int, error) {
	msg := string(p)
	if n := len(msg); n > 0 && msg[n-1] == '\n' {
		msg = msg[:n-1]
	}
	log.Info().Str("component", "function").Msg(msg)
	return len(p), nil
}
