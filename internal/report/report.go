// Package report writes error report files for faults that end a session
// or a round: desynchronization and unhandled dispatch failures. A report
// is a file of JSON lines named error-<uuid>.log.
package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/1ureka/roundlink/internal/protocol"
	"github.com/1ureka/roundlink/internal/util"
)

// Report describes one fault.
type Report struct {
	Kind      string // "desync", "dispatch", ...
	Err       error
	Header    string // packet header being handled, if any
	RoundID   uint32
	LevelSeed string
	Roster    []protocol.ClientRecord
	Stack     []byte
}

// Writer creates report files in one directory.
type Writer struct {
	dir string
}

func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// Write stores r together with the recent log tail and returns the path
// of the new file.
func (w *Writer) Write(r Report) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("report: create dir: %w", err)
	}

	id := uuid.New()
	path := filepath.Join(w.dir, fmt.Sprintf("error-%s.log", id))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("report: create file: %w", err)
	}
	defer f.Close()

	log := zerolog.New(f).With().Timestamp().Str("report", id.String()).Logger()

	ev := log.Error().
		Str("kind", r.Kind).
		Uint32("round_id", r.RoundID).
		Str("level_seed", r.LevelSeed)
	if r.Header != "" {
		ev = ev.Str("header", r.Header)
	}
	if r.Err != nil {
		ev = ev.Err(r.Err)
	}
	if len(r.Stack) > 0 {
		ev = ev.Bytes("stack", r.Stack)
	}
	ev.Msg("fault")

	for _, c := range r.Roster {
		log.Info().
			Uint8("client_id", c.ID).
			Str("name", c.Name).
			Uint8("team", c.Team).
			Bool("in_game", c.InGame).
			Msg("roster")
	}

	for _, line := range util.LogTail() {
		log.Debug().Str("line", line).Msg("log")
	}

	if err := f.Sync(); err != nil {
		return "", fmt.Errorf("report: sync: %w", err)
	}
	util.LogInfo("error report written to %s", path)
	return path, nil
}
