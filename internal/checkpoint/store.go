package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"equity-backtest/internal/ledger"

	"go.uber.org/zap"
)

// RunStats is carried inside each snapshot so a resumed run keeps its
// counters.
type RunStats struct {
	DaysProcessed    int  `json:"days_processed"`
	DaysSkipped      int  `json:"days_skipped"`
	CheckpointsSaved int  `json:"checkpoints_saved"`
	Resumed          bool `json:"resumed"`
}

// Snapshot is a point-in-time serialization of simulation state. One
// snapshot exists per key; each save supersedes the previous one.
type Snapshot struct {
	Date    time.Time    `json:"date"`
	Ledger  ledger.State `json:"ledger"`
	Stats   RunStats     `json:"stats"`
	SavedAt time.Time    `json:"saved_at"`
}

// Store persists snapshots as JSON files under a single directory.
type Store struct {
	dir string
	log *zap.SugaredLogger
}

// NewStore creates the checkpoint directory if needed.
func NewStore(dir string, log *zap.SugaredLogger) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("checkpoint dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create checkpoint dir: %w", err)
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Store{dir: dir, log: log}, nil
}

// Key derives the single-slot checkpoint key for a strategy and date
// range. Re-running the same range overwrites the prior checkpoint.
func Key(strategyName string, start, end time.Time) string {
	return fmt.Sprintf("%s_%s_%s", strategyName, start.Format("2006-01-02"), end.Format("2006-01-02"))
}

// Save writes the snapshot atomically: marshal to a temp file in the
// same directory, then rename over the destination. A crash mid-write
// leaves either the old checkpoint or none, never a torn file.
func (s *Store) Save(key string, snap *Snapshot) error {
	raw, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal checkpoint %q: %w", key, err)
	}

	dst := s.path(key)
	tmp, err := os.CreateTemp(s.dir, "."+sanitize(key)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp checkpoint: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write checkpoint %q: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close checkpoint %q: %w", key, err)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename checkpoint %q: %w", key, err)
	}

	s.log.Debugw("checkpoint saved", "key", key, "date", snap.Date.Format("2006-01-02"), "path", dst)
	return nil
}

// Load reads the snapshot for key. A missing file is (nil, nil): absence
// is not an error. A corrupt or unreadable file is an error; the caller
// decides whether that is fatal (it is during error recovery, and is not
// at run start).
func (s *Store) Load(key string) (*Snapshot, error) {
	raw, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read checkpoint %q: %w", key, err)
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decode checkpoint %q: %w", key, err)
	}
	return &snap, nil
}

// Delete removes the checkpoint for key, if present.
func (s *Store) Delete(key string) error {
	err := os.Remove(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, sanitize(key)+".json")
}

// sanitize keeps keys filesystem-safe.
func sanitize(key string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '.':
			return r
		default:
			return '_'
		}
	}, key)
}
