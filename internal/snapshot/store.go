package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/libellus/transit/internal/logging"
	"github.com/libellus/transit/internal/realtime"
)

var (
	// ErrNoSnapshot is returned when the store holds no non-empty snapshot
	ErrNoSnapshot = errors.New("no snapshot recorded")
	// ErrStale is returned when the newest snapshot is older than the freshness window
	ErrStale = errors.New("latest snapshot is stale")
)

const (
	fileLayout = "20060102-150405"
	fileExt    = ".json"
)

// Snapshot is an immutable batch of delay records captured at one instant
type Snapshot struct {
	ID         uuid.UUID              `json:"id"`
	CapturedAt time.Time              `json:"captured_at"`
	Records    []realtime.DelayRecord `json:"records"`
	Path       string                 `json:"-"`
}

// Store persists snapshots as one JSON file each in a directory.
// Writes are serialized; readers only ever see complete files.
type Store struct {
	dir    string
	mu     sync.Mutex
	logger *slog.Logger
}

// NewStore creates the directory if needed
func NewStore(dir string, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{dir: dir, logger: logger}, nil
}

// Dir returns the snapshot directory
func (s *Store) Dir() string {
	return s.dir
}

// Record writes a snapshot of records captured at capturedAt.
// An empty batch writes nothing and returns nil, nil.
func (s *Store) Record(capturedAt time.Time, records []realtime.DelayRecord) (*Snapshot, error) {
	if len(records) == 0 {
		return nil, nil
	}

	snap := &Snapshot{
		ID:         uuid.New(),
		CapturedAt: capturedAt.UTC().Truncate(time.Second),
		Records:    records,
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap.Path = s.freePath(snap.CapturedAt)

	if err := writeAtomic(s.dir, snap.Path, data); err != nil {
		return nil, err
	}

	logging.LogOperation(s.logger, "snapshot_recorded",
		slog.String("snapshot_id", snap.ID.String()),
		slog.String("path", snap.Path),
		slog.Int("records", len(records)))

	return snap, nil
}

// freePath returns the first unused file name for capturedAt. Later
// captures within the same second get an increasing suffix so that their
// stems sort after the earlier ones.
func (s *Store) freePath(capturedAt time.Time) string {
	base := capturedAt.Format(fileLayout)
	path := filepath.Join(s.dir, base+fileExt)
	for seq := 1; ; seq++ {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return path
		}
		path = filepath.Join(s.dir, fmt.Sprintf("%s-%03d%s", base, seq, fileExt))
	}
}

func writeAtomic(dir, path string, data []byte) error {
	tmp, err := os.CreateTemp(dir, ".snapshot-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close snapshot: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to publish snapshot: %w", err)
	}
	return nil
}

type entry struct {
	path    string
	name    string
	modTime time.Time
}

// list returns snapshot files newest first: by modification time, then by
// capture time encoded in the file name
func (s *Store) list() ([]entry, error) {
	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot directory: %w", err)
	}

	entries := make([]entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		name := de.Name()
		if de.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, fileExt) {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		entries = append(entries, entry{path: filepath.Join(s.dir, name), name: name, modTime: info.ModTime()})
	}

	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].modTime.Equal(entries[j].modTime) {
			return entries[i].modTime.After(entries[j].modTime)
		}
		return stem(entries[i].name) > stem(entries[j].name)
	})
	return entries, nil
}

func stem(name string) string {
	return strings.TrimSuffix(name, fileExt)
}

// Load reads one snapshot file
func Load(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %s: %w", filepath.Base(path), err)
	}
	snap.Path = path
	return &snap, nil
}

// LatestNonEmpty returns the newest snapshot holding at least one record.
// Unreadable files are logged and skipped.
func (s *Store) LatestNonEmpty() (*Snapshot, error) {
	entries, err := s.list()
	if err != nil {
		return nil, err
	}

	for _, e := range entries {
		snap, err := Load(e.path)
		if err != nil {
			logging.LogError(s.logger, "skipping unreadable snapshot", err, slog.String("path", e.path))
			continue
		}
		if len(snap.Records) > 0 {
			return snap, nil
		}
	}
	return nil, ErrNoSnapshot
}

// LatestFresh returns the newest non-empty snapshot if it was captured
// within maxAge of now. The stale snapshot is returned alongside ErrStale.
func (s *Store) LatestFresh(now time.Time, maxAge time.Duration) (*Snapshot, error) {
	snap, err := s.LatestNonEmpty()
	if err != nil {
		return nil, err
	}
	if now.Sub(snap.CapturedAt) > maxAge {
		return snap, ErrStale
	}
	return snap, nil
}

// Prune deletes snapshot files last modified before cutoff
func (s *Store) Prune(cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.list()
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, e := range entries {
		if !e.modTime.Before(cutoff) {
			continue
		}
		if err := os.Remove(e.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return removed, fmt.Errorf("failed to remove snapshot %s: %w", e.name, err)
		}
		removed++
	}

	if removed > 0 {
		logging.LogOperation(s.logger, "snapshots_pruned", slog.Int("removed", removed))
	}
	return removed, nil
}
