package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/libellus/transit/internal/logging"
	"github.com/libellus/transit/internal/snapshot"
)

// SnapshotSource yields the newest non-empty snapshot
type SnapshotSource interface {
	LatestNonEmpty() (*snapshot.Snapshot, error)
}

// Generator builds reports from the latest snapshot and keeps the last good
// report on disk so it can be served when no fresh data exists
type Generator struct {
	source       SnapshotSource
	artifactPath string
	window       time.Duration
	now          func() time.Time
	logger       *slog.Logger
	mu           sync.Mutex
}

// NewGenerator creates a report generator. window is the freshness window
// applied to each record's last update.
func NewGenerator(source SnapshotSource, artifactPath string, window time.Duration, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		source:       source,
		artifactPath: artifactPath,
		window:       window,
		now:          time.Now,
		logger:       logger,
	}
}

// Generate returns a report built from fresh data, or the previous report
// flagged stale, or ErrNoData
func (g *Generator) Generate() (*Report, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	snap, err := g.source.LatestNonEmpty()
	if err != nil {
		if !errors.Is(err, snapshot.ErrNoSnapshot) {
			logging.LogError(g.logger, "failed to read latest snapshot", err)
		}
		return g.fallback()
	}

	rep, err := Build(snap, g.now(), g.window)
	if err != nil {
		return g.fallback()
	}

	if err := g.save(rep); err != nil {
		logging.LogError(g.logger, "failed to save report artifact", err,
			slog.String("path", g.artifactPath))
	}
	return rep, nil
}

func (g *Generator) fallback() (*Report, error) {
	if g.artifactPath == "" {
		return nil, ErrNoData
	}

	data, err := os.ReadFile(g.artifactPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoData
		}
		return nil, fmt.Errorf("failed to read report artifact: %w", err)
	}

	var rep Report
	if err := json.Unmarshal(data, &rep); err != nil {
		return nil, fmt.Errorf("failed to decode report artifact: %w", err)
	}
	rep.Stale = true
	return &rep, nil
}

func (g *Generator) save(rep *Report) error {
	if g.artifactPath == "" {
		return nil
	}

	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(g.artifactPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".report-*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), g.artifactPath)
}
