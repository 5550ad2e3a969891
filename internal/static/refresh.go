package static

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/libellus/transit/internal/config"
	"github.com/libellus/transit/internal/logging"
	"github.com/libellus/transit/internal/schedule"
	"github.com/libellus/transit/internal/static/gtfs"
)

const (
	archiveName  = "gtfs.zip"
	manifestName = "manifest.json"
)

// Manifest records when the cached archive was last downloaded
type Manifest struct {
	UpdatedAt   string `json:"updated_at"`
	GeneratedAt string `json:"generated_at,omitempty"`
	SourceURL   string `json:"source_url,omitempty"`
}

// Loader keeps a cached copy of the static archive and builds the index from it
type Loader struct {
	url      string
	cacheDir string
	maxAge   time.Duration
	location *time.Location
	client   *http.Client
	logger   *slog.Logger
}

// NewLoader creates a loader from the configuration
func NewLoader(cfg *config.Config, logger *slog.Logger) (*Loader, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		url:      cfg.GTFSURL,
		cacheDir: cfg.CacheDir,
		maxAge:   time.Duration(cfg.StaticRefreshDays) * 24 * time.Hour,
		location: loc,
		client:   &http.Client{Timeout: 5 * time.Minute},
		logger:   logger,
	}, nil
}

// ArchivePath is where the cached archive lives
func (l *Loader) ArchivePath() string {
	return filepath.Join(l.cacheDir, archiveName)
}

func (l *Loader) manifestPath() string {
	return filepath.Join(l.cacheDir, manifestName)
}

// RefreshIfStale downloads the archive when the manifest is missing, stale
// or the archive itself is gone. It reports whether a download happened.
func (l *Loader) RefreshIfStale(ctx context.Context) (bool, error) {
	_, statErr := os.Stat(l.ArchivePath())
	if statErr == nil && !isStaleOrMissing(l.manifestPath(), l.maxAge) {
		l.logger.Debug("static archive is fresh, skipping refresh")
		return false, nil
	}

	l.logger.Info("refreshing static archive", slog.String("url", l.url))
	if err := gtfs.Download(ctx, l.client, l.url, l.ArchivePath()); err != nil {
		return false, err
	}

	manifest := Manifest{
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
		SourceURL: l.url,
	}
	data, err := json.Marshal(manifest)
	if err != nil {
		return true, err
	}
	if err := os.WriteFile(l.manifestPath(), data, 0644); err != nil {
		return true, fmt.Errorf("failed to write manifest: %w", err)
	}
	return true, nil
}

// Load refreshes the archive if needed, parses it and builds the index.
// A failed download falls back to the cached archive when one exists.
func (l *Loader) Load(ctx context.Context) (*schedule.Index, error) {
	if _, err := l.RefreshIfStale(ctx); err != nil {
		if _, statErr := os.Stat(l.ArchivePath()); statErr != nil {
			return nil, fmt.Errorf("no static archive available: %w", err)
		}
		logging.LogError(l.logger, "static refresh failed, using cached archive", err,
			slog.String("path", l.ArchivePath()))
	}

	data, err := gtfs.Parse(l.ArchivePath())
	if err != nil {
		return nil, err
	}

	idx := schedule.Build(data, ResolveLocation(l.location, data, l.logger))
	stats := idx.Stats()
	logging.LogOperation(l.logger, "schedule_index_built",
		slog.Int("routes", stats.Routes),
		slog.Int("trips", stats.Trips),
		slog.Int("stops", stats.Stops),
		slog.String("timezone", idx.Location().String()))
	return idx, nil
}

// ResolveLocation picks the schedule timezone: the override, else the first
// agency's timezone, else the local zone
func ResolveLocation(override *time.Location, data *gtfs.Data, logger *slog.Logger) *time.Location {
	if override != nil {
		return override
	}
	if data != nil {
		for _, agency := range data.Agencies {
			if agency.AgencyTimezone == "" {
				continue
			}
			loc, err := time.LoadLocation(agency.AgencyTimezone)
			if err == nil {
				return loc
			}
			if logger != nil {
				logger.Warn("unknown agency timezone", slog.String("timezone", agency.AgencyTimezone))
			}
			break
		}
	}
	return time.Local
}

func isStaleOrMissing(manifestPath string, maxAge time.Duration) bool {
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return true
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return true
	}

	stamp := manifest.UpdatedAt
	if stamp == "" {
		stamp = manifest.GeneratedAt
	}
	updatedAt, err := time.Parse(time.RFC3339, stamp)
	if err != nil {
		return true
	}

	return time.Since(updatedAt) > maxAge
}

// ErrNoArchive is returned by Open when no cached archive exists
var ErrNoArchive = errors.New("no cached static archive")

// Open builds the index from the cached archive without any network access
func Open(cacheDir string, loc *time.Location, logger *slog.Logger) (*schedule.Index, error) {
	path := filepath.Join(cacheDir, archiveName)
	if _, err := os.Stat(path); err != nil {
		return nil, ErrNoArchive
	}
	data, err := gtfs.Parse(path)
	if err != nil {
		return nil, err
	}
	return schedule.Build(data, ResolveLocation(loc, data, logger)), nil
}
