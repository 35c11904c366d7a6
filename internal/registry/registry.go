// Package registry persists fitted models as versioned JSON artifacts with
// atomic swap semantics: a new artifact is written to a temp file and
// renamed into place, and the per-mode "latest deployed" pointer is swapped
// the same way, so concurrent readers never observe a half-written model.
package registry

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
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

	"github.com/oklog/ulid/v2"

	"storepulse/internal/forecast"
)

// ErrNotFound is returned when no artifact matches the requested version
// or no model is deployed for the requested mode.
var ErrNotFound = errors.New("model version not found")

// TrainingMetadata records the provenance of a fit
type TrainingMetadata struct {
	RecordCount   int       `json:"record_count"`
	RangeStart    time.Time `json:"range_start"`
	RangeEnd      time.Time `json:"range_end"`
	DatasetSHA256 string    `json:"dataset_sha256"`
	Seed          int64     `json:"seed"`
}

// Record is one versioned model artifact
type Record struct {
	VersionID string                      `json:"version_id"`
	Mode      forecast.Mode               `json:"mode"`
	State     forecast.ModelState         `json:"state"`
	Params    *forecast.ModelParameters   `json:"params"`
	Gates     *forecast.QualityGateReport `json:"gates,omitempty"`
	Training  TrainingMetadata            `json:"training"`
	CreatedAt time.Time                   `json:"created_at"`
	UpdatedAt time.Time                   `json:"updated_at"`
}

// Store is a single-writer file-backed model registry. Reads are safe at
// any time; writes serialize behind a mutex.
type Store struct {
	dir    string
	mu     sync.Mutex
	logger *slog.Logger
}

const (
	versionsDir   = "versions"
	latestPattern = "latest-%s.json"
)

// NewStore opens (or creates) a registry rooted at dir
func NewStore(dir string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Join(dir, versionsDir), 0755); err != nil {
		return nil, fmt.Errorf("create registry dir: %w", err)
	}
	return &Store{dir: dir, logger: logger}, nil
}

// DatasetFingerprint hashes the training window so a stored model can be
// traced back to the exact data it saw.
func DatasetFingerprint(history []forecast.VisitRecord) string {
	h := sha256.New()
	for _, rec := range history {
		fmt.Fprintf(h, "%s:%d:%s:%s:%.4f:%.2f\n",
			rec.Date.Format("2006-01-02"), rec.VisitCount,
			rec.PromoType, rec.Weather, rec.PriceChange, rec.Sales)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// NewRecord assembles an artifact for a completed fit. The version ID is a
// ULID, so listing sorts chronologically by construction.
func NewRecord(params *forecast.ModelParameters, history []forecast.VisitRecord, seed int64, gates *forecast.QualityGateReport) *Record {
	now := time.Now().UTC()
	state := forecast.StateTrainedFailing
	if gates != nil && gates.Deployable {
		state = forecast.StateTrainedPassing
	}
	meta := TrainingMetadata{
		RecordCount:   len(history),
		DatasetSHA256: DatasetFingerprint(history),
		Seed:          seed,
	}
	if len(history) > 0 {
		meta.RangeStart = history[0].Date
		meta.RangeEnd = history[len(history)-1].Date
	}
	return &Record{
		VersionID: ulid.Make().String(),
		Mode:      params.Mode,
		State:     state,
		Params:    params,
		Gates:     gates,
		Training:  meta,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Save writes the artifact atomically under its version ID
func (s *Store) Save(ctx context.Context, rec *Record) error {
	if rec == nil || rec.Params == nil {
		return errors.New("registry: record has no parameters")
	}
	if rec.VersionID == "" {
		rec.VersionID = ulid.Make().String()
	}
	if !rec.State.IsValid() {
		return fmt.Errorf("registry: unknown state %q", string(rec.State))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rec.UpdatedAt = time.Now().UTC()
	if err := s.writeAtomic(s.versionPath(rec.VersionID), rec); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "model artifact saved",
		"version_id", rec.VersionID,
		"mode", string(rec.Mode),
		"state", string(rec.State))
	return nil
}

// Get loads one artifact by version ID
func (s *Store) Get(versionID string) (*Record, error) {
	return s.read(s.versionPath(versionID))
}

// List returns all artifacts ordered by version ID (creation order)
func (s *Store) List() ([]*Record, error) {
	entries, err := os.ReadDir(filepath.Join(s.dir, versionsDir))
	if err != nil {
		return nil, fmt.Errorf("list registry: %w", err)
	}
	var out []*Record
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		rec, err := s.read(filepath.Join(s.dir, versionsDir, e.Name()))
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VersionID < out[j].VersionID })
	return out, nil
}

// Deploy promotes a TRAINED_PASSING model into service, superseding any
// currently deployed model of the same mode and swapping the latest
// pointer atomically.
func (s *Store) Deploy(ctx context.Context, versionID string) error {
	return s.deploy(ctx, versionID, false)
}

// ForceDeploy promotes a model even when its gates failed. This is the
// explicit operator override; nothing in the engine calls it implicitly.
func (s *Store) ForceDeploy(ctx context.Context, versionID string) error {
	return s.deploy(ctx, versionID, true)
}

func (s *Store) deploy(ctx context.Context, versionID string, force bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.read(s.versionPath(versionID))
	if err != nil {
		return err
	}
	next, err := rec.State.Transition(forecast.StateDeployed, force)
	if err != nil {
		return err
	}

	// supersede the previously deployed model of this mode first, so a
	// crash between the two writes leaves at most zero deployed models,
	// never two
	if prev, err := s.latestLocked(rec.Mode); err == nil && prev.VersionID != rec.VersionID {
		if prev.State == forecast.StateDeployed {
			prevState, err := prev.State.Transition(forecast.StateSuperseded, false)
			if err != nil {
				return err
			}
			prev.State = prevState
			prev.UpdatedAt = time.Now().UTC()
			if err := s.writeAtomic(s.versionPath(prev.VersionID), prev); err != nil {
				return err
			}
		}
	}

	rec.State = next
	rec.UpdatedAt = time.Now().UTC()
	if err := s.writeAtomic(s.versionPath(rec.VersionID), rec); err != nil {
		return err
	}
	if err := s.writeAtomic(s.latestPath(rec.Mode), rec); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "model deployed",
		"version_id", rec.VersionID,
		"mode", string(rec.Mode),
		"forced", force)
	return nil
}

// Archive retires a model that is out of rotation
func (s *Store) Archive(ctx context.Context, versionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.read(s.versionPath(versionID))
	if err != nil {
		return err
	}
	next, err := rec.State.Transition(forecast.StateArchived, false)
	if err != nil {
		return err
	}
	rec.State = next
	rec.UpdatedAt = time.Now().UTC()
	if err := s.writeAtomic(s.versionPath(rec.VersionID), rec); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "model archived", "version_id", versionID)
	return nil
}

// Latest returns the currently deployed model for a mode. Forecast serving
// reads this pointer; it only ever sees fully written artifacts.
func (s *Store) Latest(mode forecast.Mode) (*Record, error) {
	return s.latestLocked(mode)
}

func (s *Store) latestLocked(mode forecast.Mode) (*Record, error) {
	return s.read(s.latestPath(mode))
}

func (s *Store) versionPath(versionID string) string {
	return filepath.Join(s.dir, versionsDir, versionID+".json")
}

func (s *Store) latestPath(mode forecast.Mode) string {
	return filepath.Join(s.dir, fmt.Sprintf(latestPattern, string(mode)))
}

func (s *Store) read(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode artifact %s: %w", filepath.Base(path), err)
	}
	return &rec, nil
}

// writeAtomic writes JSON to a temp file and renames it into place
func (s *Store) writeAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode artifact: %w", err)
	}
	tmp := path + ".tmp-" + ulid.Make().String()
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("swap artifact: %w", err)
	}
	return nil
}
