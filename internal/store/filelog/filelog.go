// Package filelog implements the record store on a single JSON log file.
// It is the degraded single-process backend: every read-modify-write cycle
// is serialized under one mutex, and an unreadable file is reset to an
// empty valid store instead of failing startup.
package filelog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/locustgrub/locustgrub/server/internal/model"
)

// FileStore persists check-ins as one JSON array on disk.
type FileStore struct {
	path string
	log  zerolog.Logger

	// mu guards every read-modify-write cycle on the log file.
	mu sync.Mutex
	// submitMu is the serialization boundary for the check-then-append
	// sequence of a single submission.
	submitMu sync.Mutex
}

// Open prepares the log file at path, creating an empty store when none
// exists yet.
func Open(path string, log zerolog.Logger) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.WriteFile(path, []byte("[]"), 0o644); err != nil {
			return nil, err
		}
		log.Info().Str("path", path).Msg("no existing check-in log, starting empty")
	} else if err != nil {
		return nil, err
	}
	return &FileStore{path: path, log: log}, nil
}

// HealthPing implements health.HealthPinger.
func (s *FileStore) HealthPing(ctx context.Context) error {
	_, err := os.Stat(s.path)
	return err
}

func (s *FileStore) Append(ctx context.Context, c *model.Checkin) (*model.Checkin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	recs, err := s.readAll()
	if err != nil {
		return nil, err
	}
	for _, existing := range recs {
		if existing.ID == c.ID {
			return nil, fmt.Errorf("%w: checkin id %s already exists", model.ErrConflict, c.ID)
		}
	}
	out := *c
	recs = append(recs, &out)
	if err := s.writeAll(recs); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *FileStore) Query(ctx context.Context, f model.CheckinFilter) ([]*model.Checkin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	recs, err := s.readAll()
	if err != nil {
		return nil, err
	}
	var res []*model.Checkin
	for _, r := range recs {
		if f.VendorID != "" && r.VendorID != f.VendorID {
			continue
		}
		if f.Since != nil && r.CreatedAt.Before(*f.Since) {
			continue
		}
		res = append(res, r)
	}
	sortNewestFirst(res)
	return res, nil
}

func (s *FileStore) Recent(ctx context.Context, limit int) ([]*model.Checkin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	recs, err := s.readAll()
	if err != nil {
		return nil, err
	}
	sortNewestFirst(recs)
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	return recs, nil
}

func (s *FileStore) CountSince(ctx context.Context, submitterID string, since time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	recs, err := s.readAll()
	if err != nil {
		return 0, err
	}
	n := 0
	for _, r := range recs {
		if r.SubmitterID == submitterID && !r.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

// WithSubmitterLock serializes the whole count-then-append sequence for one
// process. The file store is single-process by contract, so an in-memory
// mutex is sufficient.
func (s *FileStore) WithSubmitterLock(ctx context.Context, submitterID string, fn func(ctx context.Context) error) error {
	s.submitMu.Lock()
	defer s.submitMu.Unlock()
	// The caller's deadline keeps ticking while we wait on the mutex; do not
	// start the sequence once it has expired.
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx)
}

// readAll loads the full log. An unparseable file is rewritten as an empty
// store; the warning below is the telemetry marker that distinguishes that
// self-heal from a normal empty-store startup. Callers must hold mu.
func (s *FileStore) readAll() ([]*model.Checkin, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", model.ErrStorageUnavailable, err)
	}
	if strings.TrimSpace(string(raw)) == "" {
		return nil, nil
	}

	var recs []*model.Checkin
	if err := json.Unmarshal(raw, &recs); err != nil {
		s.log.Warn().Str("path", s.path).Err(err).Msg("check-in log unreadable, resetting to empty store")
		if werr := s.writeAll(nil); werr != nil {
			return nil, werr
		}
		return nil, nil
	}
	return recs, nil
}

// writeAll replaces the log atomically via a temp file and rename.
// Callers must hold mu.
func (s *FileStore) writeAll(recs []*model.Checkin) error {
	if recs == nil {
		recs = []*model.Checkin{}
	}
	data, err := json.MarshalIndent(recs, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrStorageUnavailable, err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("%w: %v", model.ErrStorageUnavailable, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("%w: %v", model.ErrStorageUnavailable, err)
	}
	return nil
}

// sortNewestFirst applies the store's total order: CreatedAt descending,
// ID descending on equal timestamps.
func sortNewestFirst(recs []*model.Checkin) {
	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].CreatedAt.Equal(recs[j].CreatedAt) {
			return recs[i].ID > recs[j].ID
		}
		return recs[i].CreatedAt.After(recs[j].CreatedAt)
	})
}
