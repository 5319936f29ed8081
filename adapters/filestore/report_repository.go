// Package filestore archives reports on the local filesystem: one JSON metadata file
// and one markdown file per run.
package filestore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"surveystat/domain/core"
	"surveystat/domain/run"
	"surveystat/ports"

	"github.com/facebookgo/atomicfile"
)

// reportRepository implements ports.ReportRepository under a directory
type reportRepository struct {
	dir string
	mu  sync.RWMutex
}

// NewReportRepository creates the archive directory if needed
func NewReportRepository(dir string) (ports.ReportRepository, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}
	return &reportRepository{dir: dir}, nil
}

func (r *reportRepository) metaPath(id core.ReportID) string {
	return filepath.Join(r.dir, id.String()+".json")
}

func (r *reportRepository) markdownPath(id core.ReportID) string {
	return filepath.Join(r.dir, id.String()+".md")
}

// Save writes the markdown first so a visible metadata file always has its report
func (r *reportRepository) Save(ctx context.Context, rn *run.Run) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := core.ParseReportID(rn.ID.String()); err != nil {
		return err
	}
	meta, err := json.MarshalIndent(rn, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report metadata: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := writeAtomic(r.markdownPath(rn.ID), []byte(rn.Markdown)); err != nil {
		return err
	}
	return writeAtomic(r.metaPath(rn.ID), meta)
}

// Get loads metadata and markdown for one run
func (r *reportRepository) Get(ctx context.Context, id core.ReportID) (*run.Run, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := core.ParseReportID(id.String()); err != nil {
		return nil, core.NewReportNotFoundError(id.String())
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	rn, err := r.readMeta(r.metaPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, core.NewReportNotFoundError(id.String())
		}
		return nil, err
	}
	md, err := os.ReadFile(r.markdownPath(id))
	if err != nil {
		return nil, fmt.Errorf("failed to read report markdown: %w", err)
	}
	rn.Markdown = string(md)
	return rn, nil
}

// List scans the archive, newest first
func (r *reportRepository) List(ctx context.Context, limit int) ([]*run.Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read archive directory: %w", err)
	}

	runs := make([]*run.Run, 0, len(entries))
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		rn, err := r.readMeta(filepath.Join(r.dir, e.Name()))
		if err != nil {
			return nil, err
		}
		runs = append(runs, rn)
	}

	sort.Slice(runs, func(i, j int) bool {
		if !runs[i].CreatedAt.Equal(runs[j].CreatedAt) {
			return runs[i].CreatedAt.After(runs[j].CreatedAt)
		}
		return runs[i].ID > runs[j].ID
	})
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

func (r *reportRepository) readMeta(path string) (*run.Run, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rn run.Run
	if err := json.Unmarshal(data, &rn); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}
	return &rn, nil
}

// writeAtomic replaces path so readers never observe a partial file
func writeAtomic(path string, data []byte) error {
	f, err := atomicfile.New(path, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Base(path), err)
	}
	if _, err := f.Write(data); err != nil {
		f.Abort()
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}

// WriteFile atomically writes a generated report outside the archive
func WriteFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return writeAtomic(path, data)
}
