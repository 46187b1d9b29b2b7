package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"slices"
	"strings"
	"time"
)

const reportsRoot = "reports"

// ReportPath is the archive location of a run's report: one directory per
// UTC day, one JSON document per run.
func ReportPath(runID string, at time.Time) string {
	return path.Join(reportsRoot, at.UTC().Format(time.DateOnly), runID+".json")
}

// Reports stores backtest reports as JSON documents in a Storage.
type Reports struct {
	store Storage
}

// NewReports wraps store.
func NewReports(store Storage) *Reports {
	return &Reports{store: store}
}

// Save marshals v and writes it at ReportPath(runID, at).
func (r *Reports) Save(ctx context.Context, runID string, at time.Time, v any) (string, error) {
	if runID == "" {
		return "", fmt.Errorf("run id is empty")
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding report: %w", err)
	}
	p := ReportPath(runID, at)
	if err := r.store.Write(ctx, p, data); err != nil {
		return "", fmt.Errorf("archiving report: %w", err)
	}
	return p, nil
}

// Load reads the document at p into v.
func (r *Reports) Load(ctx context.Context, p string, v any) error {
	data, err := r.store.Read(ctx, p)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding %s: %w", p, err)
	}
	return nil
}

// List returns every archived report path, oldest day first.
func (r *Reports) List(ctx context.Context) ([]string, error) {
	paths, err := r.store.List(ctx, reportsRoot)
	if err != nil {
		return nil, err
	}
	paths = slices.DeleteFunc(paths, func(p string) bool {
		return !strings.HasSuffix(p, ".json")
	})
	slices.Sort(paths)
	return paths, nil
}

// Find locates the report of runID regardless of the day it was written.
func (r *Reports) Find(ctx context.Context, runID string) (string, error) {
	paths, err := r.List(ctx)
	if err != nil {
		return "", err
	}
	name := runID + ".json"
	for _, p := range paths {
		if path.Base(p) == name {
			return p, nil
		}
	}
	return "", fmt.Errorf("report %s: %w", runID, ErrNotFound)
}
