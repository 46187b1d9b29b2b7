package archive

import (
	"context"
	"errors"
	"testing"
	"time"
)

type sample struct {
	RunID  string `json:"run_id"`
	Profit string `json:"profit"`
}

func TestReportPath(t *testing.T) {
	at := time.Date(2026, 3, 4, 23, 30, 0, 0, time.FixedZone("X", -2*3600))
	// 23:30 at UTC-2 is the next UTC day
	if got := ReportPath("abc", at); got != "reports/2026-03-05/abc.json" {
		t.Errorf("got %q", got)
	}
}

func TestReports_SaveLoad(t *testing.T) {
	store, _ := NewLocalFS(t.TempDir())
	reports := NewReports(store)
	ctx := context.Background()
	at := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)

	p, err := reports.Save(ctx, "run-1", at, sample{RunID: "run-1", Profit: "1.58"})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if p != "reports/2026-01-02/run-1.json" {
		t.Errorf("unexpected path %q", p)
	}

	var got sample
	if err := reports.Load(ctx, p, &got); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Profit != "1.58" {
		t.Errorf("expected profit 1.58, got %s", got.Profit)
	}
}

func TestReports_SaveRequiresRunID(t *testing.T) {
	store, _ := NewLocalFS(t.TempDir())
	if _, err := NewReports(store).Save(context.Background(), "", time.Now(), sample{}); err == nil {
		t.Error("expected error for empty run id")
	}
}

func TestReports_ListAndFind(t *testing.T) {
	store, _ := NewLocalFS(t.TempDir())
	reports := NewReports(store)
	ctx := context.Background()

	reports.Save(ctx, "b", time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC), sample{})
	reports.Save(ctx, "a", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), sample{})
	store.Write(ctx, "reports/notes.txt", []byte("ignored"))

	paths, err := reports.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{"reports/2026-01-01/a.json", "reports/2026-01-02/b.json"}
	if len(paths) != len(want) {
		t.Fatalf("expected %v, got %v", want, paths)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("paths[%d] = %s, want %s", i, paths[i], want[i])
		}
	}

	p, err := reports.Find(ctx, "b")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if p != want[1] {
		t.Errorf("Find returned %s", p)
	}

	if _, err := reports.Find(ctx, "zzz"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestNew(t *testing.T) {
	dir := t.TempDir()

	s, err := New(Config{Path: dir})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := s.(*LocalFS); !ok {
		t.Errorf("expected LocalFS for empty type, got %T", s)
	}

	s, err = New(Config{Type: TypeS3, S3: S3Config{Bucket: "b"}})
	if err != nil {
		t.Fatalf("New s3: %v", err)
	}
	if _, ok := s.(*S3Storage); !ok {
		t.Errorf("expected S3Storage, got %T", s)
	}

	if _, err := New(Config{Type: "ftp"}); err == nil {
		t.Error("expected error for unknown type")
	}
}
