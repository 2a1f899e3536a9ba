package cleanup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"adforge/internal/storage"
)

type fakeLookup struct {
	projects []string
	refs     map[string][]string
	listErr  error
}

func (f *fakeLookup) ListProjectIDs(context.Context) ([]string, error) {
	return f.projects, f.listErr
}

func (f *fakeLookup) ListArtifactReferences(_ context.Context, projectID string) ([]string, error) {
	return f.refs[projectID], nil
}

func newManager(t *testing.T, lookup *fakeLookup) (*Manager, *storage.FileStore) {
	t.Helper()
	files, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	opts := ManagerOptions{Files: files, Logger: zerolog.Nop()}
	if lookup != nil {
		opts.Lookup = lookup
	}
	m, err := NewManager(opts)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m, files
}

// seedAgedFile writes a file at key and backdates its mtime.
func seedAgedFile(t *testing.T, files *storage.FileStore, key string, size int, age time.Duration) string {
	t.Helper()
	key, err := files.Write(context.Background(), key, make([]byte, size))
	if err != nil {
		t.Fatalf("seed %s: %v", key, err)
	}
	path := filepath.Join(files.BasePath(), filepath.FromSlash(key))
	mtime := time.Now().Add(-age)
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("backdate %s: %v", key, err)
	}
	return path
}

// seedTempFile writes a temp file for projectID and backdates its mtime.
func seedTempFile(t *testing.T, files *storage.FileStore, projectID, name string, size int, age time.Duration) string {
	t.Helper()
	return seedAgedFile(t, files, fmt.Sprintf("temp/%s/%s", projectID, name), size, age)
}

func TestDiskUsage(t *testing.T) {
	m, files := newManager(t, nil)
	seedTempFile(t, files, "proj", "a.mp4", 100, time.Hour)
	seedTempFile(t, files, "proj", "b.mp4", 50, time.Hour)

	usage, err := m.DiskUsage("proj")
	if err != nil {
		t.Fatalf("DiskUsage: %v", err)
	}
	if usage.TotalBytes != 150 || usage.FileCount != 2 {
		t.Fatalf("got %+v, want 150 bytes across 2 files", usage)
	}

	empty, err := m.DiskUsage("no-such-project")
	if err != nil {
		t.Fatalf("DiskUsage on missing dir: %v", err)
	}
	if empty.TotalBytes != 0 || empty.FileCount != 0 {
		t.Fatalf("missing dir should read as zero usage, got %+v", empty)
	}
}

func TestCheckThreshold(t *testing.T) {
	files, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	m, err := NewManager(ManagerOptions{Files: files, ThresholdBytes: 100, Logger: zerolog.Nop()})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	seedTempFile(t, files, "proj", "big.mp4", 150, time.Hour)

	report, err := m.CheckThreshold("proj")
	if err != nil {
		t.Fatalf("CheckThreshold: %v", err)
	}
	if !report.Exceeded {
		t.Fatalf("150 bytes over a 100 byte threshold not flagged: %+v", report)
	}
	if report.Limit != 100 || report.Usage.TotalBytes != 150 {
		t.Fatalf("report = %+v, want limit 100 and usage 150", report)
	}
}

func TestCleanupDeletesOnlyFilesPastMaxAge(t *testing.T) {
	m, files := newManager(t, nil)
	fresh := seedTempFile(t, files, "proj", "fresh.mp4", 10, 10*time.Hour)
	old1 := seedTempFile(t, files, "proj", "old1.mp4", 20, 30*time.Hour)
	old2 := seedTempFile(t, files, "proj", "old2.mp4", 30, 50*time.Hour)

	res := m.CleanupProjectTempFiles(context.Background(), "proj", Options{MaxAge: 24 * time.Hour})
	if len(res.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	if res.FilesDeleted != 2 || res.BytesFreed != 50 {
		t.Fatalf("got %d files, %d bytes; want 2 files, 50 bytes", res.FilesDeleted, res.BytesFreed)
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Fatal("10h file was deleted")
	}
	for _, p := range []string{old1, old2} {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Fatalf("%s survived cleanup", p)
		}
	}
}

func TestCleanupDryRunParity(t *testing.T) {
	m, files := newManager(t, nil)
	seedTempFile(t, files, "proj", "fresh.mp4", 10, 10*time.Hour)
	old := seedTempFile(t, files, "proj", "old.mp4", 20, 30*time.Hour)

	dry := m.CleanupProjectTempFiles(context.Background(), "proj", Options{MaxAge: 24 * time.Hour, DryRun: true})
	if _, err := os.Stat(old); err != nil {
		t.Fatal("dry run deleted a file")
	}

	wet := m.CleanupProjectTempFiles(context.Background(), "proj", Options{MaxAge: 24 * time.Hour})
	if dry.FilesDeleted != wet.FilesDeleted || dry.BytesFreed != wet.BytesFreed {
		t.Fatalf("dry run reported %d/%d, real run %d/%d",
			dry.FilesDeleted, dry.BytesFreed, wet.FilesDeleted, wet.BytesFreed)
	}
}

func TestCleanupAllTempFilesSequentialAcrossProjects(t *testing.T) {
	lookup := &fakeLookup{projects: []string{"p1", "p2"}}
	m, files := newManager(t, lookup)
	seedTempFile(t, files, "p1", "old.mp4", 10, 48*time.Hour)
	seedTempFile(t, files, "p2", "old.mp4", 20, 48*time.Hour)

	results := m.CleanupAllTempFiles(context.Background(), Options{MaxAge: 24 * time.Hour})
	if len(results) != 2 {
		t.Fatalf("expected 2 project results, got %d", len(results))
	}
	for _, res := range results {
		if res.FilesDeleted != 1 {
			t.Fatalf("project %s: got %d deletions", res.ProjectID, res.FilesDeleted)
		}
	}
}

func TestCleanupProjectUploadsSparesReferencedAndFresh(t *testing.T) {
	lookup := &fakeLookup{projects: []string{"proj"}, refs: map[string][]string{}}
	m, files := newManager(t, lookup)

	oldFree := seedAgedFile(t, files, "upload/proj/old-free.png", 10, 10*24*time.Hour)
	oldKept := seedAgedFile(t, files, "upload/proj/old-kept.png", 20, 10*24*time.Hour)
	fresh := seedAgedFile(t, files, "upload/proj/fresh.png", 30, time.Hour)
	lookup.refs["proj"] = []string{"upload/proj/old-kept.png"}

	res := m.CleanupProjectUploads(context.Background(), "proj", Options{})
	if len(res.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	if res.FilesDeleted != 1 || res.BytesFreed != 10 {
		t.Fatalf("got %d files, %d bytes; want 1 file, 10 bytes", res.FilesDeleted, res.BytesFreed)
	}
	if _, err := os.Stat(oldFree); !os.IsNotExist(err) {
		t.Fatal("aged unreferenced upload survived")
	}
	if _, err := os.Stat(oldKept); err != nil {
		t.Fatal("referenced upload was deleted")
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Fatal("fresh upload was deleted")
	}
}

func TestFindOrphanedFilesReportsWithoutDeleting(t *testing.T) {
	lookup := &fakeLookup{projects: []string{"proj"}, refs: map[string][]string{}}
	m, files := newManager(t, lookup)
	ctx := context.Background()

	kept, err := files.Write(ctx, "generated/proj/kept.mp4", []byte("kept"))
	if err != nil {
		t.Fatalf("seed kept: %v", err)
	}
	orphanKey, err := files.Write(ctx, "generated/proj/orphan.mp4", []byte("orphan"))
	if err != nil {
		t.Fatalf("seed orphan: %v", err)
	}
	lookup.refs["proj"] = []string{kept}

	orphans, err := m.FindOrphanedFiles(ctx, "proj")
	if err != nil {
		t.Fatalf("FindOrphanedFiles: %v", err)
	}
	if len(orphans) != 1 || orphans[0] != orphanKey {
		t.Fatalf("got orphans %v, want [%s]", orphans, orphanKey)
	}

	// Report-only: both files are still on disk.
	for _, key := range []string{kept, orphanKey} {
		if _, err := files.Stat(key); err != nil {
			t.Fatalf("orphan scan removed %s: %v", key, err)
		}
	}
}

func TestRunScheduledCleanupSummary(t *testing.T) {
	lookup := &fakeLookup{projects: []string{"p1", "p2"}, refs: map[string][]string{}}
	m, files := newManager(t, lookup)
	ctx := context.Background()

	seedTempFile(t, files, "p1", "old.mp4", 10, 48*time.Hour)
	seedTempFile(t, files, "p2", "old.mp4", 20, 48*time.Hour)
	seedAgedFile(t, files, "upload/p2/stale.png", 5, 10*24*time.Hour)
	orphan, err := files.Write(ctx, "generated/p1/orphan.mp4", []byte("orphan"))
	if err != nil {
		t.Fatalf("seed orphan: %v", err)
	}

	sweep := m.RunScheduledCleanup(ctx)
	if sweep.Partial {
		t.Fatalf("unexpected partial sweep: %+v", sweep)
	}
	if sweep.ProjectsCleaned != 2 || sweep.FilesDeleted != 2 || sweep.BytesFreed != 30 {
		t.Fatalf("unexpected summary: %+v", sweep)
	}
	if sweep.UploadsDeleted != 1 || sweep.UploadBytesFreed != 5 {
		t.Fatalf("uploaded leg not reflected in summary: %+v", sweep)
	}
	if sweep.OrphanedFilesFound != 1 || sweep.OrphanedFiles[0] != orphan {
		t.Fatalf("orphans not surfaced: %+v", sweep)
	}
}

func TestRunScheduledCleanupBudgetReturnsPartial(t *testing.T) {
	lookup := &fakeLookup{projects: []string{"p1", "p2", "p3"}, refs: map[string][]string{}}
	files, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	m, err := NewManager(ManagerOptions{
		Files:  files,
		Lookup: lookup,
		Logger: zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	// A canceled parent stands in for an expired wall-clock budget.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sweep := m.RunScheduledCleanup(ctx)
	if !sweep.Partial {
		t.Fatalf("expired budget not marked partial: %+v", sweep)
	}
	if sweep.ProjectsCleaned >= 3 {
		t.Fatalf("all projects visited despite expired budget: %+v", sweep)
	}
	if len(sweep.Errors) == 0 {
		t.Fatal("partial sweep recorded no explanation")
	}
}
