// Package cleanup keeps project-scoped disk usage bounded: it measures temp
// directories, ages out stale files, and reports artifacts orphaned by
// deleted records. Deletion is best-effort; partial failure is a normal
// outcome, collected and returned rather than raised.
package cleanup

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"adforge/internal/domain"
	"adforge/internal/storage"
)

const tempRoot = "temp"

// orphanCategories are the storage areas scanned for unreferenced files.
// Temp files are excluded: they age out on their own.
var orphanCategories = []domain.ArtifactCategory{
	domain.CategoryUpload,
	domain.CategoryGenerated,
	domain.CategoryPreview,
}

// Usage summarizes a project's temp directory tree.
type Usage struct {
	TotalBytes int64 `json:"totalBytes"`
	FileCount  int   `json:"fileCount"`
}

// ThresholdReport compares usage against the configured byte threshold. It
// is informational only and triggers no action.
type ThresholdReport struct {
	Exceeded bool  `json:"exceeded"`
	Usage    Usage `json:"usage"`
	Limit    int64 `json:"limit"`
}

// Options controls one cleanup pass.
type Options struct {
	// MaxAge overrides the manager default when positive.
	MaxAge time.Duration
	// DryRun simulates deletion: counts and bytes are reported as if the
	// files had been removed, but nothing is touched.
	DryRun bool
}

// Result reports one project's cleanup pass. Every individual deletion
// failure lands in Errors instead of aborting the pass.
type Result struct {
	ProjectID    string   `json:"projectId"`
	FilesDeleted int      `json:"filesDeleted"`
	BytesFreed   int64    `json:"bytesFreed"`
	DryRun       bool     `json:"dryRun"`
	Errors       []string `json:"errors,omitempty"`
}

// SweepResult is the summary of a full scheduled pass over all projects.
type SweepResult struct {
	ProjectsCleaned    int      `json:"projectsCleaned"`
	FilesDeleted       int      `json:"filesDeleted"`
	BytesFreed         int64    `json:"bytesFreed"`
	UploadsDeleted     int      `json:"uploadsDeleted"`
	UploadBytesFreed   int64    `json:"uploadBytesFreed"`
	OrphanedFilesFound int      `json:"orphanedFilesFound"`
	OrphanedFiles      []string `json:"orphanedFiles,omitempty"`
	Errors             []string `json:"errors,omitempty"`
	// Partial is set when the wall-clock budget expired before every
	// project was visited. Counts cover the work completed so far.
	Partial bool `json:"partial"`
}

// Manager scans and prunes the storage tree behind a FileStore.
type Manager struct {
	files          *storage.FileStore
	lookup         domain.ProjectLookup
	maxAge         time.Duration
	uploadMaxAge   time.Duration
	thresholdBytes int64
	budget         time.Duration
	now            func() time.Time
	logger         zerolog.Logger
}

// ManagerOptions configures a Manager.
type ManagerOptions struct {
	Files          *storage.FileStore
	Lookup         domain.ProjectLookup
	MaxAge         time.Duration
	UploadMaxAge   time.Duration
	ThresholdBytes int64
	Budget         time.Duration
	Logger         zerolog.Logger
}

func NewManager(opts ManagerOptions) (*Manager, error) {
	if opts.Files == nil {
		return nil, fmt.Errorf("cleanup: file store is required")
	}
	if opts.MaxAge <= 0 {
		opts.MaxAge = 24 * time.Hour
	}
	if opts.UploadMaxAge <= 0 {
		opts.UploadMaxAge = 7 * 24 * time.Hour
	}
	if opts.ThresholdBytes <= 0 {
		opts.ThresholdBytes = 5 * 1024 * 1024 * 1024
	}
	if opts.Budget <= 0 {
		opts.Budget = 5 * time.Minute
	}
	return &Manager{
		files:          opts.Files,
		lookup:         opts.Lookup,
		maxAge:         opts.MaxAge,
		uploadMaxAge:   opts.UploadMaxAge,
		thresholdBytes: opts.ThresholdBytes,
		budget:         opts.Budget,
		now:            time.Now,
		logger:         opts.Logger.With().Str("component", "cleanup").Logger(),
	}, nil
}

// SetNow overrides the clock. Test hook.
func (m *Manager) SetNow(now func() time.Time) { m.now = now }

func (m *Manager) tempDir(projectID string) (string, error) {
	return m.files.Path(fmt.Sprintf("%s/%s", tempRoot, projectID))
}

// DiskUsage walks a project's temp tree and sums file sizes. A missing
// directory reads as zero usage.
func (m *Manager) DiskUsage(projectID string) (Usage, error) {
	dir, err := m.tempDir(projectID)
	if err != nil {
		return Usage{}, err
	}
	var usage Usage
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		usage.TotalBytes += info.Size()
		usage.FileCount++
		return nil
	})
	if err != nil {
		return Usage{}, fmt.Errorf("cleanup: scan %s: %w", projectID, err)
	}
	return usage, nil
}

// CheckThreshold reports whether a project's temp usage exceeds the
// configured threshold.
func (m *Manager) CheckThreshold(projectID string) (ThresholdReport, error) {
	usage, err := m.DiskUsage(projectID)
	if err != nil {
		return ThresholdReport{}, err
	}
	return ThresholdReport{
		Exceeded: usage.TotalBytes > m.thresholdBytes,
		Usage:    usage,
		Limit:    m.thresholdBytes,
	}, nil
}

// CleanupProjectTempFiles deletes (or, under DryRun, only counts) temp files
// whose modification time is older than the age limit. The age limit also
// guards files an in-flight render may still be writing.
func (m *Manager) CleanupProjectTempFiles(ctx context.Context, projectID string, opts Options) Result {
	result := Result{ProjectID: projectID, DryRun: opts.DryRun}

	maxAge := opts.MaxAge
	if maxAge <= 0 {
		maxAge = m.maxAge
	}
	cutoff := m.now().Add(-maxAge)

	dir, err := m.tempDir(projectID)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		return result
	}

	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", path, err))
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", path, err))
			return nil
		}
		if !info.ModTime().Before(cutoff) {
			return nil
		}
		if !opts.DryRun {
			if err := os.Remove(path); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", path, err))
				return nil
			}
		}
		result.FilesDeleted++
		result.BytesFreed += info.Size()
		return nil
	})
	if walkErr != nil {
		result.Errors = append(result.Errors, walkErr.Error())
	}

	m.logger.Info().
		Str("project_id", projectID).
		Bool("dry_run", opts.DryRun).
		Int("files", result.FilesDeleted).
		Int64("bytes", result.BytesFreed).
		Int("errors", len(result.Errors)).
		Msg("temp cleanup pass")
	return result
}

// CleanupAllTempFiles runs the temp pass over every known project,
// sequentially. A failure in one project never aborts the others.
func (m *Manager) CleanupAllTempFiles(ctx context.Context, opts Options) []Result {
	projects, err := m.projectIDs(ctx)
	if err != nil {
		return []Result{{Errors: []string{err.Error()}}}
	}
	results := make([]Result, 0, len(projects))
	for _, projectID := range projects {
		if ctx.Err() != nil {
			break
		}
		results = append(results, m.CleanupProjectTempFiles(ctx, projectID, opts))
	}
	return results
}

// CleanupProjectUploads ages out uploaded source files. Uploads feed
// generation jobs; once the outputs exist the originals are only kept as a
// convenience, so anything older than the upload age limit goes, except
// files a live record still references. Without a persistence lookup age
// alone governs.
func (m *Manager) CleanupProjectUploads(ctx context.Context, projectID string, opts Options) Result {
	result := Result{ProjectID: projectID, DryRun: opts.DryRun}

	maxAge := opts.MaxAge
	if maxAge <= 0 {
		maxAge = m.uploadMaxAge
	}
	cutoff := m.now().Add(-maxAge)

	referenced := make(map[string]struct{})
	if m.lookup != nil {
		refs, err := m.lookup.ListArtifactReferences(ctx, projectID)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("list references for %s: %v", projectID, err))
			return result
		}
		for _, ref := range refs {
			referenced[ref] = struct{}{}
		}
	}

	dir, err := m.files.Path(fmt.Sprintf("%s/%s", domain.CategoryUpload, projectID))
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		return result
	}
	base := m.files.BasePath()

	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", path, err))
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(base, path)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", path, err))
			return nil
		}
		if _, ok := referenced[filepath.ToSlash(rel)]; ok {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", path, err))
			return nil
		}
		if !info.ModTime().Before(cutoff) {
			return nil
		}
		if !opts.DryRun {
			if err := os.Remove(path); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", path, err))
				return nil
			}
		}
		result.FilesDeleted++
		result.BytesFreed += info.Size()
		return nil
	})
	if walkErr != nil {
		result.Errors = append(result.Errors, walkErr.Error())
	}

	m.logger.Info().
		Str("project_id", projectID).
		Bool("dry_run", opts.DryRun).
		Int("files", result.FilesDeleted).
		Int64("bytes", result.BytesFreed).
		Int("errors", len(result.Errors)).
		Msg("upload cleanup pass")
	return result
}

// FindOrphanedFiles lists stored artifact keys for a project that no live
// record references. Orphans are reported, never deleted; removal waits for
// operator confirmation.
func (m *Manager) FindOrphanedFiles(ctx context.Context, projectID string) ([]string, error) {
	if m.lookup == nil {
		return nil, fmt.Errorf("cleanup: no persistence lookup configured")
	}
	refs, err := m.lookup.ListArtifactReferences(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("cleanup: list references for %s: %w", projectID, err)
	}
	referenced := make(map[string]struct{}, len(refs))
	for _, ref := range refs {
		referenced[ref] = struct{}{}
	}

	var orphans []string
	base := m.files.BasePath()
	for _, category := range orphanCategories {
		dir, err := m.files.Path(fmt.Sprintf("%s/%s", category, projectID))
		if err != nil {
			return nil, err
		}
		err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if os.IsNotExist(err) {
					return nil
				}
				return err
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if d.IsDir() {
				return nil
			}
			rel, err := filepath.Rel(base, path)
			if err != nil {
				return err
			}
			key := filepath.ToSlash(rel)
			if _, ok := referenced[key]; !ok {
				orphans = append(orphans, key)
			}
			return nil
		})
		if err != nil {
			return orphans, fmt.Errorf("cleanup: scan %s/%s: %w", category, projectID, err)
		}
	}
	return orphans, nil
}

// RunScheduledCleanup composes the temp pass, the uploaded-files pass, and
// the orphan scan over every project under a wall-clock budget. When the
// budget expires mid-pass the summary covers the projects finished so far
// and is marked Partial.
func (m *Manager) RunScheduledCleanup(ctx context.Context) SweepResult {
	ctx, cancel := context.WithTimeout(ctx, m.budget)
	defer cancel()

	var sweep SweepResult
	projects, err := m.projectIDs(ctx)
	if err != nil {
		sweep.Errors = append(sweep.Errors, err.Error())
		return sweep
	}

	for _, projectID := range projects {
		if ctx.Err() != nil {
			sweep.Partial = true
			sweep.Errors = append(sweep.Errors, fmt.Sprintf("budget expired before project %s", projectID))
			break
		}
		res := m.CleanupProjectTempFiles(ctx, projectID, Options{})
		sweep.ProjectsCleaned++
		sweep.FilesDeleted += res.FilesDeleted
		sweep.BytesFreed += res.BytesFreed
		sweep.Errors = append(sweep.Errors, res.Errors...)

		up := m.CleanupProjectUploads(ctx, projectID, Options{})
		sweep.UploadsDeleted += up.FilesDeleted
		sweep.UploadBytesFreed += up.BytesFreed
		sweep.Errors = append(sweep.Errors, up.Errors...)

		if m.lookup != nil {
			orphans, err := m.FindOrphanedFiles(ctx, projectID)
			if err != nil {
				sweep.Errors = append(sweep.Errors, err.Error())
			}
			sweep.OrphanedFiles = append(sweep.OrphanedFiles, orphans...)
		}
	}
	sweep.OrphanedFilesFound = len(sweep.OrphanedFiles)

	m.logger.Info().
		Int("projects", sweep.ProjectsCleaned).
		Int("files", sweep.FilesDeleted).
		Int64("bytes", sweep.BytesFreed).
		Int("uploads", sweep.UploadsDeleted).
		Int("orphans", sweep.OrphanedFilesFound).
		Bool("partial", sweep.Partial).
		Msg("scheduled cleanup finished")
	return sweep
}

// projectIDs prefers the persistence lookup; without one it falls back to
// the directory names present under the temp root.
func (m *Manager) projectIDs(ctx context.Context) ([]string, error) {
	if m.lookup != nil {
		ids, err := m.lookup.ListProjectIDs(ctx)
		if err != nil {
			return nil, fmt.Errorf("cleanup: list projects: %w", err)
		}
		return ids, nil
	}
	dir, err := m.files.Path(tempRoot)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("cleanup: read temp root: %w", err)
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			ids = append(ids, e.Name())
		}
	}
	return ids, nil
}
