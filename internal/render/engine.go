// Package render drives ffmpeg to turn timeline state into playable video:
// per-clip trim renditions, fast low-resolution previews, and the final
// full-quality stitch.
package render

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"adforge/internal/domain"
	"adforge/internal/storage"
)

const (
	// editEncodeSignature participates in the clip edit cache key so that a
	// change to the trim encode settings invalidates every cached rendition.
	editEncodeSignature = "libx264/veryfast/crf23"

	defaultPreviewWidth  = 640
	defaultPreviewHeight = 360
	defaultPreviewFPS    = 24
)

// Options configures an Engine.
type Options struct {
	FFmpegBin string
	WorkDir   string
	LUTDir    string

	PreviewWidth     int
	PreviewHeight    int
	PreviewFrameRate int

	Files  *storage.FileStore
	Store  storage.ObjectStore
	Runner Runner
	Logger zerolog.Logger
}

// StitchResult describes where the final assembled video landed.
type StitchResult struct {
	LocalPath string
	URL       string
	Key       string
}

// Engine renders timelines. Renders run as awaited child processes; the
// engine itself holds no locks, so unrelated requests are never blocked by
// an in-flight render.
type Engine struct {
	runner Runner
	files  *storage.FileStore
	store  storage.ObjectStore

	workDir string
	lutDir  string

	previewWidth  int
	previewHeight int
	previewFPS    int

	logger zerolog.Logger
}

// New builds an Engine and ensures its scratch directories exist.
func New(opts Options) (*Engine, error) {
	if opts.Files == nil {
		return nil, fmt.Errorf("render: file store is required")
	}
	if opts.WorkDir == "" {
		opts.WorkDir = filepath.Join(os.TempDir(), "adforge-render")
	}
	if opts.PreviewWidth <= 0 {
		opts.PreviewWidth = defaultPreviewWidth
	}
	if opts.PreviewHeight <= 0 {
		opts.PreviewHeight = defaultPreviewHeight
	}
	if opts.PreviewFrameRate <= 0 {
		opts.PreviewFrameRate = defaultPreviewFPS
	}
	if opts.Runner == nil {
		bin := opts.FFmpegBin
		if bin == "" {
			bin = "ffmpeg"
		}
		opts.Runner = &execRunner{bin: bin}
	}

	e := &Engine{
		runner:        opts.Runner,
		files:         opts.Files,
		store:         opts.Store,
		workDir:       opts.WorkDir,
		lutDir:        opts.LUTDir,
		previewWidth:  opts.PreviewWidth,
		previewHeight: opts.PreviewHeight,
		previewFPS:    opts.PreviewFrameRate,
		logger:        opts.Logger.With().Str("component", "render").Logger(),
	}
	for _, dir := range []string{e.editsDir(), e.previewsDir(), e.finalDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("render: ensure work dir: %w", err)
		}
	}
	return e, nil
}

func (e *Engine) editsDir() string    { return filepath.Join(e.workDir, "edits") }
func (e *Engine) previewsDir() string { return filepath.Join(e.workDir, "previews") }
func (e *Engine) finalDir() string    { return filepath.Join(e.workDir, "final") }

// ApplyClipEdits produces a trimmed rendition per clip and returns the local
// paths in timeline order. Renditions are cached on disk keyed by clip id and
// edit signature; a repeat call with unchanged trims never re-invokes ffmpeg.
func (e *Engine) ApplyClipEdits(ctx context.Context, clips []domain.Clip, projectID string) ([]string, error) {
	paths := make([]string, 0, len(clips))
	for _, clip := range clips {
		if err := clip.Validate(); err != nil {
			return nil, err
		}
		out := filepath.Join(e.editsDir(), fmt.Sprintf("%s-%s.mp4", clip.ID, editSignature(clip)))
		// An empty file is a leftover from an interrupted render, not a hit.
		if info, err := os.Stat(out); err == nil && info.Size() > 0 {
			e.logger.Debug().Str("clip_id", clip.ID).Msg("clip edit cache hit")
			paths = append(paths, out)
			continue
		}

		src, err := e.files.Path(clip.ArtifactKey)
		if err != nil {
			return nil, err
		}
		args := []string{
			"-y",
			"-ss", formatSeconds(clip.TrimStart),
			"-to", formatSeconds(clip.TrimEnd),
			"-i", src,
			"-c:v", "libx264", "-preset", "veryfast", "-crf", "23",
			"-c:a", "aac",
			"-movflags", "+faststart",
			out,
		}
		if err := e.runner.Run(ctx, args...); err != nil {
			os.Remove(out)
			return nil, domain.NewInternal(fmt.Sprintf("trim clip %s", clip.ID)).WithCause(err)
		}
		paths = append(paths, out)
	}
	return paths, nil
}

// ClearClipEditCache wipes every cached clip rendition. Required whenever
// encode settings change out from under the signature.
func (e *Engine) ClearClipEditCache() error {
	if err := os.RemoveAll(e.editsDir()); err != nil {
		return fmt.Errorf("render: clear edit cache: %w", err)
	}
	return os.MkdirAll(e.editsDir(), 0o755)
}

// GeneratePreview assembles a fast low-resolution preview of the timeline
// with text overlays burned in. If the render fails on the audio path behind
// a clip with no audio track, the identical render is retried without audio.
func (e *Engine) GeneratePreview(ctx context.Context, clips []domain.Clip, overlays []domain.Overlay, projectID string) (string, error) {
	if len(clips) == 0 {
		return "", domain.NewValidation("preview: timeline has no clips")
	}
	inputs, err := e.ApplyClipEdits(ctx, clips, projectID)
	if err != nil {
		return "", err
	}

	out := filepath.Join(e.previewsDir(), fmt.Sprintf("%s-%s.mp4", projectID, uuid.NewString()))
	if err := e.renderPreview(ctx, inputs, overlays, out, true); err != nil {
		if !isAudioError(err) {
			return "", domain.NewInternal("preview render").WithCause(err)
		}
		e.logger.Warn().Err(err).Str("project_id", projectID).Msg("audio path failed, retrying preview without audio")
		if err := e.renderPreview(ctx, inputs, overlays, out, false); err != nil {
			return "", domain.NewInternal("preview render without audio").WithCause(err)
		}
	}
	return out, nil
}

func (e *Engine) renderPreview(ctx context.Context, inputs []string, overlays []domain.Overlay, out string, withAudio bool) error {
	args := []string{"-y"}
	for _, in := range inputs {
		args = append(args, "-i", in)
	}

	var graph strings.Builder
	for i := range inputs {
		fmt.Fprintf(&graph, "[%d:v]setpts=PTS-STARTPTS,fps=%d,scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2:color=black[v%d];",
			i, e.previewFPS, e.previewWidth, e.previewHeight, e.previewWidth, e.previewHeight, i)
		if withAudio {
			fmt.Fprintf(&graph, "[%d:a]asetpts=PTS-STARTPTS[a%d];", i, i)
		}
	}
	for i := range inputs {
		fmt.Fprintf(&graph, "[v%d]", i)
		if withAudio {
			fmt.Fprintf(&graph, "[a%d]", i)
		}
	}
	if withAudio {
		fmt.Fprintf(&graph, "concat=n=%d:v=1:a=1[vcat][aout];", len(inputs))
	} else {
		fmt.Fprintf(&graph, "concat=n=%d:v=1:a=0[vcat];", len(inputs))
	}
	graph.WriteString("[vcat]")
	if len(overlays) == 0 {
		graph.WriteString("null[vout]")
	} else {
		// Drawtext filters stack in application order, so a higher z-index
		// must come later in the chain to draw on top.
		ordered := append([]domain.Overlay(nil), overlays...)
		sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].ZIndex < ordered[j].ZIndex })
		for i, ov := range ordered {
			if i > 0 {
				graph.WriteString(",")
			}
			graph.WriteString(e.drawtextFilter(ov))
		}
		graph.WriteString("[vout]")
	}

	args = append(args, "-filter_complex", graph.String(), "-map", "[vout]")
	if withAudio {
		args = append(args, "-map", "[aout]", "-c:a", "aac")
	} else {
		args = append(args, "-an")
	}
	args = append(args,
		"-c:v", "libx264", "-preset", "ultrafast", "-crf", "32",
		"-movflags", "+faststart",
		out,
	)
	if err := e.runner.Run(ctx, args...); err != nil {
		os.Remove(out)
		return err
	}
	return nil
}

// drawtextFilter renders one overlay as a timed drawtext operation. Screen
// position comes from the overlay's normalized coordinates against the
// preview resolution.
func (e *Engine) drawtextFilter(ov domain.Overlay) string {
	fontSize := ov.FontSize
	if fontSize <= 0 {
		fontSize = 28
	}
	color := ov.Color
	if color == "" {
		color = "white"
	}
	x := int(ov.X * float64(e.previewWidth))
	y := int(ov.Y * float64(e.previewHeight))

	var b strings.Builder
	fmt.Fprintf(&b, "drawtext=text='%s':x=%d:y=%d:fontsize=%d:fontcolor=%s",
		escapeDrawtext(ov.Text), x, y, fontSize, color)
	if ov.BorderWidth > 0 {
		borderColor := ov.BorderColor
		if borderColor == "" {
			borderColor = "black"
		}
		fmt.Fprintf(&b, ":borderw=%d:bordercolor=%s", ov.BorderWidth, borderColor)
	}
	if ov.Background != "" {
		fmt.Fprintf(&b, ":box=1:boxcolor=%s:boxborderw=8", ov.Background)
	}
	fmt.Fprintf(&b, ":enable='between(t,%s,%s)'", formatSeconds(ov.StartTime), formatSeconds(ov.EndTime))
	return b.String()
}

// StitchVideos concatenates the given local video files into the final
// full-resolution output, with motion interpolation, an optional color-grade
// LUT chosen by style name, and an optional logo transition inserted between
// the intro and the first clip. The result is stored durably and the stored
// key and URL are returned alongside the local path.
func (e *Engine) StitchVideos(ctx context.Context, paths []string, projectID, style, logoPath string) (StitchResult, error) {
	if len(paths) == 0 {
		return StitchResult{}, domain.NewValidation("stitch: no input videos")
	}
	ordered := append([]string(nil), paths...)
	if logoPath != "" {
		if len(ordered) > 1 {
			ordered = append(ordered[:1:1], append([]string{logoPath}, ordered[1:]...)...)
		} else {
			ordered = append(ordered, logoPath)
		}
	}

	listPath := filepath.Join(e.finalDir(), fmt.Sprintf("concat-%s.txt", uuid.NewString()))
	var list strings.Builder
	for _, p := range ordered {
		fmt.Fprintf(&list, "file '%s'\n", strings.ReplaceAll(p, "'", `'\''`))
	}
	if err := os.WriteFile(listPath, []byte(list.String()), 0o644); err != nil {
		return StitchResult{}, fmt.Errorf("render: write concat list: %w", err)
	}
	defer os.Remove(listPath)

	filters := []string{
		"minterpolate=fps=30:mi_mode=mci",
		"scale=1920:1080:force_original_aspect_ratio=decrease",
		"pad=1920:1080:(ow-iw)/2:(oh-ih)/2:color=black",
	}
	if style != "" {
		if lut := e.lutPath(style); lut != "" {
			filters = append(filters, fmt.Sprintf("lut3d=file=%s", escapeDrawtext(lut)))
		} else {
			// Missing LUTs degrade to an ungraded stitch instead of failing.
			e.logger.Warn().Str("style", style).Msg("no LUT for style, skipping color grade")
		}
	}

	out := filepath.Join(e.finalDir(), fmt.Sprintf("%s-%s.mp4", projectID, uuid.NewString()))
	args := []string{
		"-y",
		"-f", "concat", "-safe", "0", "-i", listPath,
		"-vf", strings.Join(filters, ","),
		"-c:v", "libx264", "-preset", "slow", "-crf", "18",
		"-c:a", "aac",
		"-movflags", "+faststart",
		out,
	}
	if err := e.runner.Run(ctx, args...); err != nil {
		os.Remove(out)
		return StitchResult{}, domain.NewInternal("final stitch").WithCause(err)
	}

	result := StitchResult{LocalPath: out}
	if e.store != nil {
		data, err := os.ReadFile(out)
		if err != nil {
			return StitchResult{}, fmt.Errorf("render: read stitched output: %w", err)
		}
		stored, err := e.store.Store(ctx, data, storage.Meta{
			ProjectID: projectID,
			Category:  domain.CategoryGenerated,
			MIMEType:  "video/mp4",
		})
		if err != nil {
			return StitchResult{}, err
		}
		result.Key = stored.Key
		result.URL = stored.URL
	}
	return result, nil
}

func (e *Engine) lutPath(style string) string {
	if e.lutDir == "" {
		return ""
	}
	p := filepath.Join(e.lutDir, style+".cube")
	if _, err := os.Stat(p); err != nil {
		return ""
	}
	return p
}

// editSignature hashes the trim bounds and encode settings so a changed edit
// never serves a stale rendition.
func editSignature(clip domain.Clip) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%s|%s",
		clip.ID, formatSeconds(clip.TrimStart), formatSeconds(clip.TrimEnd), editEncodeSignature)))
	return hex.EncodeToString(sum[:8])
}

// escapeDrawtext protects characters the filtergraph parser treats as
// syntax.
func escapeDrawtext(s string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		`'`, `\'`,
		`:`, `\:`,
		`%`, `\%`,
	)
	return r.Replace(s)
}

func formatSeconds(s float64) string {
	return fmt.Sprintf("%.3f", s)
}

// isAudioError reports whether a render failure looks like a missing or
// broken audio stream, which is retried without the audio path.
func isAudioError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "audio") ||
		strings.Contains(msg, "matches no streams") ||
		strings.Contains(msg, "stream specifier")
}
