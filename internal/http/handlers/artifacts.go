package handlers

import (
	"fmt"
	"net/http"
	"os"
	"path"
	"strconv"
	"strings"

	"adforge/internal/cache"
	"adforge/internal/domain"
	"adforge/internal/storage"
)

// ServeArtifact streams a stored artifact with byte-range support. Content
// at a key is immutable once written, so responses are cacheable and the
// in-memory content cache never needs invalidation.
func (a *App) ServeArtifact(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		key = r.URL.Query().Get("path")
	}
	if key == "" {
		a.fail(w, domain.NewValidation("key query parameter is required"))
		return
	}

	// Signed URLs carry expires+sig; their absence means an internal caller.
	expires := r.URL.Query().Get("expires")
	sig := r.URL.Query().Get("sig")
	if expires != "" || sig != "" {
		if err := a.Store.VerifyPresign(key, expires, sig); err != nil {
			a.fail(w, err)
			return
		}
	}

	data, hit, err := a.loadArtifact(r, key)
	if err != nil {
		a.fail(w, err)
		return
	}

	h := w.Header()
	h.Set("Content-Type", storage.MIMEForExtension(path.Ext(key)))
	h.Set("Accept-Ranges", "bytes")
	h.Set("Cache-Control", "private, max-age=3600")
	if hit {
		h.Set("X-Cache", "HIT")
	} else {
		h.Set("X-Cache", "MISS")
	}

	size := int64(len(data))
	rangeHeader := r.Header.Get("Range")
	if rangeHeader == "" {
		h.Set("Content-Length", strconv.FormatInt(size, 10))
		w.WriteHeader(http.StatusOK)
		if r.Method != http.MethodHead {
			_, _ = w.Write(data)
		}
		return
	}

	start, end, err := parseRange(rangeHeader, size)
	if err != nil {
		h.Set("Content-Range", fmt.Sprintf("bytes */%d", size))
		a.json(w, http.StatusRequestedRangeNotSatisfiable, envelope{
			Success: false,
			Error:   err.Error(),
			Code:    domain.CodeValidation,
		})
		return
	}

	h.Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, size))
	h.Set("Content-Length", strconv.FormatInt(end-start+1, 10))
	w.WriteHeader(http.StatusPartialContent)
	if r.Method != http.MethodHead {
		_, _ = w.Write(data[start : end+1])
	}
}

// loadArtifact reads the bytes behind key, through the content cache.
func (a *App) loadArtifact(r *http.Request, key string) ([]byte, bool, error) {
	if a.Cache != nil {
		if data, ok := a.Cache.Get(key); ok {
			return data, true, nil
		}
	}
	data, err := a.Store.Files().Read(r.Context(), key)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, domain.NewNotFound("no artifact at " + key)
		}
		return nil, false, err
	}
	if a.Cache != nil {
		a.Cache.Set(key, data)
	}
	return data, false, nil
}

// parseRange interprets a single-range "bytes=start-end" header against a
// body of the given size. Open-ended and suffix forms are accepted; a start
// past the end of the body is unsatisfiable.
func parseRange(header string, size int64) (start, end int64, err error) {
	spec, ok := strings.CutPrefix(header, "bytes=")
	if !ok || strings.Contains(spec, ",") {
		return 0, 0, fmt.Errorf("unsupported range %q", header)
	}
	startStr, endStr, ok := strings.Cut(spec, "-")
	if !ok {
		return 0, 0, fmt.Errorf("malformed range %q", header)
	}

	if startStr == "" {
		// Suffix form: last n bytes.
		n, err := strconv.ParseInt(endStr, 10, 64)
		if err != nil || n <= 0 {
			return 0, 0, fmt.Errorf("malformed range %q", header)
		}
		if n > size {
			n = size
		}
		return size - n, size - 1, nil
	}

	start, err = strconv.ParseInt(startStr, 10, 64)
	if err != nil || start < 0 {
		return 0, 0, fmt.Errorf("malformed range %q", header)
	}
	if start >= size {
		return 0, 0, fmt.Errorf("range start %d beyond size %d", start, size)
	}

	end = size - 1
	if endStr != "" {
		end, err = strconv.ParseInt(endStr, 10, 64)
		if err != nil || end < start {
			return 0, 0, fmt.Errorf("malformed range %q", header)
		}
		if end >= size {
			end = size - 1
		}
	}
	return start, end, nil
}

// CacheStats reports content cache occupancy.
func (a *App) CacheStats(w http.ResponseWriter, r *http.Request) {
	if a.Cache == nil {
		a.ok(w, http.StatusOK, cache.Stats{})
		return
	}
	a.ok(w, http.StatusOK, a.Cache.GetStats())
}
