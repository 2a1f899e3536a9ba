package storage

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"adforge/internal/domain"
)

// Meta describes where a stored blob belongs.
type Meta struct {
	ProjectID string
	Category  domain.ArtifactCategory
	MIMEType  string
}

// Stored is the placement result returned by an ObjectStore.
type Stored struct {
	Key string
	URL string
}

// ObjectStore is the narrow durable-storage contract the orchestrator and
// cleanup manager depend on. Implementations may be backed by any object
// storage service.
type ObjectStore interface {
	Store(ctx context.Context, data []byte, meta Meta) (Stored, error)
	Presign(key string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

// LocalObjectStore implements ObjectStore over a FileStore, issuing
// HMAC-signed expiring URLs in place of provider presigning.
type LocalObjectStore struct {
	files   *FileStore
	baseURL string
	secret  []byte
	now     func() time.Time
}

// NewLocalObjectStore wraps files with URL generation rooted at baseURL.
func NewLocalObjectStore(files *FileStore, baseURL, presignSecret string) *LocalObjectStore {
	return &LocalObjectStore{
		files:   files,
		baseURL: strings.TrimRight(baseURL, "/"),
		secret:  []byte(presignSecret),
		now:     time.Now,
	}
}

// Files exposes the underlying FileStore for consumers that need direct
// filesystem access (the content cache fill path, cleanup scans).
func (s *LocalObjectStore) Files() *FileStore { return s.files }

// Store writes data under a deterministic key layout
// <category>/<projectID>/<uuid><ext> and returns the key and a plain URL.
func (s *LocalObjectStore) Store(ctx context.Context, data []byte, meta Meta) (Stored, error) {
	if len(data) == 0 {
		return Stored{}, domain.NewValidation("store: empty payload")
	}
	category := meta.Category
	if category == "" {
		category = domain.CategoryGenerated
	}
	projectID := strings.TrimSpace(meta.ProjectID)
	if projectID == "" {
		projectID = "shared"
	}
	key := fmt.Sprintf("%s/%s/%s%s", category, projectID, uuid.NewString(), ExtensionForMIME(meta.MIMEType))
	savedKey, err := s.files.Write(ctx, key, data)
	if err != nil {
		return Stored{}, err
	}
	return Stored{Key: savedKey, URL: s.plainURL(savedKey)}, nil
}

// Presign returns a time-limited URL granting read access to key without
// further credentials.
func (s *LocalObjectStore) Presign(key string, ttl time.Duration) (string, error) {
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return "", err
	}
	expires := s.now().Add(ttl).Unix()
	sig := s.sign(cleanKey, expires)
	return fmt.Sprintf("%s?key=%s&expires=%d&sig=%s", s.baseURL, url.QueryEscape(cleanKey), expires, sig), nil
}

// VerifyPresign checks a signature/expiry pair produced by Presign.
func (s *LocalObjectStore) VerifyPresign(key, expiresStr, sig string) error {
	expires, err := strconv.ParseInt(expiresStr, 10, 64)
	if err != nil {
		return domain.NewValidation("presign: malformed expiry")
	}
	if s.now().Unix() > expires {
		return domain.NewAuthentication("presign: url expired")
	}
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return domain.NewValidation("presign: invalid key")
	}
	expected := s.sign(cleanKey, expires)
	if !hmac.Equal([]byte(expected), []byte(sig)) {
		return domain.NewAuthentication("presign: signature mismatch")
	}
	return nil
}

// Delete removes the object stored under key.
func (s *LocalObjectStore) Delete(ctx context.Context, key string) error {
	return s.files.Delete(ctx, key)
}

func (s *LocalObjectStore) plainURL(key string) string {
	return fmt.Sprintf("%s?key=%s", s.baseURL, url.QueryEscape(key))
}

func (s *LocalObjectStore) sign(key string, expires int64) string {
	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "%s|%d", key, expires)
	return hex.EncodeToString(mac.Sum(nil))
}

// ExtensionForMIME maps the content types the pipeline produces onto file
// extensions.
func ExtensionForMIME(mime string) string {
	switch strings.ToLower(strings.TrimSpace(mime)) {
	case "image/png":
		return ".png"
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "video/mp4":
		return ".mp4"
	case "audio/mpeg", "audio/mp3":
		return ".mp3"
	case "audio/wav", "audio/x-wav":
		return ".wav"
	default:
		return ".bin"
	}
}

// MIMEForExtension is the inverse mapping used when serving artifacts.
func MIMEForExtension(ext string) string {
	switch strings.ToLower(ext) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	case ".mp4":
		return "video/mp4"
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	default:
		return "application/octet-stream"
	}
}

var _ ObjectStore = (*LocalObjectStore)(nil)
