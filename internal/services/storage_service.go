package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/plsfixthx/annotator/pkg/jwt"
)

var (
	ErrSharedFileNotFound = errors.New("shared file not found")
	ErrShareLinkInvalid   = errors.New("share link is invalid or expired")
)

// LocalShareTarget stores shared exports on disk; they are downloaded
// through the API under PublicURL.
type LocalShareTarget struct {
	root      string
	publicURL string
	ttl       time.Duration
	secret    string
	now       func() time.Time
}

func NewLocalShareTarget(root, publicURL string, ttl time.Duration) (*LocalShareTarget, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("share path: %w", err)
	}
	return &LocalShareTarget{
		root:      root,
		publicURL: strings.TrimRight(publicURL, "/"),
		ttl:       ttl,
		now:       time.Now,
	}, nil
}

// WithLinkSecret makes every link carry a signed token that downloads
// must present.
func (s *LocalShareTarget) WithLinkSecret(secret string) *LocalShareTarget {
	s.secret = secret
	return s
}

// BuildObjectKey creates a namespaced storage key. The file name is kept as
// the last segment so downloads carry it.
func BuildObjectKey(kind, name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "export"
	}
	return fmt.Sprintf("%s/%s/%s", kind, uuid.New().String(), name)
}

func (s *LocalShareTarget) Share(ctx context.Context, name, contentType string, data []byte) (*SharedFile, error) {
	if err := ctx.Err(); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, ErrShareCancelled
		}
		return nil, err
	}
	key := BuildObjectKey("exports", name)
	if _, _, _, err := s.SaveStream(ctx, key, bytes.NewReader(data)); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, ErrShareCancelled
		}
		return nil, err
	}
	link := s.publicURL + "/" + escapeKey(key)
	if s.secret != "" {
		token, err := jwt.GenerateShareToken(key, s.secret, s.ttl)
		if err != nil {
			return nil, fmt.Errorf("sign share link: %w", err)
		}
		link += "?token=" + url.QueryEscape(token)
	}
	return &SharedFile{
		URL:       link,
		Key:       key,
		Name:      name,
		ExpiresAt: s.now().Add(s.ttl),
	}, nil
}

// SaveStream saves an incoming stream to local storage and returns absolute path, size and checksum
func (s *LocalShareTarget) SaveStream(ctx context.Context, key string, r io.Reader) (string, int64, string, error) {
	absPath, err := s.resolve(key)
	if err != nil {
		return "", 0, "", err
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return "", 0, "", err
	}

	tmp := absPath + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return "", 0, "", err
	}
	defer f.Close()

	hasher := sha256.New()
	n, err := io.Copy(io.MultiWriter(f, hasher), r)
	if err != nil {
		_ = os.Remove(tmp)
		return "", 0, "", err
	}

	if err := f.Sync(); err != nil {
		_ = os.Remove(tmp)
		return "", 0, "", err
	}
	// Nothing becomes visible for a share the user already abandoned.
	if err := ctx.Err(); err != nil {
		_ = os.Remove(tmp)
		return "", 0, "", err
	}

	if err := os.Rename(tmp, absPath); err != nil {
		_ = os.Remove(tmp)
		return "", 0, "", err
	}

	checksum := hex.EncodeToString(hasher.Sum(nil))
	return absPath, n, checksum, nil
}

// resolve maps a key to a path below root, rejecting traversal.
func (s *LocalShareTarget) resolve(key string) (string, error) {
	clean := path.Clean("/" + key)
	if clean == "/" || strings.HasSuffix(clean, ".part") {
		return "", ErrSharedFileNotFound
	}
	return filepath.Join(s.root, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}

// Open returns the path of a shared file that exists and has not expired.
func (s *LocalShareTarget) Open(key string) (string, error) {
	absPath, err := s.resolve(key)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(absPath)
	if err != nil || info.IsDir() {
		return "", ErrSharedFileNotFound
	}
	if s.ttl > 0 && s.now().Sub(info.ModTime()) > s.ttl {
		return "", ErrSharedFileNotFound
	}
	return absPath, nil
}

// ServeFile serves a shared file as a download with HTTP range support.
// Signed targets require the link's token query parameter.
func (s *LocalShareTarget) ServeFile(w http.ResponseWriter, req *http.Request, key string) error {
	if s.secret != "" {
		if err := jwt.ValidateShareToken(req.URL.Query().Get("token"), s.secret, key); err != nil {
			return ErrShareLinkInvalid
		}
	}
	absPath, err := s.Open(key)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(absPath)))
	http.ServeFile(w, req, absPath)
	return nil
}

// CleanupExpired removes shared files older than the TTL.
func (s *LocalShareTarget) CleanupExpired() (int, error) {
	if s.ttl <= 0 {
		return 0, nil
	}
	cutoff := s.now().Add(-s.ttl)
	removed := 0
	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(p); err == nil {
				removed++
				if dir := filepath.Dir(p); dir != s.root {
					_ = os.Remove(dir) // fails unless empty
				}
			}
		}
		return nil
	})
	return removed, err
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
