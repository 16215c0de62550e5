package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/plsfixthx/annotator/internal/config"
	"github.com/plsfixthx/annotator/internal/export"
)

var (
	// ErrShareUnsupported means no share target is available; callers fall
	// back to a plain download.
	ErrShareUnsupported = errors.New("sharing is not supported")
	// ErrShareCancelled means the share was abandoned by the user and is
	// not a failure.
	ErrShareCancelled = errors.New("share cancelled")
)

// SharedFile is a published export.
type SharedFile struct {
	URL       string    `json:"url"`
	Key       string    `json:"key"`
	Name      string    `json:"name"`
	ExpiresAt time.Time `json:"expires_at"`
	QRCode    []byte    `json:"qr_code,omitempty"` // PNG encoding of URL
}

// ShareTarget publishes a file and returns where it can be fetched.
type ShareTarget interface {
	Share(ctx context.Context, name, contentType string, data []byte) (*SharedFile, error)
}

type unsupportedTarget struct{}

func (unsupportedTarget) Share(context.Context, string, string, []byte) (*SharedFile, error) {
	return nil, ErrShareUnsupported
}

// ShareService publishes export files through the configured target and
// attaches a QR code of the resulting link.
type ShareService struct {
	target ShareTarget
	local  *LocalShareTarget
	qr     *QRService
}

func NewShareService(cfg *config.Config) (*ShareService, error) {
	s := &ShareService{qr: NewQRService()}
	switch cfg.ShareBackend {
	case "local", "":
		local, err := NewLocalShareTarget(cfg.ShareLocalPath, cfg.SharePublicURL, cfg.ShareTTL)
		if err != nil {
			return nil, err
		}
		local.WithLinkSecret(cfg.ShareLinkSecret)
		s.target, s.local = local, local
	case "s3":
		remote, err := NewS3ShareTarget(cfg)
		if err != nil {
			return nil, err
		}
		s.target = remote
	case "none":
		s.target = unsupportedTarget{}
	default:
		return nil, fmt.Errorf("unknown share backend %q", cfg.ShareBackend)
	}
	return s, nil
}

// NewShareServiceWithTarget wraps an existing target.
func NewShareServiceWithTarget(target ShareTarget) *ShareService {
	s := &ShareService{target: target, qr: NewQRService()}
	if local, ok := target.(*LocalShareTarget); ok {
		s.local = local
	}
	return s
}

// Local returns the local target, or nil when sharing goes elsewhere.
func (s *ShareService) Local() *LocalShareTarget { return s.local }

// Share publishes f. Cancellation by the caller is reported as
// ErrShareCancelled.
func (s *ShareService) Share(ctx context.Context, f export.File) (*SharedFile, error) {
	shared, err := s.target.Share(ctx, f.Name, f.ContentType, f.Data)
	if err != nil {
		switch {
		case errors.Is(err, ErrShareUnsupported):
			return nil, err
		case errors.Is(err, ErrShareCancelled), errors.Is(err, context.Canceled):
			log.Printf("[share] %s: cancelled", f.Name)
			return nil, ErrShareCancelled
		}
		log.Printf("[share] %s: %v", f.Name, err)
		return nil, fmt.Errorf("share %s: %w", f.Name, err)
	}
	if shared.Name == "" {
		shared.Name = f.Name
	}
	qr, err := s.qr.Encode(shared.URL)
	if err != nil {
		// The link works without its QR code.
		log.Printf("[share] qr code for %s: %v", shared.Key, err)
	} else {
		shared.QRCode = qr
	}
	log.Printf("[share] %s published as %s", f.Name, shared.Key)
	return shared, nil
}
