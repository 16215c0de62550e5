package services

import (
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// QRService renders share links as scannable codes.
type QRService struct {
	size  int
	level qrcode.RecoveryLevel
}

func NewQRService() *QRService { return &QRService{size: 256, level: qrcode.Medium} }

// Encode returns a PNG QR code for url.
func (s *QRService) Encode(url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("qr: empty url")
	}
	png, err := qrcode.Encode(url, s.level, s.size)
	if err != nil {
		return nil, fmt.Errorf("qr: %w", err)
	}
	return png, nil
}
