package api

import (
	"context"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"voltfox-backend/internal/device"
	"voltfox-backend/internal/store"
	"voltfox-backend/internal/vision"
)

// Recognizer identifies the device in a photo.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte, mimeType string) (vision.Recognition, error)
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store         store.Store
	devices       *device.Service
	recognizer    Recognizer
	webpush       *webpush.Options
	maxImageBytes int64
	provisioned   *cache.Cache
	log           *zap.Logger
}

// NewHandler creates a new API handler. recognizer may be nil when photo
// recognition is disabled.
func NewHandler(s store.Store, devices *device.Service, recognizer Recognizer, webpushOptions *webpush.Options, log *zap.Logger) *Handler {
	return &Handler{
		store:         s,
		devices:       devices,
		recognizer:    recognizer,
		webpush:       webpushOptions,
		maxImageBytes: 5 << 20,
		provisioned:   cache.New(10*time.Minute, 20*time.Minute),
		log:           log,
	}
}
