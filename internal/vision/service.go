package vision

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"go.uber.org/zap"
)

// Recognizer turns image bytes into a recognition guess.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte, mimeType string) (Recognition, error)
}

// Service puts a result cache in front of a Recognizer. Identical images are
// only sent to the backend once per cache lifetime.
type Service struct {
	backend Recognizer
	cache   Cache
	log     *zap.Logger
}

// NewService creates a caching recognizer.
func NewService(backend Recognizer, cache Cache, log *zap.Logger) *Service {
	return &Service{backend: backend, cache: cache, log: log}
}

// Digest is the cache key of an image.
func Digest(image []byte) string {
	sum := sha256.Sum256(image)
	return hex.EncodeToString(sum[:])
}

// Recognize returns the cached result for the image or asks the backend.
// Cache failures are logged and never fail the call.
func (s *Service) Recognize(ctx context.Context, image []byte, mimeType string) (Recognition, error) {
	key := Digest(image)

	if rec, found, err := s.cache.Get(ctx, key); err != nil {
		s.log.Warn("recognition cache read failed", zap.Error(err))
	} else if found {
		return rec, nil
	}

	rec, err := s.backend.Recognize(ctx, image, mimeType)
	if err != nil {
		return Recognition{}, err
	}

	if err := s.cache.Set(ctx, key, rec); err != nil {
		s.log.Warn("recognition cache write failed", zap.Error(err))
	}
	return rec, nil
}
