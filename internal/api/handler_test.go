package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"voltfox-backend/config"
	"voltfox-backend/internal/db"
	"voltfox-backend/internal/device"
	"voltfox-backend/internal/mw"
	"voltfox-backend/internal/notification"
	"voltfox-backend/internal/store"
	"voltfox-backend/internal/vision"
)

type recordingDispatcher struct {
	events []notification.Event
}

func (r *recordingDispatcher) Dispatch(ev notification.Event) bool {
	r.events = append(r.events, ev)
	return true
}

type fakeRecognizer struct {
	rec      vision.Recognition
	err      error
	mimeType string
	calls    int
}

func (f *fakeRecognizer) Recognize(_ context.Context, _ []byte, mimeType string) (vision.Recognition, error) {
	f.calls++
	f.mimeType = mimeType
	return f.rec, f.err
}

type testEnv struct {
	router     *gin.Engine
	store      store.Store
	dispatcher *recordingDispatcher
	verifier   *mw.TokenVerifier
}

type envOption func(*Deps)

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	gormDB, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.Migrate(gormDB))

	s := store.NewGormStore(gormDB)
	dispatcher := &recordingDispatcher{}
	verifier := mw.NewTokenVerifier("test-secret", "voltfox")

	deps := Deps{
		Store:    s,
		Devices:  device.NewService(s, dispatcher, zap.NewNop()),
		Verifier: verifier,
		Server:   config.ServerConfig{RateLimitPerSec: 1000, RateLimitBurst: 1000},
		Log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&deps)
	}

	return &testEnv{
		router:     NewRouter(deps),
		store:      s,
		dispatcher: dispatcher,
		verifier:   verifier,
	}
}

func withRecognizer(r Recognizer, maxImageBytes int64) envOption {
	return func(d *Deps) {
		d.Recognizer = r
		d.Vision.MaxImageBytes = maxImageBytes
	}
}

func withWebPush(publicKey string) envOption {
	return func(d *Deps) {
		d.WebPush = &webpush.Options{VAPIDPublicKey: publicKey}
	}
}

func withCache(seconds int) envOption {
	return func(d *Deps) {
		d.Server.CacheTTLSeconds = seconds
	}
}

func (e *testEnv) token(t *testing.T, userID string) string {
	t.Helper()
	token, err := e.verifier.Sign(mw.Claims{
		Email:            userID + "@example.com",
		RegisteredClaims: jwt.RegisteredClaims{Subject: userID},
	})
	require.NoError(t, err)
	return token
}

// do sends a JSON request as userID. An empty userID sends no token.
func (e *testEnv) do(t *testing.T, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = strings.NewReader(b)
		default:
			raw, err := json.Marshal(b)
			require.NoError(t, err)
			reader = bytes.NewReader(raw)
		}
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+e.token(t, userID))
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[ErrorResponse](t, w).Error.Code
}
