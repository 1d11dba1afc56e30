package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "hireflow/internal/common/errors"
	"hireflow/internal/common/logger"
)

var testSecret = []byte("test-secret")

// ==========================
// Keycloak
// ==========================

type tokenServer struct {
	calls     atomic.Int32
	expiresIn atomic.Int32
	fail      atomic.Bool
}

func (s *tokenServer) start(t *testing.T) string {
	t.Helper()
	s.expiresIn.Store(3600)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.calls.Add(1)
		assert.Equal(t, "/realms/hireflow/protocol/openid-connect/token", r.URL.Path)
		if s.fail.Load() {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"invalid_client"}`))
			return
		}
		tok, _ := IssueToken("service-account-1", []byte("keycloak-key"), time.Now().Add(time.Hour).Unix())
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": tok,
			"token_type":   "bearer",
			"expires_in":   s.expiresIn.Load(),
		})
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

type eventLog struct {
	mu     sync.Mutex
	events []EventType
}

func (l *eventLog) listen(ev Event) {
	l.mu.Lock()
	l.events = append(l.events, ev.Type)
	l.mu.Unlock()
}

func (l *eventLog) types() []EventType {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]EventType(nil), l.events...)
}

func TestKeycloak_SignInAndCurrentSession(t *testing.T) {
	ts := &tokenServer{}
	kc := NewKeycloak(ts.start(t)+"/", "hireflow", "hireflow-api", "secret", logger.NewTestLogger(t))
	log := &eventLog{}
	kc.Subscribe(log.listen)

	none, err := kc.CurrentSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, none)

	s, err := kc.SignIn(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "service-account-1", s.UserID)
	assert.NotEmpty(t, s.AccessToken)

	again, err := kc.CurrentSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, s.AccessToken, again.AccessToken)
	assert.Equal(t, int32(1), ts.calls.Load())
	assert.Equal(t, []EventType{EventSignedIn}, log.types())
}

func TestKeycloak_RefreshesExpiredToken(t *testing.T) {
	ts := &tokenServer{}
	url := ts.start(t)
	ts.expiresIn.Store(1) // inside oauth2's expiry margin, so never valid
	kc := NewKeycloak(url, "hireflow", "hireflow-api", "secret", logger.NewNoOpLogger())
	log := &eventLog{}
	kc.Subscribe(log.listen)

	_, err := kc.SignIn(context.Background())
	require.NoError(t, err)
	s, err := kc.CurrentSession(context.Background())
	require.NoError(t, err)
	require.NotNil(t, s)

	assert.Equal(t, int32(2), ts.calls.Load())
	assert.Equal(t, []EventType{EventSignedIn, EventRefreshed}, log.types())
}

func TestKeycloak_FailedRefreshSignsOut(t *testing.T) {
	ts := &tokenServer{}
	url := ts.start(t)
	ts.expiresIn.Store(1)
	kc := NewKeycloak(url, "hireflow", "hireflow-api", "secret", logger.NewNoOpLogger())
	log := &eventLog{}
	kc.Subscribe(log.listen)

	_, err := kc.SignIn(context.Background())
	require.NoError(t, err)
	ts.fail.Store(true)

	s, err := kc.CurrentSession(context.Background())
	assert.Nil(t, s)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeAuthenticationFailed))
	assert.Equal(t, []EventType{EventSignedIn, EventSignedOut}, log.types())

	s, err = kc.CurrentSession(context.Background())
	assert.Nil(t, s)
	assert.NoError(t, err)
}

func TestKeycloak_SignInFailure(t *testing.T) {
	ts := &tokenServer{}
	url := ts.start(t)
	ts.fail.Store(true)
	kc := NewKeycloak(url, "hireflow", "hireflow-api", "wrong", logger.NewNoOpLogger())

	_, err := kc.SignIn(context.Background())

	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeAuthenticationFailed))
}

func TestKeycloak_SignOutAndUnsubscribe(t *testing.T) {
	ts := &tokenServer{}
	kc := NewKeycloak(ts.start(t), "hireflow", "hireflow-api", "secret", logger.NewNoOpLogger())
	log := &eventLog{}
	sub := kc.Subscribe(log.listen)

	_, err := kc.SignIn(context.Background())
	require.NoError(t, err)
	require.NoError(t, kc.SignOut(context.Background()))
	require.NoError(t, kc.SignOut(context.Background()))
	assert.Equal(t, []EventType{EventSignedIn, EventSignedOut}, log.types())

	sub.Unsubscribe()
	sub.Unsubscribe()
	_, err = kc.SignIn(context.Background())
	require.NoError(t, err)
	assert.Len(t, log.types(), 2)
}

// ==========================
// Watcher
// ==========================

type fakeSource struct {
	calls   atomic.Int32
	present atomic.Bool
}

func (f *fakeSource) CurrentSession(ctx context.Context) (*Session, error) {
	f.calls.Add(1)
	if f.present.Load() {
		return &Session{UserID: "user-1"}, nil
	}
	return nil, nil
}

func TestWatcher_EmitsSignedOutOnce(t *testing.T) {
	src := &fakeSource{}
	src.present.Store(true)
	var signedOut atomic.Int32
	w := NewWatcher(src, 10*time.Millisecond, func() { signedOut.Add(1) }, logger.NewTestLogger(t))

	w.Start(context.Background())
	defer w.Stop()
	assert.Equal(t, int32(1), src.calls.Load())

	src.present.Store(false)
	require.Eventually(t, func() bool { return signedOut.Load() == 1 }, 2*time.Second, 5*time.Millisecond)

	calls := src.calls.Load()
	require.Eventually(t, func() bool { return src.calls.Load() > calls+2 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), signedOut.Load())
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	src := &fakeSource{}
	w := NewWatcher(src, 5*time.Millisecond, nil, logger.NewNoOpLogger())

	w.Start(context.Background())
	require.Eventually(t, func() bool { return src.calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)

	w.Stop()
	w.Stop()
	after := src.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, src.calls.Load())
}

func TestWatcher_StopWithoutStart(t *testing.T) {
	w := NewWatcher(&fakeSource{}, time.Second, nil, logger.NewNoOpLogger())
	assert.NotPanics(t, w.Stop)
}

// ==========================
// Middleware
// ==========================

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware(NewVerifier(testSecret, nil)))
	r.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"userId": UserID(c)})
	})
	return r
}

func TestMiddleware(t *testing.T) {
	valid, err := IssueToken("user-42", testSecret, time.Now().Add(time.Hour).Unix())
	require.NoError(t, err)
	expired, err := IssueToken("user-42", testSecret, time.Now().Add(-time.Hour).Unix())
	require.NoError(t, err)
	foreign, err := IssueToken("user-42", []byte("other"), time.Now().Add(time.Hour).Unix())
	require.NoError(t, err)
	noSub, err := IssueToken("", testSecret, time.Now().Add(time.Hour).Unix())
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		code   int
	}{
		{"valid token", "Bearer " + valid, http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"expired", "Bearer " + expired, http.StatusUnauthorized},
		{"wrong key", "Bearer " + foreign, http.StatusUnauthorized},
		{"no subject", "Bearer " + noSub, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			newRouter().ServeHTTP(rec, req)

			assert.Equal(t, tt.code, rec.Code)
			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			if tt.code == http.StatusOK {
				assert.Equal(t, "user-42", body["userId"])
			} else {
				errBody := body["error"].(map[string]interface{})
				assert.Equal(t, string(apperrors.ErrCodeAuthenticationFailed), errBody["code"])
			}
		})
	}
}
