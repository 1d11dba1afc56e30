// Package auth provides the Keycloak session provider, a watcher that
// re-checks it on a ticker, and the bearer-token middleware for the API.
package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dgrijalva/jwt-go"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"hireflow/internal/common/errors"
	"hireflow/internal/common/logger"
)

type EventType string

const (
	EventSignedIn  EventType = "signed_in"
	EventRefreshed EventType = "refreshed"
	EventSignedOut EventType = "signed_out"
)

// Session is the current authenticated principal.
type Session struct {
	UserID      string    `json:"userId"`
	AccessToken string    `json:"-"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

type Event struct {
	Type    EventType
	Session *Session
}

type Listener func(Event)

// Subscription detaches a listener. Unsubscribe may be called more than once.
type Subscription struct {
	once   sync.Once
	cancel func()
}

func (s *Subscription) Unsubscribe() {
	s.once.Do(s.cancel)
}

// Keycloak holds a client-credentials session against one realm.
type Keycloak struct {
	cfg     clientcredentials.Config
	baseURL string
	realm   string
	logger  logger.Logger

	mu        sync.Mutex
	token     *oauth2.Token
	session   *Session
	listeners map[int]Listener
	nextID    int
}

// TokenURL is the realm's OpenID Connect token endpoint.
func TokenURL(baseURL, realm string) string {
	return fmt.Sprintf("%s/realms/%s/protocol/openid-connect/token", strings.TrimSuffix(baseURL, "/"), realm)
}

func NewKeycloak(baseURL, realm, clientID, clientSecret string, log logger.Logger) *Keycloak {
	return &Keycloak{
		cfg: clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     TokenURL(baseURL, realm),
		},
		baseURL:   baseURL,
		realm:     realm,
		logger:    log.WithFields(map[string]interface{}{"component": "keycloak", "realm": realm}),
		listeners: make(map[int]Listener),
	}
}

// SignIn fetches a fresh token and emits signed-in.
func (k *Keycloak) SignIn(ctx context.Context) (*Session, error) {
	tok, err := k.cfg.Token(ctx)
	if err != nil {
		return nil, errors.NewAuthenticationError(err.Error())
	}

	k.mu.Lock()
	k.token = tok
	k.session = k.sessionFrom(tok)
	s := *k.session
	k.mu.Unlock()

	k.logger.Info("session established", map[string]interface{}{"userId": s.UserID})
	k.emit(Event{Type: EventSignedIn, Session: &s})
	return &s, nil
}

// CurrentSession returns the live session, refreshing an expired token. It
// returns nil without error when nobody is signed in. A failed refresh ends
// the session and emits signed-out.
func (k *Keycloak) CurrentSession(ctx context.Context) (*Session, error) {
	k.mu.Lock()
	if k.session == nil {
		k.mu.Unlock()
		return nil, nil
	}
	if k.token.Valid() {
		s := *k.session
		k.mu.Unlock()
		return &s, nil
	}
	k.mu.Unlock()

	tok, err := k.cfg.Token(ctx)
	if err != nil {
		k.logger.Warn("session refresh failed", map[string]interface{}{"error": err.Error()})
		k.clear()
		return nil, errors.NewAuthenticationError(err.Error())
	}

	k.mu.Lock()
	k.token = tok
	k.session = k.sessionFrom(tok)
	s := *k.session
	k.mu.Unlock()

	k.emit(Event{Type: EventRefreshed, Session: &s})
	return &s, nil
}

// SignOut drops the session. Signing out twice emits one event.
func (k *Keycloak) SignOut(ctx context.Context) error {
	k.clear()
	return nil
}

func (k *Keycloak) clear() {
	k.mu.Lock()
	had := k.session != nil
	k.token = nil
	k.session = nil
	k.mu.Unlock()

	if had {
		k.emit(Event{Type: EventSignedOut})
	}
}

// Token implements oauth2.TokenSource over the live session, signing in
// when there is none.
func (k *Keycloak) Token() (*oauth2.Token, error) {
	ctx := context.Background()
	s, err := k.CurrentSession(ctx)
	if err != nil {
		return nil, err
	}
	if s == nil {
		if s, err = k.SignIn(ctx); err != nil {
			return nil, err
		}
	}
	return &oauth2.Token{AccessToken: s.AccessToken, TokenType: "Bearer", Expiry: s.ExpiresAt}, nil
}

// HTTPClient sends requests with the session's access token.
func (k *Keycloak) HTTPClient(ctx context.Context) *http.Client {
	return oauth2.NewClient(ctx, k)
}

// KeySet returns the realm's signing keys, fetched with HTTPClient.
func (k *Keycloak) KeySet(log logger.Logger) *KeySet {
	return NewKeySet(CertsURL(k.baseURL, k.realm), IssuerURL(k.baseURL, k.realm), k.HTTPClient, log)
}

// Subscribe registers l for auth state events.
func (k *Keycloak) Subscribe(l Listener) *Subscription {
	k.mu.Lock()
	id := k.nextID
	k.nextID++
	k.listeners[id] = l
	k.mu.Unlock()

	return &Subscription{cancel: func() {
		k.mu.Lock()
		delete(k.listeners, id)
		k.mu.Unlock()
	}}
}

func (k *Keycloak) emit(ev Event) {
	k.mu.Lock()
	ls := make([]Listener, 0, len(k.listeners))
	for _, l := range k.listeners {
		ls = append(ls, l)
	}
	k.mu.Unlock()

	for _, l := range ls {
		l(ev)
	}
}

// sessionFrom reads sub from the access token when it is a JWT; the
// signature is Keycloak's to check.
func (k *Keycloak) sessionFrom(tok *oauth2.Token) *Session {
	s := &Session{UserID: k.cfg.ClientID, AccessToken: tok.AccessToken, ExpiresAt: tok.Expiry}
	claims := jwt.MapClaims{}
	if _, _, err := new(jwt.Parser).ParseUnverified(tok.AccessToken, claims); err == nil {
		if sub, ok := claims["sub"].(string); ok && sub != "" {
			s.UserID = sub
		}
	}
	return s
}
