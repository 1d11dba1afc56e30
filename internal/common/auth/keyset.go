package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"hireflow/internal/common/logger"
)

// DefaultKeyRefreshInterval bounds how often an unknown kid may trigger a
// refetch of the realm's keys.
const DefaultKeyRefreshInterval = 30 * time.Second

// CertsURL is the realm's JWKS endpoint.
func CertsURL(baseURL, realm string) string {
	return fmt.Sprintf("%s/realms/%s/protocol/openid-connect/certs", strings.TrimSuffix(baseURL, "/"), realm)
}

// IssuerURL is the iss claim Keycloak puts in the realm's tokens.
func IssuerURL(baseURL, realm string) string {
	return fmt.Sprintf("%s/realms/%s", strings.TrimSuffix(baseURL, "/"), realm)
}

type jwk struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// KeySet caches a realm's RSA signing keys by kid.
type KeySet struct {
	certsURL string
	issuer   string
	client   func(ctx context.Context) *http.Client
	logger   logger.Logger

	minRefresh time.Duration
	now        func() time.Time

	mu        sync.Mutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
}

// NewKeySet reads keys from certsURL with the client client returns. An
// empty issuer skips the iss check.
func NewKeySet(certsURL, issuer string, client func(ctx context.Context) *http.Client, log logger.Logger) *KeySet {
	if client == nil {
		client = func(context.Context) *http.Client { return http.DefaultClient }
	}
	return &KeySet{
		certsURL:   certsURL,
		issuer:     issuer,
		client:     client,
		logger:     log.WithFields(map[string]interface{}{"component": "keyset"}),
		minRefresh: DefaultKeyRefreshInterval,
		now:        time.Now,
		keys:       map[string]*rsa.PublicKey{},
	}
}

// Issuer is the expected iss claim, or "".
func (s *KeySet) Issuer() string { return s.issuer }

// Key returns the key for kid, refetching the set when kid is unknown and
// the last fetch is older than the refresh interval.
func (s *KeySet) Key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	s.mu.Lock()
	key, ok := s.keys[kid]
	stale := s.fetchedAt.IsZero() || s.now().Sub(s.fetchedAt) >= s.minRefresh
	s.mu.Unlock()
	if ok {
		return key, nil
	}
	if !stale {
		return nil, fmt.Errorf("unknown signing key %q", kid)
	}

	if err := s.Refresh(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if key, ok := s.keys[kid]; ok {
		return key, nil
	}
	return nil, fmt.Errorf("unknown signing key %q", kid)
}

// Refresh replaces the cached keys with the realm's current set.
func (s *KeySet) Refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.certsURL, nil)
	if err != nil {
		return err
	}
	resp, err := s.client(ctx).Do(req)
	if err != nil {
		return fmt.Errorf("fetch realm keys: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch realm keys: status %d", resp.StatusCode)
	}

	var body struct {
		Keys []jwk `json:"keys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("decode realm keys: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(body.Keys))
	for _, k := range body.Keys {
		if k.Kty != "RSA" || (k.Use != "" && k.Use != "sig") {
			continue
		}
		pub, err := k.rsaKey()
		if err != nil {
			s.logger.Warn("skipping malformed realm key", map[string]interface{}{"kid": k.Kid, "error": err.Error()})
			continue
		}
		keys[k.Kid] = pub
	}

	s.mu.Lock()
	s.keys = keys
	s.fetchedAt = s.now()
	s.mu.Unlock()

	s.logger.Debug("realm keys loaded", map[string]interface{}{"count": len(keys)})
	return nil
}

// Invalidate drops the cached keys; the next lookup refetches.
func (s *KeySet) Invalidate() {
	s.mu.Lock()
	s.keys = map[string]*rsa.PublicKey{}
	s.fetchedAt = time.Time{}
	s.mu.Unlock()
}

// Follow drops the cached keys whenever the provider's session ends, so the
// next lookup is made under fresh credentials.
func (s *KeySet) Follow(k *Keycloak) *Subscription {
	return k.Subscribe(func(ev Event) {
		if ev.Type == EventSignedOut {
			s.Invalidate()
		}
	})
}

func (k jwk) rsaKey() (*rsa.PublicKey, error) {
	n, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("modulus: %w", err)
	}
	e, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("exponent: %w", err)
	}
	if len(n) == 0 || len(e) == 0 {
		return nil, fmt.Errorf("empty key material")
	}
	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(n),
		E: int(new(big.Int).SetBytes(e).Int64()),
	}, nil
}
