package server

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/brk3/habitkit/internal/config"
	"github.com/brk3/habitkit/internal/logger"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gorilla/securecookie"
	"golang.org/x/oauth2"
)

const (
	sessionCookieName = "session"
	sessionMaxAge     = 24 * time.Hour
	loginStateTTL     = 5 * time.Minute
	// apiKeyPrefix marks bearer tokens that are API keys rather than
	// provider-prefixed ID tokens. Only hab_live_ keys are issued.
	apiKeyPrefix = "hab_"
)

type userCtxKey struct{}

type User struct {
	Subject string
	Email   string
	UserID  string
	Claims  map[string]any
}

// AuthProvider is one configured OIDC issuer.
type AuthProvider struct {
	name       string
	oauth2     *oauth2.Config
	oidcProv   *oidc.Provider
	idVerifier *oidc.IDTokenVerifier
	state      *StateStore
}

// StateStore holds in-flight login attempts keyed by OAuth state.
type StateStore struct {
	ttl time.Duration
	mu  sync.Mutex
	m   map[string]authState
}

type authState struct {
	Verifier string
	Return   string
	ExpireAt time.Time
}

func NewStateStore(ttl time.Duration) *StateStore {
	s := &StateStore{ttl: ttl, m: make(map[string]authState)}
	go func() { // janitor
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			s.expire(time.Now())
		}
	}()
	return s
}

func (s *StateStore) expire(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range s.m {
		if now.After(v.ExpireAt) {
			delete(s.m, k)
		}
	}
}

func (s *StateStore) Put(key string, v authState) {
	s.mu.Lock()
	s.m[key] = v
	s.mu.Unlock()
}

// GetAndDelete consumes a state entry. Expired entries are dropped and
// reported as missing.
func (s *StateStore) GetAndDelete(key string) (authState, bool) {
	s.mu.Lock()
	v, ok := s.m[key]
	delete(s.m, key)
	s.mu.Unlock()
	if !ok || time.Now().After(v.ExpireAt) {
		return authState{}, false
	}
	return v, true
}

func ConfigureOIDCProviders(cfg *config.Config) (map[string]*AuthProvider, *securecookie.SecureCookie, error) {
	logger.Info("Configuring OIDC providers", "count", len(cfg.OIDCProviders))

	hashKey := securecookie.GenerateRandomKey(64)
	blockKey := securecookie.GenerateRandomKey(32)
	if hashKey == nil || blockKey == nil {
		return nil, nil, errors.New("failed to generate secure cookie keys")
	}
	sessionCookie := securecookie.New(hashKey, blockKey)
	sessionCookie.MaxAge(int(sessionMaxAge.Seconds()))

	providers := make(map[string]*AuthProvider, len(cfg.OIDCProviders))
	for _, p := range cfg.OIDCProviders {
		logger.Debug("Setting up OIDC provider", "id", p.Id, "name", p.Name, "issuer", p.IssuerURL)
		prov, err := oidc.NewProvider(context.Background(), p.IssuerURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create OIDC provider %q: %w", p.Id, err)
		}

		scopes := p.Scopes
		if len(scopes) == 0 {
			scopes = []string{oidc.ScopeOpenID, "email", oidc.ScopeOfflineAccess}
		}
		providers[p.Id] = &AuthProvider{
			name: p.Name,
			oauth2: &oauth2.Config{
				ClientID:     p.ClientID,
				ClientSecret: p.ClientSecret,
				Endpoint:     prov.Endpoint(),
				RedirectURL:  p.RedirectURL,
				Scopes:       scopes,
			},
			oidcProv:   prov,
			idVerifier: prov.Verifier(&oidc.Config{ClientID: p.ClientID}),
			state:      NewStateStore(loginStateTTL),
		}
		logger.Info("OIDC provider configured", "id", p.Id, "name", p.Name)
	}

	return providers, sessionCookie, nil
}

// authMiddleware resolves the caller from, in order, the session cookie,
// a hab_ API key, or a "provider:jwt" bearer token. Expired ID tokens are
// refreshed from the stored oauth2 token when one exists.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		providerID, rawIDToken := s.sessionToken(r)

		if rawIDToken == "" {
			if bearer, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
				if strings.HasPrefix(bearer, apiKeyPrefix) {
					user, ok := s.authenticateAPIKey(bearer)
					if !ok {
						RecordAuthEvent("verification", "failed", "apikey")
						s.handleAuthFailure(w, r, false)
						return
					}
					RecordAuthEvent("verification", "success", "apikey")
					next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userCtxKey{}, user)))
					return
				}
				if pID, tok, err := parseProviderToken(bearer); err == nil {
					if _, known := s.authProviders[pID]; known {
						providerID, rawIDToken = pID, tok
					} else {
						logger.Debug("Unknown provider in bearer token", "provider", pID)
					}
				} else {
					logger.Debug("Failed to parse bearer token", "error", err)
				}
			}
		}

		if rawIDToken == "" || providerID == "" {
			RecordAuthEvent("verification", "missing_token", "unknown")
			s.handleAuthFailure(w, r, false)
			return
		}

		idTok, ok := s.verifyOrRefresh(w, r, providerID, rawIDToken)
		if !ok {
			s.handleAuthFailure(w, r, true)
			return
		}

		var claims map[string]any
		if err := idTok.Claims(&claims); err != nil {
			logger.Error("Failed to extract claims from token", "error", err)
			s.handleAuthFailure(w, r, true)
			return
		}
		u := &User{
			Subject: idTok.Subject,
			Email:   strClaim(claims, "email"),
			UserID:  userIDFromClaims(claims),
			Claims:  claims,
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userCtxKey{}, u)))
	})
}

func (s *Server) sessionToken(r *http.Request) (providerID, rawIDToken string) {
	c, err := r.Cookie(sessionCookieName)
	if err != nil {
		return "", ""
	}
	var prefixed string
	if err := s.sessionCookie.Decode(sessionCookieName, c.Value, &prefixed); err != nil {
		logger.Debug("Failed to decode session cookie", "error", err)
		return "", ""
	}
	pID, tok, err := parseProviderToken(prefixed)
	if err != nil {
		logger.Debug("Failed to parse session token", "error", err)
		return "", ""
	}
	return pID, tok
}

// verifyOrRefresh verifies rawIDToken and, failing that, tries a refresh.
// A refreshed token is written back to the session cookie.
func (s *Server) verifyOrRefresh(w http.ResponseWriter, r *http.Request, providerID, rawIDToken string) (*oidc.IDToken, bool) {
	prov := s.authProviders[providerID]
	idTok, err := prov.idVerifier.Verify(r.Context(), rawIDToken)
	if err == nil {
		RecordAuthEvent("verification", "success", providerID)
		return idTok, true
	}
	logger.Debug("ID token verification failed, attempting refresh", "provider", providerID, "error", err)
	RecordAuthEvent("verification", "failed", providerID)

	fresh, ok := s.tryRefreshToken(r.Context(), providerID, rawIDToken)
	if !ok {
		RecordAuthEvent("refresh", "failed", providerID)
		return nil, false
	}
	idTok, err = prov.idVerifier.Verify(r.Context(), fresh)
	if err != nil {
		logger.Debug("Refreshed ID token failed verification", "error", err)
		RecordAuthEvent("refresh", "verification_failed", providerID)
		return nil, false
	}
	if err := s.setSessionCookie(w, providerID, fresh, sessionMaxAge); err != nil {
		logger.Error("Failed to encode refreshed session cookie", "error", err)
		return nil, false
	}
	RecordAuthEvent("refresh", "success", providerID)
	return idTok, true
}

func (s *Server) setSessionCookie(w http.ResponseWriter, providerID, rawIDToken string, maxAge time.Duration) error {
	val, err := s.sessionCookie.Encode(sessionCookieName, providerID+":"+rawIDToken)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    val,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(maxAge.Seconds()),
	})
	return nil
}

// parseProviderToken splits a "provider:jwt" token.
func parseProviderToken(token string) (providerID, jwt string, err error) {
	if token == "" {
		return "", "", errors.New("empty token")
	}
	providerID, jwt, ok := strings.Cut(token, ":")
	switch {
	case !ok:
		return "", "", errors.New("invalid token format: expected 'provider:jwt'")
	case providerID == "":
		return "", "", errors.New("empty provider ID")
	case jwt == "":
		return "", "", errors.New("empty JWT token")
	}
	return providerID, jwt, nil
}

func strClaim(m map[string]any, k string) string {
	if v, ok := m[k].(string); ok {
		return v
	}
	return ""
}

// userIDFromClaims derives a stable user id from the issuer and subject.
func userIDFromClaims(claims map[string]any) string {
	iss, sub := strClaim(claims, "iss"), strClaim(claims, "sub")
	if iss == "" || sub == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(iss + "|" + sub))
	return fmt.Sprintf("user-%x", sum[:8])
}

// userIDFromContext returns the caller's user id. With auth disabled every
// request belongs to the single "anonymous" user.
func userIDFromContext(authEnabled bool, r *http.Request) string {
	if !authEnabled {
		return "anonymous"
	}
	user, ok := r.Context().Value(userCtxKey{}).(*User)
	if !ok {
		logger.Error("No user in context")
		return ""
	}
	return user.UserID
}

// parseTokenClaims reads the claims of a possibly expired ID token.
func (s *Server) parseTokenClaims(ctx context.Context, providerID, token string) (map[string]any, error) {
	provider := s.authProviders[providerID]
	verifier := provider.oidcProv.Verifier(&oidc.Config{
		ClientID:        provider.oauth2.ClientID,
		SkipExpiryCheck: true,
	})
	idTok, err := verifier.Verify(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to parse expired token: %w", err)
	}
	var claims map[string]any
	err = idTok.Claims(&claims)
	return claims, err
}

func (s *Server) handleAuthFailure(w http.ResponseWriter, r *http.Request, clearCookie bool) {
	if clearCookie {
		http.SetCookie(w, &http.Cookie{Name: sessionCookieName, Value: "", Path: "/", MaxAge: -1})
	}

	accept := r.Header.Get("Accept")
	if r.Method == http.MethodGet && (accept == "" || strings.Contains(accept, "text/html")) {
		http.Redirect(w, r, "/auth/login", http.StatusFound)
		return
	}
	if clearCookie {
		w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
	} else {
		w.Header().Set("WWW-Authenticate", `Bearer realm="habits"`)
	}
	http.Error(w, "unauthorized", http.StatusUnauthorized)
}

// tryRefreshToken exchanges the user's stored refresh token for a new ID
// token. A refresh token the provider rejects is forgotten.
func (s *Server) tryRefreshToken(ctx context.Context, providerID, expiredIDToken string) (string, bool) {
	claims, err := s.parseTokenClaims(ctx, providerID, expiredIDToken)
	if err != nil {
		logger.Debug("Failed to parse token claims", "error", err)
		return "", false
	}
	userID := userIDFromClaims(claims)
	if userID == "" {
		return "", false
	}

	stored, found, err := s.store.GetRefreshToken(userID)
	if err != nil {
		logger.Error("Failed to retrieve refresh token", "user_id", userID, "error", err)
		return "", false
	}
	if !found {
		logger.Debug("No stored token for user", "user_id", userID)
		return "", false
	}

	fresh, err := s.authProviders[providerID].oauth2.TokenSource(ctx, stored).Token()
	if err != nil {
		logger.Debug("Token refresh failed", "user_id", userID, "error", err)
		if err := s.store.DeleteRefreshToken(userID); err != nil {
			logger.Error("Failed to delete refresh token", "user_id", userID, "error", err)
		}
		return "", false
	}
	if err := s.store.PutRefreshToken(userID, fresh); err != nil {
		logger.Error("Failed to persist refresh token", "user_id", userID, "error", err)
	}

	newIDToken, ok := fresh.Extra("id_token").(string)
	if !ok || newIDToken == "" {
		logger.Debug("No id_token in refreshed token", "user_id", userID)
		return "", false
	}
	logger.Debug("Refreshed ID token", "user_id", userID, "expiry", fresh.Expiry)
	return newIDToken, true
}

// authenticateAPIKey maps an API key to its owner. Keys carry no email or
// OIDC subject, so the subject records a hash prefix for logging.
func (s *Server) authenticateAPIKey(apiKey string) (*User, bool) {
	keyHash := hashAPIKey(apiKey)
	userID, found, err := s.store.GetAPIKey(keyHash)
	if err != nil {
		logger.Error("Failed to look up API key", "error", err)
		return nil, false
	}
	if !found {
		logger.Debug("API key not found", "key_hash", shortHash(keyHash))
		return nil, false
	}
	return &User{
		UserID:  userID,
		Subject: "apikey:" + shortHash(keyHash),
		Claims:  map[string]any{"auth_method": "api_key"},
	}, true
}
