package server

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/brk3/habitkit/internal/logger"
	"github.com/go-chi/chi/v5"
	"golang.org/x/oauth2"
)

const callbackSessionAge = 3 * 24 * time.Hour

func (s *Server) provider(w http.ResponseWriter, r *http.Request) (string, *AuthProvider, bool) {
	id := chi.URLParam(r, "id")
	p, ok := s.authProviders[id]
	if !ok {
		http.Error(w, "unknown provider", http.StatusNotFound)
		return "", nil, false
	}
	return id, p, true
}

// safeReturn keeps post-login redirects on this host.
func safeReturn(ret string) string {
	if ret == "" {
		return "/"
	}
	if u, err := url.Parse(ret); err != nil || u.IsAbs() || u.Host != "" {
		return "/"
	}
	return ret
}

func randomString(n int, enc func([]byte) string) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return enc(b), nil
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	_, p, ok := s.provider(w, r)
	if !ok {
		return
	}

	verifier, err := randomString(48, base64.RawURLEncoding.EncodeToString)
	if err != nil {
		http.Error(w, "pkce gen failed", http.StatusInternalServerError)
		return
	}
	sum := sha256.Sum256([]byte(verifier))
	challenge := base64.RawURLEncoding.EncodeToString(sum[:])

	st, err := randomString(16, hex.EncodeToString)
	if err != nil {
		http.Error(w, "state gen failed", http.StatusInternalServerError)
		return
	}

	p.state.Put(st, authState{
		Verifier: verifier,
		Return:   safeReturn(r.URL.Query().Get("return")),
		ExpireAt: time.Now().Add(p.state.ttl),
	})

	authURL := p.oauth2.AuthCodeURL(st,
		oauth2.SetAuthURLParam("code_challenge", challenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)
	http.Redirect(w, r, authURL, http.StatusFound)
}

func (s *Server) callback(w http.ResponseWriter, r *http.Request) {
	id, p, ok := s.provider(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	st, code := q.Get("state"), q.Get("code")
	if st == "" || code == "" {
		http.Error(w, "missing state or code", http.StatusBadRequest)
		return
	}

	saved, ok := p.state.GetAndDelete(st)
	if !ok || saved.Verifier == "" {
		http.Error(w, "invalid or expired state", http.StatusBadRequest)
		return
	}

	tok, err := p.oauth2.Exchange(r.Context(), code, oauth2.SetAuthURLParam("code_verifier", saved.Verifier))
	if err != nil {
		RecordAuthEvent("login", "exchange_failed", id)
		http.Error(w, "code exchange failed", http.StatusBadGateway)
		return
	}
	rawIDToken, _ := tok.Extra("id_token").(string)
	if rawIDToken == "" {
		http.Error(w, "no id_token in response", http.StatusBadGateway)
		return
	}
	idToken, err := p.idVerifier.Verify(r.Context(), rawIDToken)
	if err != nil {
		RecordAuthEvent("login", "invalid_token", id)
		http.Error(w, "id_token invalid", http.StatusUnauthorized)
		return
	}

	if tok.RefreshToken != "" {
		var claims map[string]any
		if err := idToken.Claims(&claims); err != nil {
			logger.Error("Failed to extract claims from ID token", "error", err)
			http.Error(w, "token claims invalid", http.StatusUnauthorized)
			return
		}
		if userID := userIDFromClaims(claims); userID != "" {
			if err := s.store.PutRefreshToken(userID, tok); err != nil {
				logger.Error("Failed to store refresh token", "user_id", userID, "error", err)
			}
		}
	} else {
		logger.Debug("Provider returned no refresh token", "provider", id)
	}

	if err := s.setSessionCookie(w, id, rawIDToken, callbackSessionAge); err != nil {
		logger.Error("Failed to encode session cookie", "error", err)
		http.Error(w, "session encoding failed", http.StatusInternalServerError)
		return
	}
	RecordAuthEvent("login", "success", id)
	http.Redirect(w, r, saved.Return, http.StatusFound)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
	logger.Info("User logout completed")
	w.WriteHeader(http.StatusNoContent)
}

var loginPage = template.Must(template.New("login").Parse(`<h1>Login</h1><style>button{display:block;margin:10px 0;padding:10px 20px;}</style>
{{range .}}<form action="/auth/login/{{.ID}}"><button>{{.Name}}</button></form>
{{end}}`))

func (s *Server) simpleLogin(w http.ResponseWriter, r *http.Request) {
	type entry struct{ ID, Name string }
	entries := make([]entry, 0, len(s.authProviders))
	for id, p := range s.authProviders {
		entries = append(entries, entry{ID: id, Name: p.name})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := loginPage.Execute(w, entries); err != nil {
		logger.Error("Failed to render login page", "error", err)
	}
}

// getAPIToken echoes the "provider:jwt" session token so CLI users can
// copy it into HABITS_AUTH_TOKEN.
func (s *Server) getAPIToken(w http.ResponseWriter, r *http.Request) {
	providerID, rawIDToken := s.sessionToken(r)
	if rawIDToken == "" {
		http.Error(w, "not logged in", http.StatusUnauthorized)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprint(w, providerID+":"+rawIDToken)
}
