package server

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"slices"

	"github.com/brk3/habitkit/internal/logger"
	"github.com/go-chi/chi/v5"
)

const liveKeyPrefix = apiKeyPrefix + "live_"

type APIKeyResponse struct {
	APIKey string `json:"api_key"`
}

type APIKeyInfo struct {
	Hash string `json:"hash"`
}

type APIKeyListResponse struct {
	Keys []APIKeyInfo `json:"keys"`
}

// hashAPIKey is the form a key is stored and looked up under.
func hashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// shortHash is enough of a key hash to tell keys apart in logs.
func shortHash(hash string) string {
	if len(hash) <= 16 {
		return hash
	}
	return hash[:16] + "..."
}

// generateAPIKey issues a new key for the caller. Only its hash is stored,
// so the plaintext is returned exactly once.
func (s *Server) generateAPIKey(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(s.cfg.AuthEnabled, r)
	if userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	raw := make([]byte, 24)
	if _, err := rand.Read(raw); err != nil {
		logger.Error("Failed to generate API key", "error", err)
		http.Error(w, `{"error":"key generation failed"}`, http.StatusInternalServerError)
		return
	}
	apiKey := liveKeyPrefix + hex.EncodeToString(raw)
	keyHash := hashAPIKey(apiKey)

	if err := s.store.PutAPIKey(keyHash, userID); err != nil {
		logger.Error("Failed to store API key", "user_id", userID, "error", err)
		http.Error(w, `{"error":"database write failed"}`, http.StatusInternalServerError)
		return
	}
	RecordAuthEvent("apikey", "created", "apikey")
	logger.Info("API key created", "user_id", userID, "key_hash", shortHash(keyHash))
	respond(w, http.StatusOK, APIKeyResponse{APIKey: apiKey}, "user_id", userID)
}

func (s *Server) listAPIKeys(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(s.cfg.AuthEnabled, r)
	if userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	hashes, err := s.store.ListAPIKeyHashes(userID)
	if err != nil {
		logger.Error("Failed to list API keys", "user_id", userID, "error", err)
		http.Error(w, `{"error":"storage error"}`, http.StatusInternalServerError)
		return
	}
	resp := APIKeyListResponse{Keys: make([]APIKeyInfo, 0, len(hashes))}
	for _, h := range hashes {
		resp.Keys = append(resp.Keys, APIKeyInfo{Hash: h})
	}
	respond(w, http.StatusOK, resp, "user_id", userID)
}

// deleteAPIKey revokes one of the caller's keys by its full hash. Keys
// owned by someone else are reported as missing.
func (s *Server) deleteAPIKey(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(s.cfg.AuthEnabled, r)
	if userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	keyHash := chi.URLParam(r, "hash")
	hashes, err := s.store.ListAPIKeyHashes(userID)
	if err != nil {
		logger.Error("Failed to list API keys", "user_id", userID, "error", err)
		http.Error(w, `{"error":"storage error"}`, http.StatusInternalServerError)
		return
	}
	if !slices.Contains(hashes, keyHash) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if err := s.store.DeleteAPIKey(keyHash); err != nil {
		writeEngineError(w, err, "Failed to delete API key", "user_id", userID)
		return
	}
	RecordAuthEvent("apikey", "revoked", "apikey")
	w.WriteHeader(http.StatusNoContent)
}
