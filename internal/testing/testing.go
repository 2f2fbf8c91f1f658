// package testing contains shared testing utilities
package testing

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/desertthunder/toptracks/internal/shared"
)

const (
	ClientID     = "test-client-id"
	ClientSecret = "test-client-secret"
	RedirectURI  = "http://127.0.0.1:3000/callback"
	ValidCode    = "valid-code"
)

// FakeSpotify is an httptest server standing in for accounts.spotify.com and api.spotify.com.
//
// Exchanges of [ValidCode] issue access tokens "access-N" with refresh token "refresh-token".
// Refreshes issue "refreshed-N" and omit the refresh token, as Spotify usually does.
type FakeSpotify struct {
	Server *httptest.Server

	// ExpiresIn is the lifetime, in seconds, of tokens issued by exchange.
	ExpiresIn atomic.Int32
	// TopTracks is how many tracks the fake user has.
	TopTracks atomic.Int32
	// FailTokenEndpoint makes every token request fail with a server error.
	FailTokenEndpoint atomic.Bool

	ExchangeCalls atomic.Int32
	RefreshCalls  atomic.Int32
	APICalls      atomic.Int32

	mu       sync.Mutex
	issued   map[string]bool
	topQuery url.Values
	seq      int
}

// NewFakeSpotify starts a [FakeSpotify] that is closed when the test ends.
func NewFakeSpotify(t *testing.T) *FakeSpotify {
	t.Helper()

	f := &FakeSpotify{issued: map[string]bool{}}
	f.ExpiresIn.Store(3600)
	f.TopTracks.Store(8)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/token", f.token)
	mux.HandleFunc("GET /v1/me", f.authorized(f.me))
	mux.HandleFunc("GET /v1/me/top/tracks", f.authorized(f.topTracks))

	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Server.Close)
	return f
}

// Config returns Spotify credentials pointing at the fake server.
func (f *FakeSpotify) Config() shared.SpotifyConfig {
	return shared.SpotifyConfig{
		ClientID:       ClientID,
		ClientSecret:   ClientSecret,
		RedirectURI:    RedirectURI,
		AuthURL:        f.Server.URL + "/authorize",
		TokenURL:       f.Server.URL + "/api/token",
		APIURL:         f.Server.URL + "/v1",
		TimeoutSeconds: 5,
	}
}

// TopQuery returns the query string of the last top tracks request.
func (f *FakeSpotify) TopQuery() url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.topQuery
}

// Issue registers and returns a new access token with the given prefix.
func (f *FakeSpotify) Issue(prefix string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	tok := fmt.Sprintf("%s-%d", prefix, f.seq)
	f.issued[tok] = true
	return tok
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (f *FakeSpotify) token(w http.ResponseWriter, r *http.Request) {
	if f.FailTokenEndpoint.Load() {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "server_error"})
		return
	}

	id, secret, ok := r.BasicAuth()
	if !ok || id != ClientID || secret != ClientSecret {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid_client"})
		return
	}
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_request"})
		return
	}

	switch r.PostForm.Get("grant_type") {
	case "authorization_code":
		f.ExchangeCalls.Add(1)
		if r.PostForm.Get("code") != ValidCode || r.PostForm.Get("redirect_uri") != RedirectURI {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token":  f.Issue("access"),
			"token_type":    "Bearer",
			"expires_in":    f.ExpiresIn.Load(),
			"refresh_token": "refresh-token",
			"scope":         "user-top-read",
		})
	case "refresh_token":
		f.RefreshCalls.Add(1)
		if r.PostForm.Get("refresh_token") != "refresh-token" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token": f.Issue("refreshed"),
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unsupported_grant_type"})
	}
}

func (f *FakeSpotify) authorized(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.APICalls.Add(1)

		tok := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		f.mu.Lock()
		ok := f.issued[tok]
		f.mu.Unlock()

		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]any{
				"error": map[string]any{"status": 401, "message": "Invalid access token"},
			})
			return
		}
		next(w, r)
	}
}

func (f *FakeSpotify) me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"id":            "ada",
		"display_name":  "Ada Lovelace",
		"email":         "ada@example.com",
		"country":       "GB",
		"product":       "premium",
		"followers":     map[string]any{"total": 42},
		"images":        []map[string]any{{"url": "https://i.scdn.co/image/ada", "height": 300, "width": 300}},
		"external_urls": map[string]string{"spotify": "https://open.spotify.com/user/ada"},
	})
}

func (f *FakeSpotify) topTracks(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.topQuery = r.URL.Query()
	f.mu.Unlock()

	limit := 20
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil {
		limit = l
	}

	items := []map[string]any{}
	for i := 1; i <= min(limit, int(f.TopTracks.Load())); i++ {
		items = append(items, map[string]any{
			"id":            fmt.Sprintf("track%d", i),
			"name":          fmt.Sprintf("Track %d", i),
			"duration_ms":   180000 + i*1000,
			"artists":       []map[string]any{{"id": "artist", "name": "Artist"}, {"id": "guest", "name": "Guest"}},
			"album":         map[string]any{"id": "album", "name": "Album", "images": []map[string]any{{"url": "https://i.scdn.co/image/album"}}},
			"external_urls": map[string]string{"spotify": fmt.Sprintf("https://open.spotify.com/track/track%d", i)},
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"items":  items,
		"total":  f.TopTracks.Load(),
		"limit":  limit,
		"offset": 0,
	})
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
