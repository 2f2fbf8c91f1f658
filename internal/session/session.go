// Package session keeps the Spotify token record in a signed, encrypted cookie.
//
// Each browser gets its own session; nothing is stored server side. The session holds at most two values:
// the [models.TokenRecord] under "token_info" and the pending OAuth2 state between /login and /callback.
package session

import (
	"crypto/sha256"
	"encoding/gob"
	"fmt"
	"net/http"

	"github.com/desertthunder/toptracks/internal/models"
	"github.com/desertthunder/toptracks/internal/shared"
	"github.com/gorilla/sessions"
)

const (
	tokenKey = "token_info"
	stateKey = "oauth_state"
)

func init() {
	gob.Register(&models.TokenRecord{})
}

// Options configures the session cookie.
type Options struct {
	Name   string
	MaxAge int // seconds; 0 means a browser-session cookie
	Secure bool
}

// Store reads and writes per-browser session state.
type Store struct {
	cookies *sessions.CookieStore
	name    string
}

// NewStore creates a cookie-backed [Store]. The secret signs the cookie and derives its encryption key.
func NewStore(secret string, opts Options) (*Store, error) {
	if secret == "" {
		return nil, fmt.Errorf("%w: session secret", shared.ErrMissingConfig)
	}
	if opts.Name == "" {
		opts.Name = "toptracks"
	}

	blockKey := sha256.Sum256([]byte("toptracks-session:" + secret))
	cookies := sessions.NewCookieStore([]byte(secret), blockKey[:])
	cookies.MaxAge(opts.MaxAge)
	cookies.Options.Path = "/"
	cookies.Options.HttpOnly = true
	cookies.Options.Secure = opts.Secure
	cookies.Options.SameSite = http.SameSiteLaxMode

	return &Store{cookies: cookies, name: opts.Name}, nil
}

// get returns the request's session. A cookie that fails to decode (tampered, or signed with an old secret)
// yields a fresh, empty session.
func (s *Store) get(r *http.Request) *sessions.Session {
	sess, _ := s.cookies.Get(r, s.name)
	return sess
}

// Token returns the session's token record, if any.
func (s *Store) Token(r *http.Request) (*models.TokenRecord, bool) {
	rec, ok := s.get(r).Values[tokenKey].(*models.TokenRecord)
	if !ok || rec == nil || rec.AccessToken == "" {
		return nil, false
	}
	return rec, true
}

// SaveToken stores rec as the session's token record and drops any pending OAuth2 state.
func (s *Store) SaveToken(w http.ResponseWriter, r *http.Request, rec *models.TokenRecord) error {
	sess := s.get(r)
	sess.Values[tokenKey] = rec
	delete(sess.Values, stateKey)
	return s.save(w, r, sess)
}

// State returns the pending OAuth2 state issued by /login.
func (s *Store) State(r *http.Request) string {
	state, _ := s.get(r).Values[stateKey].(string)
	return state
}

// SaveState records the OAuth2 state sent to the provider.
func (s *Store) SaveState(w http.ResponseWriter, r *http.Request, state string) error {
	sess := s.get(r)
	sess.Values[stateKey] = state
	return s.save(w, r, sess)
}

// ClearState drops the pending OAuth2 state.
func (s *Store) ClearState(w http.ResponseWriter, r *http.Request) error {
	sess := s.get(r)
	if _, ok := sess.Values[stateKey]; !ok {
		return nil
	}
	delete(sess.Values, stateKey)
	return s.save(w, r, sess)
}

// Clear empties the session and tells the browser to delete the cookie.
func (s *Store) Clear(w http.ResponseWriter, r *http.Request) error {
	sess := s.get(r)
	sess.Values = make(map[any]any)
	sess.Options.MaxAge = -1
	return s.save(w, r, sess)
}

func (s *Store) save(w http.ResponseWriter, r *http.Request, sess *sessions.Session) error {
	if err := sess.Save(r, w); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}
