// Package web implements the browser-facing routes: login through Spotify, then show the user's profile and top
// tracks.
//
// # Routes
//
//	GET /         → login page, or redirect to /profile (valid token) or /login (expired token)
//	GET /login    → redirect to Spotify's authorize URL with a fresh state
//	GET /callback → verify state, exchange the code, store the token, redirect to /profile
//	GET /logout   → clear the session, redirect to /
//	GET /profile  → refresh if expired, then render the profile and top 5 short-term tracks
//
// # Session States
//
// Each request is dispatched on what the session cookie holds: no token (anonymous), a token that is still valid,
// or a token within [models.ExpiryLeeway] of its expiry. Only /profile refreshes; / sends expired sessions back
// through /login.
//
// # Errors
//
// Callback problems (provider error, state mismatch, missing code) are 400s. Failures talking to Spotify are 502s.
// Pages never show provider error bodies; the wrapped error is logged with the request id.
package web

import (
	"bytes"
	"crypto/subtle"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/toptracks/internal/models"
	"github.com/desertthunder/toptracks/internal/server"
	"github.com/desertthunder/toptracks/internal/services"
	"github.com/desertthunder/toptracks/internal/session"
	"github.com/desertthunder/toptracks/internal/shared"
)

// TopTrackLimit is how many tracks the profile page shows.
const TopTrackLimit = 5

//go:embed templates/*.html
var templateFiles embed.FS

var pages = []string{"login.html", "profile.html", "error.html"}

// Options holds the collaborators for [App].
type Options struct {
	Auth      services.Authenticator
	Libraries services.LibraryFactory
	Sessions  *session.Store
	Logger    *log.Logger
	Now       func() time.Time // defaults to time.Now
}

// App serves the web routes.
type App struct {
	auth      services.Authenticator
	libraries services.LibraryFactory
	sessions  *session.Store
	logger    *log.Logger
	now       func() time.Time
	templates map[string]*template.Template
}

// New creates an [App] and parses its templates.
func New(opts Options) (*App, error) {
	if opts.Auth == nil || opts.Libraries == nil || opts.Sessions == nil {
		return nil, fmt.Errorf("%w: web app requires auth, libraries and sessions", shared.ErrInvalidConfig)
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	funcs := template.FuncMap{"inc": func(i int) int { return i + 1 }}
	templates := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		tmpl, err := template.New(page).Funcs(funcs).ParseFS(templateFiles, "templates/base.html", "templates/"+page)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", page, err)
		}
		templates[page] = tmpl
	}

	return &App{
		auth:      opts.Auth,
		libraries: opts.Libraries,
		sessions:  opts.Sessions,
		logger:    opts.Logger,
		now:       opts.Now,
		templates: templates,
	}, nil
}

// Register adds the app's routes to r.
func (a *App) Register(r server.Router) {
	r.Handle(http.MethodGet, "/", http.HandlerFunc(a.Index))
	r.Handle(http.MethodGet, "/login", http.HandlerFunc(a.Login))
	r.Handle(http.MethodGet, "/logout", http.HandlerFunc(a.Logout))
	r.Handle(http.MethodGet, "/callback", http.HandlerFunc(a.Callback))
	r.Handle(http.MethodGet, "/profile", http.HandlerFunc(a.Profile))
}

// Index renders the login page for anonymous visitors and routes signed-in ones onward.
func (a *App) Index(w http.ResponseWriter, r *http.Request) {
	rec, ok := a.sessions.Token(r)
	switch {
	case !ok:
		a.render(w, r, http.StatusOK, "login.html", nil)
	case rec.Expired(a.now()):
		http.Redirect(w, r, "/login", http.StatusFound)
	default:
		http.Redirect(w, r, "/profile", http.StatusFound)
	}
}

// Login starts the authorization flow.
func (a *App) Login(w http.ResponseWriter, r *http.Request) {
	state := shared.GenerateState()
	if err := a.sessions.SaveState(w, r, state); err != nil {
		a.fail(w, r, http.StatusInternalServerError, err)
		return
	}

	http.Redirect(w, r, a.auth.AuthURL(state), http.StatusFound)
}

// Callback completes the authorization flow.
func (a *App) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if providerErr := q.Get("error"); providerErr != "" {
		if err := a.sessions.ClearState(w, r); err != nil {
			a.logger.Warn("failed to clear oauth state", "error", err)
		}
		a.fail(w, r, http.StatusBadRequest, fmt.Errorf("%w: provider returned %q", shared.ErrAuthFailed, providerErr))
		return
	}

	want := a.sessions.State(r)
	if want == "" || subtle.ConstantTimeCompare([]byte(want), []byte(q.Get("state"))) != 1 {
		a.fail(w, r, http.StatusBadRequest, shared.ErrInvalidState)
		return
	}

	code := q.Get("code")
	if code == "" {
		a.fail(w, r, http.StatusBadRequest, shared.ErrMissingCode)
		return
	}

	rec, err := a.auth.Exchange(r.Context(), code)
	if err != nil {
		a.fail(w, r, http.StatusBadGateway, err)
		return
	}

	if err := a.sessions.SaveToken(w, r, rec); err != nil {
		a.fail(w, r, http.StatusInternalServerError, err)
		return
	}

	a.logger.Debug("authorization complete", "scope", rec.Scope, "expires_at", rec.ExpiresAt)
	http.Redirect(w, r, "/profile", http.StatusFound)
}

// Logout clears the session.
func (a *App) Logout(w http.ResponseWriter, r *http.Request) {
	if err := a.sessions.Clear(w, r); err != nil {
		a.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

type profilePage struct {
	User   *models.Profile
	Tracks []models.Track
}

// Profile renders the user's profile and top tracks, refreshing an expired token first.
func (a *App) Profile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	rec, ok := a.sessions.Token(r)
	if !ok {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	if rec.Expired(a.now()) {
		refreshed, err := a.auth.Refresh(ctx, rec)
		if err != nil {
			a.fail(w, r, http.StatusBadGateway, err)
			return
		}
		if err := a.sessions.SaveToken(w, r, refreshed); err != nil {
			a.fail(w, r, http.StatusInternalServerError, err)
			return
		}
		a.logger.Debug("refreshed access token", "expires_at", refreshed.ExpiresAt)
		rec = refreshed
	}

	lib := a.libraries(ctx, rec)

	user, err := lib.CurrentUser(ctx)
	if err != nil {
		a.apiFailure(w, r, err)
		return
	}

	tracks, err := lib.TopTracks(ctx, TopTrackLimit, services.ShortTerm)
	if err != nil {
		a.apiFailure(w, r, err)
		return
	}
	if len(tracks) > TopTrackLimit {
		tracks = tracks[:TopTrackLimit]
	}

	a.render(w, r, http.StatusOK, "profile.html", profilePage{User: user, Tracks: tracks})
}

// apiFailure handles a Web API error. A rejected token (revoked access, for instance) signs the user out and
// restarts the flow; anything else is a 502.
func (a *App) apiFailure(w http.ResponseWriter, r *http.Request, err error) {
	if !errors.Is(err, shared.ErrNotAuthenticated) {
		a.fail(w, r, http.StatusBadGateway, err)
		return
	}

	a.logger.Warn("spotify rejected access token", "error", err, "request_id", server.RequestID(r.Context()))
	if err := a.sessions.Clear(w, r); err != nil {
		a.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	http.Redirect(w, r, "/login", http.StatusFound)
}

type errorPage struct {
	Status    int
	Title     string
	Message   string
	RequestID string
}

var errorMessages = map[int]string{
	http.StatusBadRequest: "The sign-in attempt could not be completed. Please try logging in again.",
	http.StatusBadGateway: "Spotify could not be reached or rejected the request. Please try again shortly.",
}

// fail logs err and renders a generic error page.
func (a *App) fail(w http.ResponseWriter, r *http.Request, status int, err error) {
	id := server.RequestID(r.Context())
	a.logger.Error("request failed", "path", r.URL.Path, "status", status, "error", err, "request_id", id)

	msg, ok := errorMessages[status]
	if !ok {
		msg = "Something went wrong on our side."
	}

	a.render(w, r, status, "error.html", errorPage{
		Status:    status,
		Title:     http.StatusText(status),
		Message:   msg,
		RequestID: id,
	})
}

// render executes a page into a buffer so a template error never produces a half-written response.
func (a *App) render(w http.ResponseWriter, r *http.Request, status int, page string, data any) {
	var buf bytes.Buffer
	if err := a.templates[page].ExecuteTemplate(&buf, "base", data); err != nil {
		a.logger.Error("failed to render template", "page", page, "error", err, "request_id", server.RequestID(r.Context()))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	buf.WriteTo(w)
}
