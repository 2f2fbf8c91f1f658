package services

import (
	"context"
	"fmt"
	"net/http"

	"github.com/desertthunder/toptracks/internal/models"
	"github.com/desertthunder/toptracks/internal/shared"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
)

// SpotifyAuth implements [Authenticator] for Spotify.
//
// It holds only the immutable client configuration, so one instance is shared by all requests.
type SpotifyAuth struct {
	config     *oauth2.Config
	httpClient *http.Client
}

// NewSpotifyAuth creates a [SpotifyAuth] from process-wide credentials. The requested scope is fixed to
// user-top-read.
//
// httpClient is used for token requests and as the base for API clients; nil means [http.DefaultClient].
func NewSpotifyAuth(cfg shared.SpotifyConfig, httpClient *http.Client) (*SpotifyAuth, error) {
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("%w: client_id", shared.ErrMissingCredentials)
	}
	if cfg.ClientSecret == "" {
		return nil, fmt.Errorf("%w: client_secret", shared.ErrMissingCredentials)
	}
	if cfg.RedirectURI == "" {
		return nil, fmt.Errorf("%w: redirect_uri", shared.ErrMissingCredentials)
	}

	authURL, tokenURL := cfg.AuthURL, cfg.TokenURL
	if authURL == "" {
		authURL = spotifyauth.AuthURL
	}
	if tokenURL == "" {
		tokenURL = spotifyauth.TokenURL
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &SpotifyAuth{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       []string{spotifyauth.ScopeUserTopRead},
			Endpoint: oauth2.Endpoint{
				AuthURL:   authURL,
				TokenURL:  tokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		httpClient: httpClient,
	}, nil
}

func (s *SpotifyAuth) context(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
}

// AuthURL returns the authorization URL for user login.
func (s *SpotifyAuth) AuthURL(state string) string {
	return s.config.AuthCodeURL(state)
}

// Exchange trades an authorization code for a token record.
func (s *SpotifyAuth) Exchange(ctx context.Context, code string) (*models.TokenRecord, error) {
	if code == "" {
		return nil, shared.ErrMissingCode
	}

	token, err := s.config.Exchange(s.context(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrExchangeFailed, err)
	}

	return models.NewTokenRecord(token), nil
}

// Refresh obtains a new access token using rec's refresh token.
//
// Spotify may omit the refresh token and scope from the response; the previous values are carried over.
func (s *SpotifyAuth) Refresh(ctx context.Context, rec *models.TokenRecord) (*models.TokenRecord, error) {
	if rec == nil || rec.RefreshToken == "" {
		return nil, shared.ErrNoRefreshToken
	}

	// An empty access token forces the source to hit the token endpoint.
	src := s.config.TokenSource(s.context(ctx), &oauth2.Token{RefreshToken: rec.RefreshToken})
	token, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}

	refreshed := models.NewTokenRecord(token)
	if refreshed.RefreshToken == "" {
		refreshed.RefreshToken = rec.RefreshToken
	}
	if refreshed.Scope == "" {
		refreshed.Scope = rec.Scope
	}
	return refreshed, nil
}

// Client returns an HTTP client that authorizes requests with rec's access token.
//
// The token source is static: refreshing is the caller's job so the session can be updated.
func (s *SpotifyAuth) Client(ctx context.Context, rec *models.TokenRecord) *http.Client {
	client := oauth2.NewClient(s.context(ctx), oauth2.StaticTokenSource(rec.OAuth2()))
	client.Timeout = s.httpClient.Timeout
	return client
}

// Libraries returns a [LibraryFactory] producing Spotify Web API clients rooted at apiURL
// (empty for the public API).
func (s *SpotifyAuth) Libraries(apiURL string) LibraryFactory {
	return func(ctx context.Context, rec *models.TokenRecord) Library {
		return NewSpotifyLibrary(s.Client(ctx, rec), apiURL)
	}
}
