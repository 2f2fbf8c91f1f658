package services

import (
	"context"

	"github.com/desertthunder/toptracks/internal/models"
	"github.com/zmb3/spotify/v2"
)

// TimeRange selects the affinity window for top items.
type TimeRange = spotify.Range

const (
	ShortTerm  TimeRange = spotify.ShortTermRange  // roughly the last four weeks
	MediumTerm TimeRange = spotify.MediumTermRange // roughly the last six months
	LongTerm   TimeRange = spotify.LongTermRange
)

// Authenticator performs the OAuth2 authorization-code flow against Spotify's accounts service.
type Authenticator interface {
	// AuthURL returns the provider URL the browser is sent to, carrying state for CSRF protection.
	AuthURL(state string) string

	// Exchange trades an authorization code for a token record.
	Exchange(ctx context.Context, code string) (*models.TokenRecord, error)

	// Refresh obtains a new token record using rec's refresh token.
	Refresh(ctx context.Context, rec *models.TokenRecord) (*models.TokenRecord, error)
}

// Library reads the signed-in user's data from the Spotify Web API.
type Library interface {
	// CurrentUser fetches the profile of the token's owner.
	CurrentUser(ctx context.Context) (*models.Profile, error)

	// TopTracks fetches up to limit of the user's top tracks for the given range.
	TopTracks(ctx context.Context, limit int, timeRange TimeRange) ([]models.Track, error)
}

// LibraryFactory builds a [Library] bound to one token record.
type LibraryFactory func(ctx context.Context, rec *models.TokenRecord) Library
