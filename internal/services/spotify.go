package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/desertthunder/toptracks/internal/models"
	"github.com/desertthunder/toptracks/internal/shared"
	"github.com/zmb3/spotify/v2"
)

const maxTopItems = 50

// SpotifyLibrary implements [Library] on top of [spotify.Client].
type SpotifyLibrary struct {
	client *spotify.Client
}

// NewSpotifyLibrary creates a Web API client. httpClient must already authorize its requests (see [SpotifyAuth.Client]).
//
// baseURL overrides https://api.spotify.com/v1/ when non-empty.
func NewSpotifyLibrary(httpClient *http.Client, baseURL string) *SpotifyLibrary {
	var opts []spotify.ClientOption
	if baseURL != "" {
		opts = append(opts, spotify.WithBaseURL(strings.TrimSuffix(baseURL, "/")+"/"))
	}
	return &SpotifyLibrary{client: spotify.New(httpClient, opts...)}
}

// CurrentUser retrieves the current authenticated user's profile.
func (s *SpotifyLibrary) CurrentUser(ctx context.Context) (*models.Profile, error) {
	user, err := s.client.CurrentUser(ctx)
	if err != nil {
		return nil, apiError("current user", err)
	}

	profile := &models.Profile{
		ID:          user.ID,
		DisplayName: user.DisplayName,
		Email:       user.Email,
		Country:     user.Country,
		Product:     user.Product,
		Followers:   int(user.Followers.Count),
		URL:         user.ExternalURLs["spotify"],
	}
	if len(user.Images) > 0 {
		profile.ImageURL = user.Images[0].URL
	}
	return profile, nil
}

// TopTracks retrieves the user's top tracks. limit is clamped to 1..50.
func (s *SpotifyLibrary) TopTracks(ctx context.Context, limit int, timeRange TimeRange) ([]models.Track, error) {
	limit = max(1, min(limit, maxTopItems))

	page, err := s.client.CurrentUsersTopTracks(ctx, spotify.Limit(limit), spotify.Timerange(timeRange))
	if err != nil {
		return nil, apiError("top tracks", err)
	}

	tracks := make([]models.Track, 0, len(page.Tracks))
	for _, ft := range page.Tracks {
		if len(tracks) == limit {
			break
		}

		track := models.Track{
			ID:       string(ft.ID),
			Name:     ft.Name,
			Album:    ft.Album.Name,
			URL:      ft.ExternalURLs["spotify"],
			Duration: time.Duration(ft.Duration) * time.Millisecond,
		}
		for _, a := range ft.Artists {
			track.Artists = append(track.Artists, a.Name)
		}
		if len(ft.Album.Images) > 0 {
			track.ImageURL = ft.Album.Images[0].URL
		}
		tracks = append(tracks, track)
	}

	return tracks, nil
}

// apiError maps Web API failures onto shared errors. A 401 means the access token was rejected.
func apiError(op string, err error) error {
	if apiStatus(err) == http.StatusUnauthorized {
		return fmt.Errorf("%w: %s: %v", shared.ErrNotAuthenticated, op, err)
	}
	return fmt.Errorf("%w: %s: %v", shared.ErrAPIRequest, op, err)
}

// apiStatus extracts the HTTP status from a Web API error, or 0.
func apiStatus(err error) int {
	var serr spotify.Error
	if errors.As(err, &serr) {
		return serr.Status
	}
	var perr *spotify.Error
	if errors.As(err, &perr) && perr != nil {
		return perr.Status
	}
	return 0
}
