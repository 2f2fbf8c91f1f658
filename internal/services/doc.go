// Package services wraps the two Spotify collaborators the web app talks to.
//
// # Authorization
//
// [SpotifyAuth] implements [Authenticator] with [oauth2.Config]. It is a stateless factory: the handlers pass the
// token record in and get a new record out, and the session owns storage. Scope is fixed to user-top-read.
//
// Refreshing is explicit. [SpotifyAuth.Client] wraps a static token source, so an expired token is never refreshed
// behind the caller's back and the session always holds the token actually in use.
//
// # Web API
//
// [SpotifyLibrary] implements [Library] with github.com/zmb3/spotify/v2 and flattens responses into
// [models.Profile] and [models.Track].
//
// # Error Handling
//
// Services wrap typed errors from the shared package:
//   - [shared.ErrMissingCredentials] : client id, secret or redirect URI not configured
//   - [shared.ErrMissingCode] : callback arrived without an authorization code
//   - [shared.ErrExchangeFailed] : code exchange rejected or unreachable
//   - [shared.ErrRefreshFailed], [shared.ErrNoRefreshToken] : refresh could not be performed
//   - [shared.ErrNotAuthenticated] : the Web API rejected the access token (401)
//   - [shared.ErrAPIRequest] : any other Web API failure
package services
