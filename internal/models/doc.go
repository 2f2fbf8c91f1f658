// Package models defines the values passed between the session, the Spotify services and the web handlers.
//
//   - [TokenRecord] : the access/refresh token pair kept in the session cookie
//   - [Profile] : the signed-in user's Spotify profile, flattened for templates
//   - [Track] : one entry of the user's top tracks
//
// None of these are persisted outside the browser's cookie.
package models
