package models

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// ExpiryLeeway is how far ahead of its recorded expiry a token is treated as expired.
const ExpiryLeeway = 60 * time.Second

// TokenRecord is the OAuth2 token issued by Spotify for one browser session.
type TokenRecord struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresAt    time.Time `json:"expires_at"`
	Scope        string    `json:"scope"`
}

// Expired reports whether the record is at or within [ExpiryLeeway] of its expiry.
//
// A zero ExpiresAt never expires.
func (t *TokenRecord) Expired(now time.Time) bool {
	if t.ExpiresAt.IsZero() {
		return false
	}
	return !now.Add(ExpiryLeeway).Before(t.ExpiresAt)
}

// OAuth2 converts the record into an [oauth2.Token].
func (t *TokenRecord) OAuth2() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    t.TokenType,
		Expiry:       t.ExpiresAt,
	}
}

// NewTokenRecord builds a record from a token returned by an exchange or refresh.
//
// Spotify reports granted scopes in the "scope" extra field.
func NewTokenRecord(tok *oauth2.Token) *TokenRecord {
	rec := &TokenRecord{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		ExpiresAt:    tok.Expiry,
	}
	if scope, ok := tok.Extra("scope").(string); ok {
		rec.Scope = scope
	}
	return rec
}

// Profile is the current user's Spotify profile.
type Profile struct {
	ID          string
	DisplayName string
	Email       string
	Country     string
	Product     string // premium, free, etc.
	Followers   int
	ImageURL    string
	URL         string
}

// Name returns the display name, falling back to the user ID.
func (p Profile) Name() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.ID
}

// Track is one of the user's top tracks.
type Track struct {
	ID       string
	Name     string
	Artists  []string
	Album    string
	ImageURL string
	URL      string
	Duration time.Duration
}

// ArtistNames joins the track's artists for display.
func (t Track) ArtistNames() string {
	return strings.Join(t.Artists, ", ")
}

// Length formats the duration as m:ss.
func (t Track) Length() string {
	d := t.Duration.Round(time.Second)
	m := int(d / time.Minute)
	s := int((d % time.Minute) / time.Second)
	return fmt.Sprintf("%d:%02d", m, s)
}
