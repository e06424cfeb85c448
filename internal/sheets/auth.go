package sheets

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/sheets/v4"
)

type Credentials struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	RefreshToken string `json:"refresh_token"`
}

// OAuthConfig is the google client with the scopes the manager needs.
func OAuthConfig(creds Credentials, redirectUrl string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		RedirectURL:  redirectUrl,
		Endpoint:     google.Endpoint,
		Scopes:       []string{drive.DriveScope, sheets.SpreadsheetsScope},
	}
}

// TokenSource refreshes the access token once up front, a refresh token
// that no longer works fails here instead of halfway through a run.
func TokenSource(ctx context.Context, creds Credentials) (oauth2.TokenSource, error) {
	if creds.RefreshToken == "" {
		return nil, fmt.Errorf("google refresh token is not configured")
	}

	cfg := OAuthConfig(creds, "")
	source := cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: creds.RefreshToken})

	_, err := source.Token()
	if err != nil {
		return nil, fmt.Errorf("refresh google access token: %w", err)
	}
	return source, nil
}
