// Package oauth runs the authorization code flow (with PKCE) of an
// installed application: the user opens a login url, consents, and pastes
// back the url they were redirected to.
package oauth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/url"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/oauth2"
)

var tracer = otel.Tracer("arena-sheets/lib/oauth")

// Authorization is an authorization in progress.
type Authorization struct {
	URL      string
	State    string
	Verifier string
}

// GenerateState returns 16 random bytes, hex encoded.
func GenerateState() (string, error) {
	nonce := make([]byte, 16)
	_, err := rand.Read(nonce)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(nonce), nil
}

// Begin creates the login url, offline access is requested so the
// resulting token carries a refresh token.
func Begin(ctx context.Context, cfg *oauth2.Config) (Authorization, error) {
	_, span := tracer.Start(ctx, "Begin")
	defer span.End()

	state, err := GenerateState()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to generate state")
		return Authorization{}, err
	}
	verifier := oauth2.GenerateVerifier()

	loginUrl := cfg.AuthCodeURL(
		state,
		oauth2.AccessTypeOffline,
		oauth2.ApprovalForce,
		oauth2.S256ChallengeOption(verifier),
	)
	span.SetAttributes(
		attribute.String("client_id", cfg.ClientID),
		attribute.String("redirect_uri", cfg.RedirectURL),
		attribute.StringSlice("scopes", cfg.Scopes),
	)

	return Authorization{URL: loginUrl, State: state, Verifier: verifier}, nil
}

// CodeFromRedirect extracts the authorization code from the url the user
// was redirected to.
func CodeFromRedirect(redirect string, state string) (string, error) {
	parsed, err := url.Parse(redirect)
	if err != nil {
		return "", err
	}
	query := parsed.Query()
	if reason := query.Get("error"); reason != "" {
		return "", fmt.Errorf("authorization denied: %s", reason)
	}
	if query.Get("state") != state {
		return "", fmt.Errorf("state mismatch, the url belongs to another login attempt")
	}
	code := query.Get("code")
	if code == "" {
		return "", fmt.Errorf("redirect url has no code")
	}
	return code, nil
}

// Finish exchanges the authorization code for a token.
func Finish(ctx context.Context, cfg *oauth2.Config, auth Authorization, code string) (*oauth2.Token, error) {
	ctx, span := tracer.Start(ctx, "Finish")
	defer span.End()

	token, err := cfg.Exchange(ctx, code, oauth2.VerifierOption(auth.Verifier))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to exchange code")
		return nil, err
	}
	if token.RefreshToken == "" {
		err := fmt.Errorf("token response has no refresh token")
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return token, nil
}
