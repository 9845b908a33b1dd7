package identity

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/krishna-ananth-vk/potholed/internal/model"
)

// GoogleFlowConfig configures the Google authorization-code flow.
type GoogleFlowConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// Endpoint override for tests. Zero value means the real Google endpoint.
	Endpoint oauth2.Endpoint
}

// GoogleFlow runs the server-side Google sign-in: the browser is sent to
// Google's consent page, and the callback code is exchanged for a Google ID
// token, which the identity service then verifies via signInWithIdp.
type GoogleFlow struct {
	config *oauth2.Config
}

// NewGoogleFlow creates a GoogleFlow.
func NewGoogleFlow(cfg GoogleFlowConfig) *GoogleFlow {
	endpoint := cfg.Endpoint
	if endpoint.AuthURL == "" {
		endpoint = google.Endpoint
	}
	return &GoogleFlow{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     endpoint,
			Scopes:       []string{"openid", "email", "profile"},
		},
	}
}

// AuthCodeURL returns the Google consent page URL for the given CSRF state.
func (f *GoogleFlow) AuthCodeURL(state string) string {
	return f.config.AuthCodeURL(state)
}

// Exchange trades the callback authorization code for Google's ID token.
func (f *GoogleFlow) Exchange(ctx context.Context, code string) (string, error) {
	token, err := f.config.Exchange(ctx, code)
	if err != nil {
		return "", model.NewFederatedSignInError("code exchange was rejected")
	}

	idToken, ok := token.Extra("id_token").(string)
	if !ok || idToken == "" {
		return "", fmt.Errorf("no id_token in google token response")
	}
	return idToken, nil
}
