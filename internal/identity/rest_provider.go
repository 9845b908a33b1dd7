package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/krishna-ananth-vk/potholed/internal/model"
)

// RESTConfig configures the RESTProvider.
type RESTConfig struct {
	// BaseURL is the identity service root, e.g. "https://identitytoolkit.example.com".
	BaseURL string
	// APIKey is appended to every request as the key query parameter.
	APIKey string
	// HTTPClient is used for all requests. Defaults to a 10s-timeout client.
	HTTPClient *http.Client
}

// RESTProvider speaks the identity service's JSON REST API.
type RESTProvider struct {
	config RESTConfig
}

// NewRESTProvider creates a RESTProvider.
func NewRESTProvider(config RESTConfig) *RESTProvider {
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &RESTProvider{config: config}
}

// credentialResponse is the common shape of sign-up/sign-in responses.
type credentialResponse struct {
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
	DisplayName  string `json:"displayName"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
}

// lookupResponse is the accounts:lookup response.
type lookupResponse struct {
	Users []struct {
		LocalID       string `json:"localId"`
		Email         string `json:"email"`
		DisplayName   string `json:"displayName"`
		EmailVerified bool   `json:"emailVerified"`
		CreatedAt     string `json:"createdAt"` // unix millis as string
	} `json:"users"`
}

// SignUp creates an account with email and password.
func (p *RESTProvider) SignUp(ctx context.Context, email, password string) (*Credential, error) {
	var resp credentialResponse
	err := p.post(ctx, "/v1/accounts:signUp", map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}, &resp)
	if err != nil {
		return nil, mapSignUpError(err, email)
	}
	return p.buildCredential(ctx, &resp)
}

// SignInWithPassword authenticates with email and password.
func (p *RESTProvider) SignInWithPassword(ctx context.Context, email, password string) (*Credential, error) {
	var resp credentialResponse
	err := p.post(ctx, "/v1/accounts:signInWithPassword", map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}, &resp)
	if err != nil {
		return nil, mapSignInError(err)
	}
	return p.buildCredential(ctx, &resp)
}

// SignInWithIDP authenticates with a Google ID token.
func (p *RESTProvider) SignInWithIDP(ctx context.Context, providerIDToken string) (*Credential, error) {
	postBody := url.Values{
		"id_token":   {providerIDToken},
		"providerId": {"google.com"},
	}
	var resp credentialResponse
	err := p.post(ctx, "/v1/accounts:signInWithIdp", map[string]any{
		"postBody":          postBody.Encode(),
		"requestUri":        "http://localhost",
		"returnSecureToken": true,
	}, &resp)
	if err != nil {
		var provErr *providerError
		if asProviderError(err, &provErr) {
			return nil, model.NewFederatedSignInError(provErr.code)
		}
		return nil, fmt.Errorf("federated sign-in request failed: %w", err)
	}
	return p.buildCredential(ctx, &resp)
}

// RefreshCredential exchanges a refresh token for a fresh credential.
func (p *RESTProvider) RefreshCredential(ctx context.Context, refreshToken string) (*Credential, error) {
	// The token endpoint is form-encoded, unlike the accounts endpoints.
	data := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	}

	endpoint := p.config.BaseURL + "/v1/token?key=" + url.QueryEscape(p.config.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	httpResp, err := p.config.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("refresh request failed: %w", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read refresh response: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		if code := parseErrorCode(body); code != "" {
			return nil, model.NewNotSignedInError()
		}
		return nil, fmt.Errorf("refresh failed with status %d: %s", httpResp.StatusCode, string(body))
	}

	var refreshResp struct {
		IDToken      string `json:"id_token"`
		RefreshToken string `json:"refresh_token"`
		UserID       string `json:"user_id"`
		ExpiresIn    string `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &refreshResp); err != nil {
		return nil, fmt.Errorf("failed to parse refresh response: %w", err)
	}
	if refreshResp.IDToken == "" {
		return nil, fmt.Errorf("empty id token in refresh response")
	}

	return p.buildCredential(ctx, &credentialResponse{
		LocalID:      refreshResp.UserID,
		IDToken:      refreshResp.IDToken,
		RefreshToken: refreshResp.RefreshToken,
		ExpiresIn:    refreshResp.ExpiresIn,
	})
}

// SendPasswordReset requests a password-reset email.
func (p *RESTProvider) SendPasswordReset(ctx context.Context, email string) error {
	err := p.post(ctx, "/v1/accounts:sendOobCode", map[string]any{
		"requestType": "PASSWORD_RESET",
		"email":       email,
	}, nil)
	if err != nil {
		var provErr *providerError
		if asProviderError(err, &provErr) && provErr.code == "EMAIL_NOT_FOUND" {
			return model.NewUnknownEmailError(email)
		}
		return fmt.Errorf("password reset request failed: %w", err)
	}
	return nil
}

// SendEmailVerification requests a verification email.
func (p *RESTProvider) SendEmailVerification(ctx context.Context, idToken string) error {
	err := p.post(ctx, "/v1/accounts:sendOobCode", map[string]any{
		"requestType": "VERIFY_EMAIL",
		"idToken":     idToken,
	}, nil)
	if err != nil {
		return fmt.Errorf("verification request failed: %w", err)
	}
	return nil
}

// UpdateDisplayName sets the display name on the identity record.
func (p *RESTProvider) UpdateDisplayName(ctx context.Context, idToken, displayName string) (*model.Identity, error) {
	err := p.post(ctx, "/v1/accounts:update", map[string]any{
		"idToken":     idToken,
		"displayName": displayName,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("display name update failed: %w", err)
	}
	return p.Lookup(ctx, idToken)
}

// Lookup returns the identity snapshot behind idToken.
func (p *RESTProvider) Lookup(ctx context.Context, idToken string) (*model.Identity, error) {
	var resp lookupResponse
	err := p.post(ctx, "/v1/accounts:lookup", map[string]any{
		"idToken": idToken,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("account lookup failed: %w", err)
	}
	if len(resp.Users) == 0 {
		return nil, fmt.Errorf("account lookup returned no users")
	}

	u := resp.Users[0]
	ident := &model.Identity{
		UID:           u.LocalID,
		Email:         u.Email,
		DisplayName:   u.DisplayName,
		EmailVerified: u.EmailVerified,
	}
	if ms, err := strconv.ParseInt(u.CreatedAt, 10, 64); err == nil {
		ident.CreatedAt = time.UnixMilli(ms)
	}
	return ident, nil
}

// buildCredential turns a credential response into a Credential, completing
// the identity snapshot via accounts:lookup.
func (p *RESTProvider) buildCredential(ctx context.Context, resp *credentialResponse) (*Credential, error) {
	if resp.IDToken == "" {
		return nil, fmt.Errorf("empty id token in credential response")
	}

	ident, err := p.Lookup(ctx, resp.IDToken)
	if err != nil {
		return nil, err
	}

	cred := &Credential{
		Identity:     *ident,
		IDToken:      resp.IDToken,
		RefreshToken: resp.RefreshToken,
	}
	if secs, err := strconv.Atoi(resp.ExpiresIn); err == nil && secs > 0 {
		cred.ExpiresAt = time.Now().Add(time.Duration(secs) * time.Second)
	} else {
		cred.ExpiresAt = tokenExpiry(resp.IDToken)
	}
	return cred, nil
}

// post sends a JSON request to an accounts endpoint and decodes the response
// into out (out may be nil). Non-2xx responses become *providerError when the
// body carries a provider error code.
func (p *RESTProvider) post(ctx context.Context, path string, payload map[string]any, out any) error {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	endpoint := p.config.BaseURL + path + "?key=" + url.QueryEscape(p.config.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.config.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if code := parseErrorCode(body); code != "" {
			return &providerError{code: code, status: resp.StatusCode}
		}
		return fmt.Errorf("identity service returned status %d: %s", resp.StatusCode, string(body))
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}

// compile-time interface check
var _ Provider = (*RESTProvider)(nil)
