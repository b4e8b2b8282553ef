// internal/common/auth/keycloak.go
package auth

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"kurio/internal/common/errors"
)

// KeycloakClient signs users in with email and password and manages their tokens.
type KeycloakClient struct {
	baseURL      string
	realm        string
	clientID     string
	clientSecret string
	httpClient   *http.Client
	oauth        *oauth2.Config
}

// Session is the token set returned on sign-in.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// NewKeycloakClient creates a new instance of KeycloakClient.
func NewKeycloakClient(baseURL, realm, clientID, clientSecret string) *KeycloakClient {
	baseURL = strings.TrimSuffix(baseURL, "/")
	oidc := fmt.Sprintf("%s/realms/%s/protocol/openid-connect", baseURL, realm)

	return &KeycloakClient{
		baseURL:      baseURL,
		realm:        realm,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:   oidc + "/auth",
				TokenURL:  oidc + "/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
			Scopes: []string{"openid", "email"},
		},
	}
}

func (k *KeycloakClient) endpoint(path string) string {
	return fmt.Sprintf("%s/realms/%s/protocol/openid-connect/%s", k.baseURL, k.realm, path)
}

func (k *KeycloakClient) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, k.httpClient)
}

// SignIn exchanges email and password for a session (resource owner password grant).
func (k *KeycloakClient) SignIn(ctx context.Context, email, password string) (*Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, errors.NewAuthenticationFailedError("email and password are required")
	}

	token, err := k.oauth.PasswordCredentialsToken(k.oauthContext(ctx), email, password)
	if err != nil {
		return nil, k.tokenError(err)
	}
	return sessionFrom(token), nil
}

// Refresh trades a refresh token for a new session.
func (k *KeycloakClient) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	if refreshToken == "" {
		return nil, errors.NewAuthenticationFailedError("refresh token is required")
	}

	src := k.oauth.TokenSource(k.oauthContext(ctx), &oauth2.Token{RefreshToken: refreshToken})
	token, err := src.Token()
	if err != nil {
		return nil, k.tokenError(err)
	}
	return sessionFrom(token), nil
}

func sessionFrom(token *oauth2.Token) *Session {
	return &Session{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.Type(),
		ExpiresAt:    token.Expiry,
	}
}

// tokenError maps token endpoint failures: rejected credentials are final,
// server-side failures may be retried.
func (k *KeycloakClient) tokenError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if stderrors.As(err, &retrieveErr) && retrieveErr.Response != nil {
		status := retrieveErr.Response.StatusCode
		if !k.isTransientHTTPError(status) {
			details := retrieveErr.ErrorCode
			if details == "" {
				details = fmt.Sprintf("status %d", status)
			}
			return errors.NewAuthenticationFailedError(details)
		}
	}

	stdErr := errors.NewAuthenticationFailedError(err.Error())
	stdErr.Message = "Authentication service unavailable"
	stdErr.Retryable = true
	return stdErr
}

// Logout revokes a user's refresh token. This is a standard OAuth2/OpenID Connect logout mechanism.
func (k *KeycloakClient) Logout(ctx context.Context, refreshToken string) error {
	data := url.Values{}
	data.Set("client_id", k.clientID)
	data.Set("client_secret", k.clientSecret)
	data.Set("refresh_token", refreshToken)

	resp, err := k.postForm(ctx, k.endpoint("logout"), data)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// Keycloak returns 204 No Content on successful logout
	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		stdErr := errors.NewAuthenticationFailedError(fmt.Sprintf("logout status: %d, body: %s", resp.StatusCode, string(body)))
		stdErr.Message = "Logout failed"
		stdErr.Retryable = k.isTransientHTTPError(resp.StatusCode)
		return stdErr
	}

	return nil
}

// ValidateToken checks if an access token is valid and active.
func (k *KeycloakClient) ValidateToken(ctx context.Context, token string) (*TokenInfo, error) {
	data := url.Values{}
	data.Set("token", token)
	data.Set("token_type_hint", "access_token")
	data.Set("client_id", k.clientID)
	data.Set("client_secret", k.clientSecret)

	resp, err := k.postForm(ctx, k.endpoint("token/introspect"), data)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		stdErr := errors.NewAuthenticationFailedError(fmt.Sprintf("introspection status: %d", resp.StatusCode))
		stdErr.Retryable = k.isTransientHTTPError(resp.StatusCode)
		return nil, stdErr
	}

	var tokenInfo TokenInfo
	if err := json.NewDecoder(resp.Body).Decode(&tokenInfo); err != nil {
		return nil, errors.NewAuthenticationFailedError("failed to decode token introspection response: " + err.Error())
	}

	if !tokenInfo.Active {
		return nil, errors.NewAuthenticationFailedError("token is expired, revoked or malformed")
	}

	return &tokenInfo, nil
}

func (k *KeycloakClient) postForm(ctx context.Context, endpoint string, data url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, errors.NewInternalError(err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := k.httpClient.Do(req)
	if err != nil {
		stdErr := errors.NewAuthenticationFailedError(err.Error())
		stdErr.Message = "Authentication service unavailable"
		stdErr.Retryable = true
		return nil, stdErr
	}
	return resp, nil
}

// isTransientHTTPError returns true if the HTTP status code indicates a potentially transient error.
func (k *KeycloakClient) isTransientHTTPError(statusCode int) bool {
	switch statusCode {
	case http.StatusInternalServerError, // 500
		http.StatusBadGateway,         // 502
		http.StatusServiceUnavailable, // 503
		http.StatusGatewayTimeout:     // 504
		return true
	default:
		return false
	}
}

// TokenInfo holds the information returned by the token introspection endpoint.
type TokenInfo struct {
	Active    bool   `json:"active"`
	Scope     string `json:"scope,omitempty"`
	ClientID  string `json:"client_id,omitempty"`
	Username  string `json:"username,omitempty"`
	Email     string `json:"email,omitempty"`
	TokenType string `json:"token_type,omitempty"`
	Exp       int64  `json:"exp,omitempty"` // seconds since epoch
	Iat       int64  `json:"iat,omitempty"`
	Sub       string `json:"sub,omitempty"` // user ID
	Iss       string `json:"iss,omitempty"`
}
