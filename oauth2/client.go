// Package oauth2 implements the outbound token calls of the connector
// lifecycle against standard OAuth2 provider endpoints.
package oauth2

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/twjackysu/go-connectors/core"
)

const maxTokenResponseBodyBytes = int64(1 << 20)

const defaultRequestTimeout = 30 * time.Second

// HTTPDoer abstracts the HTTP client so tests can stub transport behavior.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Config struct {
	// RequestTimeout bounds each token endpoint call. The service layer
	// usually applies its own context deadline as well.
	RequestTimeout time.Duration
	HTTPClient     HTTPDoer
}

// Client talks to provider token and revocation endpoints. It implements
// core.Exchanger; per-provider settings come from the catalog definition
// passed to each call.
type Client struct {
	cfg        Config
	httpClient HTTPDoer
}

func NewClient(cfg Config) *Client {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.RequestTimeout}
	}
	return &Client{cfg: cfg, httpClient: httpClient}
}

// Exchange redeems an authorization code for tokens.
func (c *Client) Exchange(ctx context.Context, provider core.ProviderDefinition, code, redirectURI string) (core.TokenGrant, error) {
	if c == nil {
		return core.TokenGrant{}, fmt.Errorf("oauth2: client is nil")
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return core.TokenGrant{}, fmt.Errorf("oauth2: authorization code is required")
	}

	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", strings.TrimSpace(redirectURI))

	payload, err := c.fetchToken(ctx, provider, form)
	if err != nil {
		return core.TokenGrant{}, err
	}
	return grantFromPayload(payload), nil
}

// Refresh trades a refresh token for a new access token.
func (c *Client) Refresh(ctx context.Context, provider core.ProviderDefinition, refreshToken string) (core.TokenGrant, error) {
	if c == nil {
		return core.TokenGrant{}, fmt.Errorf("oauth2: client is nil")
	}
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return core.TokenGrant{}, fmt.Errorf("oauth2: refresh token is required")
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	if scope := strings.TrimSpace(provider.Scope); scope != "" {
		form.Set("scope", scope)
	}

	payload, err := c.fetchToken(ctx, provider, form)
	if err != nil {
		return core.TokenGrant{}, err
	}
	return grantFromPayload(payload), nil
}

// Revoke invalidates a token at the provider's revocation endpoint.
func (c *Client) Revoke(ctx context.Context, provider core.ProviderDefinition, token string) error {
	if c == nil {
		return fmt.Errorf("oauth2: client is nil")
	}
	revokeURL := strings.TrimSpace(provider.RevokeURL)
	if revokeURL == "" {
		return fmt.Errorf("oauth2: provider %q has no revocation endpoint", provider.ID)
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("oauth2: token is required")
	}

	form := url.Values{}
	form.Set("token", token)
	form.Set("token_type_hint", "access_token")
	form.Set("client_id", provider.ClientID)
	if provider.ClientSecretInBody && provider.ClientSecret != "" {
		form.Set("client_secret", provider.ClientSecret)
	}

	response, err := c.postForm(ctx, provider, revokeURL, form)
	if err != nil {
		return transportError(provider, "revocation request failed", err)
	}
	defer response.Body.Close()
	io.Copy(io.Discard, io.LimitReader(response.Body, maxTokenResponseBodyBytes))

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		return endpointError(provider, response.StatusCode, tokenEndpointPayload{
			ErrorDescription: fmt.Sprintf("revocation endpoint returned %d", response.StatusCode),
		})
	}
	return nil
}

func (c *Client) fetchToken(ctx context.Context, provider core.ProviderDefinition, form url.Values) (tokenEndpointPayload, error) {
	if c.httpClient == nil {
		return tokenEndpointPayload{}, fmt.Errorf("oauth2: http client is not configured")
	}
	if strings.TrimSpace(provider.TokenURL) == "" {
		return tokenEndpointPayload{}, fmt.Errorf("oauth2: token url is required for provider %q", provider.ID)
	}

	values := url.Values{}
	for key, items := range form {
		if strings.TrimSpace(key) == "" {
			continue
		}
		for _, item := range items {
			values.Add(key, strings.TrimSpace(item))
		}
	}
	values.Set("client_id", provider.ClientID)
	if provider.ClientSecretInBody && provider.ClientSecret != "" {
		values.Set("client_secret", provider.ClientSecret)
	}

	response, err := c.postForm(ctx, provider, provider.TokenURL, values)
	if err != nil {
		return tokenEndpointPayload{}, transportError(provider, "token request failed", err)
	}
	defer response.Body.Close()

	body, readErr := io.ReadAll(io.LimitReader(response.Body, maxTokenResponseBodyBytes+1))
	if readErr != nil {
		return tokenEndpointPayload{}, transportError(provider, "read token response", readErr)
	}
	if int64(len(body)) > maxTokenResponseBodyBytes {
		return tokenEndpointPayload{}, fmt.Errorf("oauth2: token response exceeds %d bytes", maxTokenResponseBodyBytes)
	}

	payload, parseErr := parseTokenPayload(body, response.Header.Get("Content-Type"))
	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		return tokenEndpointPayload{}, endpointError(provider, response.StatusCode, payload)
	}
	if parseErr != nil {
		return tokenEndpointPayload{}, fmt.Errorf("oauth2: decode token response: %w", parseErr)
	}
	if payload.ErrorCode != "" {
		return tokenEndpointPayload{}, endpointError(provider, response.StatusCode, payload)
	}
	if strings.TrimSpace(payload.AccessToken) == "" {
		return tokenEndpointPayload{}, fmt.Errorf("oauth2: token endpoint response missing access token")
	}
	return payload, nil
}

func (c *Client) postForm(ctx context.Context, provider core.ProviderDefinition, endpoint string, values url.Values) (*http.Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	requestCtx := ctx
	cancel := func() {}
	if c.cfg.RequestTimeout > 0 {
		requestCtx, cancel = context.WithTimeout(ctx, c.cfg.RequestTimeout)
	}
	defer cancel()

	httpReq, err := http.NewRequestWithContext(
		requestCtx,
		http.MethodPost,
		endpoint,
		strings.NewReader(values.Encode()),
	)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Accept", "application/json")
	if !provider.ClientSecretInBody && provider.ClientSecret != "" {
		httpReq.SetBasicAuth(provider.ClientID, provider.ClientSecret)
	}

	return c.httpClient.Do(httpReq)
}

// endpointError classifies a non-success endpoint response. Definitive
// grant rejections surface as CategoryAuth so the service flags the
// credential; everything else is a transient provider failure.
func endpointError(provider core.ProviderDefinition, statusCode int, payload tokenEndpointPayload) error {
	message := fmt.Sprintf(
		"oauth2: provider %q endpoint error (%d): %s",
		provider.ID,
		statusCode,
		describeTokenError(payload),
	)
	category := goerrors.CategoryOperation
	if statusCode >= http.StatusBadRequest && statusCode < http.StatusInternalServerError {
		category = goerrors.CategoryAuth
	}
	return goerrors.New(message, category).
		WithTextCode("OAUTH2_ENDPOINT_ERROR").
		WithMetadata(map[string]any{
			"provider_id": provider.ID,
			"status_code": statusCode,
			"error_code":  payload.ErrorCode,
		})
}

func transportError(provider core.ProviderDefinition, message string, cause error) error {
	return goerrors.Wrap(cause, goerrors.CategoryOperation, fmt.Sprintf("oauth2: %s", message)).
		WithTextCode("OAUTH2_TRANSPORT_ERROR").
		WithMetadata(map[string]any{"provider_id": provider.ID})
}

type tokenEndpointPayload struct {
	AccessToken      string
	TokenType        string
	RefreshToken     string
	Scope            string
	ExpiresIn        int64
	ErrorCode        string
	ErrorDescription string
}

func grantFromPayload(payload tokenEndpointPayload) core.TokenGrant {
	return core.TokenGrant{
		AccessToken:  strings.TrimSpace(payload.AccessToken),
		RefreshToken: strings.TrimSpace(payload.RefreshToken),
		Scope:        strings.TrimSpace(payload.Scope),
		ExpiresIn:    payload.ExpiresIn,
	}
}

func describeTokenError(payload tokenEndpointPayload) string {
	if strings.TrimSpace(payload.ErrorDescription) != "" {
		return strings.TrimSpace(payload.ErrorDescription)
	}
	if strings.TrimSpace(payload.ErrorCode) != "" {
		return strings.TrimSpace(payload.ErrorCode)
	}
	return "unknown error"
}

func parseTokenPayload(body []byte, contentType string) (tokenEndpointPayload, error) {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if strings.Contains(contentType, "json") {
		return parseTokenPayloadJSON(body)
	}
	if strings.Contains(contentType, "x-www-form-urlencoded") || strings.Contains(contentType, "text/plain") {
		return parseTokenPayloadForm(body)
	}
	if payload, err := parseTokenPayloadJSON(body); err == nil {
		return payload, nil
	}
	return parseTokenPayloadForm(body)
}

func parseTokenPayloadJSON(body []byte) (tokenEndpointPayload, error) {
	if len(strings.TrimSpace(string(body))) == 0 {
		return tokenEndpointPayload{}, fmt.Errorf("empty payload")
	}
	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return tokenEndpointPayload{}, err
	}
	return tokenEndpointPayload{
		AccessToken:      readAnyString(decoded["access_token"]),
		TokenType:        readAnyString(decoded["token_type"]),
		RefreshToken:     readAnyString(decoded["refresh_token"]),
		Scope:            readAnyString(decoded["scope"]),
		ExpiresIn:        readAnyInt64(decoded["expires_in"]),
		ErrorCode:        readAnyString(decoded["error"]),
		ErrorDescription: readAnyString(decoded["error_description"]),
	}, nil
}

func parseTokenPayloadForm(body []byte) (tokenEndpointPayload, error) {
	if len(strings.TrimSpace(string(body))) == 0 {
		return tokenEndpointPayload{}, fmt.Errorf("empty payload")
	}
	values, err := url.ParseQuery(string(body))
	if err != nil {
		return tokenEndpointPayload{}, err
	}
	expiresIn, _ := strconv.ParseInt(strings.TrimSpace(values.Get("expires_in")), 10, 64)
	return tokenEndpointPayload{
		AccessToken:      strings.TrimSpace(values.Get("access_token")),
		TokenType:        strings.TrimSpace(values.Get("token_type")),
		RefreshToken:     strings.TrimSpace(values.Get("refresh_token")),
		Scope:            strings.TrimSpace(values.Get("scope")),
		ExpiresIn:        expiresIn,
		ErrorCode:        strings.TrimSpace(values.Get("error")),
		ErrorDescription: strings.TrimSpace(values.Get("error_description")),
	}, nil
}

func readAnyString(value any) string {
	switch typed := value.(type) {
	case string:
		return strings.TrimSpace(typed)
	case json.Number:
		return strings.TrimSpace(typed.String())
	case fmt.Stringer:
		return strings.TrimSpace(typed.String())
	default:
		if value == nil {
			return ""
		}
		return strings.TrimSpace(fmt.Sprint(value))
	}
}

func readAnyInt64(value any) int64 {
	switch typed := value.(type) {
	case float64:
		return int64(typed)
	case int64:
		return typed
	case int:
		return int64(typed)
	case json.Number:
		parsed, err := typed.Int64()
		if err == nil {
			return parsed
		}
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(typed), 10, 64)
		if err == nil {
			return parsed
		}
	}
	return 0
}

var _ core.Exchanger = (*Client)(nil)
