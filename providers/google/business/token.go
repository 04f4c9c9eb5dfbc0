package business

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/appertivo/go-distribution/core"
)

type tokenEndpointPayload struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	TokenType        string `json:"token_type"`
	Scope            string `json:"scope"`
	ExpiresIn        int64  `json:"expires_in"`
	ErrorCode        string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (c *Channel) exchangeCode(ctx context.Context, code string, redirectURI string) (core.TokenGrant, error) {
	form := url.Values{}
	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_secret", c.cfg.ClientSecret)
	form.Set("code", code)
	form.Set("grant_type", "authorization_code")
	form.Set("redirect_uri", redirectURI)
	return c.fetchToken(ctx, form)
}

func (c *Channel) refreshAccessToken(ctx context.Context, refreshToken string) (core.TokenGrant, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return core.TokenGrant{}, fmt.Errorf("business: refresh token is required")
	}
	form := url.Values{}
	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_secret", c.cfg.ClientSecret)
	form.Set("refresh_token", refreshToken)
	form.Set("grant_type", "refresh_token")
	return c.fetchToken(ctx, form)
}

func (c *Channel) fetchToken(ctx context.Context, form url.Values) (core.TokenGrant, error) {
	if c == nil || c.transport == nil {
		return core.TokenGrant{}, fmt.Errorf("business: transport adapter is not configured")
	}

	res, err := c.transport.Do(ctx, core.TransportRequest{
		Method: http.MethodPost,
		URL:    c.cfg.TokenURL,
		Headers: map[string]string{
			"Content-Type": "application/x-www-form-urlencoded",
			"Accept":       "application/json",
		},
		Body:    []byte(form.Encode()),
		Timeout: c.cfg.RequestTimeout,
	})
	if err != nil {
		return core.TokenGrant{}, fmt.Errorf("business: token request failed: %w", err)
	}

	var payload tokenEndpointPayload
	if decodeErr := json.Unmarshal(res.Body, &payload); decodeErr != nil && len(res.Body) > 0 {
		return core.TokenGrant{}, fmt.Errorf("business: decode token response: %w", decodeErr)
	}
	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		return core.TokenGrant{}, fmt.Errorf(
			"business: token endpoint error (%d): %s",
			res.StatusCode,
			describeTokenError(payload),
		)
	}
	if payload.ErrorCode != "" {
		return core.TokenGrant{}, fmt.Errorf("business: token endpoint error: %s", describeTokenError(payload))
	}
	if strings.TrimSpace(payload.AccessToken) == "" {
		return core.TokenGrant{}, fmt.Errorf("business: token endpoint response missing access token")
	}

	return core.TokenGrant{
		AccessToken:  strings.TrimSpace(payload.AccessToken),
		RefreshToken: strings.TrimSpace(payload.RefreshToken),
		TokenType:    strings.TrimSpace(payload.TokenType),
		Scope:        strings.TrimSpace(payload.Scope),
		ExpiresIn:    payload.ExpiresIn,
	}, nil
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

// ensureFreshAccessToken opportunistically refreshes the access token
// in place when it is absent and a refresh token is available. A failed
// refresh leaves the settings untouched; a successful one is reported
// so the caller persists the new token.
func (c *Channel) ensureFreshAccessToken(ctx context.Context, settings *core.GoogleBusinessSettings) bool {
	if settings == nil || strings.TrimSpace(settings.RefreshToken) == "" {
		return false
	}
	if strings.TrimSpace(settings.AccessToken) != "" {
		return false
	}
	grant, err := c.refreshAccessToken(ctx, settings.RefreshToken)
	if err != nil {
		c.logInfo(ctx, "google token refresh failed", map[string]any{
			"error": err.Error(),
		})
		return false
	}
	settings.AccessToken = grant.AccessToken
	if strings.TrimSpace(grant.RefreshToken) != "" {
		settings.RefreshToken = grant.RefreshToken
	}
	return true
}
