package business

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/appertivo/go-distribution/core"
	glog "github.com/goliatone/go-logger/glog"
)

const (
	defaultAuthURL       = "https://accounts.google.com/o/oauth2/v2/auth"
	defaultTokenURL      = "https://oauth2.googleapis.com/token"
	defaultAccountsURL   = "https://mybusinessaccountmanagement.googleapis.com/v1"
	defaultLocationsURL  = "https://mybusinessbusinessinformation.googleapis.com/v1"
	defaultLocalPostsURL = "https://mybusiness.googleapis.com/v4"

	defaultRequestTimeout = 10 * time.Second
)

var defaultScopes = []string{"https://www.googleapis.com/auth/business.manage"}

type Config struct {
	ClientID      string
	ClientSecret  string
	RedirectURI   string
	Scopes        []string
	AuthURL       string
	TokenURL      string
	AccountsURL   string
	LocationsURL  string
	LocalPostsURL string

	RequestTimeout time.Duration
	Transport      core.TransportAdapter
	Logger         core.Logger
	Now            func() time.Time
}

// Channel distributes specials to Google Business Profile local posts.
type Channel struct {
	cfg       Config
	transport core.TransportAdapter
	logger    core.Logger
}

func NewChannel(cfg Config) (*Channel, error) {
	cfg.ClientID = strings.TrimSpace(cfg.ClientID)
	cfg.ClientSecret = strings.TrimSpace(cfg.ClientSecret)
	cfg.RedirectURI = strings.TrimSpace(cfg.RedirectURI)
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("business: client id is required")
	}
	if cfg.Transport == nil {
		return nil, fmt.Errorf("business: transport adapter is required")
	}
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = append([]string(nil), defaultScopes...)
	}
	if strings.TrimSpace(cfg.AuthURL) == "" {
		cfg.AuthURL = defaultAuthURL
	}
	if strings.TrimSpace(cfg.TokenURL) == "" {
		cfg.TokenURL = defaultTokenURL
	}
	if strings.TrimSpace(cfg.AccountsURL) == "" {
		cfg.AccountsURL = defaultAccountsURL
	}
	if strings.TrimSpace(cfg.LocationsURL) == "" {
		cfg.LocationsURL = defaultLocationsURL
	}
	if strings.TrimSpace(cfg.LocalPostsURL) == "" {
		cfg.LocalPostsURL = defaultLocalPostsURL
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}

	return &Channel{
		cfg:       cfg,
		transport: cfg.Transport,
		logger:    glog.Ensure(cfg.Logger),
	}, nil
}

func (*Channel) Platform() core.Platform {
	return core.PlatformGoogleBusiness
}

// BeginAuth builds the authorization URL. It is a pure function of the
// channel config and the request: no network, no stored state.
func (c *Channel) BeginAuth(_ context.Context, req core.BeginAuthRequest) (core.BeginAuthResponse, error) {
	if c == nil {
		return core.BeginAuthResponse{}, fmt.Errorf("business: channel is nil")
	}
	redirectURI := strings.TrimSpace(req.RedirectURI)
	if redirectURI == "" {
		redirectURI = c.cfg.RedirectURI
	}
	if redirectURI == "" {
		return core.BeginAuthResponse{}, fmt.Errorf("business: redirect uri is required")
	}

	values := url.Values{}
	values.Set("client_id", c.cfg.ClientID)
	values.Set("redirect_uri", redirectURI)
	values.Set("response_type", "code")
	values.Set("scope", strings.Join(c.cfg.Scopes, " "))
	values.Set("access_type", "offline")
	values.Set("include_granted_scopes", "true")
	values.Set("prompt", "consent")
	if state := strings.TrimSpace(req.State); state != "" {
		values.Set("state", state)
	}

	authURL := c.cfg.AuthURL
	if strings.Contains(authURL, "?") {
		authURL += "&" + values.Encode()
	} else {
		authURL += "?" + values.Encode()
	}

	return core.BeginAuthResponse{
		URL:   authURL,
		State: strings.TrimSpace(req.State),
	}, nil
}

// CompleteAuth exchanges the authorization code, then resolves the
// account and its locations. Resolution trouble is not an error here:
// a freshly provisioned business often has no account yet, so tokens
// are stored and the location list stays empty.
func (c *Channel) CompleteAuth(ctx context.Context, req core.CompleteAuthRequest) (core.CompleteAuthResponse, error) {
	if c == nil {
		return core.CompleteAuthResponse{}, fmt.Errorf("business: channel is nil")
	}
	code := strings.TrimSpace(req.Code)
	if code == "" {
		return core.CompleteAuthResponse{}, fmt.Errorf("business: authorization code is required")
	}
	redirectURI := strings.TrimSpace(req.RedirectURI)
	if redirectURI == "" {
		redirectURI = c.cfg.RedirectURI
	}

	grant, err := c.exchangeCode(ctx, code, redirectURI)
	if err != nil {
		return core.CompleteAuthResponse{}, err
	}

	settings := &core.GoogleBusinessSettings{
		AccessToken:       grant.AccessToken,
		RefreshToken:      grant.RefreshToken,
		DeleteWhenExpired: true,
	}

	resolution, resolveErr := c.resolveAccountAndLocations(ctx, grant.AccessToken)
	if resolveErr != nil {
		c.logInfo(ctx, "google account resolution failed", map[string]any{
			"user_id": req.UserID,
			"error":   resolveErr.Error(),
		})
	} else {
		settings.AccountID = resolution.AccountID
		settings.AccountName = resolution.AccountName
		settings.Locations = resolution.Locations
		settings.LocationsRaw = resolution.LocationsRaw
	}

	return core.CompleteAuthResponse{
		Settings: core.ConnectionSettings{Google: settings},
	}, nil
}

func (c *Channel) logInfo(ctx context.Context, message string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logger := c.logger
	if ctx != nil {
		logger = logger.WithContext(ctx)
	}
	args := make([]any, 0, len(fields)*2)
	for _, key := range sortedKeys(fields) {
		args = append(args, key, fields[key])
	}
	logger.Info(message, args...)
}

func sortedKeys(fields map[string]any) []string {
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

var _ core.DistributionChannel = (*Channel)(nil)
