package distribution

import (
	"time"

	"github.com/appertivo/go-distribution/core"
	"github.com/appertivo/go-distribution/providers/google/business"
)

// GoogleBusinessChannel builds the Google Business Profile channel from
// service configuration and a transport adapter.
func GoogleBusinessChannel(cfg core.Config, transport core.TransportAdapter, logger core.Logger) (core.DistributionChannel, error) {
	channel, err := business.NewChannel(business.Config{
		ClientID:       cfg.Google.OAuth.ClientID,
		ClientSecret:   cfg.Google.OAuth.ClientSecret,
		RedirectURI:    cfg.Google.OAuth.RedirectURI,
		Scopes:         cfg.Google.OAuth.Scopes,
		AuthURL:        cfg.Google.Endpoints.AuthURL,
		TokenURL:       cfg.Google.Endpoints.TokenURL,
		AccountsURL:    cfg.Google.Endpoints.AccountsURL,
		LocationsURL:   cfg.Google.Endpoints.LocationsURL,
		LocalPostsURL:  cfg.Google.Endpoints.LocalPostsURL,
		RequestTimeout: time.Duration(cfg.Google.RequestTimeoutSeconds) * time.Second,
		Transport:      transport,
		Logger:         logger,
	})
	if err != nil {
		return nil, err
	}
	return channel, nil
}

// RegisterGoogleBusiness builds the Google channel and registers it on
// the service's channel registry.
func RegisterGoogleBusiness(service *core.Service, transport core.TransportAdapter) (core.DistributionChannel, error) {
	deps := service.Dependencies()
	channel, err := GoogleBusinessChannel(service.Config(), transport, deps.Logger)
	if err != nil {
		return nil, err
	}
	if err := deps.Registry.Register(channel); err != nil {
		return nil, err
	}
	return channel, nil
}
