package business

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/appertivo/go-distribution/core"
)

// assumedAccountIndex selects the account that backs a connection. The
// product assumes one Business Profile account per user; this constant
// keeps that assumption in a single place.
const assumedAccountIndex = 0

// locationReadMask limits the location listing to the fields the
// dashboard needs.
const locationReadMask = "name,title,storeCode,storefrontAddress"

// AccountResolution is the normalized outcome of listing the user's
// accounts and the chosen account's locations. Zero accounts is a
// legitimate state, not an error: a business that has not finished
// provisioning simply resolves to an empty value.
type AccountResolution struct {
	AccountID    string
	AccountName  string
	Locations    []core.Location
	LocationsRaw json.RawMessage
}

type accountsPayload struct {
	Accounts []struct {
		Name        string `json:"name"`
		AccountName string `json:"accountName"`
	} `json:"accounts"`
}

type locationsPayload struct {
	Locations []struct {
		Name              string `json:"name"`
		Title             string `json:"title"`
		StoreCode         string `json:"storeCode"`
		StorefrontAddress struct {
			AddressLines       []string `json:"addressLines"`
			Locality           string   `json:"locality"`
			AdministrativeArea string   `json:"administrativeArea"`
			PostalCode         string   `json:"postalCode"`
		} `json:"storefrontAddress"`
	} `json:"locations"`
}

func (c *Channel) resolveAccountAndLocations(ctx context.Context, accessToken string) (AccountResolution, error) {
	accessToken = strings.TrimSpace(accessToken)
	if accessToken == "" {
		return AccountResolution{}, fmt.Errorf("business: access token is required for account resolution")
	}

	accounts, err := c.listAccounts(ctx, accessToken)
	if err != nil {
		return AccountResolution{}, err
	}
	if len(accounts.Accounts) == 0 {
		return AccountResolution{}, nil
	}

	account := accounts.Accounts[assumedAccountIndex]
	resolution := AccountResolution{
		AccountID:   trailingSegment(account.Name),
		AccountName: strings.TrimSpace(account.AccountName),
	}

	locations, raw, err := c.listLocations(ctx, accessToken, resolution.AccountID)
	if err != nil {
		return AccountResolution{}, err
	}
	resolution.Locations = locations
	resolution.LocationsRaw = raw
	return resolution, nil
}

func (c *Channel) listAccounts(ctx context.Context, accessToken string) (accountsPayload, error) {
	res, err := c.transport.Do(ctx, core.TransportRequest{
		Method: http.MethodGet,
		URL:    c.cfg.AccountsURL + "/accounts",
		Headers: map[string]string{
			"Authorization": "Bearer " + accessToken,
			"Accept":        "application/json",
		},
		Timeout: c.cfg.RequestTimeout,
	})
	if err != nil {
		return accountsPayload{}, fmt.Errorf("business: list accounts: %w", err)
	}
	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		return accountsPayload{}, fmt.Errorf("business: list accounts returned status %d", res.StatusCode)
	}

	var payload accountsPayload
	if len(res.Body) > 0 {
		if decodeErr := json.Unmarshal(res.Body, &payload); decodeErr != nil {
			return accountsPayload{}, fmt.Errorf("business: decode accounts response: %w", decodeErr)
		}
	}
	return payload, nil
}

func (c *Channel) listLocations(ctx context.Context, accessToken string, accountID string) ([]core.Location, json.RawMessage, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return nil, nil, nil
	}

	res, err := c.transport.Do(ctx, core.TransportRequest{
		Method: http.MethodGet,
		URL:    fmt.Sprintf("%s/accounts/%s/locations", c.cfg.LocationsURL, accountID),
		Headers: map[string]string{
			"Authorization": "Bearer " + accessToken,
			"Accept":        "application/json",
		},
		Query: map[string]string{
			"readMask": locationReadMask,
		},
		Timeout: c.cfg.RequestTimeout,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("business: list locations: %w", err)
	}
	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		return nil, nil, fmt.Errorf("business: list locations returned status %d", res.StatusCode)
	}

	var payload locationsPayload
	if len(res.Body) > 0 {
		if decodeErr := json.Unmarshal(res.Body, &payload); decodeErr != nil {
			return nil, nil, fmt.Errorf("business: decode locations response: %w", decodeErr)
		}
	}

	locations := make([]core.Location, 0, len(payload.Locations))
	for _, item := range payload.Locations {
		id := trailingSegment(item.Name)
		locations = append(locations, core.Location{
			ID:      id,
			Name:    locationLabel(item.Title, item.StoreCode, id),
			Address: formatAddress(item.StorefrontAddress.AddressLines, item.StorefrontAddress.Locality, item.StorefrontAddress.AdministrativeArea),
		})
	}
	return locations, append(json.RawMessage(nil), res.Body...), nil
}

// trailingSegment extracts the resource ID from a Google resource name
// such as "accounts/123" or "locations/456".
func trailingSegment(name string) string {
	name = strings.TrimSpace(strings.Trim(name, "/"))
	if name == "" {
		return ""
	}
	parts := strings.Split(name, "/")
	return parts[len(parts)-1]
}

// locationLabel picks a display label: title, then store code, then the
// bare resource ID.
func locationLabel(title string, storeCode string, id string) string {
	if label := strings.TrimSpace(title); label != "" {
		return label
	}
	if label := strings.TrimSpace(storeCode); label != "" {
		return label
	}
	return id
}

func formatAddress(lines []string, locality string, administrativeArea string) string {
	parts := make([]string, 0, len(lines)+2)
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			parts = append(parts, line)
		}
	}
	if locality = strings.TrimSpace(locality); locality != "" {
		parts = append(parts, locality)
	}
	if administrativeArea = strings.TrimSpace(administrativeArea); administrativeArea != "" {
		parts = append(parts, administrativeArea)
	}
	return strings.Join(parts, ", ")
}
