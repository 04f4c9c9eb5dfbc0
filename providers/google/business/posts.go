package business

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/appertivo/go-distribution/core"
)

// buildLocalPost maps a special onto the local post wire shape. A
// special carrying both dates becomes an EVENT with a schedule; anything
// else becomes an OFFER whose offer block is always present, even when
// its fields are empty strings.
func buildLocalPost(special core.Special) map[string]any {
	summary := strings.TrimSpace(special.Description)
	if summary == "" {
		summary = special.Title
	}
	post := map[string]any{
		"summary":      summary,
		"languageCode": "en-US",
		"callToAction": map[string]any{
			"actionType": callToActionType(special.CTAType),
			"url":        special.CTAURL,
		},
	}

	if special.HasSchedule() {
		post["topicType"] = "EVENT"
		post["event"] = map[string]any{
			"title": special.Title,
			"schedule": map[string]any{
				"startDate": dateParts(*special.StartDate),
				"endDate":   dateParts(*special.EndDate),
			},
		}
	} else {
		post["topicType"] = "OFFER"
		post["offer"] = map[string]any{
			"couponCode":      "",
			"redeemOnlineUrl": special.CTAURL,
			"termsConditions": "",
		}
	}

	if strings.TrimSpace(special.ImageURL) != "" {
		post["media"] = []map[string]any{
			{
				"mediaFormat": "PHOTO",
				"sourceUrl":   special.ImageURL,
			},
		}
	}
	return post
}

func callToActionType(cta core.CTAType) string {
	if strings.EqualFold(strings.TrimSpace(string(cta)), string(core.CTATypeOrder)) {
		return "ORDER"
	}
	return "LEARN_MORE"
}

func dateParts(date time.Time) map[string]any {
	return map[string]any{
		"year":  date.Year(),
		"month": int(date.Month()),
		"day":   date.Day(),
	}
}

// Publish creates a local post for the special at the connection's
// stored location.
func (c *Channel) Publish(ctx context.Context, conn core.Connection, special core.Special) core.DistributionReport {
	return c.PublishAt(ctx, conn, special, "")
}

// PublishAt creates a local post, targeting locationID when supplied
// instead of the stored default. Missing credentials or an unresolved
// location skip with zero remote calls; the token refresh before the
// create is opportunistic and its result is reported through the
// settings on the report so the caller persists it.
func (c *Channel) PublishAt(ctx context.Context, conn core.Connection, special core.Special, locationID string) core.DistributionReport {
	report := core.DistributionReport{
		Platform:     core.PlatformGoogleBusiness,
		ConnectionID: conn.ID,
		SpecialID:    special.ID,
	}
	if c == nil || c.transport == nil {
		report.Outcome = core.OutcomeFailed
		report.Reason = "channel not configured"
		report.Err = fmt.Errorf("business: channel is not configured")
		return report
	}
	if !conn.IsConnected || conn.Settings.Google == nil {
		report.Outcome = core.OutcomeSkipped
		report.Reason = "google connection not established"
		return report
	}

	settings := conn.Settings.Google.Clone()
	targetLocation := strings.TrimSpace(locationID)
	if targetLocation == "" {
		targetLocation = strings.TrimSpace(settings.LocationID)
	}
	if strings.TrimSpace(settings.AccountID) == "" || targetLocation == "" {
		report.Outcome = core.OutcomeSkipped
		report.Reason = "no location selected"
		return report
	}

	if c.ensureFreshAccessToken(ctx, settings) {
		report.Settings = &core.ConnectionSettings{Google: settings}
	}
	if strings.TrimSpace(settings.AccessToken) == "" {
		report.Outcome = core.OutcomeSkipped
		report.Reason = "no usable access token"
		return report
	}

	name, err := c.createLocalPost(ctx, settings.AccessToken, settings.AccountID, targetLocation, special)
	if err != nil {
		report.Outcome = core.OutcomeFailed
		report.Reason = "local post create failed"
		report.Err = err
		return report
	}

	report.Outcome = core.OutcomePublished
	report.RemotePostName = name
	return report
}

// Retract deletes the special's local post. Preconditions that cannot
// be met (no connection, no stored post name, deletion disabled for
// expired specials) skip with zero remote calls. A non-2xx delete is a
// failure and is not retried.
func (c *Channel) Retract(ctx context.Context, conn core.Connection, special core.Special) core.DistributionReport {
	report := core.DistributionReport{
		Platform:     core.PlatformGoogleBusiness,
		ConnectionID: conn.ID,
		SpecialID:    special.ID,
	}
	if c == nil || c.transport == nil {
		report.Outcome = core.OutcomeFailed
		report.Reason = "channel not configured"
		report.Err = fmt.Errorf("business: channel is not configured")
		return report
	}
	if !conn.IsConnected || conn.Settings.Google == nil {
		report.Outcome = core.OutcomeSkipped
		report.Reason = "google connection not established"
		return report
	}
	if strings.TrimSpace(special.RemotePostName) == "" {
		report.Outcome = core.OutcomeSkipped
		report.Reason = "no remote post recorded"
		return report
	}

	settings := conn.Settings.Google.Clone()
	if special.Status == core.SpecialStatusExpired && !settings.DeleteWhenExpired {
		report.Outcome = core.OutcomeSkipped
		report.Reason = "expired post deletion disabled"
		return report
	}

	if c.ensureFreshAccessToken(ctx, settings) {
		report.Settings = &core.ConnectionSettings{Google: settings}
	}
	if strings.TrimSpace(settings.AccessToken) == "" {
		report.Outcome = core.OutcomeSkipped
		report.Reason = "no usable access token"
		return report
	}

	if err := c.deleteLocalPost(ctx, settings.AccessToken, special.RemotePostName); err != nil {
		report.Outcome = core.OutcomeFailed
		report.Reason = "local post delete failed"
		report.Err = err
		return report
	}

	report.Outcome = core.OutcomeRetracted
	return report
}

func (c *Channel) createLocalPost(ctx context.Context, accessToken string, accountID string, locationID string, special core.Special) (string, error) {
	body, err := json.Marshal(buildLocalPost(special))
	if err != nil {
		return "", fmt.Errorf("business: encode local post: %w", err)
	}

	res, err := c.transport.Do(ctx, core.TransportRequest{
		Method: http.MethodPost,
		URL: fmt.Sprintf(
			"%s/accounts/%s/locations/%s/localPosts",
			c.cfg.LocalPostsURL,
			accountID,
			locationID,
		),
		Headers: map[string]string{
			"Authorization": "Bearer " + accessToken,
			"Content-Type":  "application/json",
			"Accept":        "application/json",
		},
		Body:    body,
		Timeout: c.cfg.RequestTimeout,
	})
	if err != nil {
		return "", fmt.Errorf("business: create local post: %w", err)
	}
	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("business: create local post returned status %d", res.StatusCode)
	}

	var created struct {
		Name string `json:"name"`
	}
	if len(res.Body) > 0 {
		if decodeErr := json.Unmarshal(res.Body, &created); decodeErr != nil {
			return "", fmt.Errorf("business: decode local post response: %w", decodeErr)
		}
	}
	if strings.TrimSpace(created.Name) == "" {
		return "", fmt.Errorf("business: local post response missing name")
	}
	return strings.TrimSpace(created.Name), nil
}

func (c *Channel) deleteLocalPost(ctx context.Context, accessToken string, postName string) error {
	res, err := c.transport.Do(ctx, core.TransportRequest{
		Method: http.MethodDelete,
		URL:    c.cfg.LocalPostsURL + "/" + strings.TrimPrefix(postName, "/"),
		Headers: map[string]string{
			"Authorization": "Bearer " + accessToken,
			"Accept":        "application/json",
		},
		Timeout: c.cfg.RequestTimeout,
	})
	if err != nil {
		return fmt.Errorf("business: delete local post: %w", err)
	}
	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("business: delete local post returned status %d", res.StatusCode)
	}
	return nil
}
