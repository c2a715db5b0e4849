package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/allyhumai/bridge/internal/interfaces"
	"github.com/allyhumai/bridge/internal/models"
)

// Client submits candidate records to the remote service. Submissions are
// paced with a rate limiter so queue drains don't hammer the endpoint.
type Client struct {
	submitURL string
	client    *http.Client
	limiter   *rate.Limiter
	logger    arbor.ILogger
}

// NewClient creates a delivery client. sendInterval is the minimum
// spacing between submissions; zero disables pacing.
func NewClient(submitURL string, client *http.Client, sendInterval time.Duration, logger arbor.ILogger) interfaces.DeliveryClient {
	var limiter *rate.Limiter
	if sendInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(sendInterval), 1)
	}

	return &Client{
		submitURL: submitURL,
		client:    client,
		limiter:   limiter,
		logger:    logger,
	}
}

// taggedCandidate is the wire body: the candidate record plus the fixed
// provenance tag.
type taggedCandidate struct {
	models.CandidateRecord
	Source string `json:"source"`
}

// Send submits one candidate record with the session's bearer token and
// the tenant routing headers.
func (c *Client) Send(ctx context.Context, candidate *models.CandidateRecord, session *models.Session, tenant *models.TenantConfig) (map[string]any, error) {
	if !session.IsValid() {
		return nil, models.ErrNoSession
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrNetwork, err)
		}
	}

	body, err := json.Marshal(taggedCandidate{
		CandidateRecord: *candidate,
		Source:          models.SourceTag,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode candidate: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.submitURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build submit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+session.AccessToken)
	if session.UserID != "" {
		req.Header.Set("X-Ally-User-Id", session.UserID)
	}
	if tenant != nil && tenant.AgencyID != "" {
		req.Header.Set("X-Ally-Agency-Id", tenant.AgencyID)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("%w: submit returned %d", models.ErrAuthRejected, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("%w: submit returned %d: %s", models.ErrServer, resp.StatusCode, string(detail))
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading submit response: %v", models.ErrNetwork, err)
	}

	// The server may wrap enriched fields under "data"; forward whatever
	// object it gives us.
	var parsed struct {
		Data map[string]any `json:"data"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil || parsed.Data == nil {
		var flat map[string]any
		if json.Unmarshal(respBody, &flat) == nil {
			parsed.Data = flat
		}
	}

	c.logger.Info().
		Str("name", candidate.Name).
		Str("profile_url", candidate.ProfileURL).
		Msg("Candidate delivered")

	return parsed.Data, nil
}
