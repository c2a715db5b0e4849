package tenant

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/ternarybob/arbor"
	"golang.org/x/sync/singleflight"

	"github.com/allyhumai/bridge/internal/models"
)

// SessionSource supplies the current session for authenticated fetches.
type SessionSource interface {
	Current() *models.Session
}

// Service memoizes the per-account configuration declared by the remote
// service. The cached value lives for the process lifetime or until
// Invalidate; concurrent callers share a single in-flight fetch.
type Service struct {
	configURL string
	client    *http.Client
	sessions  SessionSource
	logger    arbor.ILogger

	mu     sync.RWMutex
	cached *models.TenantConfig
	group  singleflight.Group
}

// NewService creates a tenant config service
func NewService(configURL string, client *http.Client, sessions SessionSource, logger arbor.ILogger) *Service {
	return &Service{
		configURL: configURL,
		client:    client,
		sessions:  sessions,
		logger:    logger,
	}
}

// Get returns the tenant config, fetching it on first use. Requires a
// valid session. A session that already carries an agency identifier
// short-circuits the network fetch entirely.
func (s *Service) Get(ctx context.Context) (*models.TenantConfig, error) {
	s.mu.RLock()
	cached := s.cached
	s.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}

	session := s.sessions.Current()
	if !session.IsValid() {
		return nil, models.ErrNoSession
	}

	if session.AgencyID != "" {
		config := &models.TenantConfig{AgencyID: session.AgencyID}
		s.mu.Lock()
		s.cached = config
		s.mu.Unlock()
		return config, nil
	}

	// Coalesce concurrent callers into one fetch; all waiters share the
	// result or the error.
	result, err, _ := s.group.Do("tenant-config", func() (interface{}, error) {
		config, fetchErr := s.fetch(ctx, session)
		if fetchErr != nil {
			return nil, fetchErr
		}
		s.mu.Lock()
		s.cached = config
		s.mu.Unlock()
		return config, nil
	})
	if err != nil {
		s.Invalidate()
		return nil, err
	}

	return result.(*models.TenantConfig), nil
}

// Invalidate clears the cached value and any completed flight reference,
// forcing the next Get to refetch.
func (s *Service) Invalidate() {
	s.mu.Lock()
	s.cached = nil
	s.mu.Unlock()
	s.group.Forget("tenant-config")
}

func (s *Service) fetch(ctx context.Context, session *models.Session) (*models.TenantConfig, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.configURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build config request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+session.AccessToken)
	if session.UserID != "" {
		req.Header.Set("X-Ally-User-Id", session.UserID)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: config fetch: %v", models.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("%w: config fetch returned %d", models.ErrAuthRejected, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: config fetch returned %d", models.ErrServer, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading config response: %v", models.ErrNetwork, err)
	}

	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: invalid config response: %v", models.ErrServer, err)
	}

	agencyID, _ := parsed["agency_id"].(string)
	if agencyID == "" {
		return nil, fmt.Errorf("%w: config response missing agency_id", models.ErrServer)
	}

	s.logger.Debug().Str("agency_id", agencyID).Msg("Tenant config fetched")

	return &models.TenantConfig{
		AgencyID: agencyID,
		Extra:    parsed,
	}, nil
}
