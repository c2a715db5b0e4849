package interfaces

import (
	"context"

	"github.com/allyhumai/bridge/internal/models"
)

// DeliveryClient performs the authenticated network submission of one
// candidate record. Failures are classified with the models sentinel
// errors: ErrAuthRejected (teardown, never retried with the same
// session), ErrServer and ErrNetwork (retryable via the pending queue).
type DeliveryClient interface {
	// Send submits one candidate. On success it returns the parsed
	// server response data, which may carry enriched fields for the
	// originating tab.
	Send(ctx context.Context, candidate *models.CandidateRecord, session *models.Session, tenant *models.TenantConfig) (map[string]any, error)
}
