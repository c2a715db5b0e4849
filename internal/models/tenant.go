package models

// TenantConfig holds per-account settings declared by the remote service,
// notably the agency identifier used to route submissions. Derived from a
// valid session, memoized for the process lifetime, never persisted.
type TenantConfig struct {
	AgencyID string         `json:"agency_id"`
	Extra    map[string]any `json:"-"`
}
