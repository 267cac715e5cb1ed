package models

import "strings"

// Criteria filters a checkout. Empty fields match anything.
type Criteria struct {
	Type      EgressType
	Country   string
	State     string
	StickyKey string
}

// Normalize upper-cases the geographic fields.
func (c Criteria) Normalize() Criteria {
	c.Country = strings.ToUpper(strings.TrimSpace(c.Country))
	c.State = strings.ToUpper(strings.TrimSpace(c.State))
	return c
}

// Matches reports whether d satisfies the type and location filters.
// Health and in-use state are not considered.
func (c Criteria) Matches(d *ProxyDescriptor) bool {
	if c.Type != "" && d.Type != c.Type {
		return false
	}
	if c.Country != "" && !strings.EqualFold(d.Country, c.Country) {
		return false
	}
	if c.State != "" && !strings.EqualFold(d.State, c.State) {
		return false
	}
	return true
}

// Stats is a point-in-time summary of the pool
type Stats struct {
	Total      int                      `json:"total"`
	Healthy    int                      `json:"healthy"`
	Degraded   int                      `json:"degraded"`
	Dead       int                      `json:"dead"`
	Unknown    int                      `json:"unknown"`
	InUse      int                      `json:"in_use"`
	ByProvider map[string]ProviderStats `json:"by_provider,omitempty"`
}

type ProviderStats struct {
	Total     int `json:"total"`
	Available int `json:"available"`
	Dead      int `json:"dead"`
}
