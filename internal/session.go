package internal

import "time"

// Session is the per-visitor state that the browser app used to keep in
// local/session storage. Credential and user are replaced wholesale.
type Session struct {
	ID        string           `json:"id"`
	Token     string           `json:"token,omitempty"`
	User      *User            `json:"user,omitempty"`
	LastPlan  *PlanResult      `json:"last_plan,omitempty"`
	Menus     *MenuExploration `json:"menus,omitempty"`
	Confirmed *ConfirmedMenu   `json:"confirmed,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
	ExpiresAt time.Time        `json:"expires_at"`
}

func (s *Session) Authenticated() bool { return s != nil && s.Token != "" }

func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// Handoff is the short-lived copy of the totals forwarded from the plan
// calculator to the menu generator.
type Handoff struct {
	SessionID string    `json:"session_id"`
	Totals    Totals    `json:"totals"`
	ExpiresAt time.Time `json:"expires_at"`
}
