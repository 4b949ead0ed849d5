package entities

import "time"

// UnknownUsername is stored when a user has no Telegram username.
const UnknownUsername = "Unknown"

// PrintHistoryEntry is the last successful guest print of a user.
type PrintHistoryEntry struct {
	UserID    int64     `json:"user_id"`
	LastPrint time.Time `json:"last_print"`
	Username  string    `json:"username"`
}

// PrintRequest is one inbound photo, alive for a single dispatch.
type PrintRequest struct {
	ChatID  int64
	User    User
	Caption string
	FileID  string // Largest photo size
}

// DenyReason explains a negative eligibility decision.
type DenyReason string

const (
	ReasonNone               DenyReason = ""
	ReasonRateLimited        DenyReason = "rate_limited"
	ReasonGuestsNotPermitted DenyReason = "guests_not_permitted"
)

// Decision is the outcome of an eligibility check.
type Decision struct {
	Allowed   bool
	Reason    DenyReason
	Remaining time.Duration // Only set for ReasonRateLimited
	Message   string        // User-facing text, empty when allowed
}

// RateLimited reports whether the user is still inside the guest cooldown.
func (d Decision) RateLimited() bool {
	return !d.Allowed && d.Reason == ReasonRateLimited
}
