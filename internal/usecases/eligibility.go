package usecases

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"telefax/internal/config"
	"telefax/internal/entities"
	"telefax/internal/interfaces"
)

// GuestsNotPermittedMessage is shown to guests while guest printing is off.
const GuestsNotPermittedMessage = "Printing is restricted to authorized users only."

// EligibilityService decides whether a user may print right now.
// It only reads the history store.
type EligibilityService struct {
	cfg      *config.Config
	history  interfaces.HistoryStore
	cooldown time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

// NewEligibilityService wires the engine with the fixed guest cooldown.
func NewEligibilityService(cfg *config.Config, history interfaces.HistoryStore, logger *slog.Logger) *EligibilityService {
	if logger == nil {
		logger = slog.Default()
	}
	return &EligibilityService{
		cfg:      cfg,
		history:  history,
		cooldown: config.GuestCooldown,
		now:      time.Now,
		logger:   logger,
	}
}

// SetClock replaces the time source.
func (s *EligibilityService) SetClock(now func() time.Time) {
	s.now = now
}

// Check evaluates, in order: allow-list, guest cooldown, guest printing flag.
// The cooldown check wins over the guest flag.
func (s *EligibilityService) Check(userID int64) entities.Decision {
	if s.cfg.IsAuthorized(userID) {
		return entities.Decision{Allowed: true}
	}

	if entry, ok := s.history.Lookup(userID); ok {
		elapsed := s.now().UTC().Sub(entry.LastPrint)
		if elapsed < s.cooldown {
			remaining := s.cooldown - elapsed
			s.logger.Info("user still within print cooldown",
				slog.Int64("user_id", userID), slog.Duration("remaining", remaining))
			return entities.Decision{
				Reason:    entities.ReasonRateLimited,
				Remaining: remaining,
				Message:   fmt.Sprintf("You have already printed recently. Please wait %s before printing again.", FormatWait(remaining)),
			}
		}
	}

	if !s.cfg.GuestPrinting {
		s.logger.Warn("guest printing disabled, rejecting non-authorized user", slog.Int64("user_id", userID))
		return entities.Decision{
			Reason:  entities.ReasonGuestsNotPermitted,
			Message: GuestsNotPermittedMessage,
		}
	}

	return entities.Decision{Allowed: true}
}

// FormatWait renders a remaining wait as "2 days, 3 hours", "1 hour",
// "5 minutes" or "less than a minute". Minutes only appear when there are
// no days and no hours.
func FormatWait(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	days := int(d / (24 * time.Hour))
	d -= time.Duration(days) * 24 * time.Hour
	hours := int(d / time.Hour)
	minutes := int((d % time.Hour) / time.Minute)

	var parts []string
	if days > 0 {
		parts = append(parts, plural(days, "day"))
	}
	if hours > 0 {
		parts = append(parts, plural(hours, "hour"))
	}
	if days == 0 && hours == 0 && minutes > 0 {
		parts = append(parts, plural(minutes, "minute"))
	}
	if len(parts) == 0 {
		return "less than a minute"
	}
	return strings.Join(parts, ", ")
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// CopiesLabel renders "1 copy" or "N copies".
func CopiesLabel(n int) string {
	if n == 1 {
		return "1 copy"
	}
	return fmt.Sprintf("%d copies", n)
}
