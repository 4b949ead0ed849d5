package usecases

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"
)

var (
	copiesShortPattern = regexp.MustCompile(`^x(\d+)$`)
	copiesLongPattern  = regexp.MustCompile(`^copies\s*=\s*(\d+)$`)
)

// ParseCopies extracts the copy count from an image caption.
// The caption must be exactly "x<n>" or "copies=<n>" after trimming and
// lower-casing; anything else, or a count outside [1, maxCopies], yields 1.
func ParseCopies(caption string, maxCopies int, logger *slog.Logger) int {
	if logger == nil {
		logger = slog.Default()
	}
	if caption == "" {
		return 1
	}

	normalized := strings.ToLower(strings.TrimSpace(caption))

	var digits string
	if m := copiesShortPattern.FindStringSubmatch(normalized); m != nil {
		digits = m[1]
	} else if m := copiesLongPattern.FindStringSubmatch(normalized); m != nil {
		digits = m[1]
	} else {
		logger.Info("caption did not match copy format, defaulting to 1 copy", slog.String("caption", normalized))
		return 1
	}

	copies, err := strconv.Atoi(digits)
	if err != nil {
		logger.Warn("copy count out of range, defaulting to 1",
			slog.String("requested", digits), slog.Int("max_copies", maxCopies))
		return 1
	}
	if copies < 1 || copies > maxCopies {
		logger.Warn("copy count out of range, defaulting to 1",
			slog.Int("requested", copies), slog.Int("max_copies", maxCopies))
		return 1
	}
	return copies
}
