package usecases

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"telefax/internal/config"
	"telefax/internal/entities"
)

// Reply is a command response; HTML selects the HTML parse mode.
type Reply struct {
	Text string
	HTML bool
}

// CommandService answers the bot commands.
type CommandService struct {
	cfg         *config.Config
	eligibility *EligibilityService
	auth        *AuthUsecase
	logger      *slog.Logger
}

func NewCommandService(cfg *config.Config, eligibility *EligibilityService, auth *AuthUsecase, logger *slog.Logger) *CommandService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CommandService{cfg: cfg, eligibility: eligibility, auth: auth, logger: logger}
}

// Start builds the /start welcome.
func (s *CommandService) Start(user entities.User) Reply {
	s.logger.Info("start command", slog.Int64("user_id", user.ID), slog.String("username", user.Username))

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Hi %s! Send me an image to print on the label printer.", user.MentionHTML()))

	if s.cfg.PrinterName == "" {
		sb.WriteString("\n\n<b>⚠️ Warning:</b> The printer is not configured. Printing is currently disabled. Please contact the administrator.")
		s.logger.Warn("informing user that printer is not configured", slog.Int64("user_id", user.ID))
	}
	sb.WriteString(s.statusLine(user.ID))

	return Reply{Text: sb.String(), HTML: true}
}

// Help builds the /help text. Authorized users get the full command list.
func (s *CommandService) Help(user entities.User) Reply {
	s.logger.Info("help command", slog.Int64("user_id", user.ID), slog.String("username", user.Username))

	label := s.cfg.LabelSize()
	var sb strings.Builder
	sb.WriteString("<b>🤖 Bot Commands & Usage:</b>\n\n")
	sb.WriteString("👋 /start - Display the welcome message.\n")
	sb.WriteString("❓ /help - Show this help message.\n")

	if s.cfg.IsAuthorized(user.ID) {
		sb.WriteString("⚙️ /setmaxcopies &lt;number&gt; - Set the max copies allowed per print (e.g., <code>/setmaxcopies 50</code>). (Authorized users only)\n")
		if s.auth != nil && s.auth.Enabled() {
			sb.WriteString("🔑 /apitoken - Get a 24 hour token for the status API. (Authorized users only)\n")
		}
		sb.WriteString("\n<b>🖨️ Printing:</b>\n")
		sb.WriteString(fmt.Sprintf("Simply send an image 🖼️ to the chat. The bot will automatically resize it and print it on a %s inch label.\n\n", label))
		sb.WriteString("<b>#️⃣ Multiple Copies:</b>\n")
		sb.WriteString("To print multiple copies, the image caption must contain <b>only</b> the copy specifier (case-insensitive, ignoring surrounding whitespace):\n")
		sb.WriteString("• <code>x3</code> (prints 3 copies)\n")
		sb.WriteString("• <code>copies=5</code> (prints 5 copies)\n")
		sb.WriteString("Any other text in the caption, or no caption, will result in 1 copy being printed.\n\n")
		sb.WriteString(fmt.Sprintf("<b>⚠️ Max Copies Limit:</b>\nThe maximum number of copies per request is currently <b>%d</b>.", s.cfg.MaxCopies()))
	} else {
		sb.WriteString("\n<b>🖨️ Printing:</b>\n")
		sb.WriteString(fmt.Sprintf("Simply send an image 🖼️ to the chat. The bot will automatically resize it and print <b>one copy</b> on a %s inch label.", label))
	}

	sb.WriteString("\n\n<b>👤 Guest Printing:</b>\n")
	if s.cfg.GuestPrinting {
		sb.WriteString("Guest printing is currently <b>enabled</b>. Users not on the authorized list can print one image every 7 days.")
	} else {
		sb.WriteString("Guest printing is currently <b>disabled</b>. Only authorized users can print.")
	}
	sb.WriteString(s.statusLine(user.ID))

	return Reply{Text: sb.String(), HTML: true}
}

// statusLine reports the cooldown to rate-limited guests. Authorized users
// never see it.
func (s *CommandService) statusLine(userID int64) string {
	if s.cfg.IsAuthorized(userID) {
		return ""
	}
	if d := s.eligibility.Check(userID); d.RateLimited() {
		return "\n\n<b>⏳ Status:</b> " + d.Message
	}
	return ""
}

// SetMaxCopies changes the per-request copy limit for this process.
func (s *CommandService) SetMaxCopies(user entities.User, args string) Reply {
	if !s.cfg.IsAuthorized(user.ID) {
		s.logger.Warn("unauthorized /setmaxcopies attempt",
			slog.Int64("user_id", user.ID), slog.String("username", user.Username))
		return Reply{Text: "Sorry, you are not authorized to use this command."}
	}

	fields := strings.Fields(args)
	if len(fields) != 1 {
		return Reply{Text: "Usage: /setmaxcopies <number>\nExample: /setmaxcopies 50"}
	}

	n, err := strconv.Atoi(fields[0])
	if err != nil {
		return Reply{Text: "Invalid number provided. Please enter a whole number."}
	}
	if err := s.cfg.SetMaxCopies(n); err != nil {
		return Reply{Text: "Maximum copies must be a positive number."}
	}

	s.logger.Info("max copies changed", slog.Int64("user_id", user.ID), slog.Int("max_copies", n))
	return Reply{Text: fmt.Sprintf("Maximum copies per request set to <b>%d</b> for this session.", n), HTML: true}
}

// APIToken issues a status API token to an authorized user.
func (s *CommandService) APIToken(user entities.User) Reply {
	if !s.cfg.IsAuthorized(user.ID) {
		s.logger.Warn("unauthorized /apitoken attempt", slog.Int64("user_id", user.ID))
		return Reply{Text: "Sorry, you are not authorized to use this command."}
	}
	if s.auth == nil || !s.auth.Enabled() {
		return Reply{Text: "The status API is disabled on this bot."}
	}

	token, exp, err := s.auth.IssueToken(user.ID)
	if err != nil {
		s.logger.Error("failed to issue api token", slog.String("error", err.Error()))
		return Reply{Text: "An error occurred while creating the token."}
	}
	return Reply{
		Text: fmt.Sprintf("Status API token (valid until %s UTC):\n<code>%s</code>", exp.UTC().Format("2006-01-02 15:04"), token),
		HTML: true,
	}
}
