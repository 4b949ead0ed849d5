package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"telefax/internal/config"
	"telefax/internal/entities"
	"telefax/internal/interfaces"
	"telefax/internal/metrics"
)

// ErrPrinterNotConfigured is reported when CUPS_PRINTER_NAME is empty.
var ErrPrinterNotConfigured = errors.New("printer is not configured")

// PrintResult summarises one dispatched photo.
type PrintResult struct {
	Outcome  string // One of the metrics.Outcome* values
	Decision entities.Decision
	Copies   int
	Output   string // Print system output on success
	Err      error
}

// PrintService runs a photo through eligibility, copy resolution, resizing,
// submission and history update. Any failure ends the request.
type PrintService struct {
	cfg         *config.Config
	eligibility *EligibilityService
	history     interfaces.HistoryStore
	messenger   interfaces.Messenger
	resizer     interfaces.ImageResizer
	printer     interfaces.PrintSubmitter
	metrics     metrics.Recorder
	logger      *slog.Logger
}

// NewPrintService wires the dispatcher. A nil recorder disables metrics.
func NewPrintService(
	cfg *config.Config,
	eligibility *EligibilityService,
	history interfaces.HistoryStore,
	messenger interfaces.Messenger,
	resizer interfaces.ImageResizer,
	printer interfaces.PrintSubmitter,
	recorder metrics.Recorder,
	logger *slog.Logger,
) *PrintService {
	if recorder == nil {
		recorder = metrics.Noop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PrintService{
		cfg:         cfg,
		eligibility: eligibility,
		history:     history,
		messenger:   messenger,
		resizer:     resizer,
		printer:     printer,
		metrics:     recorder,
		logger:      logger,
	}
}

// HandlePhoto processes one inbound photo and replies to its chat.
func (s *PrintService) HandlePhoto(ctx context.Context, req entities.PrintRequest) PrintResult {
	user := req.User
	log := s.logger.With(slog.Int64("user_id", user.ID), slog.String("username", user.Username))

	decision := s.eligibility.Check(user.ID)
	if !decision.Allowed {
		log.Warn("print rejected", slog.String("reason", decision.Message))
		s.metrics.RecordDenial(string(decision.Reason))
		s.reply(req.ChatID, "Sorry, you cannot print right now. "+decision.Message)
		return s.finish(PrintResult{Outcome: metrics.OutcomeDenied, Decision: decision})
	}

	if s.cfg.PrinterName == "" {
		log.Error("CUPS_PRINTER_NAME is not set")
		s.reply(req.ChatID, "Printer is not configured. Please contact the administrator.")
		return s.finish(PrintResult{Outcome: metrics.OutcomeNotConfigured, Decision: decision, Err: ErrPrinterNotConfigured})
	}

	copies, copiesText := s.resolveCopies(user, req.Caption, log)

	s.reply(req.ChatID, fmt.Sprintf("Received image. Resizing for %sin label and preparing to print %s...",
		s.cfg.LabelSize(), copiesText))

	data, err := s.messenger.DownloadFile(ctx, req.FileID)
	if err != nil {
		log.Error("failed to download image", slog.String("error", err.Error()))
		s.reply(req.ChatID, "Failed to process the image.")
		return s.finish(PrintResult{Outcome: metrics.OutcomeImageFailed, Decision: decision, Copies: copies, Err: err})
	}

	width, height := s.cfg.LabelPixels()
	resized, format, err := s.resizer.Resize(data, width, height)
	if err != nil {
		log.Error("failed to resize image", slog.String("error", err.Error()))
		s.reply(req.ChatID, "Failed to process the image.")
		return s.finish(PrintResult{Outcome: metrics.OutcomeImageFailed, Decision: decision, Copies: copies, Err: err})
	}

	// Once handed to lp a job is not cancelled; only the print timeout applies.
	start := time.Now()
	output, err := s.printer.Submit(context.WithoutCancel(ctx), interfaces.PrintJob{
		Data:         resized,
		Format:       format,
		Printer:      s.cfg.PrinterName,
		Copies:       copies,
		WidthInches:  s.cfg.LabelWidthInches,
		HeightInches: s.cfg.LabelHeightInches,
	})
	s.metrics.RecordSubmitLatency(time.Since(start))
	if err != nil {
		log.Error("failed to print image", slog.String("error", err.Error()))
		s.reply(req.ChatID, "Failed to send to printer. Error: "+err.Error())
		return s.finish(PrintResult{Outcome: metrics.OutcomeSubmitFailed, Decision: decision, Copies: copies, Err: err})
	}

	log.Info("sent image to printer", slog.String("printer", s.cfg.PrinterName), slog.Int("copies", copies))
	s.metrics.RecordCopies(copies)
	s.reply(req.ChatID, fmt.Sprintf("Sent %s to printer! CUPS message: %s", CopiesLabel(copies), output))

	if !s.cfg.IsAuthorized(user.ID) && s.cfg.GuestPrinting {
		s.history.Record(user.ID, user.Username)
	}

	return s.finish(PrintResult{Outcome: metrics.OutcomePrinted, Decision: decision, Copies: copies, Output: output})
}

// resolveCopies returns the copy count and its progress text. Guests always
// get one copy.
func (s *PrintService) resolveCopies(user entities.User, caption string, log *slog.Logger) (int, string) {
	requested := ParseCopies(caption, s.cfg.MaxCopies(), log)
	if s.cfg.IsAuthorized(user.ID) {
		return requested, CopiesLabel(requested)
	}
	if requested > 1 {
		log.Info("guest requested multiple copies, printing 1", slog.Int("requested", requested))
		return 1, "1 copy (multiple copies ignored for guest users)"
	}
	return 1, "1 copy"
}

func (s *PrintService) finish(res PrintResult) PrintResult {
	s.metrics.RecordRequest(res.Outcome)
	return res
}

func (s *PrintService) reply(chatID int64, text string) {
	if err := s.messenger.SendText(chatID, text); err != nil {
		s.logger.Error("failed to send reply", slog.Int64("chat_id", chatID), slog.String("error", err.Error()))
	}
}
