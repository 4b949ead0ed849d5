package infrastructure

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// UpdateSource is the part of the Bot API the poller needs.
type UpdateSource interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// TelegramBotManager long-polls the Bot API and hands every update to
// Handler on its own goroutine.
type TelegramBotManager struct {
	source  UpdateSource
	logger  *slog.Logger
	Handler func(ctx context.Context, update tgbotapi.Update)

	wg sync.WaitGroup
}

func NewTelegramBotManager(source UpdateSource, logger *slog.Logger) *TelegramBotManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &TelegramBotManager{source: source, logger: logger}
}

// Run polls until ctx is cancelled, then waits for in-flight handlers.
func (m *TelegramBotManager) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := m.source.GetUpdatesChan(u)

	m.logger.Info("starting bot polling")
	defer m.wg.Wait()

	for {
		select {
		case <-ctx.Done():
			m.source.StopReceivingUpdates()
			m.logger.Info("stopped bot polling")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			m.wg.Add(1)
			go m.dispatch(ctx, update)
		}
	}
}

// dispatch is the outermost boundary for a single update.
func (m *TelegramBotManager) dispatch(ctx context.Context, update tgbotapi.Update) {
	defer m.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("exception while handling an update",
				slog.Int("update_id", update.UpdateID),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
		}
	}()

	if m.Handler != nil {
		m.Handler(ctx, update)
	}
}
