package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"telefax/internal/config"
	"telefax/internal/infrastructure"
	statushttp "telefax/internal/interfaces/http"
	"telefax/internal/interfaces/telegram"
	"telefax/internal/logger"
	"telefax/internal/metrics"
	"telefax/internal/repository"
	"telefax/internal/usecases"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "FATAL:", err)
		os.Exit(1)
	}

	log := logger.SetupDefault(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	for _, w := range cfg.Warnings {
		log.Warn(w)
	}
	logStartupMode(log, cfg)

	history := openHistory(cfg.HistoryFile, log)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewCollector(reg)

	tgClient, err := infrastructure.NewTelegramClient(cfg.BotToken)
	if err != nil {
		log.Error("failed to connect to Telegram", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log.Info("telegram bot connected", slog.String("username", tgClient.BotUserName()))

	eligibility := usecases.NewEligibilityService(cfg, history, log)
	auth := usecases.NewAuthUsecase(cfg.StatusAPISecret)
	commands := usecases.NewCommandService(cfg, eligibility, auth, log)
	prints := usecases.NewPrintService(
		cfg,
		eligibility,
		history,
		tgClient,
		infrastructure.NewImageResizer(),
		infrastructure.NewCUPSPrinter(cfg.PrintServerHost, cfg.PrintTimeout, log),
		recorder,
		log,
	)

	sessions := infrastructure.NewSessionManager()
	router := telegram.NewRouter(
		commands,
		prints,
		tgClient,
		infrastructure.NewChatRateLimiter(cfg.ChatRatePerMinute, cfg.ChatRateBurst),
		sessions,
		log,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var server *http.Server
	if cfg.StatusAddr != "" {
		gin.SetMode(gin.ReleaseMode)
		r := gin.New()
		r.Use(gin.Recovery())
		statushttp.SetupRoutes(r,
			statushttp.NewHandler(cfg, history, sessions, log),
			statushttp.NewMiddleware(auth, cfg),
			reg,
		)
		server = &http.Server{
			Addr:              cfg.StatusAddr,
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			log.Info("status server listening", slog.String("addr", cfg.StatusAddr))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("status server failed", slog.String("error", err.Error()))
			}
		}()
		if !auth.Enabled() {
			log.Warn("STATUS_API_SECRET is not set, /api routes are disabled")
		}
	}

	manager := infrastructure.NewTelegramBotManager(tgClient.Bot, log)
	manager.Handler = router.HandleUpdate
	manager.Run(ctx)

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("status server shutdown failed", slog.String("error", err.Error()))
		}
	}
	log.Info("bot stopped")
}

// openHistory loads the print history regardless of the guest flag, so a
// recent guest print still reports a cooldown after guests are disabled.
func openHistory(path string, log *slog.Logger) *repository.HistoryRepository {
	history := repository.NewHistoryRepository(path, log)
	n := history.Load()
	log.Info("print history ready", slog.String("path", history.Path()), slog.Int("entries", n))
	return history
}

func logStartupMode(log *slog.Logger, cfg *config.Config) {
	allowed := cfg.AllowedUserIDs()
	if len(allowed) > 0 {
		log.Info("authorized users configured", slog.Any("user_ids", allowed))
	} else {
		log.Warn("ALLOWED_USER_IDS is not set, no users have authorized privileges")
	}

	if cfg.GuestPrinting {
		log.Info("guest printing is ENABLED: non-authorized users can print one copy every 7 days",
			slog.String("history_file", cfg.HistoryFile))
	} else {
		log.Info("guest printing is DISABLED: only authorized users can print")
	}
	if len(allowed) == 0 && !cfg.GuestPrinting {
		log.Warn("ALLOWED_USER_IDS is not set AND Guest printing is DISABLED. No one can print!")
	}

	if cfg.PrinterName == "" {
		log.Warn("CUPS_PRINTER_NAME is not set, printing will fail")
	} else {
		log.Info("printer configured",
			slog.String("printer", cfg.PrinterName),
			slog.String("server", cfg.PrintServerHost),
			slog.String("label", cfg.LabelSize()),
			slog.Int("max_copies", cfg.MaxCopies()))
	}
}
