package telegram

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"telefax/internal/config"
	"telefax/internal/infrastructure"
	"telefax/internal/interfaces"
	"telefax/internal/logger"
	"telefax/internal/repository"
	"telefax/internal/usecases"
)

type recordingMessenger struct {
	mu    sync.Mutex
	texts []string
	block chan struct{}
}

func (m *recordingMessenger) SendText(chatID int64, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.texts = append(m.texts, text)
	return nil
}

func (m *recordingMessenger) SendHTML(chatID int64, html string) error {
	return m.SendText(chatID, html)
}

func (m *recordingMessenger) DownloadFile(ctx context.Context, fileID string) ([]byte, error) {
	if m.block != nil {
		<-m.block
	}
	return []byte(fileID), nil
}

func (m *recordingMessenger) all() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return strings.Join(m.texts, "\n---\n")
}

type passthroughResizer struct{}

func (passthroughResizer) Resize(data []byte, w, h int) ([]byte, string, error) {
	return data, "jpeg", nil
}

type countingPrinter struct {
	mu   sync.Mutex
	jobs []interfaces.PrintJob
}

func (p *countingPrinter) Submit(ctx context.Context, job interfaces.PrintJob) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.jobs = append(p.jobs, job)
	return "request id is Zebra-1", nil
}

type routerFixture struct {
	router    *Router
	messenger *recordingMessenger
	printer   *countingPrinter
	history   *repository.HistoryRepository
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	cfg := config.New([]int64{1}, 10, true)
	cfg.PrinterName = "Zebra"
	log := logger.Discard()

	history := repository.NewHistoryRepository(t.TempDir()+"/history.json", log)
	engine := usecases.NewEligibilityService(cfg, history, log)
	messenger := &recordingMessenger{}
	printer := &countingPrinter{}
	prints := usecases.NewPrintService(cfg, engine, history, messenger, passthroughResizer{}, printer, nil, log)
	commands := usecases.NewCommandService(cfg, engine, usecases.NewAuthUsecase(""), log)

	router := NewRouter(commands, prints, messenger,
		infrastructure.NewChatRateLimiter(600, 100), infrastructure.NewSessionManager(), log)
	return &routerFixture{router: router, messenger: messenger, printer: printer, history: history}
}

func commandUpdate(userID int64, text string) tgbotapi.Update {
	cmdLen := len(text)
	if i := strings.Index(text, " "); i > 0 {
		cmdLen = i
	}
	return tgbotapi.Update{Message: &tgbotapi.Message{
		From:     &tgbotapi.User{ID: userID, UserName: "u"},
		Chat:     &tgbotapi.Chat{ID: userID},
		Text:     text,
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: cmdLen}},
	}}
}

func photoUpdate(userID int64, caption string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		From:    &tgbotapi.User{ID: userID, UserName: "u"},
		Chat:    &tgbotapi.Chat{ID: userID},
		Caption: caption,
		Photo: []tgbotapi.PhotoSize{
			{FileID: "small", Width: 90, Height: 90},
			{FileID: "large", Width: 1280, Height: 1280},
		},
	}}
}

func TestHandleUpdate_Commands(t *testing.T) {
	f := newRouterFixture(t)

	f.router.HandleUpdate(context.Background(), commandUpdate(1, "/setmaxcopies 7"))
	f.router.HandleUpdate(context.Background(), commandUpdate(1, "/help"))
	f.router.HandleUpdate(context.Background(), commandUpdate(1, "/unknown"))

	out := f.messenger.all()
	if !strings.Contains(out, "set to <b>7</b>") {
		t.Errorf("expected setmaxcopies confirmation, got %q", out)
	}
	if !strings.Contains(out, "currently <b>7</b>") {
		t.Errorf("expected help to reflect new limit, got %q", out)
	}
	if strings.Count(out, "---") != 1 {
		t.Errorf("expected exactly two replies, got %q", out)
	}
}

func TestHandleUpdate_PhotoUsesLargestSize(t *testing.T) {
	f := newRouterFixture(t)

	f.router.HandleUpdate(context.Background(), photoUpdate(1, "x2"))

	if len(f.printer.jobs) != 1 {
		t.Fatalf("expected one job, got %d", len(f.printer.jobs))
	}
	job := f.printer.jobs[0]
	if string(job.Data) != "large" || job.Copies != 2 {
		t.Errorf("unexpected job %+v", job)
	}
}

func TestHandleUpdate_GuestSecondPhotoDenied(t *testing.T) {
	f := newRouterFixture(t)

	f.router.HandleUpdate(context.Background(), photoUpdate(5, ""))
	f.router.HandleUpdate(context.Background(), photoUpdate(5, ""))

	if len(f.printer.jobs) != 1 {
		t.Errorf("expected one job for the guest, got %d", len(f.printer.jobs))
	}
	if _, ok := f.history.Lookup(5); !ok {
		t.Error("expected guest print in history")
	}
	if !strings.Contains(f.messenger.all(), "You have already printed recently.") {
		t.Errorf("expected cooldown message, got %q", f.messenger.all())
	}
}

func TestHandleUpdate_ConcurrentPhotosFromOneUser(t *testing.T) {
	f := newRouterFixture(t)
	f.messenger.block = make(chan struct{})

	done := make(chan struct{})
	go func() {
		f.router.HandleUpdate(context.Background(), photoUpdate(5, ""))
		close(done)
	}()

	// Wait until the first print is inside the download step.
	for f.router.sessions.Active() == 0 {
		time.Sleep(time.Millisecond)
	}
	f.router.HandleUpdate(context.Background(), photoUpdate(5, ""))
	close(f.messenger.block)
	<-done

	if !strings.Contains(f.messenger.all(), busyMessage) {
		t.Errorf("expected busy message, got %q", f.messenger.all())
	}
	if len(f.printer.jobs) != 1 {
		t.Errorf("expected one job, got %d", len(f.printer.jobs))
	}
}

func TestHandleUpdate_IgnoresNonMessages(t *testing.T) {
	f := newRouterFixture(t)

	f.router.HandleUpdate(context.Background(), tgbotapi.Update{UpdateID: 9})
	f.router.HandleUpdate(context.Background(), tgbotapi.Update{Message: &tgbotapi.Message{Text: "hi", Chat: &tgbotapi.Chat{ID: 1}}})

	if f.messenger.all() != "" {
		t.Errorf("expected no replies, got %q", f.messenger.all())
	}
}
