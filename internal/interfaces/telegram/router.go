// Package telegram routes Bot API updates to the command and print services.
package telegram

import (
	"context"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"telefax/internal/entities"
	"telefax/internal/infrastructure"
	"telefax/internal/interfaces"
	"telefax/internal/usecases"
)

const busyMessage = "Your previous image is still being processed. Please wait for it to finish."

// Router turns updates into service calls.
type Router struct {
	commands  *usecases.CommandService
	prints    *usecases.PrintService
	messenger interfaces.Messenger
	limiter   *infrastructure.ChatRateLimiter
	sessions  *infrastructure.SessionManager
	logger    *slog.Logger
}

func NewRouter(
	commands *usecases.CommandService,
	prints *usecases.PrintService,
	messenger interfaces.Messenger,
	limiter *infrastructure.ChatRateLimiter,
	sessions *infrastructure.SessionManager,
	logger *slog.Logger,
) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		commands:  commands,
		prints:    prints,
		messenger: messenger,
		limiter:   limiter,
		sessions:  sessions,
		logger:    logger,
	}
}

// HandleUpdate processes one update. Only messages from users are handled.
func (r *Router) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return
	}
	chatID := msg.Chat.ID
	user := entities.User{
		ID:        msg.From.ID,
		Username:  msg.From.UserName,
		FirstName: msg.From.FirstName,
	}

	if r.limiter != nil && !r.limiter.Allow(chatID) {
		r.logger.Debug("dropping message over chat rate limit", slog.Int64("chat_id", chatID))
		return
	}

	if msg.IsCommand() {
		r.handleCommand(chatID, user, msg.Command(), msg.CommandArguments())
		return
	}

	if len(msg.Photo) > 0 {
		r.handlePhoto(ctx, chatID, user, msg)
	}
}

func (r *Router) handleCommand(chatID int64, user entities.User, command, args string) {
	var reply usecases.Reply
	switch command {
	case "start":
		reply = r.commands.Start(user)
	case "help":
		reply = r.commands.Help(user)
	case "setmaxcopies":
		reply = r.commands.SetMaxCopies(user, args)
	case "apitoken":
		reply = r.commands.APIToken(user)
	default:
		return
	}
	r.send(chatID, reply)
}

func (r *Router) handlePhoto(ctx context.Context, chatID int64, user entities.User, msg *tgbotapi.Message) {
	if r.sessions != nil {
		if !r.sessions.TryStart(user.ID) {
			r.send(chatID, usecases.Reply{Text: busyMessage})
			return
		}
		defer r.sessions.Finish(user.ID)
	}

	// The last size is the largest.
	largest := msg.Photo[len(msg.Photo)-1]
	r.prints.HandlePhoto(ctx, entities.PrintRequest{
		ChatID:  chatID,
		User:    user,
		Caption: msg.Caption,
		FileID:  largest.FileID,
	})
}

func (r *Router) send(chatID int64, reply usecases.Reply) {
	var err error
	if reply.HTML {
		err = r.messenger.SendHTML(chatID, reply.Text)
	} else {
		err = r.messenger.SendText(chatID, reply.Text)
	}
	if err != nil {
		r.logger.Error("failed to send reply", slog.Int64("chat_id", chatID), slog.String("error", err.Error()))
	}
}
