package infrastructure

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// maxDownloadBytes matches the Bot API download limit.
const maxDownloadBytes = 20 << 20

// TelegramClient sends replies and downloads photos through the Bot API.
type TelegramClient struct {
	Bot        *tgbotapi.BotAPI
	HTTPClient *http.Client
}

// NewTelegramClient authenticates with the Bot API using token.
func NewTelegramClient(token string) (*TelegramClient, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	return &TelegramClient{
		Bot:        bot,
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
	}, nil
}

func (t *TelegramClient) SendText(chatID int64, text string) error {
	_, err := t.Bot.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

func (t *TelegramClient) SendHTML(chatID int64, html string) error {
	msg := tgbotapi.NewMessage(chatID, html)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := t.Bot.Send(msg)
	return err
}

// DownloadFile fetches an uploaded file by its Telegram file id.
func (t *TelegramClient) DownloadFile(ctx context.Context, fileID string) ([]byte, error) {
	url, err := t.Bot.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("resolve file %s: %w", fileID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := t.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file %s: %w", fileID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file %s: unexpected status %s", fileID, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", fileID, err)
	}
	if len(data) > maxDownloadBytes {
		return nil, fmt.Errorf("file %s exceeds %d bytes", fileID, maxDownloadBytes)
	}
	return data, nil
}

// BotUserName returns the bot's @username.
func (t *TelegramClient) BotUserName() string {
	return t.Bot.Self.UserName
}
