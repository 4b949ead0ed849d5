package interfaces

import (
	"context"

	"telefax/internal/entities"
)

// Messenger delivers replies to a chat and fetches uploaded files.
type Messenger interface {
	SendText(chatID int64, text string) error
	SendHTML(chatID int64, html string) error
	DownloadFile(ctx context.Context, fileID string) ([]byte, error)
}

// ImageResizer scales an image to fit within the given pixel bounds.
// The returned format is "png" or "jpeg".
type ImageResizer interface {
	Resize(data []byte, maxWidth, maxHeight int) (out []byte, format string, err error)
}

// PrintJob is everything the print system needs for one submission.
type PrintJob struct {
	Data         []byte
	Format       string
	Printer      string
	Copies       int
	WidthInches  float64
	HeightInches float64
}

// PrintSubmitter hands a job to the print spooler and returns its output.
type PrintSubmitter interface {
	Submit(ctx context.Context, job PrintJob) (string, error)
}

// HistoryStore is the durable record of guest prints.
type HistoryStore interface {
	Lookup(userID int64) (entities.PrintHistoryEntry, bool)
	Record(userID int64, displayName string)
}
