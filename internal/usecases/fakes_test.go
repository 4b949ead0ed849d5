package usecases

import (
	"context"
	"errors"
	"sync"

	"telefax/internal/interfaces"
)

type sentMessage struct {
	chatID int64
	text   string
	html   bool
}

type fakeMessenger struct {
	mu          sync.Mutex
	sent        []sentMessage
	file        []byte
	downloadErr error
}

func (m *fakeMessenger) SendText(chatID int64, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMessage{chatID: chatID, text: text})
	return nil
}

func (m *fakeMessenger) SendHTML(chatID int64, html string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMessage{chatID: chatID, text: html, html: true})
	return nil
}

func (m *fakeMessenger) DownloadFile(ctx context.Context, fileID string) ([]byte, error) {
	if m.downloadErr != nil {
		return nil, m.downloadErr
	}
	return m.file, nil
}

func (m *fakeMessenger) last() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return ""
	}
	return m.sent[len(m.sent)-1].text
}

type fakeResizer struct {
	err        error
	gotW, gotH int
	calls      int
}

func (r *fakeResizer) Resize(data []byte, w, h int) ([]byte, string, error) {
	r.calls++
	r.gotW, r.gotH = w, h
	if r.err != nil {
		return nil, "", r.err
	}
	return []byte("resized"), "jpeg", nil
}

type fakePrinter struct {
	jobs   []interfaces.PrintJob
	output string
	err    error
	// onSubmit runs before the job is inspected, e.g. to cancel the caller.
	onSubmit func()
}

func (p *fakePrinter) Submit(ctx context.Context, job interfaces.PrintJob) (string, error) {
	p.jobs = append(p.jobs, job)
	if p.onSubmit != nil {
		p.onSubmit()
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if p.err != nil {
		return "", p.err
	}
	return p.output, nil
}

var errBoom = errors.New("boom")
