package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"telefax/internal/entities"
)

// timestampLayouts are accepted on load. The first one is used on save.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

// historyRecord is the on-disk value for one user.
type historyRecord struct {
	LastPrint string `json:"last_print"`
	Username  string `json:"username"`
}

// HistoryRepository keeps the last guest print per user in memory and
// mirrors it to a JSON file after every write.
type HistoryRepository struct {
	path   string
	logger *slog.Logger
	now    func() time.Time

	mu      sync.RWMutex
	entries map[int64]entities.PrintHistoryEntry
}

// NewHistoryRepository creates an empty store backed by path. Call Load to
// read existing history.
func NewHistoryRepository(path string, logger *slog.Logger) *HistoryRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &HistoryRepository{
		path:    path,
		logger:  logger,
		now:     time.Now,
		entries: make(map[int64]entities.PrintHistoryEntry),
	}
}

// SetClock replaces the time source used by Record.
func (r *HistoryRepository) SetClock(now func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = now
}

// Path returns the backing file path.
func (r *HistoryRepository) Path() string {
	return r.path
}

// Load replaces the in-memory history with the file contents and returns
// the number of entries loaded. A missing or corrupt file yields an empty
// history; malformed entries are skipped one by one.
func (r *HistoryRepository) Load() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = make(map[int64]entities.PrintHistoryEntry)

	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		r.logger.Info("print history file not found, starting with empty history", slog.String("path", r.path))
		return 0
	}
	if err != nil {
		r.logger.Error("failed to read print history, starting with empty history",
			slog.String("path", r.path), slog.String("error", err.Error()))
		return 0
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil || raw == nil {
		if err == nil {
			err = errors.New("top-level value is not an object")
		}
		r.logger.Error("failed to parse print history, starting with empty history",
			slog.String("path", r.path), slog.String("error", err.Error()))
		return 0
	}

	for key, value := range raw {
		userID, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			r.logger.Warn("skipping history entry with invalid user id", slog.String("key", key))
			continue
		}
		entry, err := decodeEntry(value)
		if err != nil {
			r.logger.Warn("skipping history entry",
				slog.Int64("user_id", userID), slog.String("error", err.Error()))
			continue
		}
		entry.UserID = userID
		r.entries[userID] = entry
	}

	r.logger.Info("loaded print history", slog.Int("users", len(r.entries)), slog.String("path", r.path))
	return len(r.entries)
}

// decodeEntry accepts the structured form and the legacy bare timestamp.
func decodeEntry(value json.RawMessage) (entities.PrintHistoryEntry, error) {
	var legacy string
	if err := json.Unmarshal(value, &legacy); err == nil {
		ts, err := parseTimestamp(legacy)
		if err != nil {
			return entities.PrintHistoryEntry{}, err
		}
		return entities.PrintHistoryEntry{LastPrint: ts, Username: entities.UnknownUsername}, nil
	}

	var obj map[string]any
	if err := json.Unmarshal(value, &obj); err != nil || obj == nil {
		return entities.PrintHistoryEntry{}, fmt.Errorf("unexpected value %s", string(value))
	}
	s, ok := obj["last_print"].(string)
	if !ok {
		return entities.PrintHistoryEntry{}, errors.New("last_print is missing or not a string")
	}
	ts, err := parseTimestamp(s)
	if err != nil {
		return entities.PrintHistoryEntry{}, err
	}
	name, ok := obj["username"].(string)
	if !ok || name == "" {
		name = entities.UnknownUsername
	}
	return entities.PrintHistoryEntry{LastPrint: ts, Username: name}, nil
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}

// Lookup returns the history entry for userID.
func (r *HistoryRepository) Lookup(userID int64) (entities.PrintHistoryEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[userID]
	return entry, ok
}

// Record stores a print for userID at the current time and rewrites the
// file. A failed write is logged; the in-memory entry is kept.
func (r *HistoryRepository) Record(userID int64, displayName string) {
	if displayName == "" {
		displayName = entities.UnknownUsername
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now().UTC()
	r.entries[userID] = entities.PrintHistoryEntry{
		UserID:    userID,
		LastPrint: now,
		Username:  displayName,
	}
	r.logger.Info("recorded print",
		slog.Int64("user_id", userID), slog.String("username", displayName), slog.Time("at", now))

	if err := r.save(); err != nil {
		r.logger.Error("failed to save print history",
			slog.String("path", r.path), slog.String("error", err.Error()))
	}
}

// All returns a snapshot of every entry ordered by user id.
func (r *HistoryRepository) All() []entities.PrintHistoryEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]entities.PrintHistoryEntry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

// Len returns the number of users with a recorded print.
func (r *HistoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// save writes the whole map. The caller holds r.mu.
func (r *HistoryRepository) save() error {
	out := make(map[string]historyRecord, len(r.entries))
	for id, e := range r.entries {
		out[strconv.FormatInt(id, 10)] = historyRecord{
			LastPrint: e.LastPrint.UTC().Format(timestampLayouts[0]),
			Username:  e.Username,
		}
	}
	data, err := json.MarshalIndent(out, "", "    ")
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}

	dir := filepath.Dir(r.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace history file: %w", err)
	}
	return nil
}
