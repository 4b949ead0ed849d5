// Package config loads the bot configuration from the environment.
// Values are read once at startup; only the copy limit may change afterwards.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

const (
	// DefaultMaxCopies applies when MAX_COPIES is missing or invalid.
	DefaultMaxCopies = 100
	// DefaultLabelWidthInches and DefaultLabelHeightInches describe a 4x6 label.
	DefaultLabelWidthInches  = 4.0
	DefaultLabelHeightInches = 6.0
	// ImageDPI is the resolution used to turn label inches into pixels.
	ImageDPI = 300
	// GuestCooldown is the minimum interval between two guest prints.
	GuestCooldown = 7 * 24 * time.Hour

	defaultPrintTimeout = 60 * time.Second
)

// rawConfig mirrors the environment. Numeric values are kept as strings so
// that a malformed value falls back to its default instead of failing startup.
type rawConfig struct {
	BotToken        string `env:"TELEGRAM_BOT_TOKEN,required,notEmpty"`
	PrinterName     string `env:"CUPS_PRINTER_NAME"`
	PrintServerHost string `env:"CUPS_SERVER_HOST"`
	AllowedUserIDs  string `env:"ALLOWED_USER_IDS"`
	MaxCopies       string `env:"MAX_COPIES" envDefault:"100"`
	GuestPrinting   string `env:"ALLOW_GUEST_PRINTING" envDefault:"True"`
	LabelWidth      string `env:"LABEL_WIDTH_INCHES" envDefault:"4"`
	LabelHeight     string `env:"LABEL_HEIGHT_INCHES" envDefault:"6"`
	HistoryFile     string `env:"PRINT_HISTORY_FILE" envDefault:"print_history.json"`
	PrintTimeout    string `env:"PRINT_TIMEOUT" envDefault:"60s"`

	ChatRatePerMinute string `env:"CHAT_RATE_PER_MINUTE" envDefault:"20"`
	ChatRateBurst     string `env:"CHAT_RATE_BURST" envDefault:"5"`

	StatusAddr      string `env:"STATUS_ADDR"`
	StatusAPISecret string `env:"STATUS_API_SECRET"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
}

// Config is the process-wide configuration.
type Config struct {
	BotToken        string
	PrinterName     string
	PrintServerHost string

	GuestPrinting     bool
	LabelWidthInches  float64
	LabelHeightInches float64
	HistoryFile       string
	PrintTimeout      time.Duration

	ChatRatePerMinute float64
	ChatRateBurst     int

	StatusAddr      string
	StatusAPISecret string

	LogLevel  string
	LogFormat string

	// Warnings lists recovered configuration problems. They are logged once
	// the logger exists.
	Warnings []string

	allowed map[int64]struct{}

	mu        sync.RWMutex
	maxCopies int
}

// Load reads an optional .env file and then the environment.
// The only fatal condition is a missing bot token.
func Load() (*Config, error) {
	dotenvErr := godotenv.Load()
	cfg, err := FromEnv()
	if err != nil {
		return nil, err
	}
	if dotenvErr != nil && !errors.Is(dotenvErr, fs.ErrNotExist) {
		cfg.warnf("ignoring unreadable .env file: %v", dotenvErr)
	}
	return cfg, nil
}

// FromEnv builds a Config from the current environment only.
func FromEnv() (*Config, error) {
	raw := rawConfig{}
	if err := env.Parse(&raw); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg := &Config{
		BotToken:        raw.BotToken,
		PrinterName:     strings.TrimSpace(raw.PrinterName),
		PrintServerHost: strings.TrimSpace(raw.PrintServerHost),
		HistoryFile:     raw.HistoryFile,
		StatusAddr:      raw.StatusAddr,
		StatusAPISecret: raw.StatusAPISecret,
		LogLevel:        raw.LogLevel,
		LogFormat:       raw.LogFormat,
		allowed:         parseUserIDs(raw.AllowedUserIDs),
	}

	cfg.maxCopies = cfg.positiveInt("MAX_COPIES", raw.MaxCopies, DefaultMaxCopies)
	cfg.GuestPrinting = parseFlag(raw.GuestPrinting)
	cfg.LabelWidthInches = cfg.positiveFloat("LABEL_WIDTH_INCHES", raw.LabelWidth, DefaultLabelWidthInches)
	cfg.LabelHeightInches = cfg.positiveFloat("LABEL_HEIGHT_INCHES", raw.LabelHeight, DefaultLabelHeightInches)
	cfg.ChatRatePerMinute = cfg.positiveFloat("CHAT_RATE_PER_MINUTE", raw.ChatRatePerMinute, 20)
	cfg.ChatRateBurst = cfg.positiveInt("CHAT_RATE_BURST", raw.ChatRateBurst, 5)

	timeout, err := time.ParseDuration(strings.TrimSpace(raw.PrintTimeout))
	if err != nil || timeout <= 0 {
		cfg.warnf("Invalid PRINT_TIMEOUT value %q. Defaulting to %s.", raw.PrintTimeout, defaultPrintTimeout)
		timeout = defaultPrintTimeout
	}
	cfg.PrintTimeout = timeout

	return cfg, nil
}

// IsAuthorized reports whether userID is on the allow-list.
func (c *Config) IsAuthorized(userID int64) bool {
	_, ok := c.allowed[userID]
	return ok
}

// AllowedUserIDs returns the allow-list in ascending order.
func (c *Config) AllowedUserIDs() []int64 {
	ids := make([]int64, 0, len(c.allowed))
	for id := range c.allowed {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// MaxCopies returns the current per-request copy limit.
func (c *Config) MaxCopies() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.maxCopies
}

// SetMaxCopies changes the copy limit until the process exits.
func (c *Config) SetMaxCopies(n int) error {
	if n <= 0 {
		return fmt.Errorf("max copies must be positive, got %d", n)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.maxCopies = n
	return nil
}

// LabelPixels returns the label size in pixels at ImageDPI.
func (c *Config) LabelPixels() (width, height int) {
	return int(c.LabelWidthInches * ImageDPI), int(c.LabelHeightInches * ImageDPI)
}

// LabelSize renders the label size for user-facing text, e.g. "4x6".
func (c *Config) LabelSize() string {
	return FormatInches(c.LabelWidthInches) + "x" + FormatInches(c.LabelHeightInches)
}

// FormatInches prints a dimension with two decimals and drops a trailing ".00".
func FormatInches(v float64) string {
	return strings.TrimSuffix(strconv.FormatFloat(v, 'f', 2, 64), ".00")
}

func (c *Config) warnf(format string, args ...any) {
	c.Warnings = append(c.Warnings, fmt.Sprintf(format, args...))
}

func (c *Config) positiveInt(name, value string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		c.warnf("Invalid %s value %q. Defaulting to %d.", name, value, def)
		return def
	}
	if n <= 0 {
		c.warnf("%s must be positive. Defaulting to %d.", name, def)
		return def
	}
	return n
}

func (c *Config) positiveFloat(name, value string, def float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		c.warnf("Invalid %s value %q. Defaulting to %g.", name, value, def)
		return def
	}
	if f <= 0 {
		c.warnf("%s must be positive. Defaulting to %g.", name, def)
		return def
	}
	return f
}

func parseFlag(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "yes":
		return true
	}
	return false
}

func parseUserIDs(value string) map[int64]struct{} {
	ids := make(map[int64]struct{})
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" || strings.IndexFunc(part, func(r rune) bool { return r < '0' || r > '9' }) >= 0 {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			continue
		}
		ids[id] = struct{}{}
	}
	return ids
}

// New builds a Config directly, mainly for tests and embedding.
func New(allowed []int64, maxCopies int, guestPrinting bool) *Config {
	cfg := &Config{
		GuestPrinting:     guestPrinting,
		LabelWidthInches:  DefaultLabelWidthInches,
		LabelHeightInches: DefaultLabelHeightInches,
		HistoryFile:       "print_history.json",
		PrintTimeout:      defaultPrintTimeout,
		ChatRatePerMinute: 20,
		ChatRateBurst:     5,
		LogLevel:          "info",
		LogFormat:         "text",
		allowed:           make(map[int64]struct{}, len(allowed)),
		maxCopies:         maxCopies,
	}
	for _, id := range allowed {
		cfg.allowed[id] = struct{}{}
	}
	if cfg.maxCopies <= 0 {
		cfg.maxCopies = DefaultMaxCopies
	}
	return cfg
}
