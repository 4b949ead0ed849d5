package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
}

func TestFromEnv_MissingToken(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")

	if _, err := FromEnv(); err == nil {
		t.Fatal("expected error for missing bot token, got nil")
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	setRequired(t)
	for _, name := range []string{"MAX_COPIES", "ALLOW_GUEST_PRINTING", "LABEL_WIDTH_INCHES", "LABEL_HEIGHT_INCHES", "PRINT_TIMEOUT", "ALLOWED_USER_IDS"} {
		t.Setenv(name, "")
	}

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.MaxCopies() != DefaultMaxCopies {
		t.Errorf("expected MaxCopies %d, got %d", DefaultMaxCopies, cfg.MaxCopies())
	}
	if cfg.LabelWidthInches != 4 || cfg.LabelHeightInches != 6 {
		t.Errorf("expected 4x6 label, got %vx%v", cfg.LabelWidthInches, cfg.LabelHeightInches)
	}
	if cfg.PrintTimeout != 60*time.Second {
		t.Errorf("expected 60s print timeout, got %s", cfg.PrintTimeout)
	}
	if len(cfg.AllowedUserIDs()) != 0 {
		t.Errorf("expected empty allow-list, got %v", cfg.AllowedUserIDs())
	}
}

func TestFromEnv_GuestPrintingUnsetIsEnabled(t *testing.T) {
	setRequired(t)

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !cfg.GuestPrinting {
		t.Error("expected guest printing enabled by default")
	}
}

func TestFromEnv_GuestPrintingFlag(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"true", true},
		{"True", true},
		{"1", true},
		{"YES", true},
		{"false", false},
		{"0", false},
		{"maybe", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			setRequired(t)
			t.Setenv("ALLOW_GUEST_PRINTING", tt.value)

			cfg, err := FromEnv()
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if cfg.GuestPrinting != tt.want {
				t.Errorf("ALLOW_GUEST_PRINTING=%q: got %v, want %v", tt.value, cfg.GuestPrinting, tt.want)
			}
		})
	}
}

func TestFromEnv_InvalidValuesFallBack(t *testing.T) {
	setRequired(t)
	t.Setenv("MAX_COPIES", "lots")
	t.Setenv("LABEL_WIDTH_INCHES", "-2")
	t.Setenv("LABEL_HEIGHT_INCHES", "tall")
	t.Setenv("PRINT_TIMEOUT", "soon")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.MaxCopies() != DefaultMaxCopies {
		t.Errorf("expected MaxCopies fallback %d, got %d", DefaultMaxCopies, cfg.MaxCopies())
	}
	if cfg.LabelWidthInches != DefaultLabelWidthInches {
		t.Errorf("expected width fallback, got %v", cfg.LabelWidthInches)
	}
	if cfg.LabelHeightInches != DefaultLabelHeightInches {
		t.Errorf("expected height fallback, got %v", cfg.LabelHeightInches)
	}
	if cfg.PrintTimeout != defaultPrintTimeout {
		t.Errorf("expected timeout fallback, got %s", cfg.PrintTimeout)
	}
	if len(cfg.Warnings) != 4 {
		t.Errorf("expected 4 warnings, got %d: %v", len(cfg.Warnings), cfg.Warnings)
	}
}

func TestFromEnv_NonPositiveMaxCopies(t *testing.T) {
	setRequired(t)
	t.Setenv("MAX_COPIES", "0")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.MaxCopies() != DefaultMaxCopies {
		t.Errorf("expected %d, got %d", DefaultMaxCopies, cfg.MaxCopies())
	}
	if len(cfg.Warnings) != 1 || !strings.Contains(cfg.Warnings[0], "must be positive") {
		t.Errorf("unexpected warnings: %v", cfg.Warnings)
	}
}

func TestFromEnv_AllowedUserIDs(t *testing.T) {
	setRequired(t)
	t.Setenv("ALLOWED_USER_IDS", "42, 7,abc,,-5,1001")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	got := cfg.AllowedUserIDs()
	want := []int64{7, 42, 1001}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("expected %v, got %v", want, got)
		}
	}
	if !cfg.IsAuthorized(42) || cfg.IsAuthorized(5) {
		t.Error("unexpected IsAuthorized result")
	}
}

func TestSetMaxCopies(t *testing.T) {
	cfg := New(nil, 10, true)

	if err := cfg.SetMaxCopies(50); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.MaxCopies() != 50 {
		t.Errorf("expected 50, got %d", cfg.MaxCopies())
	}
	if err := cfg.SetMaxCopies(0); err == nil {
		t.Error("expected error for zero")
	}
	if cfg.MaxCopies() != 50 {
		t.Errorf("rejected update changed value to %d", cfg.MaxCopies())
	}
}

func TestLabelPixelsAndSize(t *testing.T) {
	cfg := New(nil, 1, true)
	cfg.LabelWidthInches = 2.5

	w, h := cfg.LabelPixels()
	if w != 750 || h != 1800 {
		t.Errorf("expected 750x1800, got %dx%d", w, h)
	}
	if cfg.LabelSize() != "2.50x6" {
		t.Errorf("expected 2.50x6, got %s", cfg.LabelSize())
	}
}

func TestLoad_MalformedDotenvIsWarning(t *testing.T) {
	setRequired(t)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("BAD-KEY=1\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected startup to continue, got %v", err)
	}
	found := false
	for _, w := range cfg.Warnings {
		if strings.Contains(w, ".env") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a .env warning, got %v", cfg.Warnings)
	}
}

func TestLoad_MissingDotenvIsSilent(t *testing.T) {
	setRequired(t)
	t.Chdir(t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, w := range cfg.Warnings {
		if strings.Contains(w, ".env") {
			t.Errorf("unexpected warning %q", w)
		}
	}
}
