package factory

import (
	"io"
	"log/slog"
	"time"

	"github.com/typerush/typerush/internal/config"
	"github.com/typerush/typerush/internal/dependencies/mocks"
	"github.com/typerush/typerush/internal/storage/memory"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
}

// NewTestApp creates an App configured for testing with mocked dependencies
func NewTestApp() *TestApp {
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()

	cfg := config.Default()
	cfg.WordFile = ""
	cfg.WordCount = 5

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	app := newWithDependencies(store, mockClock, mockRandom, cfg, logger)

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
	}
}

// LoadTestWords loads a small word list for testing
func (t *TestApp) LoadTestWords() {
	t.ContentService.LoadWords([]string{
		"river", "stone", "amber", "quiet", "drift",
		"frost", "ember", "haven", "latch", "prism",
	})
}
