package content

import (
	"bufio"
	"context"
	"os"
	"strings"
	"sync"

	"github.com/typerush/typerush/internal/dependencies/random"
	"github.com/typerush/typerush/internal/model"
)

// Provider supplies the paragraph text snapshotted into a race at
// creation. Implementations may be backed by a word list, a corpus of
// quotes, or a hosted generation service.
type Provider interface {
	// RaceText returns a paragraph to race on. Returns
	// model.ErrContentUnavailable when no content can be produced.
	RaceText(ctx context.Context) (string, error)
}

// Service is a word-list backed Provider: it joins randomly chosen words
// into a paragraph of the configured length.
type Service struct {
	random random.Random

	mu     sync.RWMutex
	words  []string
	loaded bool

	wordCount int
}

// New creates a new content Service producing paragraphs of wordCount words
func New(rnd random.Random, wordCount int) *Service {
	if wordCount <= 0 {
		wordCount = 30
	}
	return &Service{
		random:    rnd,
		wordCount: wordCount,
	}
}

var _ Provider = (*Service)(nil)

// LoadFromFile loads words from a file (one word per line)
func (s *Service) LoadFromFile(ctx context.Context, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	var words []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		word := strings.TrimSpace(scanner.Text())
		if word != "" {
			words = append(words, word)
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	s.LoadWords(words)
	return nil
}

// LoadWords directly loads a slice of words (useful for testing)
func (s *Service) LoadWords(words []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.words = make([]string, len(words))
	copy(s.words, words)
	s.loaded = len(words) > 0
}

// IsLoaded returns whether a word list has been loaded
func (s *Service) IsLoaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// RaceText joins randomly selected words into a paragraph
func (s *Service) RaceText(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.loaded {
		return "", model.ErrContentUnavailable
	}

	selected := make([]string, s.wordCount)
	for i := range selected {
		selected[i] = s.words[s.random.Intn(len(s.words))]
	}
	return strings.Join(selected, " "), nil
}
