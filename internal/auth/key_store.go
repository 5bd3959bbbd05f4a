package auth

import (
	"crypto/subtle"
	"errors"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// KeyStore holds the shared-secret API keys accepted by the service. Keys come
// from a static list and, optionally, from a key file that is reloaded when it
// changes on disk so keys can be rotated without a restart.
type KeyStore struct {
	file         string
	static       []string
	logger       *log.Logger
	watcher      *fsnotify.Watcher
	refreshDelay time.Duration

	mu   sync.RWMutex
	keys []string

	refreshMu    sync.Mutex
	refreshTimer *time.Timer
	done         chan struct{}
	wg           sync.WaitGroup
	closeOnce    sync.Once
	closeErr     error
}

// NewKeyStore creates a KeyStore seeded with the static keys. When filePath is
// non-empty each non-empty trimmed line of that file is also accepted, and the
// file is watched for changes.
func NewKeyStore(filePath string, static []string, debounce time.Duration, logger *log.Logger) (*KeyStore, error) {
	if logger == nil {
		logger = log.Default()
	}

	s := &KeyStore{
		static:       cleanKeys(static),
		logger:       logger,
		refreshDelay: debounce,
		done:         make(chan struct{}),
	}

	if filePath == "" {
		s.keys = s.static
		return s, nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	s.file = filepath.Clean(filePath)
	s.watcher = watcher

	if err := s.refresh(); err != nil {
		watcher.Close()
		return nil, err
	}

	if err := watcher.Add(filepath.Dir(s.file)); err != nil {
		watcher.Close()
		return nil, err
	}

	s.wg.Add(1)
	go s.run()

	return s, nil
}

// Close stops the file watcher, if any, and releases resources.
func (s *KeyStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)

		s.refreshMu.Lock()
		if s.refreshTimer != nil {
			s.refreshTimer.Stop()
			s.refreshTimer = nil
		}
		s.refreshMu.Unlock()

		if s.watcher != nil {
			s.closeErr = s.watcher.Close()
		}
		s.wg.Wait()
	})
	return s.closeErr
}

// IsValidKey reports whether key matches one of the configured keys. Every
// configured key is compared so timing does not reveal which one matched.
func (s *KeyStore) IsValidKey(key string) bool {
	key = strings.TrimSpace(key)
	if key == "" {
		return false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	match := 0
	for _, candidate := range s.keys {
		match |= subtle.ConstantTimeCompare([]byte(candidate), []byte(key))
	}
	return match == 1
}

func (s *KeyStore) run() {
	defer s.wg.Done()

	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			s.handleEvent(event)
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.logger.Printf("key watcher error: %v", err)
		case <-s.done:
			return
		}
	}
}

func (s *KeyStore) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != s.file {
		return
	}

	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
		s.scheduleRefresh()
	}
}

func (s *KeyStore) scheduleRefresh() {
	select {
	case <-s.done:
		return
	default:
	}

	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	if s.refreshTimer != nil {
		s.refreshTimer.Stop()
	}

	var timer *time.Timer
	timer = time.AfterFunc(s.refreshDelay, func() {
		if err := s.refresh(); err != nil {
			s.logger.Printf("key refresh error: %v", err)
		}

		s.refreshMu.Lock()
		if s.refreshTimer == timer {
			s.refreshTimer = nil
		}
		s.refreshMu.Unlock()
	})
	s.refreshTimer = timer
}

func (s *KeyStore) refresh() error {
	data, err := os.ReadFile(s.file)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.mu.Lock()
			s.keys = s.static
			s.mu.Unlock()
			s.logger.Printf("key file %s missing; only static keys accepted", s.file)
			return nil
		}
		return err
	}

	fileKeys := cleanKeys(strings.Split(string(data), "\n"))
	keys := make([]string, 0, len(s.static)+len(fileKeys))
	keys = append(keys, s.static...)
	keys = append(keys, fileKeys...)

	s.mu.Lock()
	s.keys = keys
	s.mu.Unlock()

	s.logger.Printf("loaded %d api keys from %s", len(fileKeys), s.file)
	return nil
}

func cleanKeys(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	keys := make([]string, 0, len(values))
	for _, value := range values {
		key := strings.TrimSpace(value)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	return keys
}
