package storage

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/eatbalance/web/internal"
)

type FileStorage struct {
	sessions         map[string]*internal.Session // id -> Session
	handoffs         map[string]*internal.Handoff // sessionID -> Handoff
	mu               sync.RWMutex
	sessionFile      string
	handoffFile      string
	saveSessionsChan chan struct{}
	saveHandoffsChan chan struct{}
	shutdownChan     chan struct{}
	workers          sync.WaitGroup
	closeOnce        sync.Once
	saveDelay        time.Duration
	logger           internal.Logger
}

func NewFileStorage(sessionFile, handoffFile string, logger internal.Logger) (*FileStorage, error) {
	s := &FileStorage{
		sessions:         make(map[string]*internal.Session),
		handoffs:         make(map[string]*internal.Handoff),
		sessionFile:      sessionFile,
		handoffFile:      handoffFile,
		saveSessionsChan: make(chan struct{}, 1),
		saveHandoffsChan: make(chan struct{}, 1),
		shutdownChan:     make(chan struct{}),
		saveDelay:        500 * time.Millisecond,
		logger:           logger,
	}

	for _, p := range []string{sessionFile, handoffFile} {
		if dir := filepath.Dir(p); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, err
			}
		}
	}

	var sessions []*internal.Session
	if err := loadJSON(sessionFile, &sessions); err != nil {
		logger.Errorf("storage: failed to load sessions: %v", err)
		return nil, err
	}
	for _, sess := range sessions {
		s.sessions[sess.ID] = sess
	}

	var handoffs []*internal.Handoff
	if err := loadJSON(handoffFile, &handoffs); err != nil {
		logger.Errorf("storage: failed to load handoffs: %v", err)
		return nil, err
	}
	for _, h := range handoffs {
		s.handoffs[h.SessionID] = h
	}

	s.workers.Add(2)
	go s.saveWorker(s.saveSessionsChan, s.saveSessions, "sessions")
	go s.saveWorker(s.saveHandoffsChan, s.saveHandoffs, "handoffs")

	return s, nil
}

func loadJSON(path string, into interface{}) error {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer file.Close()

	if err := json.NewDecoder(file).Decode(into); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	return nil
}

func atomicWriteFileJSON(filePath string, data interface{}) error {
	tempFile := filePath + ".tmp"
	f, err := os.Create(tempFile)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		f.Close()
		os.Remove(tempFile)
		return err
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tempFile)
		return err
	}

	if err := f.Close(); err != nil {
		os.Remove(tempFile)
		return err
	}

	return os.Rename(tempFile, filePath)
}

func (s *FileStorage) saveSessions() error {
	s.mu.RLock()
	out := make([]*internal.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess)
	}
	err := atomicWriteFileJSON(s.sessionFile, out)
	s.mu.RUnlock()
	return err
}

func (s *FileStorage) saveHandoffs() error {
	s.mu.RLock()
	out := make([]*internal.Handoff, 0, len(s.handoffs))
	for _, h := range s.handoffs {
		out = append(out, h)
	}
	err := atomicWriteFileJSON(s.handoffFile, out)
	s.mu.RUnlock()
	return err
}

// saveWorker coalesces bursts of writes into one file write per saveDelay.
func (s *FileStorage) saveWorker(trigger <-chan struct{}, save func() error, what string) {
	defer s.workers.Done()
	timer := time.NewTimer(s.saveDelay)
	defer timer.Stop()

	for {
		select {
		case <-trigger:
			timer.Reset(s.saveDelay)
		case <-timer.C:
			if err := save(); err != nil {
				s.logger.Errorf("storage: error saving %s: %v", what, err)
			}
		case <-s.shutdownChan:
			return
		}
	}
}

func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// Close stops the workers and flushes both files synchronously.
func (s *FileStorage) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.shutdownChan)
		s.workers.Wait()
		err = errors.Join(s.saveSessions(), s.saveHandoffs())
	})
	return err
}

// --- SessionRepository ---
func (s *FileStorage) GetSession(ctx context.Context, id string) (*internal.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneSession(sess)
}

func (s *FileStorage) SaveSession(ctx context.Context, sess *internal.Session) error {
	cp, err := cloneSession(sess)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.sessions[sess.ID] = cp
	s.mu.Unlock()
	notify(s.saveSessionsChan)
	return nil
}

func (s *FileStorage) DeleteSession(ctx context.Context, id string) error {
	s.mu.Lock()
	delete(s.sessions, id)
	delete(s.handoffs, id)
	s.mu.Unlock()
	notify(s.saveSessionsChan)
	notify(s.saveHandoffsChan)
	return nil
}

func (s *FileStorage) PurgeSessions(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	n := 0
	for id, sess := range s.sessions {
		if sess.Expired(now) {
			delete(s.sessions, id)
			n++
		}
	}
	s.mu.Unlock()
	if n > 0 {
		notify(s.saveSessionsChan)
	}
	return n, nil
}

// --- HandoffRepository ---
func (s *FileStorage) PutHandoff(ctx context.Context, h *internal.Handoff) error {
	cp := *h
	s.mu.Lock()
	s.handoffs[h.SessionID] = &cp
	s.mu.Unlock()
	notify(s.saveHandoffsChan)
	return nil
}

func (s *FileStorage) GetHandoff(ctx context.Context, sessionID string, now time.Time) (*internal.Handoff, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.handoffs[sessionID]
	if !ok || now.After(h.ExpiresAt) {
		return nil, ErrNotFound
	}
	cp := *h
	return &cp, nil
}

func (s *FileStorage) PurgeHandoffs(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	n := 0
	for id, h := range s.handoffs {
		if now.After(h.ExpiresAt) {
			delete(s.handoffs, id)
			n++
		}
	}
	s.mu.Unlock()
	if n > 0 {
		notify(s.saveHandoffsChan)
	}
	return n, nil
}

// cloneSession deep-copies through JSON so callers never share nested state
// with the map.
func cloneSession(sess *internal.Session) (*internal.Session, error) {
	b, err := json.Marshal(sess)
	if err != nil {
		return nil, err
	}
	var cp internal.Session
	if err := json.Unmarshal(b, &cp); err != nil {
		return nil, err
	}
	return &cp, nil
}

// --- Compile-time assertions ---
var _ Store = (*FileStorage)(nil)
