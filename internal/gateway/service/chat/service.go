package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"chatrelay/internal/gateway/entity"
	archiverepo "chatrelay/internal/gateway/repository/archive"
	historyrepo "chatrelay/internal/gateway/repository/history"

	"go.uber.org/zap"
)

const (
	DefaultHistoryLimit = 1000
	archiveTimeout      = 30 * time.Second
)

var (
	ErrInvalidRole  = errors.New("role must be one of: user, assistant, system")
	ErrEmptyContent = errors.New("content is required")
)

type Options struct {
	// HistoryLimit caps the in-memory history; the oldest message is dropped first.
	HistoryLimit int
	History      historyrepo.Store
	// Archive receives a transcript of the history on every clear. Optional.
	Archive archiverepo.Store
	Logger  *zap.Logger
	Now     func() time.Time
}

// Service is the single chat room: a bounded history, a message id counter
// that is never reset and a clear epoch. Subscribers learn about changes
// through the channel returned with each Snapshot.
type Service struct {
	mu       sync.Mutex
	limit    int
	messages []entity.Message
	nextID   int64
	epoch    int64
	changed  chan struct{}

	history historyrepo.Store
	archive archiverepo.Store
	logger  *zap.Logger
	now     func() time.Time
}

// Snapshot is a consistent view for a subscriber: Messages are those after
// the requested id and Changed is closed by the next mutation.
type Snapshot struct {
	Messages []entity.Message
	Epoch    int64
	Changed  <-chan struct{}
}

type ClearResult struct {
	Epoch      int64
	Cleared    int
	ArchiveKey string
}

func New(opts Options) *Service {
	limit := opts.HistoryLimit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	history := opts.History
	if history == nil {
		history = historyrepo.NewMemoryStore(limit)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		limit:   limit,
		changed: make(chan struct{}),
		history: history,
		archive: opts.Archive,
		logger:  logger,
		now:     now,
	}
}

// Restore seeds the room from the history store so ids keep increasing
// across restarts.
func (s *Service) Restore(ctx context.Context) error {
	recent, err := s.history.Recent(ctx, s.limit)
	if err != nil {
		return fmt.Errorf("load recent history: %w", err)
	}
	maxID, err := s.history.MaxID(ctx)
	if err != nil {
		return fmt.Errorf("load history sequence: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = recent
	for _, m := range recent {
		if m.ID > maxID {
			maxID = m.ID
		}
	}
	if maxID > s.nextID {
		s.nextID = maxID
	}
	s.logger.Info("chat history restored",
		zap.Int("messages", len(recent)),
		zap.Int64("last_id", s.nextID))
	return nil
}

// Post validates and appends a message, then wakes subscribers.
func (s *Service) Post(ctx context.Context, role, content, name string) (entity.Message, error) {
	r := entity.NormalizeRole(role)
	content = strings.TrimSpace(content)
	name = strings.TrimSpace(name)
	if !r.Valid() {
		return entity.Message{}, ErrInvalidRole
	}
	if content == "" {
		return entity.Message{}, ErrEmptyContent
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	msg := entity.Message{
		ID:      s.nextID + 1,
		TS:      entity.Timestamp(s.now()),
		Role:    r,
		Content: content,
		Name:    name,
	}
	if err := s.history.Append(ctx, msg); err != nil {
		return entity.Message{}, fmt.Errorf("persist message: %w", err)
	}
	s.nextID = msg.ID
	s.messages = append(s.messages, msg)
	if over := len(s.messages) - s.limit; over > 0 {
		s.messages = append([]entity.Message(nil), s.messages[over:]...)
	}
	s.notifyLocked()
	return msg, nil
}

func (s *Service) List() []entity.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]entity.Message{}, s.messages...)
}

func (s *Service) Since(lastID int64) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Messages: s.sinceLocked(lastID),
		Epoch:    s.epoch,
		Changed:  s.changed,
	}
}

func (s *Service) Epoch() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

// Clear empties the history and bumps the epoch. Ids are not reset.
func (s *Service) Clear(ctx context.Context) (ClearResult, error) {
	s.mu.Lock()
	if err := s.history.Clear(ctx); err != nil {
		s.mu.Unlock()
		return ClearResult{}, fmt.Errorf("clear history: %w", err)
	}
	cleared := s.messages
	s.messages = nil
	s.epoch++
	epoch := s.epoch
	s.notifyLocked()
	s.mu.Unlock()

	res := ClearResult{Epoch: epoch, Cleared: len(cleared)}
	if s.archive != nil && len(cleared) > 0 {
		// the upload outlives the request that triggered the clear
		archiveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), archiveTimeout)
		key, err := s.archiveTranscript(archiveCtx, epoch, cleared)
		cancel()
		if err != nil {
			s.logger.Warn("archive transcript failed", zap.Int64("epoch", epoch), zap.Error(err))
		} else {
			res.ArchiveKey = key
		}
	}
	s.logger.Info("chat history cleared",
		zap.Int64("epoch", epoch),
		zap.Int("cleared", res.Cleared),
		zap.String("archive_key", res.ArchiveKey))
	return res, nil
}

func (s *Service) archiveTranscript(ctx context.Context, epoch int64, msgs []entity.Message) (string, error) {
	raw, err := archiverepo.EncodeTranscript(msgs)
	if err != nil {
		return "", err
	}
	key := archiverepo.TranscriptKey(epoch, s.now())
	if err := s.archive.Put(ctx, key, raw); err != nil {
		return "", err
	}
	return key, nil
}

// Archive exposes the transcript store, nil when archiving is disabled.
func (s *Service) Archive() archiverepo.Store {
	return s.archive
}

func (s *Service) sinceLocked(lastID int64) []entity.Message {
	// ids are ascending, so everything after the first newer id is newer.
	for i, m := range s.messages {
		if m.ID > lastID {
			return append([]entity.Message(nil), s.messages[i:]...)
		}
	}
	return nil
}

func (s *Service) notifyLocked() {
	close(s.changed)
	s.changed = make(chan struct{})
}
