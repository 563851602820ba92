package watch

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/engram/internal/item"
	"github.com/roach88/engram/internal/store"
)

// watcherIDLength is the length of generated watcher ids: enough hex
// to be unique for a process lifetime while staying pasteable.
const watcherIDLength = 12

// Watcher is a session-scoped subscription with a filter and a cursor.
type Watcher struct {
	ID        string
	SessionID string
	Filter    Filter
	Cursor    int64
	Active    bool
	CreatedAt time.Time
}

// MatchedChange is the projection of a change returned by Poll.
type MatchedChange struct {
	Key       string          `json:"key"`
	Type      item.ChangeType `json:"type"`
	Category  string          `json:"category"`
	Priority  item.Priority   `json:"priority"`
	Channel   string          `json:"channel"`
	Timestamp time.Time       `json:"timestamp"`
}

// Service owns watcher lifecycle and polling on top of the store.
//
// Every operation is one store transaction; the service itself holds no
// mutable state, so it is safe for concurrent use. Concurrent polls of
// the same watcher serialize on the store's transaction; polls of
// different watchers are independent.
type Service struct {
	store  *store.Store
	logger *slog.Logger
	newID  func() string
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger overrides the service logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithIDGenerator overrides watcher id generation. Used by tests and
// golden fixtures that need stable ids.
func WithIDGenerator(newID func() string) ServiceOption {
	return func(s *Service) {
		s.newID = newID
	}
}

// NewService creates a watch Service backed by the given store.
func NewService(st *store.Store, opts ...ServiceOption) *Service {
	s := &Service{
		store:  st,
		logger: slog.Default(),
		newID:  newWatcherID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// newWatcherID derives a short opaque hex token from a UUID.
func newWatcherID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:watcherIDLength]
}

// Create registers a new watcher for the session.
//
// The filter may be empty (matches everything); each present dimension
// must be a non-empty list of valid values, otherwise the error carries
// ErrCodeInvalidFilter. The watcher's cursor starts at the log's
// current watermark, so it never observes history predating it.
func (s *Service) Create(ctx context.Context, sessionID string, f Filter) (Watcher, error) {
	if err := f.Validate(); err != nil {
		return Watcher{}, err
	}
	f = f.normalized()

	filtersJSON, err := f.MarshalJSONString()
	if err != nil {
		return Watcher{}, NewStoreError("create", err)
	}

	id := s.newID()
	rec, err := s.store.CreateWatcher(ctx, id, sessionID, filtersJSON)
	if err != nil {
		return Watcher{}, NewStoreError("create", err)
	}

	s.logger.Debug("watcher created",
		"watcher_id", rec.ID,
		"session_id", rec.SessionID,
		"cursor", rec.Cursor,
	)

	return Watcher{
		ID:        rec.ID,
		SessionID: rec.SessionID,
		Filter:    f,
		Cursor:    rec.Cursor,
		Active:    rec.Active,
		CreatedAt: rec.CreatedAt,
	}, nil
}

// Get returns the watcher for id, or ErrCodeWatcherNotFound.
func (s *Service) Get(ctx context.Context, watcherID string) (Watcher, error) {
	rec, err := s.store.GetWatcher(ctx, watcherID)
	if errors.Is(err, store.ErrWatcherNotFound) {
		return Watcher{}, NewNotFoundError(watcherID)
	}
	if err != nil {
		return Watcher{}, NewStoreError("get", err)
	}
	return recordToWatcher(rec)
}

// List returns all of the session's watchers in insertion order,
// stopped ones included.
func (s *Service) List(ctx context.Context, sessionID string) ([]Watcher, error) {
	records, err := s.store.ListWatchers(ctx, sessionID)
	if err != nil {
		return nil, NewStoreError("list", err)
	}

	watchers := make([]Watcher, 0, len(records))
	for _, rec := range records {
		w, err := recordToWatcher(rec)
		if err != nil {
			return nil, err
		}
		watchers = append(watchers, w)
	}
	return watchers, nil
}

// Stop deactivates the watcher. Terminal: a stopped watcher never
// becomes active again. Stopping twice is a safe no-op.
// Returns ErrCodeWatcherNotFound for an unknown id.
func (s *Service) Stop(ctx context.Context, watcherID string) error {
	err := s.store.StopWatcher(ctx, watcherID)
	if errors.Is(err, store.ErrWatcherNotFound) {
		return NewNotFoundError(watcherID)
	}
	if err != nil {
		return NewStoreError("stop", err)
	}

	s.logger.Debug("watcher stopped", "watcher_id", watcherID)
	return nil
}

// Poll returns the changes matching the watcher's filter since its
// last poll and advances the cursor past everything considered.
//
// Failure kinds: ErrCodeWatcherNotFound for an unknown id,
// ErrCodeWatcherStopped for a stopped watcher (its cursor does not
// move), ErrCodeStoreUnavailable when the store transaction fails (no
// partial cursor advance). An empty result is success.
func (s *Service) Poll(ctx context.Context, watcherID string) ([]MatchedChange, error) {
	rec, changes, err := s.store.PollWatcher(ctx, watcherID)
	if errors.Is(err, store.ErrWatcherNotFound) {
		return nil, NewNotFoundError(watcherID)
	}
	if err != nil {
		return nil, NewStoreError("poll", err)
	}
	if !rec.Active {
		return nil, NewStoppedError(watcherID)
	}

	filter, err := ParseFilter(rec.Filters)
	if err != nil {
		return nil, NewStoreError("poll", err)
	}

	matched := []MatchedChange{}
	for _, c := range changes {
		if Matches(c, filter) {
			matched = append(matched, MatchedChange{
				Key:       c.Key,
				Type:      c.Type,
				Category:  c.Category,
				Priority:  c.Priority,
				Channel:   c.Channel,
				Timestamp: c.CreatedAt,
			})
		}
	}

	s.logger.Debug("watcher polled",
		"watcher_id", watcherID,
		"considered", len(changes),
		"matched", len(matched),
	)

	return matched, nil
}

// recordToWatcher decodes a store record into the service type.
func recordToWatcher(rec store.WatcherRecord) (Watcher, error) {
	filter, err := ParseFilter(rec.Filters)
	if err != nil {
		return Watcher{}, NewStoreError("decode watcher", err)
	}
	return Watcher{
		ID:        rec.ID,
		SessionID: rec.SessionID,
		Filter:    filter,
		Cursor:    rec.Cursor,
		Active:    rec.Active,
		CreatedAt: rec.CreatedAt,
	}, nil
}
