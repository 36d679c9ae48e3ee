// Package redistore provides a redis-backed Store for deployments where
// client instances do not share a filesystem. The session record lives under
// a single key; change notification rides redis pub/sub, so other instances
// observe a logout without polling.
package redistore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	authkit "github.com/voyagio/authkit-go"
)

const defaultOpTimeout = 5 * time.Second

// Store implements authkit.Store on top of a redis key + pub/sub channel.
type Store struct {
	client    *redis.Client
	key       string
	channel   string
	writerID  string
	opTimeout time.Duration

	mu     sync.Mutex
	fns    map[int]func(*authkit.Session)
	nextID int

	sub      *redis.PubSub
	stop     chan struct{}
	stopOnce sync.Once
}

// compile-time check
var _ authkit.Store = (*Store)(nil)

// Option configures the Store.
type Option func(*Store)

// WithOpTimeout bounds individual redis operations.
func WithOpTimeout(d time.Duration) Option {
	return func(s *Store) { s.opTimeout = d }
}

// New creates a redis-backed store under the given key and starts listening
// for changes published by other instances. Call Close to stop the listener.
func New(client *redis.Client, key string, opts ...Option) (*Store, error) {
	s := &Store{
		client:    client,
		key:       key,
		channel:   key + ":changes",
		writerID:  uuid.NewString(),
		opTimeout: defaultOpTimeout,
		fns:       make(map[int]func(*authkit.Session)),
		stop:      make(chan struct{}),
	}
	for _, o := range opts {
		o(s)
	}

	s.sub = client.Subscribe(context.Background(), s.channel)
	// Force the subscription before returning so no change is missed.
	if _, err := s.sub.Receive(context.Background()); err != nil {
		return nil, fmt.Errorf("authkit/redistore: subscribe: %w", err)
	}

	go s.listen()
	return s, nil
}

// changeMessage is the pub/sub payload. Writer lets instances skip their own
// broadcasts; a nil Session means the record was cleared.
type changeMessage struct {
	Writer  string           `json:"writer"`
	Session *authkit.Session `json:"session"`
}

// Read returns the persisted session, or nil when the key is absent.
func (s *Store) Read() (*authkit.Session, error) {
	ctx, cancel := s.opCtx()
	defer cancel()

	raw, err := s.client.Get(ctx, s.key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("authkit/redistore: read record: %w", err)
	}

	var session authkit.Session
	if err := json.Unmarshal(raw, &session); err != nil || !session.Valid() {
		return nil, nil
	}
	return &session, nil
}

// Write replaces the record and broadcasts the change.
func (s *Store) Write(session *authkit.Session) error {
	if !session.Valid() {
		return fmt.Errorf("authkit/redistore: refusing to write partial session")
	}

	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("authkit/redistore: encode record: %w", err)
	}

	ctx, cancel := s.opCtx()
	defer cancel()

	// Keep the record a little past token expiry so a stale refresh token can
	// still be exchanged at startup.
	ttl := time.Until(session.ExpiresAt) + 24*time.Hour
	if err := s.client.Set(ctx, s.key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("authkit/redistore: write record: %w", err)
	}

	s.publish(ctx, session)
	s.notify(session)
	return nil
}

// Clear removes the record and broadcasts the logout.
func (s *Store) Clear() error {
	ctx, cancel := s.opCtx()
	defer cancel()

	removed, err := s.client.Del(ctx, s.key).Result()
	if err != nil {
		return fmt.Errorf("authkit/redistore: clear record: %w", err)
	}
	if removed == 0 {
		return nil
	}

	s.publish(ctx, nil)
	s.notify(nil)
	return nil
}

// Subscribe registers a change listener.
func (s *Store) Subscribe(fn func(*authkit.Session)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.fns[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.fns, id)
	}
}

// Close stops the pub/sub listener.
func (s *Store) Close() error {
	var err error
	s.stopOnce.Do(func() {
		close(s.stop)
		err = s.sub.Close()
	})
	return err
}

func (s *Store) opCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.opTimeout)
}

func (s *Store) publish(ctx context.Context, session *authkit.Session) {
	msg, err := json.Marshal(changeMessage{Writer: s.writerID, Session: session})
	if err != nil {
		return
	}
	// Best effort: a lost broadcast degrades to the next Read discovering the
	// change, it does not corrupt state.
	_ = s.client.Publish(ctx, s.channel, msg).Err()
}

func (s *Store) listen() {
	ch := s.sub.Channel()
	for {
		select {
		case <-s.stop:
			return
		case m, ok := <-ch:
			if !ok {
				return
			}
			var msg changeMessage
			if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
				continue
			}
			if msg.Writer == s.writerID {
				continue // own broadcast, already notified synchronously
			}
			s.notify(msg.Session)
		}
	}
}

func (s *Store) notify(session *authkit.Session) {
	s.mu.Lock()
	fns := make([]func(*authkit.Session), 0, len(s.fns))
	for _, fn := range s.fns {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(session.Clone())
	}
}
