package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"medquote/internal/types"
)

type Service struct {
	store Store
	locks *keyedMutex
	now   func() time.Time
}

func NewService(store Store) *Service {
	if store == nil {
		store = NewMemoryStore()
	}
	return &Service{store: store, locks: newKeyedMutex(), now: time.Now}
}

// Checkout loads (or creates) the session and holds it exclusively until
// release is called. Turns on the same id are serialized; different ids
// proceed in parallel. An empty id starts a new session.
func (s *Service) Checkout(ctx context.Context, id string) (*Session, func(), error) {
	if id == "" {
		id = uuid.NewString()
	}
	if err := s.locks.lock(ctx, id); err != nil {
		return nil, nil, err
	}
	var once sync.Once
	release := func() { once.Do(func() { s.locks.unlock(id) }) }

	sess, err := s.store.Load(ctx, id)
	if errors.Is(err, ErrNotFound) {
		sess, err = newSession(id, s.now()), nil
	}
	if err != nil {
		release()
		return nil, nil, err
	}
	return sess, release, nil
}

// Commit persists a checked-out session. Callers must still hold it.
func (s *Service) Commit(ctx context.Context, sess *Session) error {
	return s.store.Save(ctx, sess)
}

// Now is the clock used for turn timestamps.
func (s *Service) Now() time.Time { return s.now() }

func (s *Service) GetOrCreate(ctx context.Context, id string) (*Session, error) {
	sess, release, err := s.Checkout(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()
	if err := s.Commit(ctx, sess); err != nil {
		return nil, err
	}
	return sess.clone(), nil
}

func (s *Service) MergePatient(ctx context.Context, id string, partial types.PatientProfile) (types.PatientProfile, error) {
	sess, release, err := s.Checkout(ctx, id)
	if err != nil {
		return types.PatientProfile{}, err
	}
	defer release()
	merged := sess.MergePatient(partial)
	if err := s.Commit(ctx, sess); err != nil {
		return types.PatientProfile{}, err
	}
	return merged, nil
}

func (s *Service) AppendTurn(ctx context.Context, id, role, content string) error {
	sess, release, err := s.Checkout(ctx, id)
	if err != nil {
		return err
	}
	defer release()
	sess.AppendTurn(role, content, s.now())
	return s.Commit(ctx, sess)
}

// keyedMutex is a set of per-key locks that are dropped once unused.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	ch   chan struct{}
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyLock)}
}

func (k *keyedMutex) lock(ctx context.Context, key string) error {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyLock{ch: make(chan struct{}, 1)}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	select {
	case l.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		k.mu.Lock()
		k.release(key, l)
		k.mu.Unlock()
		return ctx.Err()
	}
}

func (k *keyedMutex) unlock(key string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	l, ok := k.locks[key]
	if !ok {
		return
	}
	<-l.ch
	k.release(key, l)
}

func (k *keyedMutex) release(key string, l *keyLock) {
	l.refs--
	if l.refs == 0 {
		delete(k.locks, key)
	}
}
