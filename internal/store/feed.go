package store

import (
	"context"
	"sync"
)

// Feed fans committed snapshots out to subscribers of a document.
type Feed interface {
	Publish(ctx context.Context, doc *Document)
	Subscribe(collection, id string, fn func(*Document)) *Subscription
	Close() error
}

func feedKey(collection, id string) string { return collection + "/" + id }

// LocalFeed delivers snapshots to subscribers inside this process.
type LocalFeed struct {
	mu   sync.Mutex
	subs map[string]map[*Subscription]struct{}
}

func NewLocalFeed() *LocalFeed {
	return &LocalFeed{subs: make(map[string]map[*Subscription]struct{})}
}

func (f *LocalFeed) Publish(_ context.Context, doc *Document) {
	f.dispatch(doc)
}

func (f *LocalFeed) dispatch(doc *Document) {
	key := feedKey(doc.Collection, doc.ID)
	f.mu.Lock()
	targets := make([]*Subscription, 0, len(f.subs[key]))
	for s := range f.subs[key] {
		targets = append(targets, s)
	}
	f.mu.Unlock()
	for _, s := range targets {
		s.Offer(doc)
	}
}

func (f *LocalFeed) Subscribe(collection, id string, fn func(*Document)) *Subscription {
	key := feedKey(collection, id)
	s := newSubscription(fn)
	f.mu.Lock()
	if f.subs[key] == nil {
		f.subs[key] = make(map[*Subscription]struct{})
	}
	f.subs[key][s] = struct{}{}
	f.mu.Unlock()

	s.detach = func() {
		f.mu.Lock()
		delete(f.subs[key], s)
		if len(f.subs[key]) == 0 {
			delete(f.subs, key)
		}
		f.mu.Unlock()
	}
	go s.run()
	return s
}

// Subscribers reports the live subscription count for a document.
func (f *LocalFeed) Subscribers(collection, id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs[feedKey(collection, id)])
}

func (f *LocalFeed) Close() error { return nil }

// Subscription coalesces pending snapshots to the newest one and delivers it
// on its own goroutine, so publishers never block on slow consumers.
// Snapshots not newer than the last delivered version are dropped.
type Subscription struct {
	fn     func(*Document)
	detach func()
	once   sync.Once

	pendingMu sync.Mutex
	pending   *Document

	deliverMu sync.Mutex
	closed    bool
	last      int64

	wake chan struct{}
	done chan struct{}
}

func newSubscription(fn func(*Document)) *Subscription {
	return &Subscription{
		fn:   fn,
		last: -1,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// Offer queues a snapshot for delivery.
func (s *Subscription) Offer(doc *Document) {
	s.pendingMu.Lock()
	if s.pending == nil || doc.Version > s.pending.Version {
		s.pending = doc
	}
	s.pendingMu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Cancel removes the subscription. It waits for an in-flight callback.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		if s.detach != nil {
			s.detach()
		}
		s.deliverMu.Lock()
		s.closed = true
		s.deliverMu.Unlock()
		close(s.done)
	})
}

func (s *Subscription) run() {
	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
		}
		s.pendingMu.Lock()
		doc := s.pending
		s.pending = nil
		s.pendingMu.Unlock()
		if doc != nil {
			s.deliver(doc)
		}
	}
}

func (s *Subscription) deliver(doc *Document) {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()
	if s.closed || doc.Version <= s.last {
		return
	}
	s.last = doc.Version
	s.fn(doc)
}

// subscribe registers on the feed before reading the current snapshot, so a
// commit landing between the two is not missed; version ordering drops the
// stale one of the pair.
func subscribe(ctx context.Context, feed Feed, get func() (*Document, error), collection, id string, fn func(*Document)) (Cancel, error) {
	sub := feed.Subscribe(collection, id, fn)
	doc, err := get()
	if err != nil && !isNotFound(err) {
		sub.Cancel()
		return nil, err
	}
	if doc != nil {
		sub.Offer(doc)
	}
	if ctx.Done() == nil {
		return sub.Cancel, nil
	}
	stop := context.AfterFunc(ctx, sub.Cancel)
	return func() {
		stop()
		sub.Cancel()
	}, nil
}
