package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/psds-microservice/casework-service/internal/errs"
)

// Memory is an in-process Store used for development and tests.
type Memory struct {
	mu       sync.Mutex
	docs     map[string]map[string]*Document
	feed     Feed
	now      func() time.Time
	requests atomic.Int64
}

func NewMemory(feed Feed) *Memory {
	if feed == nil {
		feed = NewLocalFeed()
	}
	return &Memory{
		docs: make(map[string]map[string]*Document),
		feed: feed,
		now:  time.Now,
	}
}

// Requests reports how many operations reached the backing maps.
func (m *Memory) Requests() int64 { return m.requests.Load() }

func (m *Memory) Get(_ context.Context, collection, id string) (*Document, error) {
	m.requests.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[collection][id]
	if !ok {
		return nil, notFound(collection, id)
	}
	return cloneDoc(doc), nil
}

func (m *Memory) Query(_ context.Context, collection string, preds ...Predicate) ([]*Document, error) {
	empty, err := checkQuery(preds)
	if err != nil {
		return nil, err
	}
	if empty {
		return nil, nil
	}
	m.requests.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Document
	for _, doc := range m.docs[collection] {
		if matches(doc.Data, preds) {
			out = append(out, cloneDoc(doc))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) Create(ctx context.Context, collection, id string, data map[string]any) (*Document, error) {
	if id == "" {
		id = uuid.NewString()
	}
	norm, err := normalize(data)
	if err != nil {
		return nil, err
	}
	m.requests.Add(1)
	m.mu.Lock()
	if m.docs[collection] == nil {
		m.docs[collection] = make(map[string]*Document)
	}
	if _, ok := m.docs[collection][id]; ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("%s/%s: %w", collection, id, errs.ErrAlreadyExists)
	}
	now := m.now().UTC()
	doc := &Document{Collection: collection, ID: id, Data: norm, Version: 1, CreatedAt: now, UpdatedAt: now}
	m.docs[collection][id] = doc
	out := cloneDoc(doc)
	m.mu.Unlock()

	m.feed.Publish(ctx, cloneDoc(out))
	return out, nil
}

func (m *Memory) Update(ctx context.Context, collection, id string, fields map[string]any) (*Document, error) {
	return m.Mutate(ctx, collection, id, func(data map[string]any) error {
		return applyFields(data, fields)
	})
}

func (m *Memory) AppendToArray(ctx context.Context, collection, id, field string, values ...any) (*Document, error) {
	return m.Mutate(ctx, collection, id, func(data map[string]any) error {
		return appendValues(data, field, values)
	})
}

func (m *Memory) Mutate(ctx context.Context, collection, id string, fn Mutator) (*Document, error) {
	m.requests.Add(1)
	m.mu.Lock()
	doc, ok := m.docs[collection][id]
	if !ok {
		m.mu.Unlock()
		return nil, notFound(collection, id)
	}
	data := cloneData(doc.Data)
	if err := fn(data); err != nil {
		m.mu.Unlock()
		return nil, err
	}
	norm, err := normalize(data)
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}
	doc.Data = norm
	doc.Version++
	doc.UpdatedAt = m.now().UTC()
	out := cloneDoc(doc)
	m.mu.Unlock()

	m.feed.Publish(ctx, cloneDoc(out))
	return out, nil
}

func (m *Memory) Delete(ctx context.Context, collection, id string) error {
	m.requests.Add(1)
	m.mu.Lock()
	doc, ok := m.docs[collection][id]
	if !ok {
		m.mu.Unlock()
		return notFound(collection, id)
	}
	delete(m.docs[collection], id)
	m.mu.Unlock()

	m.feed.Publish(ctx, &Document{Collection: collection, ID: id, Version: doc.Version + 1, Deleted: true, UpdatedAt: m.now().UTC()})
	return nil
}

func (m *Memory) Subscribe(ctx context.Context, collection, id string, fn func(*Document)) (Cancel, error) {
	return subscribe(ctx, m.feed, func() (*Document, error) {
		return m.Get(ctx, collection, id)
	}, collection, id, fn)
}

func cloneDoc(d *Document) *Document {
	c := *d
	c.Data = cloneData(d.Data)
	return &c
}

func cloneData(data map[string]any) map[string]any {
	if data == nil {
		return nil
	}
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneData(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

func isNotFound(err error) bool { return errors.Is(err, errs.ErrNotFound) }
