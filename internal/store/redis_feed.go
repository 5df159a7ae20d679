package store

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// RedisFeed shares committed snapshots between API instances over redis
// pub/sub. Publish goes to redis only; every instance, this one included,
// receives the message and dispatches it to its local subscribers.
type RedisFeed struct {
	client *redis.Client
	prefix string
	local  *LocalFeed
	logger *zap.Logger

	pubsub *redis.PubSub
	wg     sync.WaitGroup
}

type feedMessage struct {
	Collection string         `json:"collection"`
	ID         string         `json:"id"`
	Data       map[string]any `json:"data,omitempty"`
	Version    int64          `json:"version"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	Deleted    bool           `json:"deleted,omitempty"`
}

// NewRedisFeed starts listening on <prefix>:* and returns the feed.
func NewRedisFeed(ctx context.Context, client *redis.Client, prefix string, logger *zap.Logger) (*RedisFeed, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	f := &RedisFeed{
		client: client,
		prefix: prefix,
		local:  NewLocalFeed(),
		logger: logger,
	}
	f.pubsub = client.PSubscribe(ctx, prefix+":*")
	if _, err := f.pubsub.Receive(ctx); err != nil {
		_ = f.pubsub.Close()
		return nil, err
	}
	f.wg.Add(1)
	go f.listen()
	return f, nil
}

func (f *RedisFeed) channel(collection, id string) string {
	return f.prefix + ":" + collection + ":" + id
}

func (f *RedisFeed) Publish(ctx context.Context, doc *Document) {
	body, err := json.Marshal(feedMessage{
		Collection: doc.Collection,
		ID:         doc.ID,
		Data:       doc.Data,
		Version:    doc.Version,
		CreatedAt:  doc.CreatedAt,
		UpdatedAt:  doc.UpdatedAt,
		Deleted:    doc.Deleted,
	})
	if err != nil {
		f.logger.Warn("feed: marshal snapshot", zap.String("collection", doc.Collection), zap.String("id", doc.ID), zap.Error(err))
		return
	}
	if err := f.client.Publish(ctx, f.channel(doc.Collection, doc.ID), body).Err(); err != nil {
		// Local subscribers still get the commit when redis is down.
		f.logger.Warn("feed: redis publish failed", zap.String("collection", doc.Collection), zap.String("id", doc.ID), zap.Error(err))
		f.local.dispatch(doc)
	}
}

func (f *RedisFeed) Subscribe(collection, id string, fn func(*Document)) *Subscription {
	return f.local.Subscribe(collection, id, fn)
}

func (f *RedisFeed) listen() {
	defer f.wg.Done()
	for msg := range f.pubsub.Channel() {
		if !strings.HasPrefix(msg.Channel, f.prefix+":") {
			continue
		}
		var m feedMessage
		if err := json.Unmarshal([]byte(msg.Payload), &m); err != nil {
			f.logger.Warn("feed: bad snapshot", zap.String("channel", msg.Channel), zap.Error(err))
			continue
		}
		f.local.dispatch(&Document{
			Collection: m.Collection,
			ID:         m.ID,
			Data:       m.Data,
			Version:    m.Version,
			CreatedAt:  m.CreatedAt,
			UpdatedAt:  m.UpdatedAt,
			Deleted:    m.Deleted,
		})
	}
}

func (f *RedisFeed) Close() error {
	err := f.pubsub.Close()
	f.wg.Wait()
	return err
}
