// Package chat keeps two-party message logs in the record store: ordered
// append, merged views, live updates and read tracking. The same engine
// serves agent/client chats and ticket comment threads through a Layout.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/psds-microservice/casework-service/internal/errs"
	"github.com/psds-microservice/casework-service/internal/model"
	"github.com/psds-microservice/casework-service/internal/store"
	"go.uber.org/zap"
)

// FieldNextSeq holds the last sequence number handed out on a thread.
const FieldNextSeq = "next_seq"

var errUnchanged = errors.New("chat: unchanged")

type Engine struct {
	store  store.Store
	layout Layout
	logger *zap.Logger
	now    func() time.Time
}

func NewEngine(s store.Store, layout Layout, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{store: s, layout: layout, logger: logger, now: time.Now}
}

func (e *Engine) Layout() Layout { return e.layout }

// Open makes sure the thread exists. Threads of a layout without
// CreateMissing must already exist.
func (e *Engine) Open(ctx context.Context, threadID string) error {
	if threadID == "" {
		return errs.Invalid("thread id is required")
	}
	if !e.layout.CreateMissing {
		_, err := e.store.Get(ctx, e.layout.Collection, threadID)
		return err
	}
	data := map[string]any{FieldNextSeq: 0}
	for _, f := range e.layout.fields() {
		data[f] = []any{}
	}
	_, err := e.store.Create(ctx, e.layout.Collection, threadID, data)
	if errors.Is(err, errs.ErrAlreadyExists) {
		return nil
	}
	return err
}

// Send appends a message for role and returns it with its sequence number.
// Sequence allocation and append happen in one atomic write, so concurrent
// senders never lose messages and get distinct, increasing numbers.
func (e *Engine) Send(ctx context.Context, threadID string, role model.Role, from model.Participant, text string) (model.ChatMessage, error) {
	return e.SendIf(ctx, threadID, role, from, text, nil)
}

// SendIf is Send with a precondition evaluated on the thread record inside
// the same atomic write. A non-nil error from check aborts the send.
func (e *Engine) SendIf(ctx context.Context, threadID string, role model.Role, from model.Participant, text string, check func(data map[string]any) error) (model.ChatMessage, error) {
	if strings.TrimSpace(text) == "" {
		return model.ChatMessage{}, errs.Invalid("message is empty")
	}
	field, err := e.field(role)
	if err != nil {
		return model.ChatMessage{}, err
	}
	var msg model.ChatMessage
	mutate := func(data map[string]any) error {
		if check != nil {
			if err := check(data); err != nil {
				return err
			}
		}
		seq := nextSeq(data, e.layout.fields())
		msg = model.ChatMessage{
			Seq:        seq,
			Message:    text,
			Timestamp:  e.now().UTC(),
			Sender:     from.ID,
			SenderName: from.Name,
			Role:       role,
		}
		entry, err := store.ToMap(msg)
		if err != nil {
			return err
		}
		data[FieldNextSeq] = seq
		appendEntry(data, field, entry)
		return nil
	}
	_, err = e.store.Mutate(ctx, e.layout.Collection, threadID, mutate)
	if errors.Is(err, errs.ErrNotFound) && e.layout.CreateMissing {
		if err := e.Open(ctx, threadID); err != nil {
			return model.ChatMessage{}, err
		}
		_, err = e.store.Mutate(ctx, e.layout.Collection, threadID, mutate)
	}
	if err != nil {
		return model.ChatMessage{}, err
	}
	return msg, nil
}

// Messages returns the merged view of the thread. A chat that was never
// started has no messages.
func (e *Engine) Messages(ctx context.Context, threadID string) ([]model.ChatMessage, error) {
	doc, err := e.store.Get(ctx, e.layout.Collection, threadID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) && e.layout.CreateMissing {
			return []model.ChatMessage{}, nil
		}
		return nil, err
	}
	return e.merged(doc), nil
}

// Subscribe calls fn with the merged view now and after every change to
// the thread. See store.Cancel for the cancellation contract.
func (e *Engine) Subscribe(ctx context.Context, threadID string, fn func([]model.ChatMessage)) (store.Cancel, error) {
	return e.store.Subscribe(ctx, e.layout.Collection, threadID, func(doc *store.Document) {
		if doc.Deleted {
			fn([]model.ChatMessage{})
			return
		}
		fn(e.merged(doc))
	})
}

// MarkRead marks every unread entry of the other role as read and returns
// how many changed. Entries appended after the write are untouched.
func (e *Engine) MarkRead(ctx context.Context, threadID string, reader model.Role) (int, error) {
	if !reader.Valid() {
		return 0, errs.Invalid("role %q", reader)
	}
	author := reader.Other()
	marked := 0
	_, err := e.store.Mutate(ctx, e.layout.Collection, threadID, func(data map[string]any) error {
		marked = 0
		for _, field := range e.layout.fields() {
			entries, _ := data[field].([]any)
			for _, raw := range entries {
				entry, ok := raw.(map[string]any)
				if !ok || e.entryRole(field, entry) != author {
					continue
				}
				if read, _ := entry["read"].(bool); read {
					continue
				}
				entry["read"] = true
				marked++
			}
		}
		if marked == 0 {
			return errUnchanged
		}
		return nil
	})
	switch {
	case errors.Is(err, errUnchanged):
		return 0, nil
	case errors.Is(err, errs.ErrNotFound) && e.layout.CreateMissing:
		return 0, nil
	case err != nil:
		return 0, err
	}
	return marked, nil
}

// Seed appends text for role unless an entry with the same message is
// already in the role's sequence. It reports whether it appended.
func (e *Engine) Seed(ctx context.Context, threadID string, role model.Role, from model.Participant, text string) (bool, error) {
	if strings.TrimSpace(text) == "" {
		return false, nil
	}
	field, err := e.field(role)
	if err != nil {
		return false, err
	}
	_, err = e.store.Mutate(ctx, e.layout.Collection, threadID, func(data map[string]any) error {
		entries, _ := data[field].([]any)
		for _, raw := range entries {
			if entry, ok := raw.(map[string]any); ok && entry["message"] == text {
				return errUnchanged
			}
		}
		msg := model.ChatMessage{
			Message:    text,
			Timestamp:  e.now().UTC(),
			Sender:     from.ID,
			SenderName: from.Name,
			Role:       role,
		}
		// A seed landing on a non-empty log keeps seq 0 so it still sorts
		// first in the merged view.
		if len(entries) == 0 {
			msg.Seq = nextSeq(data, e.layout.fields())
			data[FieldNextSeq] = msg.Seq
		}
		entry, err := store.ToMap(msg)
		if err != nil {
			return err
		}
		data[field] = append([]any{entry}, entries...)
		return nil
	})
	if errors.Is(err, errUnchanged) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (e *Engine) field(role model.Role) (string, error) {
	if !role.Valid() {
		return "", errs.Invalid("role %q", role)
	}
	f := e.layout.Fields[role]
	if f == "" {
		return "", errs.Invalid("layout %s has no field for %s", e.layout.Collection, role)
	}
	return f, nil
}

func (e *Engine) entryRole(field string, entry map[string]any) model.Role {
	if r, ok := entry["role"].(string); ok && model.Role(r).Valid() {
		return model.Role(r)
	}
	if r, ok := e.layout.fieldRole(field); ok {
		return r
	}
	return ""
}

// merged decodes every sequence of the thread and orders the result by
// sequence number, then timestamp for entries written without one.
func (e *Engine) merged(doc *store.Document) []model.ChatMessage {
	out := []model.ChatMessage{}
	for _, field := range e.layout.fields() {
		entries, _ := doc.Data[field].([]any)
		for i, raw := range entries {
			entry, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			var msg model.ChatMessage
			if err := decodeEntry(entry, &msg); err != nil {
				e.logger.Warn("chat: skip malformed entry",
					zap.String("thread", doc.ID), zap.String("field", field), zap.Int("index", i), zap.Error(err))
				continue
			}
			if msg.Role == "" {
				msg.Role = e.entryRole(field, entry)
			}
			out = append(out, msg)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Seq != out[j].Seq {
			return out[i].Seq < out[j].Seq
		}
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

func decodeEntry(entry map[string]any, msg *model.ChatMessage) error {
	b, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, msg)
}

func appendEntry(data map[string]any, field string, entry map[string]any) {
	entries, _ := data[field].([]any)
	data[field] = append(entries, entry)
}

// nextSeq is one past the larger of the stored counter and any sequence
// number already present, so threads written before counters existed
// continue correctly.
func nextSeq(data map[string]any, fields []string) int64 {
	n := toInt64(data[FieldNextSeq])
	for _, field := range fields {
		entries, _ := data[field].([]any)
		for _, raw := range entries {
			if entry, ok := raw.(map[string]any); ok {
				if s := toInt64(entry["seq"]); s > n {
					n = s
				}
			}
		}
	}
	return n + 1
}

func toInt64(v any) int64 {
	switch t := v.(type) {
	case float64:
		return int64(t)
	case int:
		return int64(t)
	case int64:
		return t
	case json.Number:
		n, _ := t.Int64()
		return n
	}
	return 0
}
