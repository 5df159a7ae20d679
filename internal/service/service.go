// Package service implements the casework operations on top of the record
// store: the application workflow, ticket threads, visit scheduling and the
// agent directory.
package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/psds-microservice/casework-service/internal/kafka"
	"github.com/psds-microservice/casework-service/internal/model"
	"github.com/psds-microservice/casework-service/internal/searchindex"
	"github.com/psds-microservice/casework-service/internal/store"
)

type noopEvents struct{}

func (noopEvents) ProduceEvent(context.Context, string, string, map[string]any) {}

type noopIndexer struct{}

func (noopIndexer) IndexApplicationAsync(*model.Application) {}
func (noopIndexer) IndexTicketAsync(*model.Ticket)           {}

func orNoopEvents(p kafka.EventProducer) kafka.EventProducer {
	if p == nil {
		return noopEvents{}
	}
	return p
}

func orNoopIndexer(i searchindex.Indexer) searchindex.Indexer {
	if i == nil {
		return noopIndexer{}
	}
	return i
}

func decodeApplication(doc *store.Document) (*model.Application, error) {
	var a model.Application
	if err := doc.Decode(&a); err != nil {
		return nil, err
	}
	a.ID = doc.ID
	a.Version = doc.Version
	if a.CreatedAt == nil && !doc.CreatedAt.IsZero() {
		t := doc.CreatedAt
		a.CreatedAt = &t
	}
	if a.UpdatedAt == nil && !doc.UpdatedAt.IsZero() {
		t := doc.UpdatedAt
		a.UpdatedAt = &t
	}
	return &a, nil
}

func decodeClient(doc *store.Document) (*model.Client, error) {
	var c model.Client
	if err := doc.Decode(&c); err != nil {
		return nil, err
	}
	if c.ClientID == "" {
		c.ClientID = doc.ID
	}
	return &c, nil
}

func decodeAgent(doc *store.Document) (*model.Agent, error) {
	var a model.Agent
	if err := doc.Decode(&a); err != nil {
		return nil, err
	}
	a.ID = doc.ID
	return &a, nil
}

func decodeVisit(doc *store.Document) (*model.Visit, error) {
	var v model.Visit
	if err := doc.Decode(&v); err != nil {
		return nil, err
	}
	v.ID = doc.ID
	return &v, nil
}

func decodeTicket(doc *store.Document) (*model.Ticket, error) {
	var t model.Ticket
	if err := doc.Decode(&t); err != nil {
		return nil, err
	}
	t.ID = doc.ID
	t.Version = doc.Version
	if t.CreatedAt.IsZero() {
		t.CreatedAt = doc.CreatedAt
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = doc.UpdatedAt
	}
	return &t, nil
}

// stringList reads a stored list field as strings, skipping other values.
func stringList(v any) []string {
	list, _ := v.([]any)
	out := make([]string, 0, len(list))
	for _, e := range list {
		if s, ok := e.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// union appends the values of add missing from base, keeping first-seen order.
func union(base, add []string) []string {
	seen := make(map[string]bool, len(base)+len(add))
	out := make([]string, 0, len(base)+len(add))
	for _, list := range [][]string{base, add} {
		for _, s := range list {
			if seen[s] {
				continue
			}
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func cleanStrings(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func timeOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
