package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/psds-microservice/casework-service/internal/errs"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DocumentRow is the documents table. Every collection shares it; data holds
// the record body as jsonb.
type DocumentRow struct {
	Collection string         `gorm:"primaryKey;type:varchar(64)"`
	ID         string         `gorm:"primaryKey;type:varchar(128)"`
	Data       datatypes.JSON `gorm:"type:jsonb;not null;default:'{}'"`
	Version    int64          `gorm:"not null;default:1"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (DocumentRow) TableName() string { return "documents" }

// Postgres is a Store over the documents table.
type Postgres struct {
	db     *gorm.DB
	feed   Feed
	logger *zap.Logger
}

func NewPostgres(db *gorm.DB, feed Feed, logger *zap.Logger) *Postgres {
	if feed == nil {
		feed = NewLocalFeed()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Postgres{db: db, feed: feed, logger: logger}
}

// fieldExpr renders a validated dotted field as a jsonb text path.
func fieldExpr(field string) string {
	return "data #>> '{" + strings.ReplaceAll(field, ".", ",") + "}'"
}

func (s *Postgres) Get(ctx context.Context, collection, id string) (*Document, error) {
	var row DocumentRow
	err := s.db.WithContext(ctx).
		Where("collection = ? AND id = ?", collection, id).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound(collection, id)
		}
		s.logger.Error("store: get failed", zap.String("collection", collection), zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return rowToDocument(&row)
}

func (s *Postgres) Query(ctx context.Context, collection string, preds ...Predicate) ([]*Document, error) {
	empty, err := checkQuery(preds)
	if err != nil {
		return nil, err
	}
	if empty {
		return nil, nil
	}
	tx := s.db.WithContext(ctx).Model(&DocumentRow{}).Where("collection = ?", collection)
	for _, p := range preds {
		switch p.Op {
		case OpEqual:
			tx = tx.Where(fieldExpr(p.Field)+" = ?", p.Value)
		case OpIn:
			tx = tx.Where(fieldExpr(p.Field)+" IN ?", p.Values)
		}
	}
	var rows []DocumentRow
	if err := tx.Order("id").Find(&rows).Error; err != nil {
		s.logger.Error("store: query failed", zap.String("collection", collection), zap.Error(err))
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	out := make([]*Document, 0, len(rows))
	for i := range rows {
		doc, err := rowToDocument(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, nil
}

func (s *Postgres) Create(ctx context.Context, collection, id string, data map[string]any) (*Document, error) {
	if id == "" {
		id = uuid.NewString()
	}
	norm, err := normalize(data)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(norm)
	if err != nil {
		return nil, err
	}
	row := DocumentRow{Collection: collection, ID: id, Data: datatypes.JSON(body), Version: 1}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%s/%s: %w", collection, id, errs.ErrAlreadyExists)
		}
		return nil, fmt.Errorf("create %s/%s: %w", collection, id, err)
	}
	doc := &Document{Collection: collection, ID: id, Data: norm, Version: 1, CreatedAt: row.CreatedAt, UpdatedAt: row.UpdatedAt}
	s.feed.Publish(ctx, cloneDoc(doc))
	return doc, nil
}

func (s *Postgres) Update(ctx context.Context, collection, id string, fields map[string]any) (*Document, error) {
	return s.Mutate(ctx, collection, id, func(data map[string]any) error {
		return applyFields(data, fields)
	})
}

func (s *Postgres) AppendToArray(ctx context.Context, collection, id, field string, values ...any) (*Document, error) {
	return s.Mutate(ctx, collection, id, func(data map[string]any) error {
		return appendValues(data, field, values)
	})
}

// Mutate locks the row for the duration of fn, so concurrent writers on the
// same document serialize instead of overwriting each other.
func (s *Postgres) Mutate(ctx context.Context, collection, id string, fn Mutator) (*Document, error) {
	var out *Document
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row DocumentRow
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("collection = ? AND id = ?", collection, id).
			Take(&row).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound(collection, id)
			}
			return fmt.Errorf("lock %s/%s: %w", collection, id, err)
		}
		doc, err := rowToDocument(&row)
		if err != nil {
			return err
		}
		if err := fn(doc.Data); err != nil {
			return err
		}
		norm, err := normalize(doc.Data)
		if err != nil {
			return err
		}
		body, err := json.Marshal(norm)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		res := tx.Model(&DocumentRow{}).
			Where("collection = ? AND id = ?", collection, id).
			Updates(map[string]any{
				"data":       datatypes.JSON(body),
				"version":    row.Version + 1,
				"updated_at": now,
			})
		if res.Error != nil {
			return fmt.Errorf("write %s/%s: %w", collection, id, res.Error)
		}
		doc.Data = norm
		doc.Version = row.Version + 1
		doc.UpdatedAt = now
		out = doc
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.feed.Publish(ctx, cloneDoc(out))
	return out, nil
}

func (s *Postgres) Delete(ctx context.Context, collection, id string) error {
	var row DocumentRow
	var deleted bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.Returning{}).
			Where("collection = ? AND id = ?", collection, id).
			Delete(&row)
		if res.Error != nil {
			return fmt.Errorf("delete %s/%s: %w", collection, id, res.Error)
		}
		deleted = res.RowsAffected > 0
		return nil
	})
	if err != nil {
		return err
	}
	if !deleted {
		return notFound(collection, id)
	}
	s.feed.Publish(ctx, &Document{Collection: collection, ID: id, Version: row.Version + 1, Deleted: true, UpdatedAt: time.Now().UTC()})
	return nil
}

func (s *Postgres) Subscribe(ctx context.Context, collection, id string, fn func(*Document)) (Cancel, error) {
	return subscribe(ctx, s.feed, func() (*Document, error) {
		return s.Get(ctx, collection, id)
	}, collection, id, fn)
}

func rowToDocument(row *DocumentRow) (*Document, error) {
	data := make(map[string]any)
	if len(row.Data) > 0 {
		if err := json.Unmarshal(row.Data, &data); err != nil {
			return nil, fmt.Errorf("decode %s/%s: %w", row.Collection, row.ID, err)
		}
	}
	return &Document{
		Collection: row.Collection,
		ID:         row.ID,
		Data:       data,
		Version:    row.Version,
		CreatedAt:  row.CreatedAt,
		UpdatedAt:  row.UpdatedAt,
	}, nil
}
