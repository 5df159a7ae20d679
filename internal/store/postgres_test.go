package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/psds-microservice/casework-service/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var documentColumns = []string{"collection", "id", "data", "version", "created_at", "updated_at"}

func newMockPostgres(t *testing.T) (*Postgres, sqlmock.Sqlmock) {
	t.Helper()
	return newMockPostgresFeed(t, nil)
}

func newMockPostgresFeed(t *testing.T, feed Feed) (*Postgres, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	require.NoError(t, err)
	return NewPostgres(db, feed, zap.NewNop()), mock
}

func TestPostgres_Get(t *testing.T) {
	s, mock := newMockPostgres(t)
	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT \* FROM "documents" WHERE collection = \$1 AND id = \$2`).
		WillReturnRows(sqlmock.NewRows(documentColumns).
			AddRow("Clients", "c1", []byte(`{"full_name":"Ana","address":{"city":"Austin"}}`), 3, now, now))

	doc, err := s.Get(context.Background(), "Clients", "c1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), doc.Version)
	assert.Equal(t, "Ana", doc.Data["full_name"])
	city, ok := GetPath(doc.Data, "address.city")
	require.True(t, ok)
	assert.Equal(t, "Austin", city)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetNotFound(t *testing.T) {
	s, mock := newMockPostgres(t)
	mock.ExpectQuery(`SELECT \* FROM "documents"`).
		WillReturnRows(sqlmock.NewRows(documentColumns))

	_, err := s.Get(context.Background(), "Clients", "missing")
	assert.True(t, errors.Is(err, errs.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_QueryUsesJSONPaths(t *testing.T) {
	s, mock := newMockPostgres(t)
	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT \* FROM "documents" WHERE collection = \$1 AND data #>> '\{status\}' = \$2 AND data #>> '\{client_id\}' IN \(\$3,\$4\) ORDER BY id`).
		WillReturnRows(sqlmock.NewRows(documentColumns).
			AddRow("Applications", "a1", []byte(`{"status":"submitted","client_id":"c1"}`), 1, now, now).
			AddRow("Applications", "a2", []byte(`{"status":"submitted","client_id":"c2"}`), 1, now, now))

	docs, err := s.Query(context.Background(), "Applications", Eq("status", "submitted"), In("client_id", []string{"c1", "c2"}))
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "a1", docs[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_QueryEmptyInIssuesNoStatement(t *testing.T) {
	s, mock := newMockPostgres(t)

	docs, err := s.Query(context.Background(), "Applications", In("client_id", []string{}))
	require.NoError(t, err)
	assert.Empty(t, docs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_MutateLocksAndBumpsVersion(t *testing.T) {
	s, mock := newMockPostgres(t)
	now := time.Now().UTC()
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "documents" WHERE collection = \$1 AND id = \$2 .*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows(documentColumns).
			AddRow("AgentChat", "c1", []byte(`{"next_seq":4}`), 7, now, now))
	mock.ExpectExec(`UPDATE "documents" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	doc, err := s.Mutate(context.Background(), "AgentChat", "c1", func(data map[string]any) error {
		data["next_seq"] = data["next_seq"].(float64) + 1
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(8), doc.Version)
	assert.Equal(t, float64(5), doc.Data["next_seq"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_MutateAbortRollsBack(t *testing.T) {
	s, mock := newMockPostgres(t)
	now := time.Now().UTC()
	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows(documentColumns).
			AddRow("Applications", "a1", []byte(`{"status":"rejected"}`), 2, now, now))
	mock.ExpectRollback()

	_, err := s.Mutate(context.Background(), "Applications", "a1", func(map[string]any) error {
		return errs.Transition("rejected", "approved")
	})
	assert.True(t, errors.Is(err, errs.ErrInvalidTransition))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFieldExpr(t *testing.T) {
	assert.Equal(t, "data #>> '{agent_contact_back,timestamps}'", fieldExpr("agent_contact_back.timestamps"))
}

func TestPostgres_Create(t *testing.T) {
	s, mock := newMockPostgres(t)
	mock.ExpectQuery(`INSERT INTO "documents" \("collection","id","data","version","created_at","updated_at"\) VALUES .* RETURNING "data"`).
		WillReturnRows(sqlmock.NewRows([]string{"data"}).AddRow([]byte(`{"client_id":"c1"}`)))

	doc, err := s.Create(context.Background(), "AgentChat", "c1", map[string]any{"client_id": "c1"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), doc.Version)
	assert.Equal(t, "c1", doc.Data["client_id"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CreateDuplicateIsAlreadyExists(t *testing.T) {
	s, mock := newMockPostgres(t)
	mock.ExpectQuery(`INSERT INTO "documents"`).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"})

	_, err := s.Create(context.Background(), "AgentChat", "c1", map[string]any{"client_id": "c1"})
	assert.True(t, errors.Is(err, errs.ErrAlreadyExists))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_DeletePublishesTombstone(t *testing.T) {
	feed := NewLocalFeed()
	s, mock := newMockPostgresFeed(t, feed)
	now := time.Now().UTC()

	got := make(chan *Document, 1)
	sub := feed.Subscribe("Visits", "v1", func(d *Document) { got <- d })
	defer sub.Cancel()

	mock.ExpectBegin()
	mock.ExpectQuery(`DELETE FROM "documents" WHERE collection = \$1 AND id = \$2 RETURNING \*`).
		WithArgs("Visits", "v1").
		WillReturnRows(sqlmock.NewRows(documentColumns).
			AddRow("Visits", "v1", []byte(`{"status":"proposed"}`), 5, now, now))
	mock.ExpectCommit()

	require.NoError(t, s.Delete(context.Background(), "Visits", "v1"))
	assert.NoError(t, mock.ExpectationsWereMet())

	select {
	case d := <-got:
		assert.True(t, d.Deleted)
		assert.Equal(t, int64(6), d.Version)
	case <-time.After(time.Second):
		t.Fatal("no tombstone delivered")
	}
}

func TestPostgres_DeleteMissing(t *testing.T) {
	s, mock := newMockPostgres(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`DELETE FROM "documents"`).
		WillReturnRows(sqlmock.NewRows(documentColumns))
	mock.ExpectCommit()

	err := s.Delete(context.Background(), "Visits", "missing")
	assert.True(t, errors.Is(err, errs.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}
