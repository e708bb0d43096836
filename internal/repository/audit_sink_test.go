package repository

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/blip-health/blipgate/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func sampleEvent(msg string) *model.AuditEvent {
	return &model.AuditEvent{
		ID:        "evt-" + msg,
		RequestID: "req-1",
		Message:   msg,
		CreatedAt: time.Now().UTC(),
	}
}

func TestRedisAuditSinkTrimsAndLists(t *testing.T) {
	_, client := newMiniRedis(t)
	sink := NewRedisAuditSink(client, "audit", 2)
	ctx := context.Background()

	for _, msg := range []string{"a", "b", "c"} {
		require.NoError(t, sink.Deliver(ctx, sampleEvent(msg)))
	}

	events, err := sink.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "c", events[0].Message)
	assert.Equal(t, "b", events[1].Message)
}

func TestHTTPAuditSinkPostsMessage(t *testing.T) {
	var gotBody, gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		gotMethod = r.Method
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	sink := NewHTTPAuditSink(srv.URL, time.Second)
	require.NoError(t, sink.Deliver(context.Background(), sampleEvent("alice deleted notes/3")))
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "alice deleted notes/3", gotBody)
}

func TestHTTPAuditSinkReportsServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	sink := NewHTTPAuditSink(srv.URL, time.Second)
	assert.Error(t, sink.Deliver(context.Background(), sampleEvent("x")))
}

func newMockGorm(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	return db, mock
}

func TestPostgresAuditSinkInserts(t *testing.T) {
	db, mock := newMockGorm(t)
	sink := NewPostgresAuditSink(db)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "audit_events"`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, sink.Deliver(context.Background(), sampleEvent("bob updated staffs/2")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresAuditSinkLists(t *testing.T) {
	db, mock := newMockGorm(t)
	sink := NewPostgresAuditSink(db)

	rows := sqlmock.NewRows([]string{"id", "request_id", "message", "created_at"}).
		AddRow("e2", "r2", "second", time.Now()).
		AddRow("e1", "r1", "first", time.Now().Add(-time.Minute))
	mock.ExpectQuery(`SELECT \* FROM "audit_events"`).WillReturnRows(rows)

	events, err := sink.List(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "second", events[0].Message)
	assert.NoError(t, mock.ExpectationsWereMet())
}
