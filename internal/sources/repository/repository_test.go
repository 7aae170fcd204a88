package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"

	"permitleads_backend/platform/apperr"
)

var sourceCols = []string{"id", "name", "slug", "url", "type", "county", "town", "active", "last_run", "last_status", "created_at"}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("create pgxmock: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock
}

func TestCreateMapsDuplicateSlugToConflict(t *testing.T) {
	mock := newMock(t)
	repo := New(mock)

	mock.ExpectQuery(`INSERT INTO sources`).
		WithArgs("Mercer", "mercer", "https://example.org", "permit", pgxmock.AnyArg(), pgxmock.AnyArg(), true).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err := repo.Create(context.Background(), CreateParams{
		Name: "Mercer", Slug: "mercer", URL: "https://example.org", Type: "permit", Active: true,
	})
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestListActiveScansRows(t *testing.T) {
	mock := newMock(t)
	repo := New(mock)

	created := time.Date(2026, time.January, 2, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`FROM sources\s+WHERE \(\$1::boolean = false OR active\)`).
		WithArgs(true).
		WillReturnRows(pgxmock.NewRows(sourceCols).
			AddRow(uuid.New(), "Mercer Permits", "mercer-permits", "https://example.org", "permit", nil, nil, true, nil, nil, created))

	sources, err := repo.List(context.Background(), true)
	if err != nil {
		t.Fatalf("List returned unexpected error: %v", err)
	}
	if len(sources) != 1 || sources[0].Slug != "mercer-permits" || sources[0].County != nil || !sources[0].CreatedAt.Equal(created) {
		t.Fatalf("unexpected sources %+v", sources)
	}
}

func TestUpsertKeepsRunBookkeepingWhenAbsent(t *testing.T) {
	mock := newMock(t)
	repo := New(mock)

	mock.ExpectQuery(`ON CONFLICT \(slug\) DO UPDATE SET[\s\S]*last_run = COALESCE\(EXCLUDED\.last_run, sources\.last_run\)`).
		WithArgs("Mercer", "mercer", "https://example.org", "permit", pgxmock.AnyArg(), pgxmock.AnyArg(), true, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(sourceCols).
			AddRow(uuid.New(), "Mercer", "mercer", "https://example.org", "permit", nil, nil, true, nil, nil, time.Now()))

	src, err := repo.Upsert(context.Background(), UpsertParams{CreateParams: CreateParams{
		Name: "Mercer", Slug: "mercer", URL: "https://example.org", Type: "permit", Active: true,
	}})
	if err != nil {
		t.Fatalf("Upsert returned unexpected error: %v", err)
	}
	if src.Slug != "mercer" {
		t.Fatalf("unexpected source %+v", src)
	}
}

func TestRecordRunMissingSource(t *testing.T) {
	mock := newMock(t)
	repo := New(mock)

	id := uuid.New()
	mock.ExpectExec(`UPDATE sources SET last_run`).
		WithArgs(id, pgxmock.AnyArg(), "ok").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	if err := repo.RecordRun(context.Background(), id, time.Now(), "ok"); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
