package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"permitleads_backend/internal/leads/domain"
	"permitleads_backend/internal/sources/repository"
	"permitleads_backend/internal/sources/transport"
	"permitleads_backend/platform/apperr"
	"permitleads_backend/platform/logger"
)

type fakeRepo struct {
	created  repository.CreateParams
	upserted repository.UpsertParams
	updated  repository.UpdateParams
}

func (f *fakeRepo) GetByID(context.Context, uuid.UUID) (domain.Source, error) {
	return domain.Source{}, apperr.NotFound("source not found")
}

func (f *fakeRepo) GetBySlug(context.Context, string) (domain.Source, error) {
	return domain.Source{}, apperr.NotFound("source not found")
}

func (f *fakeRepo) List(context.Context, bool) ([]domain.Source, error) {
	return []domain.Source{{ID: uuid.New(), Name: "Mercer", Slug: "mercer", Active: true}}, nil
}

func (f *fakeRepo) Create(_ context.Context, p repository.CreateParams) (domain.Source, error) {
	f.created = p
	return domain.Source{ID: uuid.New(), Name: p.Name, Slug: p.Slug, URL: p.URL, Type: p.Type, Active: p.Active}, nil
}

func (f *fakeRepo) Update(_ context.Context, p repository.UpdateParams) (domain.Source, error) {
	f.updated = p
	return domain.Source{ID: p.ID}, nil
}

func (f *fakeRepo) Upsert(_ context.Context, p repository.UpsertParams) (domain.Source, error) {
	f.upserted = p
	return domain.Source{ID: uuid.New(), Slug: p.Slug, LastRun: p.LastRun}, nil
}

func (f *fakeRepo) RecordRun(context.Context, uuid.UUID, time.Time, string) error {
	return nil
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Mercer County Permits":   "mercer-county-permits",
		"  Hopewell / Twp (NJ) ":  "hopewell-twp-nj",
		"---":                     "",
		"Trenton__Building--Dept": "trentonbuilding-dept",
	}
	for in, want := range cases {
		if got := Slugify(in); got != want {
			t.Fatalf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCreateAppliesDefaults(t *testing.T) {
	repo := &fakeRepo{}
	svc := New(repo, logger.Discard())

	resp, err := svc.Create(context.Background(), transport.CreateSourceRequest{
		Name: " Mercer Permits ",
		URL:  "https://example.org/permits",
	})
	if err != nil {
		t.Fatalf("Create returned unexpected error: %v", err)
	}
	if resp.Slug != "mercer-permits" || repo.created.Type != "permit" || !repo.created.Active {
		t.Fatalf("unexpected create params %+v", repo.created)
	}
	if repo.created.Name != "Mercer Permits" {
		t.Fatalf("expected trimmed name, got %q", repo.created.Name)
	}
}

func TestCreateRejectsUnsluggableName(t *testing.T) {
	svc := New(&fakeRepo{}, logger.Discard())
	_, err := svc.Create(context.Background(), transport.CreateSourceRequest{Name: "!!!", URL: "https://example.org"})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpsertFallsBackToNameSlug(t *testing.T) {
	repo := &fakeRepo{}
	svc := New(repo, logger.Discard())
	inactive := false
	status := "ok: 12 rows"
	ran := time.Date(2026, time.March, 1, 6, 0, 0, 0, time.UTC)

	_, err := svc.Upsert(context.Background(), transport.UpsertSourceRequest{
		Name:       "Hopewell Builder Feed",
		URL:        "https://example.org/feed",
		Type:       "Builder",
		Active:     &inactive,
		LastRun:    &ran,
		LastStatus: &status,
	})
	if err != nil {
		t.Fatalf("Upsert returned unexpected error: %v", err)
	}
	got := repo.upserted
	if got.Slug != "hopewell-builder-feed" || got.Type != "builder" || got.Active {
		t.Fatalf("unexpected upsert params %+v", got)
	}
	if got.LastRun == nil || !got.LastRun.Equal(ran) || got.LastStatus == nil || *got.LastStatus != status {
		t.Fatalf("run bookkeeping not passed through: %+v", got)
	}
}

func TestUpsertPrefersExplicitSlug(t *testing.T) {
	repo := &fakeRepo{}
	svc := New(repo, logger.Discard())
	if _, err := svc.Upsert(context.Background(), transport.UpsertSourceRequest{Name: "Anything", Slug: "Mercer Permits", URL: "https://example.org"}); err != nil {
		t.Fatalf("Upsert returned unexpected error: %v", err)
	}
	if repo.upserted.Slug != "mercer-permits" {
		t.Fatalf("expected explicit slug, got %q", repo.upserted.Slug)
	}
}

func TestListWrapsItems(t *testing.T) {
	svc := New(&fakeRepo{}, logger.Discard())
	resp, err := svc.List(context.Background(), transport.ListSourcesRequest{Active: true})
	if err != nil {
		t.Fatalf("List returned unexpected error: %v", err)
	}
	if resp.Total != 1 || resp.Items[0].Slug != "mercer" {
		t.Fatalf("unexpected list %+v", resp)
	}
}
