package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"permitleads_backend/internal/leads/domain"
	"permitleads_backend/platform/db"
)

var ErrNotFound = errors.New("lead not found")

type Repository struct {
	db db.Querier
}

func New(q db.Querier) *Repository {
	return &Repository{db: q}
}

const leadColumns = `id, source, kind, raw_address, street, city, state, zip, canonical_key,
	permit_number, permit_type, status, issue_date, contractor_name, owner_name, parcel_id, county, town,
	est_value, lot_acres, year_built, lat, lon, score, score_updated_at, notes, tags, first_seen, last_seen`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLead(row rowScanner) (domain.Lead, error) {
	var lead domain.Lead
	var kind string
	if err := row.Scan(
		&lead.ID, &lead.Source, &kind, &lead.RawAddress, &lead.Street, &lead.City, &lead.State, &lead.Zip, &lead.CanonicalKey,
		&lead.PermitNumber, &lead.PermitType, &lead.Status, &lead.IssueDate, &lead.ContractorName, &lead.OwnerName, &lead.ParcelID, &lead.County, &lead.Town,
		&lead.EstValue, &lead.LotAcres, &lead.YearBuilt, &lead.Lat, &lead.Lon, &lead.Score, &lead.ScoreUpdatedAt, &lead.Notes, &lead.Tags, &lead.FirstSeen, &lead.LastSeen,
	); err != nil {
		return domain.Lead{}, err
	}
	lead.Kind = domain.Kind(kind)
	if lead.Tags == nil {
		lead.Tags = []string{}
	}
	return lead, nil
}

// UpsertOptions tells the conflict branch which operator-owned fields the
// incoming record supplied. Unsupplied notes and tags keep their stored value.
type UpsertOptions struct {
	NotesSupplied bool
	TagsSupplied  bool
}

type UpsertResult struct {
	ID       uuid.UUID
	Inserted bool
}

// Optional columns use COALESCE so a concurrent writer that lost the race to
// insert never erases values the winner stored. first_seen is only written on insert.
const upsertLeadSQL = `
	INSERT INTO leads (
		source, kind, raw_address, street, city, state, zip, canonical_key,
		permit_number, permit_type, status, issue_date, contractor_name, owner_name, parcel_id, county, town,
		est_value, lot_acres, year_built, lat, lon, score, score_updated_at, notes, tags, first_seen, last_seen
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8,
		$9, $10, $11, $12, $13, $14, $15, $16, $17,
		$18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28
	)
	ON CONFLICT (canonical_key) DO UPDATE SET
		source = EXCLUDED.source,
		kind = EXCLUDED.kind,
		raw_address = EXCLUDED.raw_address,
		street = EXCLUDED.street,
		city = EXCLUDED.city,
		state = EXCLUDED.state,
		zip = EXCLUDED.zip,
		permit_number = COALESCE(EXCLUDED.permit_number, leads.permit_number),
		permit_type = COALESCE(EXCLUDED.permit_type, leads.permit_type),
		status = COALESCE(EXCLUDED.status, leads.status),
		issue_date = COALESCE(EXCLUDED.issue_date, leads.issue_date),
		contractor_name = COALESCE(EXCLUDED.contractor_name, leads.contractor_name),
		owner_name = COALESCE(EXCLUDED.owner_name, leads.owner_name),
		parcel_id = COALESCE(EXCLUDED.parcel_id, leads.parcel_id),
		county = COALESCE(EXCLUDED.county, leads.county),
		town = COALESCE(EXCLUDED.town, leads.town),
		est_value = COALESCE(EXCLUDED.est_value, leads.est_value),
		lot_acres = COALESCE(EXCLUDED.lot_acres, leads.lot_acres),
		year_built = COALESCE(EXCLUDED.year_built, leads.year_built),
		lat = COALESCE(EXCLUDED.lat, leads.lat),
		lon = COALESCE(EXCLUDED.lon, leads.lon),
		score = EXCLUDED.score,
		score_updated_at = EXCLUDED.score_updated_at,
		notes = CASE WHEN $29::boolean THEN EXCLUDED.notes ELSE leads.notes END,
		tags = CASE WHEN $30::boolean THEN EXCLUDED.tags ELSE leads.tags END,
		last_seen = EXCLUDED.last_seen,
		updated_at = now()
	RETURNING id, (xmax = 0) AS inserted
`

// Upsert stores lead under its canonical key in one atomic statement and
// reports whether a new row was created.
func (r *Repository) Upsert(ctx context.Context, lead domain.Lead, opts UpsertOptions) (UpsertResult, error) {
	tags := lead.Tags
	if tags == nil {
		tags = []string{}
	}

	var result UpsertResult
	err := r.db.QueryRow(ctx, upsertLeadSQL,
		lead.Source, string(lead.Kind), lead.RawAddress, lead.Street, lead.City, lead.State, lead.Zip, lead.CanonicalKey,
		lead.PermitNumber, lead.PermitType, lead.Status, lead.IssueDate, lead.ContractorName, lead.OwnerName, lead.ParcelID, lead.County, lead.Town,
		lead.EstValue, lead.LotAcres, lead.YearBuilt, lead.Lat, lead.Lon, lead.Score, lead.ScoreUpdatedAt, lead.Notes, tags, lead.FirstSeen, lead.LastSeen,
		opts.NotesSupplied, opts.TagsSupplied,
	).Scan(&result.ID, &result.Inserted)
	if err != nil {
		return UpsertResult{}, fmt.Errorf("upsert lead %s: %w", lead.CanonicalKey, err)
	}
	return result, nil
}

func (r *Repository) GetByCanonicalKey(ctx context.Context, key string) (domain.Lead, error) {
	lead, err := scanLead(r.db.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE canonical_key = $1`, key))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, ErrNotFound
	}
	return lead, err
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (domain.Lead, error) {
	lead, err := scanLead(r.db.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, ErrNotFound
	}
	return lead, err
}

// UpdateParams carries operator edits. Nil pointers and an unset TagsSet leave
// the column untouched.
type UpdateParams struct {
	Notes          *string
	Tags           []string
	TagsSet        bool
	Status         *string
	Score          *int
	ScoreUpdatedAt *time.Time
}

func (r *Repository) Update(ctx context.Context, id uuid.UUID, params UpdateParams) (domain.Lead, error) {
	setClauses := []string{}
	args := []interface{}{}
	argIdx := 1

	tags := params.Tags
	if tags == nil {
		tags = []string{}
	}

	fields := []struct {
		enabled bool
		column  string
		value   interface{}
	}{
		{params.Notes != nil, "notes", params.Notes},
		{params.TagsSet, "tags", tags},
		{params.Status != nil, "status", params.Status},
		{params.Score != nil, "score", derefInt(params.Score)},
		{params.ScoreUpdatedAt != nil, "score_updated_at", derefTime(params.ScoreUpdatedAt)},
	}

	for _, field := range fields {
		if !field.enabled {
			continue
		}
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", field.column, argIdx))
		args = append(args, field.value)
		argIdx++
	}

	if len(setClauses) == 0 {
		return r.GetByID(ctx, id)
	}

	setClauses = append(setClauses, "updated_at = now()")
	args = append(args, id)

	query := fmt.Sprintf(`
		UPDATE leads SET %s
		WHERE id = $%d
		RETURNING `+leadColumns, strings.Join(setClauses, ", "), argIdx)

	lead, err := scanLead(r.db.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, ErrNotFound
	}
	return lead, err
}

// ListParams filters the lead list. Zero values disable a filter.
type ListParams struct {
	Search   string
	MinScore *int
	DateFrom *time.Time
	DateTo   *time.Time
	County   string
	Town     string
	Source   string
	Status   string
	Limit    int
	Offset   int
}

func (r *Repository) List(ctx context.Context, params ListParams) ([]domain.Lead, int, error) {
	whereClause, args, argIdx := buildLeadListWhere(params)

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM leads WHERE %s", whereClause)
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, params.Limit, params.Offset)

	query := fmt.Sprintf(`
		SELECT %s
		FROM leads
		WHERE %s
		ORDER BY score DESC, issue_date DESC NULLS LAST
		LIMIT $%d OFFSET $%d
	`, leadColumns, whereClause, argIdx, argIdx+1)

	leads, err := r.queryLeads(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return leads, total, nil
}

// ListAll returns every lead matching params in list order, ignoring Limit and Offset.
func (r *Repository) ListAll(ctx context.Context, params ListParams) ([]domain.Lead, error) {
	whereClause, args, _ := buildLeadListWhere(params)
	query := fmt.Sprintf(`
		SELECT %s
		FROM leads
		WHERE %s
		ORDER BY score DESC, issue_date DESC NULLS LAST
	`, leadColumns, whereClause)
	return r.queryLeads(ctx, query, args...)
}

func (r *Repository) queryLeads(ctx context.Context, query string, args ...interface{}) ([]domain.Lead, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	leads := make([]domain.Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return leads, nil
}

func buildLeadListWhere(params ListParams) (string, []interface{}, int) {
	whereClauses := []string{}
	args := []interface{}{}
	argIdx := 1

	addClause := func(format string, value interface{}) {
		whereClauses = append(whereClauses, fmt.Sprintf(format, argIdx))
		args = append(args, value)
		argIdx++
	}

	if params.Search != "" {
		searchPattern := "%" + params.Search + "%"
		whereClauses = append(whereClauses, fmt.Sprintf(
			"(raw_address ILIKE $%d OR contractor_name ILIKE $%d OR owner_name ILIKE $%d)",
			argIdx, argIdx, argIdx,
		))
		args = append(args, searchPattern)
		argIdx++
	}
	if params.MinScore != nil {
		addClause("score >= $%d", *params.MinScore)
	}
	if params.DateFrom != nil {
		addClause("issue_date >= $%d", *params.DateFrom)
	}
	if params.DateTo != nil {
		addClause("issue_date <= $%d", *params.DateTo)
	}
	if params.County != "" {
		addClause("county = $%d", params.County)
	}
	if params.Town != "" {
		addClause("town = $%d", params.Town)
	}
	if params.Source != "" {
		addClause("source = $%d", params.Source)
	}
	if params.Status != "" {
		addClause("status = $%d", params.Status)
	}

	if len(whereClauses) == 0 {
		return "TRUE", args, argIdx
	}
	return strings.Join(whereClauses, " AND "), args, argIdx
}

// MissingCoordinatesParams pages through leads without coordinates by id.
type MissingCoordinatesParams struct {
	After       uuid.UUID
	Limit       int
	UnknownCity string
}

// ListMissingCoordinates returns leads lacking lat/lon whose city is not the
// placeholder, ordered by id and starting after params.After.
func (r *Repository) ListMissingCoordinates(ctx context.Context, params MissingCoordinatesParams) ([]domain.Lead, error) {
	return r.queryLeads(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE (lat IS NULL OR lon IS NULL)
			AND city <> $1
			AND id > $2
		ORDER BY id
		LIMIT $3
	`, params.UnknownCity, params.After, params.Limit)
}

func (r *Repository) UpdateCoordinates(ctx context.Context, id uuid.UUID, lat, lon float64) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE leads SET lat = $2, lon = $3, updated_at = now()
		WHERE id = $1
	`, id, lat, lon)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func derefInt(value *int) int {
	if value == nil {
		return 0
	}
	return *value
}

func derefTime(value *time.Time) time.Time {
	if value == nil {
		return time.Time{}
	}
	return *value
}
