package ingest

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"permitleads_backend/internal/events"
	"permitleads_backend/internal/leads/domain"
	"permitleads_backend/internal/leads/ports"
	"permitleads_backend/internal/leads/repository"
	"permitleads_backend/platform/logger"
)

// Action tells the caller whether a record created a lead or merged into one.
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
)

// Record is one batch item. Reject is set when the item could not be decoded
// or validated; it is reported as a failure without touching storage.
type Record struct {
	Input  domain.RawLeadInput
	Reject error
}

// Batch is an ordered set of records received through one channel.
type Batch struct {
	ID      uuid.UUID
	Channel string
	Records []Record
	Raw     []byte
}

type RecordResult struct {
	Index        int
	ID           uuid.UUID
	CanonicalKey string
	Action       Action
}

type RecordFailure struct {
	Index      int
	Source     string
	RawAddress string
	Error      string
}

// BatchResult lists successes and failures by input index. Count is the
// number of successes.
type BatchResult struct {
	BatchID  uuid.UUID
	Count    int
	Results  []RecordResult
	Failures []RecordFailure
}

// LeadStore is the storage the ingestion service needs.
// This is a consumer-driven interface - only what ingestion needs.
type LeadStore interface {
	GetByCanonicalKey(ctx context.Context, key string) (domain.Lead, error)
	Upsert(ctx context.Context, lead domain.Lead, opts repository.UpsertOptions) (repository.UpsertResult, error)
}

// Service runs batches through the normalizer and stores the results.
// geocoder and bus are optional.
type Service struct {
	normalizer *Normalizer
	store      LeadStore
	geocoder   ports.Geocoder
	bus        events.Bus
	log        *logger.Logger
}

func NewService(normalizer *Normalizer, store LeadStore, geocoder ports.Geocoder, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		normalizer: normalizer,
		store:      store,
		geocoder:   geocoder,
		bus:        bus,
		log:        log,
	}
}

// Ingest processes every record independently and in order. A failing record
// never stops the batch.
func (s *Service) Ingest(ctx context.Context, batch Batch) BatchResult {
	if batch.ID == uuid.Nil {
		batch.ID = uuid.New()
	}

	result := BatchResult{
		BatchID:  batch.ID,
		Results:  make([]RecordResult, 0, len(batch.Records)),
		Failures: make([]RecordFailure, 0),
	}

	for i, rec := range batch.Records {
		err := rec.Reject
		var res RecordResult
		if err == nil {
			res, err = s.IngestOne(ctx, rec.Input)
		}
		if err != nil {
			s.log.IngestRecordFailed(rec.Input.Source, i, rec.Input.RawAddress, err)
			result.Failures = append(result.Failures, RecordFailure{
				Index:      i,
				Source:     rec.Input.Source,
				RawAddress: rec.Input.RawAddress,
				Error:      err.Error(),
			})
			continue
		}
		res.Index = i
		result.Results = append(result.Results, res)
	}
	result.Count = len(result.Results)

	s.log.IngestBatchCompleted(batch.Channel, len(batch.Records), result.Count, len(result.Failures))
	if s.bus != nil {
		s.bus.Publish(ctx, events.LeadsIngested{
			BaseEvent: events.NewBaseEvent(),
			BatchID:   batch.ID,
			Channel:   batch.Channel,
			Received:  len(batch.Records),
			Succeeded: result.Count,
			Failed:    len(result.Failures),
			Raw:       batch.Raw,
		})
	}

	return result
}

// IngestOne normalizes raw against the stored lead with the same canonical key
// and upserts the result.
func (s *Service) IngestOne(ctx context.Context, raw domain.RawLeadInput) (RecordResult, error) {
	if strings.TrimSpace(raw.Source) == "" {
		return RecordResult{}, errors.New("source is required")
	}

	key := s.normalizer.Key(raw)
	existing, err := s.lookup(ctx, key)
	if err != nil {
		return RecordResult{}, err
	}

	now := s.normalizer.Now()
	enrichment := s.enrich(ctx, raw, existing)
	opts := repository.UpsertOptions{
		NotesSupplied: raw.Notes != nil,
		TagsSupplied:  raw.Tags != nil,
	}

	lead := s.normalizer.Normalize(raw, existing, enrichment, now)
	stored, err := s.store.Upsert(ctx, lead, opts)
	if err != nil {
		return RecordResult{}, err
	}

	// Another writer created the key between lookup and upsert. The statement
	// already merged without losing data; redo the merge against the winner
	// so the score reflects both records.
	if existing == nil && !stored.Inserted {
		winner, err := s.lookup(ctx, key)
		if err != nil {
			return RecordResult{}, err
		}
		if winner != nil {
			lead = s.normalizer.Normalize(raw, winner, enrichment, now)
			if stored, err = s.store.Upsert(ctx, lead, opts); err != nil {
				return RecordResult{}, err
			}
		}
	}

	action := ActionUpdated
	if stored.Inserted {
		action = ActionCreated
	}
	return RecordResult{ID: stored.ID, CanonicalKey: lead.CanonicalKey, Action: action}, nil
}

func (s *Service) lookup(ctx context.Context, key string) (*domain.Lead, error) {
	lead, err := s.store.GetByCanonicalKey(ctx, key)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &lead, nil
}

// enrich geocodes the record when neither it nor the stored lead carries
// coordinates. Any failure leaves the lead without coordinates.
func (s *Service) enrich(ctx context.Context, raw domain.RawLeadInput, existing *domain.Lead) *domain.Coordinates {
	if s.geocoder == nil {
		return nil
	}
	if raw.Lat != nil && raw.Lon != nil {
		return nil
	}
	if existing != nil && existing.HasCoordinates() {
		return nil
	}

	query, ok := s.normalizer.GeocodeQuery(raw)
	if !ok {
		return nil
	}

	coords, err := s.geocoder.Geocode(ctx, query)
	if err != nil {
		s.log.EnrichmentSkipped(query, err.Error())
		return nil
	}
	if coords == nil {
		s.log.EnrichmentSkipped(query, "no match")
	}
	return coords
}
