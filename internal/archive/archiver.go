// Package archive keeps the raw payload of every ingestion batch in object
// storage so a batch can be inspected or replayed later.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"permitleads_backend/internal/events"
	"permitleads_backend/platform/logger"

	"github.com/google/uuid"
)

const contentTypeJSON = "application/json"

// Archiver writes ingest/yyyy/mm/dd/<batchID>.json for each LeadsIngested
// event. Archive failures are logged and never reach the ingestion caller.
type Archiver struct {
	store  ObjectStore
	bucket string
	log    *logger.Logger
}

func NewArchiver(store ObjectStore, bucket string, log *logger.Logger) *Archiver {
	return &Archiver{store: store, bucket: bucket, log: log}
}

// Subscribe registers the archiver on bus.
func (a *Archiver) Subscribe(bus events.Bus) {
	bus.Subscribe(events.LeadsIngested{}.EventName(), a)
}

type batchDocument struct {
	BatchID    uuid.UUID       `json:"batchId"`
	Channel    string          `json:"channel"`
	ReceivedAt time.Time       `json:"receivedAt"`
	Received   int             `json:"received"`
	Succeeded  int             `json:"succeeded"`
	Failed     int             `json:"failed"`
	Payload    json.RawMessage `json:"payload"`
}

var _ events.Handler = (*Archiver)(nil)

// Handle implements events.Handler.
func (a *Archiver) Handle(ctx context.Context, event events.Event) error {
	batch, ok := event.(events.LeadsIngested)
	if !ok {
		return nil
	}

	key := ObjectKey(batch.OccurredAt(), batch.BatchID)
	data, err := json.Marshal(batchDocument{
		BatchID:    batch.BatchID,
		Channel:    batch.Channel,
		ReceivedAt: batch.OccurredAt().UTC(),
		Received:   batch.Received,
		Succeeded:  batch.Succeeded,
		Failed:     batch.Failed,
		Payload:    payload(batch.Raw),
	})
	if err != nil {
		a.log.Error("failed to encode ingest archive", "batchId", batch.BatchID, "error", err)
		return nil
	}

	if err := a.store.PutObject(ctx, a.bucket, key, contentTypeJSON, data); err != nil {
		a.log.Error("failed to archive ingest batch", "batchId", batch.BatchID, "key", key, "error", err)
		return nil
	}

	a.log.Debug("ingest batch archived", "batchId", batch.BatchID, "key", key)
	return nil
}

// ObjectKey is the storage key for a batch received at t.
func ObjectKey(t time.Time, batchID uuid.UUID) string {
	return fmt.Sprintf("ingest/%s/%s.json", t.UTC().Format("2006/01/02"), batchID)
}

// payload embeds raw as-is when it is JSON and as a string otherwise.
func payload(raw []byte) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage("null")
	}
	if json.Valid(raw) {
		return raw
	}
	quoted, _ := json.Marshal(string(raw))
	return quoted
}
