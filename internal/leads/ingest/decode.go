package ingest

import (
	"encoding/json"
	"errors"
	"fmt"

	"permitleads_backend/internal/leads/transport"
	"permitleads_backend/platform/validator"
)

// ErrInvalidRecord rejects a batch item that is not a JSON object or whose
// fields have the wrong JSON type.
var ErrInvalidRecord = errors.New("invalid record")

// DecodeRecords decodes and validates each item on its own so one bad record
// never fails the batch. check runs after validation for channel rules.
// Rejected records still carry source and rawAddress for the failure report.
func DecodeRecords(val *validator.Validator, items []json.RawMessage, check func(*transport.LeadRecord) error) []Record {
	records := make([]Record, len(items))
	for i, item := range items {
		var rec transport.LeadRecord
		if err := json.Unmarshal(item, &rec); err != nil {
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &typeErr) && typeErr.Field != "" {
				// the decoder fills every other field before reporting a mismatch
				records[i] = Record{
					Input:  rec.ToRawInput(),
					Reject: fmt.Errorf("%w: %s must be %s, got %s", ErrInvalidRecord, typeErr.Field, typeErr.Type, typeErr.Value),
				}
				continue
			}
			records[i] = Record{Reject: ErrInvalidRecord}
			continue
		}
		records[i].Input = rec.ToRawInput()
		if err := val.Struct(rec); err != nil {
			records[i].Reject = errors.New(validator.Describe(err))
			continue
		}
		if check != nil {
			if err := check(&rec); err != nil {
				records[i].Reject = err
				continue
			}
		}
		records[i].Input = rec.ToRawInput()
	}
	return records
}
