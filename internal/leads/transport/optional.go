package transport

import (
	"encoding/json"
	"strings"
)

// OptionalStrings distinguishes an absent list from one set to empty.
// "tags": null and "tags": [] both set it and clear the list.
type OptionalStrings struct {
	Value []string
	Set   bool
}

func (o OptionalStrings) IsZero() bool {
	return !o.Set
}

func (o *OptionalStrings) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		o.Value = []string{}
		return nil
	}

	var values []string
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}
	if values == nil {
		values = []string{}
	}

	o.Value = values
	return nil
}

// optionalString maps absent and blank strings to nil.
func optionalString(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
