// internal/lifecycle/validation.go
package lifecycle

import (
	"fmt"
	"time"

	"mediatheque/internal/recordstore"
)

// ValidateRequired checks that every required field of kind is present in
// payload. Only presence is checked; the first missing field is reported.
func ValidateRequired(kind Kind, payload recordstore.Record) error {
	p, err := PolicyFor(kind)
	if err != nil {
		return err
	}
	for _, field := range p.Required {
		if _, ok := payload[field]; !ok {
			return &MissingFieldError{Field: field}
		}
	}
	return nil
}

// ValidateReturnDate enforces the YYYY-MM-DD string form of a loan return date.
func ValidateReturnDate(v any) error {
	s, ok := v.(string)
	if !ok {
		return &InvalidFieldError{Field: FieldReturnDate, Reason: fmt.Sprintf("expected a YYYY-MM-DD string, got %T", v)}
	}
	t, err := time.Parse(ReturnDateLayout, s)
	if err != nil || t.Format(ReturnDateLayout) != s {
		return &InvalidFieldError{Field: FieldReturnDate, Reason: fmt.Sprintf("%q is not a YYYY-MM-DD date", s)}
	}
	return nil
}

// FilterUpdate keeps the fields of payload that kind allows an update to set.
func FilterUpdate(kind Kind, payload recordstore.Record) (recordstore.Record, error) {
	p, err := PolicyFor(kind)
	if err != nil {
		return nil, err
	}

	out := recordstore.Record{}
	if p.Mutable == nil {
		for k, v := range payload {
			if k != recordstore.IDField {
				out[k] = v
			}
		}
	} else {
		for _, field := range p.Mutable {
			if v, ok := payload[field]; ok {
				out[field] = v
			}
		}
	}

	if len(out) == 0 {
		return nil, ErrNoValidFields
	}
	return out, nil
}
