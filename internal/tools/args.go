package tools

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/ledger-assistant/internal/domain"
)

// ArgumentError reports a missing or malformed tool argument.
type ArgumentError struct {
	Field   string
	Message string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("argument %s: %s", e.Field, e.Message)
}

type args map[string]any

// lookup returns the first present key among names.
func (a args) lookup(names ...string) (any, string, bool) {
	for _, n := range names {
		if v, ok := a[n]; ok && v != nil {
			return v, n, true
		}
	}
	return nil, names[0], false
}

func (a args) optionalString(names ...string) (string, error) {
	v, field, ok := a.lookup(names...)
	if !ok {
		return "", nil
	}
	s, isString := v.(string)
	if !isString {
		return "", &ArgumentError{Field: field, Message: fmt.Sprintf("must be a string, got %T", v)}
	}
	return strings.TrimSpace(s), nil
}

func (a args) requiredString(names ...string) (string, error) {
	s, err := a.optionalString(names...)
	if err != nil {
		return "", err
	}
	if s == "" {
		return "", &ArgumentError{Field: names[0], Message: "is required"}
	}
	return s, nil
}

// number accepts JSON numbers and numeric strings; anything else is rejected.
func (a args) requiredNumber(name string) (float64, error) {
	v, _, ok := a.lookup(name)
	if !ok {
		return 0, &ArgumentError{Field: name, Message: "is required"}
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, &ArgumentError{Field: name, Message: "must be a number"}
		}
		return f, nil
	case string:
		f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(n), ",", ""), 64)
		if err != nil {
			return 0, &ArgumentError{Field: name, Message: fmt.Sprintf("must be a number, got %q", n)}
		}
		return f, nil
	}
	return 0, &ArgumentError{Field: name, Message: fmt.Sprintf("must be a number, got %T", v)}
}

func (a args) optionalDate(name string) (*civil.Date, error) {
	s, err := a.optionalString(name)
	if err != nil || s == "" {
		return nil, err
	}
	d, err := civil.ParseDate(s)
	if err != nil || !d.IsValid() {
		return nil, &ArgumentError{Field: name, Message: fmt.Sprintf("must be a YYYY-MM-DD date, got %q", s)}
	}
	return &d, nil
}

func (a args) requiredDate(name string) (civil.Date, error) {
	d, err := a.optionalDate(name)
	if err != nil {
		return civil.Date{}, err
	}
	if d == nil {
		return civil.Date{}, &ArgumentError{Field: name, Message: "is required"}
	}
	return *d, nil
}

// kind reads "kind", falling back to the legacy "type" key.
func (a args) kind(required bool) (domain.Kind, error) {
	var (
		s   string
		err error
	)
	if required {
		s, err = a.requiredString("kind", "type")
	} else {
		s, err = a.optionalString("kind", "type")
	}
	if err != nil || s == "" {
		return "", err
	}
	k, ok := domain.ParseKind(s)
	if !ok {
		return "", &ArgumentError{Field: "kind", Message: fmt.Sprintf("must be income or expense, got %q", s)}
	}
	return k, nil
}
