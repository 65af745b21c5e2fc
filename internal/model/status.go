package model

import (
	"errors"
	"fmt"
	"strings"
)

// Status is a three-level risk tier.
type Status int

const (
	StatusSafe Status = iota
	StatusWarning
	StatusDanger
)

// ErrUnknownStatus is returned when a status label cannot be parsed.
var ErrUnknownStatus = errors.New("unknown status")

// Classify assigns a tier by comparing v against the warning and danger levels.
// The lower bound of each tier is inclusive.
func Classify(v, warning, danger float64) Status {
	switch {
	case v >= danger:
		return StatusDanger
	case v >= warning:
		return StatusWarning
	default:
		return StatusSafe
	}
}

// String returns the English label.
func (s Status) String() string {
	switch s {
	case StatusWarning:
		return "warning"
	case StatusDanger:
		return "danger"
	default:
		return "safe"
	}
}

// Korean returns the label used by the Korean status sheets.
func (s Status) Korean() string {
	switch s {
	case StatusWarning:
		return "경고"
	case StatusDanger:
		return "위험"
	default:
		return "안전"
	}
}

// Label returns the label for the given language ("en" or "ko").
func (s Status) Label(lang string) string {
	if lang == "ko" {
		return s.Korean()
	}
	return s.String()
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(b []byte) error {
	v, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseStatus accepts English or Korean labels, ignoring case and surrounding space.
func ParseStatus(label string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "safe", "안전":
		return StatusSafe, nil
	case "warning", "warn", "경고":
		return StatusWarning, nil
	case "danger", "위험":
		return StatusDanger, nil
	}
	return StatusSafe, fmt.Errorf("%w: %q", ErrUnknownStatus, label)
}

// StatusRecord is one row of the per-merchant status table.
type StatusRecord struct {
	MerchantID string `json:"merchant_id"`
	Indicator  string `json:"indicator"`
	Status     Status `json:"status"`
}
