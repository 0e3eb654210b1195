package rates

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/rickgao/altrates/internal/model"
)

// Kind classifies errors for reporting and rate limiting.
type Kind string

const (
	KindValidation  Kind = "validation"
	KindTransport   Kind = "transport"
	KindUnavailable Kind = "unavailable"
	KindConsistency Kind = "consistency"
	KindOther       Kind = "other"
)

// ErrNoReference is returned when a candidate arrives before any reference table.
var ErrNoReference = errors.New("no reference ticker table")

// ValidationError is a payload that failed its shape contract.
type ValidationError struct {
	Source string // e.g., "stream", "aggregator"
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: invalid payload: %s", e.Source, e.Reason)
}

// TransportError wraps a connection-level failure.
type TransportError struct {
	Service string
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// UnavailableError names data required for a cycle that no source provided.
type UnavailableError struct {
	Subject string // e.g., "fiats", "BTC fiat"
	Codes   []model.Code
	Err     error
}

func (e *UnavailableError) Error() string {
	if len(e.Codes) == 0 && e.Err != nil {
		return fmt.Sprintf("%s unavailable: %v", e.Subject, e.Err)
	}
	return fmt.Sprintf("%s %s unavailable", e.Subject, model.JoinCodes(e.Codes))
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// ConsistencyError is a candidate rate outside the tolerance band.
type ConsistencyError struct {
	Altcoin   model.Code
	Fiat      model.Code
	Candidate float64
	Reference float64
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("%s error: %s %s vs. %s",
		e.Altcoin, e.Fiat, formatRate(e.Candidate), formatRate(e.Reference))
}

// KindOf returns the kind of the first classified error in err's chain.
func KindOf(err error) Kind {
	var (
		validation  *ValidationError
		transport   *TransportError
		unavailable *UnavailableError
		consistency *ConsistencyError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &validation):
		return KindValidation
	case errors.As(err, &consistency):
		return KindConsistency
	case errors.As(err, &unavailable):
		return KindUnavailable
	case errors.As(err, &transport):
		return KindTransport
	default:
		return KindOther
	}
}

func formatRate(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
