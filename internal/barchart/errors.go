package barchart

import (
	"errors"
	"fmt"
)

// Kind classifies why a fetch produced no bars.
type Kind int

const (
	KindHTTP Kind = iota + 1
	KindTimeout
	KindUnknownTransport
	KindNonJSON
	KindMalformedBody
	KindNullBody
	KindEmptyBody
	KindNoResults
)

func (k Kind) String() string {
	switch k {
	case KindHTTP:
		return "HttpError"
	case KindTimeout:
		return "Timeout"
	case KindUnknownTransport:
		return "UnknownTransportError"
	case KindNonJSON:
		return "NonJsonResponse"
	case KindMalformedBody:
		return "MalformedBody"
	case KindNullBody:
		return "NullBody"
	case KindEmptyBody:
		return "EmptyBody"
	case KindNoResults:
		return "NoResults"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// FetchError is the failure of a single ticker request.
//
// A non-JSON response is fatal: the vendor answers with an HTML page once the
// daily quota is exhausted, so every following request would fail the same way
// and the whole run is stopped. All other kinds only skip the ticker.
type FetchError struct {
	Kind     Kind
	Ticker   string
	Interval Interval
	Status   int // HTTP status, 0 when no response was received
	Err      error
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("%s %s: %s", e.Ticker, e.Interval, e.Kind)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FetchError) Unwrap() error { return e.Err }

// Fatal reports whether the failure must abort the whole run.
func (e *FetchError) Fatal() bool { return e.Kind == KindNonJSON }

// IsFatal reports whether err carries a fatal FetchError anywhere in its chain.
func IsFatal(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Fatal()
}

// KindOf returns the Kind of the FetchError in err's chain, or 0.
func KindOf(err error) Kind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return 0
}
