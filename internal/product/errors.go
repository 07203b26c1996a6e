package product

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a fetch failure.
type ErrorKind string

const (
	// KindDomainRejected means the URL is outside the allowed domain. No
	// request was made.
	KindDomainRejected ErrorKind = "domain_rejected"
	// KindNetwork means both fetch strategies failed at the transport level.
	KindNetwork ErrorKind = "network_error"
	// KindSite means the product page answered with a non-200 status.
	KindSite ErrorKind = "site_error"
)

// FetchError is returned by Fetch for every failure.
type FetchError struct {
	Kind   ErrorKind
	URL    string
	Status int
	Block  BlockType
	Err    error
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case KindDomainRejected:
		return fmt.Sprintf("invalid domain: %s", e.URL)
	case KindSite:
		if e.Block != BlockNone {
			return fmt.Sprintf("site error: %d (blocked by %s)", e.Status, e.Block)
		}
		return fmt.Sprintf("site error: %d", e.Status)
	default:
		if e.Err != nil {
			return fmt.Sprintf("scrape error: %v", e.Err)
		}
		return "scrape error"
	}
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is a *FetchError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Kind == kind
}
