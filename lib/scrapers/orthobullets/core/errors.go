package core

import (
	"context"
	"errors"
	"fmt"
	"net"
)

var (
	ErrStatus  = errors.New("unexpected status code")
	ErrNotHtml = errors.New("response is not html")
)

// FetchError is returned for any page that could not be retrieved and
// parsed.
type FetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: %v (status %d)", e.URL, e.Err, e.Status)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func (e *FetchError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(e.Err, &netErr) && netErr.Timeout()
}
