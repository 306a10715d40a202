package website

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/atelierhq/assetgate/src/assetops"
	"github.com/atelierhq/assetgate/src/billing"
)

func FourOhFour(c *RequestContext) ResponseData {
	var res ResponseData
	res.StatusCode = http.StatusNotFound
	res.Header().Set("Content-Type", "text/plain")
	res.Write([]byte("Not Found"))
	return res
}

// A SafeError can be used to wrap another error and explicitly provide
// an error message that is safe to show to a user. This allows the original
// error to easily be logged and for servers to consistently return errors
// in a standard format, without having to worry about leaking sensitive
// info (assuming you use the right middleware!).
type SafeError struct {
	Wrapped error
	Msg     string
}

func NewSafeError(err error, msg string, args ...interface{}) error {
	return &SafeError{
		Wrapped: err,
		Msg:     fmt.Sprintf(msg, args...),
	}
}

func (s *SafeError) Error() string {
	return s.Msg
}

func (s *SafeError) Unwrap() error {
	return s.Wrapped
}

// assetOpError translates coordinator failures into responses. Metadata
// service rejections pass through verbatim, status and body both, so the
// frontend sees exactly what the metadata service said.
func assetOpError(c *RequestContext, err error) ResponseData {
	var opErr *assetops.Error
	if !errors.As(err, &opErr) {
		return c.ErrorResponse(http.StatusInternalServerError, err)
	}

	switch opErr.Kind {
	case assetops.KindInvalidInput, assetops.KindIDMismatch:
		return c.ErrorResponse(http.StatusBadRequest, NewSafeError(err, opErr.Msg))
	case assetops.KindNotFound:
		return c.ErrorResponse(http.StatusNotFound, NewSafeError(err, opErr.Msg))
	case assetops.KindMetadataFailed:
		if opErr.Status != 0 {
			var res ResponseData
			res.StatusCode = opErr.Status
			res.Errors = []error{err}
			res.Header().Set("Content-Type", "application/json")
			res.Write([]byte(opErr.Body))
			return res
		}
		return c.ErrorResponse(http.StatusBadGateway, NewSafeError(err, opErr.Msg))
	default:
		return c.ErrorResponse(http.StatusInternalServerError, err)
	}
}

func billingError(c *RequestContext, err error) ResponseData {
	var f *billing.Fault
	if errors.As(err, &f) {
		return c.ErrorResponse(f.Status, NewSafeError(err, f.Msg))
	}
	return c.ErrorResponse(http.StatusInternalServerError, err)
}
