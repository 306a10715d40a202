package website

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/atelierhq/assetgate/src/auth"
	"github.com/atelierhq/assetgate/src/config"
	"github.com/atelierhq/assetgate/src/oops"
)

func panicCatcherMiddleware(h Handler) Handler {
	return func(c *RequestContext) (res ResponseData) {
		defer func() {
			if recovered := recover(); recovered != nil {
				maybeError, ok := recovered.(*error)
				var err error
				if ok {
					err = *maybeError
				} else {
					err = oops.New(nil, fmt.Sprintf("Recovered from panic with value: %v", recovered))
				}
				res = c.ErrorResponse(http.StatusInternalServerError, err)
			}
		}()

		return h(c)
	}
}

// Browsers talk to us straight from frontend code on another origin, so
// every response carries CORS headers. Preflights are answered by a
// dedicated OPTIONS route.
func corsMiddleware(h Handler) Handler {
	return func(c *RequestContext) ResponseData {
		res := h(c)
		setCorsHeaders(&res)
		return res
	}
}

func setCorsHeaders(res *ResponseData) {
	res.Header().Set("Access-Control-Allow-Origin", "*")
	res.Header().Set("Access-Control-Allow-Methods", "GET, HEAD, POST, PUT, DELETE, OPTIONS")
	res.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, apikey, x-client-info, stripe-signature")
	res.Header().Set("Access-Control-Max-Age", "86400")
}

func corsPreflight(c *RequestContext) ResponseData {
	var res ResponseData
	res.StatusCode = http.StatusNoContent
	setCorsHeaders(&res)
	return res
}

// needsAuth verifies the bearer token and stashes the uid and the raw token
// on the context. Requests without a valid token stop here.
func needsAuth(h Handler) Handler {
	return func(c *RequestContext) ResponseData {
		header := c.Req.Header.Get("Authorization")
		token := strings.TrimPrefix(header, "Bearer ")
		if token == header || token == "" {
			return c.ErrorResponse(http.StatusUnauthorized, NewSafeError(nil, "missing bearer token"))
		}

		uid, err := auth.VerifyUserToken(token, config.Config.Metadata.JwtSecret)
		if err != nil {
			return c.ErrorResponse(http.StatusUnauthorized, NewSafeError(err, "invalid bearer token"))
		}

		c.CurrentUserID = uid
		c.CurrentUserToken = token
		return h(c)
	}
}

func logContextErrors(c *RequestContext, errs ...error) {
	for _, err := range errs {
		c.Logger.Error().Timestamp().Stack().Str("Requested", c.FullUrl()).Err(err).Msg("error occurred during request")
	}
}

func logContextErrorsMiddleware(h Handler) Handler {
	return func(c *RequestContext) ResponseData {
		res := h(c)
		logContextErrors(c, res.Errors...)
		return res
	}
}
