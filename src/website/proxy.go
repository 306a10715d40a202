package website

import (
	"io"
	"net/http"

	"github.com/atelierhq/assetgate/src/oops"
)

// metadataProxy forwards /rest/ and /auth/ requests to the metadata service
// unchanged, so frontends can talk to it through a single origin. The client
// injects the anon key and patches up empty bearer tokens.
func (s *websiteRoutes) metadataProxy(c *RequestContext) ResponseData {
	resp, err := s.meta.Proxy(c, c.Req)
	if err != nil {
		return c.ErrorResponse(http.StatusBadGateway, oops.New(err, "metadata proxy request failed"))
	}
	defer resp.Body.Close()

	var res ResponseData
	res.StatusCode = resp.StatusCode
	for name, vals := range resp.Header {
		for _, val := range vals {
			res.Header().Add(name, val)
		}
	}
	if _, err := io.Copy(&res, resp.Body); err != nil {
		return c.ErrorResponse(http.StatusBadGateway, oops.New(err, "failed to read metadata proxy response"))
	}
	return res
}
