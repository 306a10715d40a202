package website

import (
	"io"
	"net/http"
	"strings"

	"github.com/atelierhq/assetgate/src/assetops"
	"github.com/atelierhq/assetgate/src/config"
	"github.com/atelierhq/assetgate/src/oops"
)

// userAssets builds a coordinator bound to the requester's own token, so
// metadata reads and creates run with the user's database permissions.
func (s *websiteRoutes) userAssets(c *RequestContext) *assetops.UserAssets {
	return &assetops.UserAssets{
		Meta:    s.meta.ForUser(c.CurrentUserToken),
		Objects: s.objects,
		Codec:   s.codec,
		MaxSize: config.Config.Assets.MaxAssetSize,
		Locks:   s.locks,
	}
}

// assetPathParam normalizes the asset path from the URL: no surrounding
// slashes and no escaping upward out of the key space. User asset paths
// additionally may not start with a dot, since dotted prefixes are reserved
// for poster owners.
func assetPathParam(c *RequestContext, stripLeadingDot bool) string {
	p := c.PathParams["path"]
	p = strings.TrimSuffix(p, "/")
	p = strings.TrimPrefix(p, "/")
	p = strings.TrimPrefix(p, "..")
	if stripLeadingDot {
		p = strings.TrimPrefix(p, ".")
	}
	return p
}

// The asset type can come from a ?type= override or the Content-Type
// header.
func assetContentType(c *RequestContext) string {
	if t := c.URL().Query().Get("type"); t != "" {
		return t
	}
	if t := c.Req.Header.Get("Content-Type"); t != "" {
		return t
	}
	return assetops.DefaultContentType
}

func (s *websiteRoutes) userAssetCreate(c *RequestContext) ResponseData {
	asset, err := s.userAssets(c).Create(c, c.CurrentUserID, assetPathParam(c, true), assetops.CreateInput{
		Body:        c.Req.Body,
		ContentType: assetContentType(c),
		Size:        c.Req.ContentLength,
		ProjectID:   c.URL().Query().Get("project_id"),
	})
	if err != nil {
		return assetOpError(c, err)
	}

	var res ResponseData
	res.WriteJson(asset)
	return res
}

func (s *websiteRoutes) userAssetUpdate(c *RequestContext) ResponseData {
	asset, err := s.userAssets(c).Update(c, c.CurrentUserID, assetPathParam(c, true), assetops.UpdateInput{
		Body:        c.Req.Body,
		ContentType: assetContentType(c),
		Size:        c.Req.ContentLength,
	})
	if err != nil {
		return assetOpError(c, err)
	}

	var res ResponseData
	res.WriteJson(asset)
	return res
}

func (s *websiteRoutes) userAssetDelete(c *RequestContext) ResponseData {
	err := s.userAssets(c).Delete(c, assetPathParam(c, true))
	if err != nil {
		return assetOpError(c, err)
	}

	var res ResponseData
	res.WriteJson(struct{}{})
	return res
}

func (s *websiteRoutes) userAssetGet(c *RequestContext) ResponseData {
	_, obj, err := s.userAssets(c).Get(c, assetPathParam(c, true))
	if err != nil {
		return assetOpError(c, err)
	}
	defer obj.Body.Close()

	var res ResponseData
	if obj.ContentType != "" {
		res.Header().Set("Content-Type", obj.ContentType)
	}
	if obj.ETag != "" {
		res.Header().Set("ETag", obj.ETag)
	}
	if _, err := io.Copy(&res, obj.Body); err != nil {
		return c.ErrorResponse(http.StatusInternalServerError, oops.New(err, "failed to read asset bytes"))
	}
	return res
}
