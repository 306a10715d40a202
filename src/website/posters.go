package website

import (
	"io"
	"net/http"

	"github.com/atelierhq/assetgate/src/assetops"
	"github.com/atelierhq/assetgate/src/config"
	"github.com/atelierhq/assetgate/src/oops"
)

func (s *websiteRoutes) posters(c *RequestContext) *assetops.Posters {
	return &assetops.Posters{
		Meta:    s.meta.ForUser(c.CurrentUserToken),
		Objects: s.objects,
		Codec:   s.codec,
		MaxSize: config.Config.Assets.MaxPosterSize,
		Locks:   s.locks,
	}
}

func (s *websiteRoutes) posterUpdate(c *RequestContext) ResponseData {
	owner, err := s.posters(c).Update(c, c.CurrentUserID, assetPathParam(c, false), assetops.PosterUpdateInput{
		Body:        c.Req.Body,
		ContentType: c.Req.Header.Get("Content-Type"),
		Size:        c.Req.ContentLength,
	})
	if err != nil {
		return assetOpError(c, err)
	}

	var res ResponseData
	res.WriteJson(owner)
	return res
}

func (s *websiteRoutes) posterDelete(c *RequestContext) ResponseData {
	err := s.posters(c).Delete(c, assetPathParam(c, false))
	if err != nil {
		return assetOpError(c, err)
	}

	var res ResponseData
	res.WriteJson(struct{}{})
	return res
}

func (s *websiteRoutes) posterGet(c *RequestContext) ResponseData {
	obj, err := s.posters(c).Get(c, assetPathParam(c, false))
	if err != nil {
		return assetOpError(c, err)
	}
	defer obj.Body.Close()

	var res ResponseData
	if obj.ContentType != "" {
		res.Header().Set("Content-Type", obj.ContentType)
	}
	if _, err := io.Copy(&res, obj.Body); err != nil {
		return c.ErrorResponse(http.StatusInternalServerError, oops.New(err, "failed to read poster bytes"))
	}
	return res
}
