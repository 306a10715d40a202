package website

import (
	"io"
	"net/http"

	"github.com/atelierhq/assetgate/src/billing"
	"github.com/atelierhq/assetgate/src/config"
	"github.com/atelierhq/assetgate/src/oops"
)

func (s *websiteRoutes) stripeWebhook(c *RequestContext) ResponseData {
	payload, err := io.ReadAll(c.Req.Body)
	if err != nil {
		return c.ErrorResponse(http.StatusBadRequest, oops.New(err, "failed to read webhook payload"))
	}

	event, err := billing.ParseEvent(payload, c.Req.Header.Get("Stripe-Signature"), config.Config.Stripe.WebhookSecret)
	if err != nil {
		return c.ErrorResponse(http.StatusBadRequest, NewSafeError(err, "webhook signature verification failed"))
	}

	msg, err := s.billing.HandleEvent(c, event)
	if err != nil {
		return billingError(c, err)
	}

	var res ResponseData
	res.WriteJson(map[string]interface{}{"received": true, "message": msg})
	return res
}

func (s *websiteRoutes) billingCheckout(c *RequestContext) ResponseData {
	form, err := c.GetFormValues()
	if err != nil {
		return c.ErrorResponse(http.StatusBadRequest, NewSafeError(err, "invalid form data"))
	}

	url, err := s.billing.CreateCheckout(c, c.CurrentUserID, billing.CheckoutInput{
		Email:     form.Get("email"),
		LookupKey: form.Get("lookup_key"),
		ReturnURL: form.Get("return_url"),
	})
	if err != nil {
		return billingError(c, err)
	}

	var res ResponseData
	res.WriteJson(map[string]string{"url": url})
	return res
}
