package billing

import (
	"context"

	"github.com/atelierhq/assetgate/src/logging"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

type apiClient struct {
	api *client.API
}

// NewClient returns a StripeClient backed by the real Stripe API.
func NewClient(secretKey string) StripeClient {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &apiClient{api: api}
}

func (c *apiClient) GetCustomer(ctx context.Context, id string) (*stripe.Customer, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx
	return c.api.Customers.Get(id, params)
}

func (c *apiClient) PriceIDForLookupKey(ctx context.Context, key string) (string, error) {
	params := &stripe.PriceListParams{
		LookupKeys: stripe.StringSlice([]string{key}),
	}
	params.Context = ctx
	it := c.api.Prices.List(params)
	for it.Next() {
		return it.Price().ID, nil
	}
	return "", it.Err()
}

func (c *apiClient) FindCustomerByEmail(ctx context.Context, email string) (string, error) {
	params := &stripe.CustomerListParams{
		Email: stripe.String(email),
	}
	params.Context = ctx
	params.Limit = stripe.Int64(2)
	it := c.api.Customers.List(params)
	var ids []string
	for it.Next() {
		ids = append(ids, it.Customer().ID)
	}
	if err := it.Err(); err != nil {
		return "", err
	}
	if len(ids) == 0 {
		return "", nil
	}
	if len(ids) > 1 {
		logging.Warn().Str("email", email).Msg("multiple stripe customers for one email")
	}
	return ids[0], nil
}

func (c *apiClient) NewCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	params.Context = ctx
	return c.api.CheckoutSessions.New(params)
}
