package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/atelierhq/assetgate/src/config"
	"github.com/atelierhq/assetgate/src/logging"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
)

// PlanStore is the slice of the metadata surface billing needs.
type PlanStore interface {
	GetEmailForUID(ctx context.Context, uid string) (string, error)
	UpdateProfilePlan(ctx context.Context, email string, plan string, expiry int64) error
	ExpireProfilePlan(ctx context.Context, email string, ifCurrentPlan string) error
}

// StripeClient covers the handful of Stripe calls billing makes. The real
// implementation lives in stripeclient.go; tests substitute a fake.
type StripeClient interface {
	GetCustomer(ctx context.Context, id string) (*stripe.Customer, error)
	PriceIDForLookupKey(ctx context.Context, key string) (string, error)
	FindCustomerByEmail(ctx context.Context, email string) (string, error)
	NewCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// Fault is a billing failure with an HTTP status the handler layer can
// forward as-is.
type Fault struct {
	Status int
	Msg    string
}

func (f *Fault) Error() string {
	return f.Msg
}

func fault(status int, format string, args ...interface{}) *Fault {
	return &Fault{Status: status, Msg: fmt.Sprintf(format, args...)}
}

type Billing struct {
	Stripe StripeClient
	Meta   PlanStore
	Cfg    config.StripeConfig
}

// ParseEvent verifies the webhook signature and decodes the event.
func ParseEvent(payload []byte, sigHeader string, secret string) (stripe.Event, error) {
	return webhook.ConstructEvent(payload, sigHeader, secret)
}

// HandleEvent processes a verified webhook event. Subscription lifecycle
// events drive the profile's plan; everything else is acknowledged and
// ignored so Stripe does not retry.
func (b *Billing) HandleEvent(ctx context.Context, event stripe.Event) (string, error) {
	switch event.Type {
	case "customer.subscription.updated", "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return "", fault(400, "malformed subscription payload")
		}
		logging.Info().
			Str("subscription", sub.ID).
			Str("status", string(sub.Status)).
			Str("event", string(event.Type)).
			Msg("processing subscription event")
		return b.updateSubscription(ctx, &sub)
	default:
		logging.Info().Str("event", string(event.Type)).Msg("ignoring stripe event")
		return "", nil
	}
}

// updateSubscription maps the subscription's price lookup key to a plan name
// and records or expires it on the matching profile.
func (b *Billing) updateSubscription(ctx context.Context, sub *stripe.Subscription) (string, error) {
	var lookupKey string
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		lookupKey = sub.Items.Data[0].Price.LookupKey
	}

	plan := b.Cfg.Plans[lookupKey]
	if plan == "" {
		// Not a price we sell a plan for. Acknowledge so Stripe stops
		// retrying.
		logging.Warn().Str("lookup_key", lookupKey).Msg("no plan for price lookup key")
		return "Ignored Product", nil
	}

	if sub.Customer == nil || sub.Customer.ID == "" {
		return "", fault(400, "subscription has no customer id")
	}
	customer, err := b.Stripe.GetCustomer(ctx, sub.Customer.ID)
	if err != nil {
		return "", fault(400, "unable to find customer %s", sub.Customer.ID)
	}
	if customer.Deleted {
		return "", fault(400, "customer has been deleted")
	}
	if customer.Email == "" {
		return "", fault(400, "customer email not found")
	}

	isActive := sub.Status == stripe.SubscriptionStatusActive
	isEnded := !isActive &&
		sub.Status != stripe.SubscriptionStatusTrialing &&
		sub.Status != stripe.SubscriptionStatusIncomplete

	switch {
	case isActive:
		if err := b.Meta.UpdateProfilePlan(ctx, customer.Email, plan, sub.CurrentPeriodEnd); err != nil {
			logging.Error().Err(err).Str("email", customer.Email).Msg("failed to set plan for profile")
			return "", fault(500, "failed to set plan for profile")
		}
		return fmt.Sprintf("updated %s to %s", customer.Email, plan), nil
	case isEnded:
		if err := b.Meta.ExpireProfilePlan(ctx, customer.Email, plan); err != nil {
			logging.Error().Err(err).Str("email", customer.Email).Msg("failed to expire plan for profile")
			return "", fault(500, "failed to expire plan for profile")
		}
		return fmt.Sprintf("expired %s from %s", customer.Email, plan), nil
	default:
		return "", nil
	}
}

type CheckoutInput struct {
	Email     string
	LookupKey string
	ReturnURL string
}

// CreateCheckout builds a Stripe Checkout session for the authenticated
// user. The submitted email must match the one on record for the uid, and
// the return URL must point back at our own frontend.
func (b *Billing) CreateCheckout(ctx context.Context, uid string, in CheckoutInput) (string, error) {
	email, err := b.Meta.GetEmailForUID(ctx, uid)
	if err != nil {
		logging.Error().Err(err).Str("uid", uid).Msg("failed to get email for uid")
		email = ""
	}
	if in.Email == "" || email == "" || in.Email != email {
		return "", fault(400, "invalid email")
	}
	if in.LookupKey == "" || in.ReturnURL == "" {
		return "", fault(400, "invalid form data")
	}
	if !strings.HasPrefix(in.ReturnURL, b.Cfg.DomainVerify) {
		return "", fault(400, "invalid return url")
	}

	priceID, err := b.Stripe.PriceIDForLookupKey(ctx, in.LookupKey)
	if err != nil {
		return "", fault(500, "failed to look up price")
	}
	if priceID == "" {
		return "", fault(400, "unknown price")
	}

	params := &stripe.CheckoutSessionParams{
		BillingAddressCollection: stripe.String("auto"),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
		Mode:       stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		SuccessURL: stripe.String(in.ReturnURL + "?success=true&session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:  stripe.String(in.ReturnURL + "?canceled=true"),
	}

	// Stripe happily creates several customers for one email; reuse the
	// existing one when there is one.
	customerID, err := b.Stripe.FindCustomerByEmail(ctx, email)
	if err != nil {
		return "", fault(500, "failed to look up customer")
	}
	if customerID != "" {
		params.Customer = stripe.String(customerID)
	} else {
		params.CustomerEmail = stripe.String(email)
	}

	session, err := b.Stripe.NewCheckoutSession(ctx, params)
	if err != nil {
		logging.Error().Err(err).Msg("failed to create checkout session")
		return "", fault(500, "failed to create session")
	}
	if session.URL == "" {
		return "", fault(500, "failed to create session")
	}
	return session.URL, nil
}
