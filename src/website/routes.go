package website

import (
	"net/http"
	"regexp"

	"github.com/atelierhq/assetgate/src/assetkeys"
	"github.com/atelierhq/assetgate/src/assetops"
	"github.com/atelierhq/assetgate/src/billing"
	"github.com/atelierhq/assetgate/src/config"
	"github.com/atelierhq/assetgate/src/metastore"
	"github.com/atelierhq/assetgate/src/objectstore"
)

type websiteRoutes struct {
	meta    *metastore.Client
	objects objectstore.Store
	codec   assetkeys.Codec
	locks   *assetops.Locks
	billing *billing.Billing
}

var regexUserAsset = regexp.MustCompile(`^/api/v1/user_asset/(?P<path>.+)$`)
var regexManagedImage = regexp.MustCompile(`^/api/v1/(?:poster|image)/(?P<path>.+)$`)
var regexMetadataProxy = regexp.MustCompile(`^/(?:rest|auth)/`)
var regexBillingCheckout = regexp.MustCompile(`^/billing/checkout$`)
var regexCatchAll = regexp.MustCompile(`^/`)

func NewWebsiteRoutes(meta *metastore.Client, objects objectstore.Store, bill *billing.Billing) http.Handler {
	s := &websiteRoutes{
		meta:    meta,
		objects: objects,
		codec:   assetkeys.NewCodec(config.Config.Assets.BaseUrl),
		locks:   assetops.NewLocks(),
		billing: bill,
	}

	router := &Router{}
	routes := RouteBuilder{
		Router: router,
		Middlewares: []Middleware{
			logContextErrorsMiddleware,
			corsMiddleware,
			panicCatcherMiddleware,
		},
	}

	routes.OPTIONS(regexCatchAll, corsPreflight)

	routes.AnyMethod(regexMetadataProxy, s.metadataProxy)

	authed := routes.WithMiddleware(needsAuth)

	authed.PUT(regexUserAsset, s.userAssetCreate)
	authed.POST(regexUserAsset, s.userAssetUpdate)
	authed.DELETE(regexUserAsset, s.userAssetDelete)
	authed.GET(regexUserAsset, s.userAssetGet)

	authed.PUT(regexManagedImage, s.posterUpdate)
	authed.POST(regexManagedImage, s.posterUpdate)
	authed.DELETE(regexManagedImage, s.posterDelete)
	authed.GET(regexManagedImage, s.posterGet)

	// Stripe authenticates itself with the signature header, not a bearer
	// token.
	routes.POST(regexStripeWebhook(), s.stripeWebhook)
	authed.POST(regexBillingCheckout, s.billingCheckout)

	routes.AnyMethod(regexCatchAll, FourOhFour)

	return router
}

func regexStripeWebhook() *regexp.Regexp {
	return regexp.MustCompile(`^/payments/` + regexp.QuoteMeta(config.Config.Stripe.WebhookPath) + `$`)
}
