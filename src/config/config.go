package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

type Environment string

const (
	Live Environment = "live"
	Beta Environment = "beta"
	Dev  Environment = "dev"
)

type AssetgateConfig struct {
	Env      Environment
	Addr     string
	LogLevel zerolog.Level

	Metadata    MetadataConfig
	ObjectStore ObjectStoreConfig
	Assets      AssetsConfig
	Stripe      StripeConfig
	DevStore    DevStoreConfig
}

// MetadataConfig describes the remote metadata service. The service is only
// ever used through its RPC surface; there is no direct database connection.
type MetadataConfig struct {
	BaseUrl   string
	AnonKey   string
	JwtSecret string
}

type ObjectStoreConfig struct {
	Endpoint string
	Region   string
	Bucket   string
	Key      string
	Secret   string
}

type AssetsConfig struct {
	// Public base URL that stored asset URLs are built from. Storage keys are
	// recovered from URLs by stripping this prefix.
	BaseUrl string

	MaxAssetSize  int64
	MaxPosterSize int64
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	// Path component of the webhook endpoint. Obscure on purpose; Stripe is
	// the only caller and the handler verifies signatures anyway.
	WebhookPath  string
	DomainVerify string

	// Maps a Stripe price lookup key to the plan name recorded on profiles.
	Plans map[string]string
}

type DevStoreConfig struct {
	Addr   string
	Folder string
}

var Config = load()

func load() AssetgateConfig {
	return AssetgateConfig{
		Env:      Environment(getenv("ASSETGATE_ENV", string(Dev))),
		Addr:     getenv("ASSETGATE_ADDR", ":9010"),
		LogLevel: loglevel(getenv("ASSETGATE_LOG_LEVEL", "info")),

		Metadata: MetadataConfig{
			BaseUrl:   strings.TrimSuffix(getenv("METADATA_BASE_URL", "http://localhost:54321"), "/"),
			AnonKey:   os.Getenv("METADATA_ANON_KEY"),
			JwtSecret: os.Getenv("METADATA_JWT_SECRET"),
		},
		ObjectStore: ObjectStoreConfig{
			Endpoint: getenv("OBJECT_STORE_ENDPOINT", "http://localhost:9940"),
			Region:   getenv("OBJECT_STORE_REGION", "us-east-1"),
			Bucket:   getenv("OBJECT_STORE_BUCKET", "user-assets"),
			Key:      os.Getenv("OBJECT_STORE_KEY"),
			Secret:   os.Getenv("OBJECT_STORE_SECRET"),
		},
		Assets: AssetsConfig{
			BaseUrl:       strings.TrimSuffix(getenv("USER_ASSET_BASE_URL", "http://localhost:9010/files"), "/"),
			MaxAssetSize:  getint64("USER_ASSET_MAX_SIZE", 50*1024*1024),
			MaxPosterSize: getint64("POSTER_ASSET_MAX_SIZE", 5*1024*1024),
		},
		Stripe: StripeConfig{
			SecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
			WebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
			WebhookPath:   getenv("STRIPE_WEBHOOK_PATH", "stripe_webhook"),
			DomainVerify:  os.Getenv("STRIPE_DOMAIN_VERIFY"),
			Plans:         stripePlans(os.Environ()),
		},
		DevStore: DevStoreConfig{
			Addr:   getenv("DEVSTORE_ADDR", ":9940"),
			Folder: getenv("DEVSTORE_FOLDER", "./tmp/devstore"),
		},
	}
}

func getenv(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}

func getint64(name string, def int64) int64 {
	v, err := strconv.ParseInt(os.Getenv(name), 10, 64)
	if err != nil {
		return def
	}
	return v
}

func loglevel(s string) zerolog.Level {
	level, err := zerolog.ParseLevel(s)
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}

// stripePlans picks up every STRIPE_PLAN_<lookup_key>=<plan name> variable.
func stripePlans(environ []string) map[string]string {
	const prefix = "STRIPE_PLAN_"
	plans := map[string]string{}
	for _, kv := range environ {
		if !strings.HasPrefix(kv, prefix) {
			continue
		}
		key, val, ok := strings.Cut(kv[len(prefix):], "=")
		if !ok || key == "" || val == "" {
			continue
		}
		plans[key] = val
	}
	return plans
}
