package assetkeys

import (
	"crypto/sha1"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Codec derives object-store keys and converts between stored URLs and keys.
// It is pure: no I/O, no state beyond the configured base URL.
type Codec struct {
	// Public base URL under which assets are served. A stored URL is this
	// prefix plus "/" plus the storage key.
	BaseUrl string
}

func NewCodec(baseUrl string) Codec {
	return Codec{BaseUrl: strings.TrimSuffix(baseUrl, "/")}
}

// Derive produces a fresh storage key for one version of an asset:
//
//	sha1(owner) / <unix time in hex>-<uuid> / <logical path>
//
// The owner hash namespaces keys per owner without exposing the owner id.
// The time prefix keeps keys roughly sorted by creation; the uuid makes every
// written version a distinct, never-reused key even for back-to-back writes
// to the same owner and path.
func Derive(owner string, logicalPath string) string {
	disambiguator := fmt.Sprintf("%x-%s", time.Now().Unix(), uuid.New())
	return fmt.Sprintf("%s/%s/%s", HashOwner(owner), disambiguator, logicalPath)
}

// HashOwner returns the hex sha1 of an owner identity.
func HashOwner(owner string) string {
	return fmt.Sprintf("%x", sha1.Sum([]byte(owner)))
}

// URLFor maps a storage key to the URL recorded in asset metadata.
func (c Codec) URLFor(key string) string {
	return c.BaseUrl + "/" + key
}

// KeyFor recovers the storage key from a stored URL. The transform is total:
// a string that does not carry the base-URL prefix is returned unchanged.
// Callers treat an unstripped value as a data-integrity signal, not an error
// to recover from.
func (c Codec) KeyFor(assetUrl string) string {
	return strings.TrimPrefix(assetUrl, c.BaseUrl+"/")
}
