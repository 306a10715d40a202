package metastore

import (
	"context"
	"errors"
	"fmt"

	"github.com/atelierhq/assetgate/src/models"
)

// ErrNotFound is returned by lookups that match no record.
var ErrNotFound = errors.New("record not found")

// RequestError is the "not ok" outcome of a remote procedure: the service's
// status and body, kept verbatim so callers can forward them unmodified. The
// coordinators do not distinguish 4xx from 5xx.
type RequestError struct {
	Status int
	Body   string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("metadata service returned %d: %s", e.Status, e.Body)
}

type CreateUserAssetInput struct {
	Name      string
	URL       string
	Type      string
	Size      int64
	ProjectID string
}

type UpdateUserAssetURLInput struct {
	Name string
	URL  string
	Size int64
}

// Store is the metadata system of record, consumed only through named remote
// procedures. Implemented by Client; faked in tests.
type Store interface {
	GetUserAsset(ctx context.Context, name string) (*models.Asset, error)
	CreateUserAsset(ctx context.Context, in CreateUserAssetInput) (*models.Asset, error)
	UpdateUserAssetURL(ctx context.Context, in UpdateUserAssetURLInput) (*models.Asset, error)
	DeleteUserAsset(ctx context.Context, name string) (*models.Asset, error)

	GetProject(ctx context.Context, id string) (*models.Project, error)
	GetProfile(ctx context.Context, id string) (*models.Profile, error)
	UpdateProjectPoster(ctx context.Context, id string, posterUrl string) error
	UpdateProfileAvatar(ctx context.Context, id string, avatarUrl string) error
	UpdateAssetPoster(ctx context.Context, name string, posterUrl string) error
}
