package assetops

import (
	"context"
	"errors"
	"io"

	"github.com/atelierhq/assetgate/src/assetkeys"
	"github.com/atelierhq/assetgate/src/logging"
	"github.com/atelierhq/assetgate/src/metastore"
	"github.com/atelierhq/assetgate/src/models"
	"github.com/atelierhq/assetgate/src/objectstore"
)

const DefaultContentType = "application/octet-stream"

// UserAssets runs the user-asset workflows over the two backing stores.
// There is no transaction spanning them, so every write follows the same
// discipline: write metadata first, then bytes, and roll the metadata back
// if the bytes never land. The worst transient state is a metadata row
// pointing at nothing, which a later Get reports as a clean not-found;
// bytes are never silently orphaned without a trace.
type UserAssets struct {
	Meta    metastore.Store
	Objects objectstore.Store
	Codec   assetkeys.Codec
	MaxSize int64
	Locks   *Locks
}

type CreateInput struct {
	Body        io.Reader
	ContentType string
	Size        int64
	ProjectID   string
}

type UpdateInput struct {
	Body        io.Reader
	ContentType string
	Size        int64
}

func (ua *UserAssets) checkSize(size int64) *Error {
	if size <= 0 {
		return invalidInput("invalid asset size")
	}
	if size > ua.MaxSize {
		return invalidInput("asset size too large")
	}
	return nil
}

// Create stores a brand new asset: metadata record first, bytes second. If
// the upload fails the record is deleted again; if even that delete fails,
// the upload error is still the one surfaced and the dangling record is
// logged for out-of-band cleanup.
func (ua *UserAssets) Create(ctx context.Context, uid string, assetPath string, in CreateInput) (*models.Asset, error) {
	if err := ua.checkSize(in.Size); err != nil {
		return nil, err
	}
	contentType := in.ContentType
	if contentType == "" {
		contentType = DefaultContentType
	}

	unlock := ua.Locks.Lock("user_asset", assetPath)
	defer unlock()

	key := assetkeys.Derive(uid, assetPath)
	assetUrl := ua.Codec.URLFor(key)

	asset, err := ua.Meta.CreateUserAsset(ctx, metastore.CreateUserAssetInput{
		Name:      assetPath,
		URL:       assetUrl,
		Type:      contentType,
		Size:      in.Size,
		ProjectID: in.ProjectID,
	})
	if err != nil {
		return nil, fromMetaErr(err, "asset "+assetPath)
	}

	err = ua.Objects.Put(ctx, key, objectstore.PutInput{
		Body:        in.Body,
		ContentType: contentType,
		Size:        in.Size,
	})
	if err != nil {
		if _, deleteErr := ua.Meta.DeleteUserAsset(ctx, assetPath); deleteErr != nil {
			logging.Error().
				Err(deleteErr).
				Str("asset", assetPath).
				Str("key", key).
				Msg("metadata rollback failed after asset upload failed; record now points at missing bytes")
			return nil, objectFailed(err, false, deleteErr)
		}
		return nil, objectFailed(err, true, nil)
	}

	return asset, nil
}

// Update writes a new version of the asset's bytes under a fresh key. The
// old key stays addressable until the new upload succeeds, which is what
// makes the rollback on failure safe: reverting the metadata to the old URL
// points it at bytes that are still there.
func (ua *UserAssets) Update(ctx context.Context, uid string, assetPath string, in UpdateInput) (*models.Asset, error) {
	if err := ua.checkSize(in.Size); err != nil {
		return nil, err
	}

	unlock := ua.Locks.Lock("user_asset", assetPath)
	defer unlock()

	current, err := ua.Meta.GetUserAsset(ctx, assetPath)
	if err != nil {
		return nil, fromMetaErr(err, "asset "+assetPath)
	}
	oldKey := ua.Codec.KeyFor(current.URL)

	newKey := assetkeys.Derive(uid, assetPath)
	newUrl := ua.Codec.URLFor(newKey)

	updated, err := ua.Meta.UpdateUserAssetURL(ctx, metastore.UpdateUserAssetURLInput{
		Name: assetPath,
		URL:  newUrl,
		Size: in.Size,
	})
	if err != nil {
		return nil, fromMetaErr(err, "asset "+assetPath)
	}

	contentType := in.ContentType
	if contentType == "" {
		contentType = current.Type
	}
	err = ua.Objects.Put(ctx, newKey, objectstore.PutInput{
		Body:        in.Body,
		ContentType: contentType,
		Size:        in.Size,
	})
	if err != nil {
		_, revertErr := ua.Meta.UpdateUserAssetURL(ctx, metastore.UpdateUserAssetURLInput{
			Name: current.Name,
			URL:  current.URL,
			Size: current.Size,
		})
		if revertErr != nil {
			logging.Error().
				Err(revertErr).
				Str("asset", assetPath).
				Str("key", newKey).
				Msg("metadata rollback failed after asset upload failed; record now points at missing bytes")
			return nil, objectFailed(err, false, revertErr)
		}
		return nil, objectFailed(err, true, nil)
	}

	// The metadata already points at the new key, so failing to reclaim the
	// old bytes costs space, not consistency.
	if current.URL != "" {
		if deleteErr := ua.Objects.Delete(ctx, oldKey); deleteErr != nil {
			logging.Error().
				Err(deleteErr).
				Str("key", oldKey).
				Msg("failed to delete superseded asset bytes")
		}
	}

	return updated, nil
}

// Delete removes the asset record first and the bytes second, mirroring the
// create order so the "non-empty URL references live bytes" invariant holds
// on this path too. Deleting an asset that does not exist, or whose URL is
// already empty, is a success and never touches the object store.
func (ua *UserAssets) Delete(ctx context.Context, assetPath string) error {
	unlock := ua.Locks.Lock("user_asset", assetPath)
	defer unlock()

	current, err := ua.Meta.GetUserAsset(ctx, assetPath)
	if errors.Is(err, metastore.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fromMetaErr(err, "asset "+assetPath)
	}
	if current.URL == "" {
		return nil
	}

	deleted, err := ua.Meta.DeleteUserAsset(ctx, assetPath)
	if err != nil {
		return fromMetaErr(err, "asset "+assetPath)
	}

	key := ua.Codec.KeyFor(current.URL)
	if err := ua.Objects.Delete(ctx, key); err != nil {
		_, recreateErr := ua.Meta.CreateUserAsset(ctx, metastore.CreateUserAssetInput{
			Name:      deleted.Name,
			URL:       deleted.URL,
			Type:      deleted.Type,
			Size:      deleted.Size,
			ProjectID: deleted.ProjectID,
		})
		if recreateErr != nil {
			logging.Error().
				Err(recreateErr).
				Str("asset", assetPath).
				Str("key", key).
				Msg("metadata restore failed after object delete failed; bytes remain without a record")
			return objectFailed(err, false, recreateErr)
		}
		return objectFailed(err, true, nil)
	}

	return nil
}

// Get fetches the asset's metadata and streams its bytes.
func (ua *UserAssets) Get(ctx context.Context, assetPath string) (*models.Asset, *objectstore.Object, error) {
	current, err := ua.Meta.GetUserAsset(ctx, assetPath)
	if err != nil {
		return nil, nil, fromMetaErr(err, "asset "+assetPath)
	}
	if current.URL == "" {
		return nil, nil, notFound("asset %s has no stored bytes", assetPath)
	}

	obj, err := ua.Objects.Get(ctx, ua.Codec.KeyFor(current.URL))
	if err != nil {
		return nil, nil, err
	}
	if obj == nil {
		return nil, nil, notFound("bytes for asset %s not found", assetPath)
	}
	return current, obj, nil
}
