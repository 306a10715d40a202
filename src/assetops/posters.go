package assetops

import (
	"context"
	"io"
	"strings"

	"github.com/atelierhq/assetgate/src/assetkeys"
	"github.com/atelierhq/assetgate/src/logging"
	"github.com/atelierhq/assetgate/src/metastore"
	"github.com/atelierhq/assetgate/src/models"
	"github.com/atelierhq/assetgate/src/objectstore"
)

const (
	projectPathPrefix = ".projects/"
	profilePathPrefix = ".profiles/"
)

// Poster images must be real images; the matched extension is appended to
// the storage key so the bytes keep a useful suffix.
var posterImageTypes = []struct {
	mime string
	ext  string
}{
	{"image/jpeg", "jpeg"},
	{"image/png", "png"},
	{"image/jpg", "jpeg"},
	{"image/webp", "webp"},
}

func posterExtension(contentType string) string {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	for _, t := range posterImageTypes {
		if t.mime == contentType {
			return t.ext
		}
	}
	return ""
}

// Posters updates the poster/avatar image that hangs off some other record:
// a project, a profile, or another asset. The owner kind is resolved once
// from the path convention and carried as a tagged value; the write protocol
// is the same metadata-first one as for user assets, except an update here
// has no old-key-stays-alive trick; the prior object is only deleted after
// the new upload and the metadata write both succeed.
type Posters struct {
	Meta    metastore.Store
	Objects objectstore.Store
	Codec   assetkeys.Codec
	MaxSize int64
	Locks   *Locks
}

type PosterUpdateInput struct {
	Body        io.Reader
	ContentType string
	Size        int64
}

func classifyOwnerPath(assetPath string) (models.OwnerKind, string) {
	switch {
	case strings.HasPrefix(assetPath, projectPathPrefix):
		return models.OwnerProject, strings.SplitN(assetPath, "/", 3)[1]
	case strings.HasPrefix(assetPath, profilePathPrefix):
		return models.OwnerProfile, strings.SplitN(assetPath, "/", 3)[1]
	default:
		return models.OwnerAsset, assetPath
	}
}

// Resolve classifies the path, fetches the owning record, and checks that
// the record really is the one the path names. The id comparison guards
// against stale or forged identifiers reaching the write path.
func (p *Posters) Resolve(ctx context.Context, assetPath string) (*models.Owner, error) {
	kind, id := classifyOwnerPath(assetPath)
	if id == "" {
		return nil, notFound("%s id missing from path", kind)
	}

	owner := &models.Owner{Kind: kind, ID: id}
	switch kind {
	case models.OwnerProject:
		project, err := p.Meta.GetProject(ctx, id)
		if err != nil {
			return nil, fromMetaErr(err, "project "+id)
		}
		if project.ID != id {
			return nil, idMismatch("project id mismatch: asked for %s, got %s", id, project.ID)
		}
		owner.PosterURL = project.PosterURL

	case models.OwnerProfile:
		profile, err := p.Meta.GetProfile(ctx, id)
		if err != nil {
			return nil, fromMetaErr(err, "profile "+id)
		}
		if profile.ID != id {
			return nil, idMismatch("profile id mismatch: asked for %s, got %s", id, profile.ID)
		}
		owner.PosterURL = profile.AvatarURL

	default:
		asset, err := p.Meta.GetUserAsset(ctx, id)
		if err != nil {
			return nil, fromMetaErr(err, "asset "+id)
		}
		if asset.Name != id {
			return nil, idMismatch("asset name mismatch: asked for %s, got %s", id, asset.Name)
		}
		owner.PosterURL = asset.PosterURL
	}

	return owner, nil
}

// setPosterURL is the polymorphic metadata write: each owner kind has its
// own update procedure and URL field.
func (p *Posters) setPosterURL(ctx context.Context, owner *models.Owner, posterUrl string) error {
	switch owner.Kind {
	case models.OwnerProject:
		return p.Meta.UpdateProjectPoster(ctx, owner.ID, posterUrl)
	case models.OwnerProfile:
		return p.Meta.UpdateProfileAvatar(ctx, owner.ID, posterUrl)
	default:
		return p.Meta.UpdateAssetPoster(ctx, owner.ID, posterUrl)
	}
}

// Update replaces the owner's poster. On upload failure the URL field is
// rewritten back to its prior value; the prior object is never deleted
// before the new one is fully in place.
func (p *Posters) Update(ctx context.Context, uid string, assetPath string, in PosterUpdateInput) (*models.Owner, error) {
	if in.Size <= 0 {
		return nil, invalidInput("invalid poster size")
	}
	if in.Size > p.MaxSize {
		return nil, invalidInput("poster size too large")
	}
	ext := posterExtension(in.ContentType)
	if ext == "" {
		return nil, invalidInput("invalid poster type %q", in.ContentType)
	}

	unlock := p.Locks.Lock("poster", assetPath)
	defer unlock()

	owner, err := p.Resolve(ctx, assetPath)
	if err != nil {
		return nil, err
	}

	key := assetkeys.Derive(uid, assetPath) + ".poster." + ext
	posterUrl := p.Codec.URLFor(key)

	if err := p.setPosterURL(ctx, owner, posterUrl); err != nil {
		return nil, fromMetaErr(err, owner.Kind.String()+" "+owner.ID)
	}

	err = p.Objects.Put(ctx, key, objectstore.PutInput{
		Body:        in.Body,
		ContentType: in.ContentType,
		Size:        in.Size,
	})
	if err != nil {
		if revertErr := p.setPosterURL(ctx, owner, owner.PosterURL); revertErr != nil {
			logging.Error().
				Err(revertErr).
				Str("owner", owner.ID).
				Str("key", key).
				Msg("poster url rollback failed after upload failed; record now points at missing bytes")
			return nil, objectFailed(err, false, revertErr)
		}
		return nil, objectFailed(err, true, nil)
	}

	// Reclamation only: the new URL is durably recorded by now.
	if owner.PosterURL != "" {
		if deleteErr := p.Objects.Delete(ctx, p.Codec.KeyFor(owner.PosterURL)); deleteErr != nil {
			logging.Error().
				Err(deleteErr).
				Str("key", p.Codec.KeyFor(owner.PosterURL)).
				Msg("failed to delete superseded poster bytes")
		}
	}

	updated := *owner
	updated.PosterURL = posterUrl
	return &updated, nil
}

// Delete clears the owner's poster URL first and removes the bytes second,
// restoring the URL if the object delete fails.
func (p *Posters) Delete(ctx context.Context, assetPath string) error {
	unlock := p.Locks.Lock("poster", assetPath)
	defer unlock()

	owner, err := p.Resolve(ctx, assetPath)
	if err != nil {
		return err
	}
	if owner.PosterURL == "" {
		return nil
	}

	if err := p.setPosterURL(ctx, owner, ""); err != nil {
		return fromMetaErr(err, owner.Kind.String()+" "+owner.ID)
	}

	key := p.Codec.KeyFor(owner.PosterURL)
	if err := p.Objects.Delete(ctx, key); err != nil {
		if restoreErr := p.setPosterURL(ctx, owner, owner.PosterURL); restoreErr != nil {
			logging.Error().
				Err(restoreErr).
				Str("owner", owner.ID).
				Str("key", key).
				Msg("poster url restore failed after object delete failed; bytes remain without a record")
			return objectFailed(err, false, restoreErr)
		}
		return objectFailed(err, true, nil)
	}

	return nil
}

// Get streams the owner's current poster bytes.
func (p *Posters) Get(ctx context.Context, assetPath string) (*objectstore.Object, error) {
	owner, err := p.Resolve(ctx, assetPath)
	if err != nil {
		return nil, err
	}
	if owner.PosterURL == "" {
		return nil, notFound("%s %s has no poster", owner.Kind, owner.ID)
	}

	obj, err := p.Objects.Get(ctx, p.Codec.KeyFor(owner.PosterURL))
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, notFound("poster bytes for %s %s not found", owner.Kind, owner.ID)
	}
	return obj, nil
}
