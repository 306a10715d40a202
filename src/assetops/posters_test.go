package assetops

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/atelierhq/assetgate/src/metastore"
	"github.com/atelierhq/assetgate/src/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPosters(meta *fakeMeta, objects *flakyObjects) *Posters {
	return &Posters{
		Meta:    meta,
		Objects: objects,
		Codec:   testCodec,
		MaxSize: 512,
		Locks:   NewLocks(),
	}
}

func seedOwners(meta *fakeMeta) {
	meta.projects["proj-1"] = &models.Project{ID: "proj-1", Name: "Sprocket", PosterURL: "http://files.test/assets/old-project-poster"}
	meta.profiles["user-9"] = &models.Profile{ID: "user-9", Username: "casey", AvatarURL: ""}
	meta.assets["talk.mp4"] = &models.Asset{ID: "id-talk", Name: "talk.mp4", URL: "http://files.test/assets/talk-bytes"}
}

func TestResolveClassifiesOwnersOnce(t *testing.T) {
	ctx := context.Background()
	meta := newFakeMeta()
	seedOwners(meta)
	p := newPosters(meta, newFlakyObjects())

	owner, err := p.Resolve(ctx, ".projects/proj-1")
	require.NoError(t, err)
	assert.Equal(t, models.OwnerProject, owner.Kind)
	assert.Equal(t, "proj-1", owner.ID)
	assert.Equal(t, "http://files.test/assets/old-project-poster", owner.PosterURL)

	owner, err = p.Resolve(ctx, ".profiles/user-9")
	require.NoError(t, err)
	assert.Equal(t, models.OwnerProfile, owner.Kind)
	assert.Empty(t, owner.PosterURL)

	owner, err = p.Resolve(ctx, "talk.mp4")
	require.NoError(t, err)
	assert.Equal(t, models.OwnerAsset, owner.Kind)
	assert.Equal(t, "talk.mp4", owner.ID)
}

func TestResolveMissingOwner(t *testing.T) {
	p := newPosters(newFakeMeta(), newFlakyObjects())

	_, err := p.Resolve(context.Background(), ".projects/ghost")
	var opErr *Error
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, KindNotFound, opErr.Kind)
}

func TestResolveIDMismatch(t *testing.T) {
	meta := newFakeMeta()
	// A record that claims a different id than the path asked for.
	meta.projects["proj-1"] = &models.Project{ID: "proj-OTHER"}
	p := newPosters(meta, newFlakyObjects())

	_, err := p.Resolve(context.Background(), ".projects/proj-1")
	var opErr *Error
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, KindIDMismatch, opErr.Kind)
}

func TestPosterUpdateRoundTrip(t *testing.T) {
	ctx := context.Background()
	meta := newFakeMeta()
	seedOwners(meta)
	objects := newFlakyObjects()
	require.NoError(t, seedBytes(objects, testCodec, "http://files.test/assets/old-project-poster", "old poster", "image/png"))
	p := newPosters(meta, objects)

	owner, err := p.Update(ctx, "user-9", ".projects/proj-1", PosterUpdateInput{
		Body:        strings.NewReader("new poster bytes"),
		ContentType: "image/png",
		Size:        16,
	})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(owner.PosterURL, ".poster.png"))
	assert.Equal(t, owner.PosterURL, meta.projects["proj-1"].PosterURL)

	// The superseded poster got reclaimed after the new one landed.
	assert.False(t, objects.Has("old-project-poster"))

	obj, err := p.Get(ctx, ".projects/proj-1")
	require.NoError(t, err)
	data, err := io.ReadAll(obj.Body)
	require.NoError(t, err)
	assert.Equal(t, "new poster bytes", string(data))
}

func TestPosterUpdateRejectsBadInputBeforeAnyRemoteCall(t *testing.T) {
	ctx := context.Background()
	meta := newFakeMeta()
	seedOwners(meta)
	objects := newFlakyObjects()
	p := newPosters(meta, objects)

	_, err := p.Update(ctx, "user-9", ".projects/proj-1", PosterUpdateInput{
		Body:        strings.NewReader("x"),
		ContentType: "image/png",
		Size:        0,
	})
	var opErr *Error
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, KindInvalidInput, opErr.Kind)

	_, err = p.Update(ctx, "user-9", ".projects/proj-1", PosterUpdateInput{
		Body:        strings.NewReader("x"),
		ContentType: "application/pdf",
		Size:        1,
	})
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, KindInvalidInput, opErr.Kind)

	_, err = p.Update(ctx, "user-9", ".projects/proj-1", PosterUpdateInput{
		Body:        strings.NewReader("x"),
		ContentType: "image/jpeg",
		Size:        513,
	})
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, KindInvalidInput, opErr.Kind)

	assert.Empty(t, meta.calls)
	assert.Zero(t, objects.storeCalls())
}

func TestPosterUpdateRevertsURLWhenUploadFails(t *testing.T) {
	ctx := context.Background()
	meta := newFakeMeta()
	seedOwners(meta)
	objects := newFlakyObjects()
	require.NoError(t, seedBytes(objects, testCodec, "http://files.test/assets/old-project-poster", "old poster", "image/png"))
	uploadErr := errors.New("spaces outage")
	objects.putErr = uploadErr
	p := newPosters(meta, objects)

	_, err := p.Update(ctx, "user-9", ".projects/proj-1", PosterUpdateInput{
		Body:        strings.NewReader("new poster bytes"),
		ContentType: "image/webp",
		Size:        16,
	})
	var opErr *Error
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, KindObjectFailed, opErr.Kind)
	assert.True(t, opErr.Compensated)
	assert.ErrorIs(t, err, uploadErr)

	// URL reverted and the prior object was never touched.
	assert.Equal(t, "http://files.test/assets/old-project-poster", meta.projects["proj-1"].PosterURL)
	assert.True(t, objects.Has("old-project-poster"))
}

func TestPosterUpdateSurfacesUploadErrorWhenRevertFails(t *testing.T) {
	ctx := context.Background()
	meta := newFakeMeta()
	seedOwners(meta)
	// First poster write (new URL) succeeds, the revert fails.
	meta.posterErrs = []error{nil, &metastore.RequestError{Status: 500, Body: "rpc down"}}
	objects := newFlakyObjects()
	uploadErr := errors.New("spaces outage")
	objects.putErr = uploadErr
	p := newPosters(meta, objects)

	_, err := p.Update(ctx, "user-9", ".projects/proj-1", PosterUpdateInput{
		Body:        strings.NewReader("new poster bytes"),
		ContentType: "image/jpeg",
		Size:        16,
	})
	var opErr *Error
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, KindObjectFailed, opErr.Kind)
	assert.False(t, opErr.Compensated)
	assert.ErrorIs(t, err, uploadErr)
	assert.NotNil(t, opErr.CompensationErr)
}

func TestPosterDeleteClearsURLThenBytes(t *testing.T) {
	ctx := context.Background()
	meta := newFakeMeta()
	seedOwners(meta)
	objects := newFlakyObjects()
	require.NoError(t, seedBytes(objects, testCodec, "http://files.test/assets/old-project-poster", "old poster", "image/png"))
	p := newPosters(meta, objects)

	require.NoError(t, p.Delete(ctx, ".projects/proj-1"))
	assert.Empty(t, meta.projects["proj-1"].PosterURL)
	assert.False(t, objects.Has("old-project-poster"))

	// Already empty: success without another object-store call.
	deletes := objects.deletes
	require.NoError(t, p.Delete(ctx, ".projects/proj-1"))
	assert.Equal(t, deletes, objects.deletes)
}

func TestPosterDeleteRestoresURLWhenObjectDeleteFails(t *testing.T) {
	ctx := context.Background()
	meta := newFakeMeta()
	seedOwners(meta)
	objects := newFlakyObjects()
	require.NoError(t, seedBytes(objects, testCodec, "http://files.test/assets/old-project-poster", "old poster", "image/png"))
	deleteErr := errors.New("delete rejected")
	objects.deleteErr = deleteErr
	p := newPosters(meta, objects)

	err := p.Delete(ctx, ".projects/proj-1")
	var opErr *Error
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, KindObjectFailed, opErr.Kind)
	assert.True(t, opErr.Compensated)
	assert.ErrorIs(t, err, deleteErr)
	assert.Equal(t, "http://files.test/assets/old-project-poster", meta.projects["proj-1"].PosterURL)
}

func TestPosterGetMissing(t *testing.T) {
	meta := newFakeMeta()
	seedOwners(meta)
	p := newPosters(meta, newFlakyObjects())

	// Profile exists but has no avatar.
	_, err := p.Get(context.Background(), ".profiles/user-9")
	var opErr *Error
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, KindNotFound, opErr.Kind)
}
