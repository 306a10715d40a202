package assetops

import (
	"context"
	"strings"

	"github.com/atelierhq/assetgate/src/assetkeys"
	"github.com/atelierhq/assetgate/src/metastore"
	"github.com/atelierhq/assetgate/src/models"
	"github.com/atelierhq/assetgate/src/objectstore"
)

// fakeMeta is an in-memory metastore.Store. Per-method error queues let
// tests fail an exact call in a sequence (e.g. succeed on the first URL
// update and fail on the rollback).
type fakeMeta struct {
	assets   map[string]*models.Asset
	projects map[string]*models.Project
	profiles map[string]*models.Profile

	getErrs       []error
	createErrs    []error
	updateURLErrs []error
	deleteErrs    []error
	posterErrs    []error

	calls []string
}

var _ metastore.Store = &fakeMeta{}

func newFakeMeta() *fakeMeta {
	return &fakeMeta{
		assets:   map[string]*models.Asset{},
		projects: map[string]*models.Project{},
		profiles: map[string]*models.Profile{},
	}
}

func pop(queue *[]error) error {
	if len(*queue) == 0 {
		return nil
	}
	err := (*queue)[0]
	*queue = (*queue)[1:]
	return err
}

func (m *fakeMeta) GetUserAsset(ctx context.Context, name string) (*models.Asset, error) {
	m.calls = append(m.calls, "get_user_asset")
	if err := pop(&m.getErrs); err != nil {
		return nil, err
	}
	asset, ok := m.assets[name]
	if !ok {
		return nil, metastore.ErrNotFound
	}
	copied := *asset
	return &copied, nil
}

func (m *fakeMeta) CreateUserAsset(ctx context.Context, in metastore.CreateUserAssetInput) (*models.Asset, error) {
	m.calls = append(m.calls, "create_user_asset")
	if err := pop(&m.createErrs); err != nil {
		return nil, err
	}
	asset := &models.Asset{
		ID:        "id-" + in.Name,
		Name:      in.Name,
		URL:       in.URL,
		Size:      in.Size,
		Type:      in.Type,
		ProjectID: in.ProjectID,
	}
	m.assets[in.Name] = asset
	copied := *asset
	return &copied, nil
}

func (m *fakeMeta) UpdateUserAssetURL(ctx context.Context, in metastore.UpdateUserAssetURLInput) (*models.Asset, error) {
	m.calls = append(m.calls, "update_user_asset_url")
	if err := pop(&m.updateURLErrs); err != nil {
		return nil, err
	}
	asset, ok := m.assets[in.Name]
	if !ok {
		return nil, metastore.ErrNotFound
	}
	asset.URL = in.URL
	asset.Size = in.Size
	copied := *asset
	return &copied, nil
}

func (m *fakeMeta) DeleteUserAsset(ctx context.Context, name string) (*models.Asset, error) {
	m.calls = append(m.calls, "delete_user_asset")
	if err := pop(&m.deleteErrs); err != nil {
		return nil, err
	}
	asset, ok := m.assets[name]
	if !ok {
		return nil, metastore.ErrNotFound
	}
	delete(m.assets, name)
	copied := *asset
	return &copied, nil
}

func (m *fakeMeta) GetProject(ctx context.Context, id string) (*models.Project, error) {
	m.calls = append(m.calls, "get_project")
	if err := pop(&m.getErrs); err != nil {
		return nil, err
	}
	project, ok := m.projects[id]
	if !ok {
		return nil, metastore.ErrNotFound
	}
	copied := *project
	return &copied, nil
}

func (m *fakeMeta) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	m.calls = append(m.calls, "get_profile")
	if err := pop(&m.getErrs); err != nil {
		return nil, err
	}
	profile, ok := m.profiles[id]
	if !ok {
		return nil, metastore.ErrNotFound
	}
	copied := *profile
	return &copied, nil
}

func (m *fakeMeta) UpdateProjectPoster(ctx context.Context, id string, posterUrl string) error {
	m.calls = append(m.calls, "update_project")
	if err := pop(&m.posterErrs); err != nil {
		return err
	}
	project, ok := m.projects[id]
	if !ok {
		return metastore.ErrNotFound
	}
	project.PosterURL = posterUrl
	return nil
}

func (m *fakeMeta) UpdateProfileAvatar(ctx context.Context, id string, avatarUrl string) error {
	m.calls = append(m.calls, "update_profile")
	if err := pop(&m.posterErrs); err != nil {
		return err
	}
	profile, ok := m.profiles[id]
	if !ok {
		return metastore.ErrNotFound
	}
	profile.AvatarURL = avatarUrl
	return nil
}

func (m *fakeMeta) UpdateAssetPoster(ctx context.Context, name string, posterUrl string) error {
	m.calls = append(m.calls, "update_user_asset")
	if err := pop(&m.posterErrs); err != nil {
		return err
	}
	asset, ok := m.assets[name]
	if !ok {
		return metastore.ErrNotFound
	}
	asset.PosterURL = posterUrl
	return nil
}

// flakyObjects wraps the in-memory object store with forced failures and
// call counters.
type flakyObjects struct {
	*objectstore.MemoryStore
	putErr    error
	deleteErr error

	puts    int
	gets    int
	deletes int
}

func newFlakyObjects() *flakyObjects {
	return &flakyObjects{MemoryStore: objectstore.NewMemory()}
}

func (f *flakyObjects) Put(ctx context.Context, key string, in objectstore.PutInput) error {
	f.puts++
	if f.putErr != nil {
		return f.putErr
	}
	return f.MemoryStore.Put(ctx, key, in)
}

func (f *flakyObjects) Get(ctx context.Context, key string) (*objectstore.Object, error) {
	f.gets++
	return f.MemoryStore.Get(ctx, key)
}

func (f *flakyObjects) Delete(ctx context.Context, key string) error {
	f.deletes++
	if f.deleteErr != nil {
		return f.deleteErr
	}
	return f.MemoryStore.Delete(ctx, key)
}

func (f *flakyObjects) storeCalls() int {
	return f.puts + f.gets + f.deletes
}

var testCodec = assetkeys.NewCodec("http://files.test/assets")

// seedBytes plants object bytes directly in the backing memory store,
// bypassing the flaky wrapper's counters and forced errors.
func seedBytes(store *flakyObjects, codec assetkeys.Codec, assetUrl string, data string, contentType string) error {
	return store.MemoryStore.Put(context.Background(), codec.KeyFor(assetUrl),
		objectstore.PutInput{
			Body:        strings.NewReader(data),
			ContentType: contentType,
			Size:        int64(len(data)),
		})
}
