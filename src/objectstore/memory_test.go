package objectstore

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryPutGetDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	err := store.Put(ctx, "abc/def", PutInput{
		Body:        strings.NewReader("hello bytes"),
		ContentType: "text/plain",
		Size:        11,
	})
	require.NoError(t, err)

	obj, err := store.Get(ctx, "abc/def")
	require.NoError(t, err)
	require.NotNil(t, obj)
	data, err := io.ReadAll(obj.Body)
	require.NoError(t, err)
	assert.Equal(t, "hello bytes", string(data))
	assert.Equal(t, "text/plain", obj.ContentType)
	assert.EqualValues(t, 11, obj.Size)

	require.NoError(t, store.Delete(ctx, "abc/def"))
	obj, err = store.Get(ctx, "abc/def")
	require.NoError(t, err)
	assert.Nil(t, obj)
}

func TestMemoryGetAbsent(t *testing.T) {
	store := NewMemory()
	obj, err := store.Get(context.Background(), "nope")
	assert.NoError(t, err)
	assert.Nil(t, obj)
}

func TestMemoryDeleteIsNoOpForMissingOrEmptyKey(t *testing.T) {
	store := NewMemory()
	assert.NoError(t, store.Delete(context.Background(), "missing"))
	assert.NoError(t, store.Delete(context.Background(), ""))
}

func TestMemoryPutSizeMismatch(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	err := store.Put(ctx, "short", PutInput{
		Body: strings.NewReader("only ten b"),
		Size: 100,
	})
	var mismatch *ErrSizeMismatch
	require.ErrorAs(t, err, &mismatch)
	assert.EqualValues(t, 100, mismatch.Declared)
	assert.False(t, store.Has("short"))

	err = store.Put(ctx, "long", PutInput{
		Body: strings.NewReader("way more bytes than declared"),
		Size: 5,
	})
	require.ErrorAs(t, err, &mismatch)
	assert.False(t, store.Has("long"))
}
