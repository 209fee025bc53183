package storage_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"echoscribe/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLocalStorage(t *testing.T) *storage.LocalStorage {
	t.Helper()

	ls, err := storage.NewLocalStorage(t.TempDir())
	require.Nil(t, err)
	return ls
}

func TestLocalStorage_PutRetrieve(t *testing.T) {
	ls := newLocalStorage(t)
	ctx := context.Background()

	err := ls.Put(ctx, "tenant/recording/0000000000001.json", strings.NewReader(`{"segments":[]}`), "application/json")
	require.Nil(t, err)

	reader, err := ls.Retrieve(ctx, "tenant/recording/0000000000001.json")
	require.Nil(t, err)
	defer reader.Close()

	content, err := io.ReadAll(reader)
	require.Nil(t, err)
	assert.Equal(t, `{"segments":[]}`, string(content))
}

func TestLocalStorage_RetrieveMissing(t *testing.T) {
	ls := newLocalStorage(t)

	_, err := ls.Retrieve(context.Background(), "tenant/does-not-exist.json")

	assert.NotNil(t, err)
	assert.Contains(t, err.Error(), "object not found")
}

func TestLocalStorage_PathTraversalRejected(t *testing.T) {
	ls := newLocalStorage(t)
	ctx := context.Background()

	tests := []string{
		"../outside.json",
		"tenant/../../escape.json",
	}

	for _, key := range tests {
		t.Run(key, func(t *testing.T) {
			err := ls.Put(ctx, key, strings.NewReader("x"), "text/plain")
			assert.NotNil(t, err)

			_, err = ls.Retrieve(ctx, key)
			assert.NotNil(t, err)
		})
	}
}

func TestLocalStorage_ListNameDescending(t *testing.T) {
	ls := newLocalStorage(t)
	ctx := context.Background()

	keys := []string{
		"tenant/recording/0000000000100.json",
		"tenant/recording/0000000000300.json",
		"tenant/recording/0000000000200.json",
	}
	for _, key := range keys {
		require.Nil(t, ls.Put(ctx, key, strings.NewReader("{}"), "application/json"))
	}

	objects, err := ls.List(ctx, "tenant/recording", 100)
	require.Nil(t, err)
	require.Len(t, objects, 3)

	assert.Equal(t, "0000000000300.json", objects[0].Name)
	assert.Equal(t, "0000000000200.json", objects[1].Name)
	assert.Equal(t, "0000000000100.json", objects[2].Name)
	assert.Equal(t, "tenant/recording/0000000000300.json", objects[0].Key)
}

func TestLocalStorage_ListCapped(t *testing.T) {
	ls := newLocalStorage(t)
	ctx := context.Background()

	require.Nil(t, ls.Put(ctx, "tenant/recording/0000000000100.json", strings.NewReader("{}"), "application/json"))
	require.Nil(t, ls.Put(ctx, "tenant/recording/0000000000200.json", strings.NewReader("{}"), "application/json"))
	require.Nil(t, ls.Put(ctx, "tenant/recording/0000000000300.json", strings.NewReader("{}"), "application/json"))

	objects, err := ls.List(ctx, "tenant/recording", 2)
	require.Nil(t, err)
	require.Len(t, objects, 2)

	// The cap keeps the newest entries.
	assert.Equal(t, "0000000000300.json", objects[0].Name)
	assert.Equal(t, "0000000000200.json", objects[1].Name)
}

func TestLocalStorage_ListMissingPrefix(t *testing.T) {
	ls := newLocalStorage(t)

	objects, err := ls.List(context.Background(), "tenant/unknown", 100)

	assert.Nil(t, err)
	assert.Nil(t, objects)
}

func TestLocalStorage_ExistsAndDelete(t *testing.T) {
	ls := newLocalStorage(t)
	ctx := context.Background()

	require.Nil(t, ls.Put(ctx, "tenant/audio/file.mp3", strings.NewReader("audio"), "audio/mpeg"))

	exists, err := ls.Exists(ctx, "tenant/audio/file.mp3")
	require.Nil(t, err)
	assert.True(t, exists)

	require.Nil(t, ls.Delete(ctx, "tenant/audio/file.mp3"))

	exists, err = ls.Exists(ctx, "tenant/audio/file.mp3")
	require.Nil(t, err)
	assert.False(t, exists)

	// Deleting a missing object is not an error.
	assert.Nil(t, ls.Delete(ctx, "tenant/audio/file.mp3"))
}
