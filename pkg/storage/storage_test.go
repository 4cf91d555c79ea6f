package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getTestStorages(t *testing.T) map[string]ServiceStorage {
	boltDB, err := NewBoltDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	server := miniredis.RunT(t)
	redisDB, err := NewRedisDB(server.Addr(), "")
	require.NoError(t, err)

	storages := map[string]ServiceStorage{
		"bolt":   boltDB,
		"redis":  redisDB,
		"memory": NewMemoryDB(),
	}
	t.Cleanup(func() {
		for _, s := range storages {
			_ = s.Close()
		}
	})
	return storages
}

func TestStorageReadWrite(t *testing.T) {
	ctx := context.Background()
	for name, db := range getTestStorages(t) {
		t.Run(name, func(tt *testing.T) {
			namespace := "issuer"

			// read before write
			v, err := db.Read(ctx, namespace, "didURI")
			assert.NoError(tt, err)
			assert.Nil(tt, v)

			exists, err := db.Exists(ctx, namespace, "didURI")
			assert.NoError(tt, err)
			assert.False(tt, exists)

			err = db.Write(ctx, namespace, "didURI", []byte("did:key:z6Mk"))
			assert.NoError(tt, err)

			v, err = db.Read(ctx, namespace, "didURI")
			assert.NoError(tt, err)
			assert.Equal(tt, []byte("did:key:z6Mk"), v)

			exists, err = db.Exists(ctx, namespace, "didURI")
			assert.NoError(tt, err)
			assert.True(tt, exists)

			// overwrite is idempotent-flag friendly
			err = db.Write(ctx, namespace, "registered", []byte("true"))
			assert.NoError(tt, err)
			err = db.Write(ctx, namespace, "registered", []byte("true"))
			assert.NoError(tt, err)
		})
	}
}

func TestStorageReadAll(t *testing.T) {
	ctx := context.Background()
	for name, db := range getTestStorages(t) {
		t.Run(name, func(tt *testing.T) {
			require.NoError(tt, db.Write(ctx, "issuer", "registered", []byte("true")))
			require.NoError(tt, db.Write(ctx, "issuer", "permission", []byte("true")))
			require.NoError(tt, db.Write(ctx, "other", "key", []byte("value")))

			all, err := db.ReadAll(ctx, "issuer")
			assert.NoError(tt, err)

			want := map[string][]byte{
				"registered": []byte("true"),
				"permission": []byte("true"),
			}
			if diff := cmp.Diff(want, all); diff != "" {
				tt.Errorf("Mismatch on namespace contents (-want +got):\n%s", diff)
			}
		})
	}
}

func TestStorageDelete(t *testing.T) {
	ctx := context.Background()
	for name, db := range getTestStorages(t) {
		t.Run(name, func(tt *testing.T) {
			require.NoError(tt, db.Write(ctx, "issuer", "permission", []byte("true")))
			require.NoError(tt, db.Delete(ctx, "issuer", "permission"))

			v, err := db.Read(ctx, "issuer", "permission")
			assert.NoError(tt, err)
			assert.Nil(tt, v)
		})
	}
}

func TestNewServiceStorage(t *testing.T) {
	db, err := NewServiceStorage(Memory, Option{})
	assert.NoError(t, err)
	assert.NotNil(t, db)

	_, err = NewServiceStorage("cassandra", Option{})
	assert.Error(t, err)
}
