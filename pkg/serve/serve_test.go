package serve

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modfold/modfold/modules/crc"
	"github.com/modfold/modfold/pkg/protocol"
	"github.com/modfold/modfold/pkg/transport"
)

const testSecret = "0123456789abcdef"

func TestMintAndVerifyAccessKey(t *testing.T) {
	key, err := MintAccessKey(testSecret, "steve@example.com", time.Hour)
	require.NoError(t, err)
	assert.NoError(t, VerifyAccessKey(testSecret, "steve@example.com", key))
	assert.ErrorIs(t, VerifyAccessKey(testSecret, "bob@example.com", key), ErrBadAccessKey)
	assert.ErrorIs(t, VerifyAccessKey("wrong-secret0000", "steve@example.com", key), ErrBadAccessKey)
}

func TestStoreLifecycle(t *testing.T) {
	store := NewStore(t.TempDir())
	id, err := store.Create("steve@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	projects, err := store.List()
	require.NoError(t, err)
	assert.Contains(t, projects, id)

	status, err := store.Status(id)
	require.NoError(t, err)
	assert.Equal(t, StatusClosed, status)
	require.NoError(t, store.SetStatus(id, StatusOpen))

	mapContents := []byte("objs: {\n    press: {\n        lane: 0,\n    },\n}")
	require.NoError(t, store.UpdateMap(id, "stage.txt", mapContents))
	name, roundTrip, err := store.ReadMap(id)
	require.NoError(t, err)
	assert.Equal(t, "stage.txt", name)
	assert.Equal(t, mapContents, roundTrip)

	sum, err := store.Checksum(id)
	require.NoError(t, err)
	assert.Equal(t, crc.Sum32(mapContents), sum)

	modData := []byte(`{"comment":"","changes":[],"removed":[],"added":[]}`)
	bundle, err := transport.BuildModsBundle([]transport.ModFile{{Name: "UNREGISTERED_1", Data: modData}})
	require.NoError(t, err)
	idChanges, err := store.SubmitMods(id, bundle)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"UNREGISTERED_1": "pending_1"}, idChanges)

	sync, err := store.Bundle(id)
	require.NoError(t, err)
	assert.NotEmpty(t, sync)

	patchBundle, err := transport.BuildPatchBundle([]byte("patched map"), []string{"pending_1"})
	require.NoError(t, err)
	require.NoError(t, store.ApplyPatches(id, patchBundle))
	_, updated, err := store.ReadMap(id)
	require.NoError(t, err)
	assert.Equal(t, []byte("patched map"), updated)

	assert.ErrorIs(t, store.Delete(id, "mallory@example.com"), ErrNotOwner)
	require.NoError(t, store.Delete(id, "steve@example.com"))
	_, err = store.Status(id)
	assert.ErrorIs(t, err, ErrProjectNotFound)
}

func TestStoreRejectsDigestMismatch(t *testing.T) {
	store := NewStore(t.TempDir())
	id, err := store.Create("steve@example.com")
	require.NoError(t, err)

	// a bundle whose manifest lies about an entry's digest must be refused
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("UNREGISTERED_1")
	require.NoError(t, err)
	_, err = w.Write([]byte("data"))
	require.NoError(t, err)
	w, err = zw.Create(protocol.ManifestName)
	require.NoError(t, err)
	manifest := protocol.ModManifest{Digests: map[string]string{
		"UNREGISTERED_1": transport.Digest([]byte("other")),
	}}
	require.NoError(t, json.NewEncoder(w).Encode(&manifest))
	require.NoError(t, zw.Close())

	_, err = store.SubmitMods(id, buf.Bytes())
	assert.ErrorIs(t, err, ErrDigestMismatch)

	// an entry absent from the manifest is refused too
	var buf2 bytes.Buffer
	zw = zip.NewWriter(&buf2)
	w, err = zw.Create("UNREGISTERED_1")
	require.NoError(t, err)
	_, err = w.Write([]byte("data"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	_, err = store.SubmitMods(id, buf2.Bytes())
	assert.ErrorIs(t, err, ErrDigestMismatch)
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	sc := &ServerConfig{
		Listen:      "127.0.0.1:0",
		Projects:    t.TempDir(),
		TokenSecret: testSecret,
		IdleTimeout: Duration{Duration: DefaultIdleTimeout},
	}
	srv, err := NewServer(sc)
	require.NoError(t, err)
	ts := httptest.NewServer(srv.r)
	t.Cleanup(ts.Close)
	return ts
}

func newTestClient(t *testing.T, serverURL, email string) *transport.Client {
	t.Helper()
	key, err := MintAccessKey(testSecret, email, time.Hour)
	require.NoError(t, err)
	client, err := transport.NewClientWithCredentials(serverURL, &transport.Credentials{
		Email:     email,
		AccessKey: key,
	})
	require.NoError(t, err)
	return client
}

func TestServerEndToEnd(t *testing.T) {
	ts := newTestServer(t)
	client := newTestClient(t, ts.URL, "steve@example.com")
	ctx := context.Background()

	id, err := client.CreateProject(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	projects, err := client.ListProjects(ctx)
	require.NoError(t, err)
	assert.Contains(t, projects, id)

	mapContents := []byte("objs: {\n    press: {\n        lane: 0,\n    },\n}")
	require.NoError(t, client.SubmitMap(ctx, id, "map.txt", mapContents))

	upToDate, err := client.CheckUpToDate(ctx, id, crc.Sum32(mapContents))
	require.NoError(t, err)
	assert.True(t, upToDate)
	upToDate, err = client.CheckUpToDate(ctx, id, crc.Sum32(mapContents)+1)
	require.NoError(t, err)
	assert.False(t, upToDate)

	status, err := client.GetStatus(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusClosed, status)
	require.NoError(t, client.TryOpen(ctx, id))
	status, err = client.GetStatus(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusOpen, status)

	modData := []byte(`{"comment":"tweak","changes":[],"removed":[],"added":[]}`)
	idChanges, err := client.SubmitMods(ctx, id, []transport.ModFile{{Name: "UNREGISTERED_1", Data: modData}})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"UNREGISTERED_1": "pending_1"}, idChanges)

	bundle, err := client.FetchProject(ctx, id)
	require.NoError(t, err)
	assert.NotEmpty(t, bundle)

	require.NoError(t, client.SubmitPatches(ctx, id, []byte("patched"), []string{"pending_1"}))

	require.NoError(t, client.TryClose(ctx, id))
	require.NoError(t, client.DeleteProject(ctx, id))
	_, err = client.FetchProject(ctx, id)
	assert.ErrorIs(t, err, transport.ErrProjectNotFound)
}

func TestServerRejectsBadAccessKey(t *testing.T) {
	ts := newTestServer(t)
	client, err := transport.NewClientWithCredentials(ts.URL, &transport.Credentials{
		Email:     "steve@example.com",
		AccessKey: "forged",
	})
	require.NoError(t, err)
	_, err = client.CreateProject(context.Background())
	assert.Error(t, err)
}
