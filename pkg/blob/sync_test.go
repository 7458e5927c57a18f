package blob

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore is an in-memory objectStore for tests that don't need a real
// S3-compatible endpoint.
type fakeStore struct {
	objects map[string]fakeObject
}

type fakeObject struct {
	content      []byte
	checksum     string
	lastModified time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string]fakeObject)}
}

func (f *fakeStore) Put(_ context.Context, key string, content []byte, checksum, _ string) error {
	f.objects[key] = fakeObject{content: content, checksum: checksum, lastModified: time.Now().UTC()}
	return nil
}

func (f *fakeStore) Get(_ context.Context, key string) ([]byte, error) {
	obj, ok := f.objects[key]
	if !ok {
		return nil, os.ErrNotExist
	}
	return obj.content, nil
}

func (f *fakeStore) List(_ context.Context, prefix string) ([]Object, error) {
	var out []Object
	for key, obj := range f.objects {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			out = append(out, Object{Key: key, Size: int64(len(obj.content)), Checksum: obj.checksum, LastModified: obj.lastModified})
		}
	}
	return out, nil
}

func newTestSyncManager(t *testing.T) (*SyncManager, *fakeStore, string) {
	t.Helper()
	base := t.TempDir()
	store := newFakeStore()
	mgr := NewSyncManager(store, SyncConfig{Prefix: "workflow-files/", LocalBasePath: base})
	return mgr, store, base
}

func TestSyncManager_ScanProjectFiles_SkipsDotfiles(t *testing.T) {
	mgr, _, base := newTestSyncManager(t)
	projectDir := filepath.Join(base, "proj-1")
	require.NoError(t, os.MkdirAll(projectDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(projectDir, "main.go"), []byte("package main"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(projectDir, ".hidden"), []byte("secret"), 0o644))

	files, err := mgr.ScanProjectFiles("proj-1")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "main.go", files[0].Path)
	assert.NotEmpty(t, files[0].Checksum)
}

func TestSyncManager_ScanProjectFiles_MissingDirReturnsEmpty(t *testing.T) {
	mgr, _, _ := newTestSyncManager(t)
	files, err := mgr.ScanProjectFiles("does-not-exist")
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestSyncManager_SyncToS3_UploadsScannedFiles(t *testing.T) {
	mgr, store, base := newTestSyncManager(t)
	projectDir := filepath.Join(base, "proj-1")
	require.NoError(t, os.MkdirAll(projectDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(projectDir, "agent.yaml"), []byte("name: foo"), 0o644))

	count, err := mgr.SyncToS3(context.Background(), "proj-1", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Contains(t, store.objects, "workflow-files/proj-1/agent.yaml")
}

func TestSyncManager_SyncFromS3_DownloadsMissingFiles(t *testing.T) {
	mgr, store, _ := newTestSyncManager(t)
	store.objects["workflow-files/proj-1/requirements.md"] = fakeObject{
		content:      []byte("# Requirements"),
		checksum:     "abc",
		lastModified: time.Now().UTC(),
	}

	count, err := mgr.SyncFromS3(context.Background(), "proj-1", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	content, err := mgr.GetFileContent("proj-1", "requirements.md")
	require.NoError(t, err)
	assert.Equal(t, "# Requirements", content)
}

func TestSyncManager_SyncFromS3_SkipsFreshLocalFile(t *testing.T) {
	mgr, store, base := newTestSyncManager(t)
	projectDir := filepath.Join(base, "proj-1")
	require.NoError(t, os.MkdirAll(projectDir, 0o755))
	local := filepath.Join(projectDir, "requirements.md")
	require.NoError(t, os.WriteFile(local, []byte("local version"), 0o644))

	store.objects["workflow-files/proj-1/requirements.md"] = fakeObject{
		content:      []byte("remote version"),
		lastModified: time.Now().Add(-time.Hour).UTC(),
	}

	count, err := mgr.SyncFromS3(context.Background(), "proj-1", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	content, err := mgr.GetFileContent("proj-1", "requirements.md")
	require.NoError(t, err)
	assert.Equal(t, "local version", content)
}

func TestSyncManager_EnsureFilesAvailable_PullsMissing(t *testing.T) {
	mgr, store, _ := newTestSyncManager(t)
	store.objects["workflow-files/proj-1/design.md"] = fakeObject{
		content:      []byte("design"),
		lastModified: time.Now().UTC(),
	}

	ok, err := mgr.EnsureFilesAvailable(context.Background(), "proj-1", []string{"design.md"})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSyncManager_EnsureFilesAvailable_StillMissingAfterPull(t *testing.T) {
	mgr, _, _ := newTestSyncManager(t)
	ok, err := mgr.EnsureFilesAvailable(context.Background(), "proj-1", []string{"nope.md"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSyncManager_CheckMissingFiles(t *testing.T) {
	mgr, _, base := newTestSyncManager(t)
	projectDir := filepath.Join(base, "proj-1")
	require.NoError(t, os.MkdirAll(projectDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(projectDir, "present.txt"), []byte("x"), 0o644))

	missing := mgr.CheckMissingFiles("proj-1", []string{"present.txt", "absent.txt"})
	assert.Equal(t, []string{"absent.txt"}, missing)
}

func TestSyncManager_ReadLocalDoc_AbsentReturnsEmpty(t *testing.T) {
	mgr, _, _ := newTestSyncManager(t)
	content, err := mgr.ReadLocalDoc("proj-1", "requirements.md")
	require.NoError(t, err)
	assert.Empty(t, content)
}

func TestSyncManager_PutAndGetStageContent(t *testing.T) {
	mgr, store, _ := newTestSyncManager(t)
	ref, err := mgr.PutStageContent(context.Background(), "proj-1", "requirements_analysis", "a big document")
	require.NoError(t, err)
	assert.Equal(t, "workflow-files/proj-1/outputs/requirements_analysis.txt", ref)
	assert.Contains(t, store.objects, ref)

	content, err := mgr.GetStageContent(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, "a big document", content)
}
