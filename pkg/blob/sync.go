package blob

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FileMetadata is one file's recorded path/size/checksum/mtime, mirroring
// the Stage Executor's generated-file scan (domain.GeneratedFile) so the
// sync manager and the executor agree on shape without importing each other.
type FileMetadata struct {
	Path         string
	Size         int64
	Checksum     string
	LastModified time.Time
}

// SyncConfig pins the bucket layout and local working-copy root.
type SyncConfig struct {
	Prefix        string // object key prefix, e.g. "workflow-files/"
	LocalBasePath string // local working-copy root, one subdir per project
}

// DefaultSyncConfig returns the built-in bucket/prefix defaults.
func DefaultSyncConfig() SyncConfig {
	return SyncConfig{Prefix: "workflow-files/", LocalBasePath: "projects"}
}

// objectStore is the narrow surface SyncManager needs from Store, letting
// tests substitute an in-memory fake instead of dialing a real endpoint.
type objectStore interface {
	Put(ctx context.Context, key string, content []byte, checksum, projectID string) error
	Get(ctx context.Context, key string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]Object, error)
}

// SyncManager pushes/pulls a project's working copy to and from the blob
// store, directly grounded on the original file_sync.py's
// sync_to_s3/sync_from_s3/ensure_files_available trio.
type SyncManager struct {
	store  objectStore
	config SyncConfig
}

// NewSyncManager returns a SyncManager backed by store.
func NewSyncManager(store objectStore, cfg SyncConfig) *SyncManager {
	if cfg.Prefix == "" {
		cfg = DefaultSyncConfig()
	}
	return &SyncManager{store: store, config: cfg}
}

func (m *SyncManager) projectDir(projectID string) string {
	return filepath.Join(m.config.LocalBasePath, projectID)
}

func (m *SyncManager) objectKey(projectID, relativePath string) string {
	return m.config.Prefix + projectID + "/" + filepath.ToSlash(relativePath)
}

func (m *SyncManager) objectPrefix(projectID string) string {
	return m.config.Prefix + projectID + "/"
}

// ScanProjectFiles walks the project's local working copy, skipping
// dot-files, and returns metadata for every regular file found.
func (m *SyncManager) ScanProjectFiles(projectID string) ([]FileMetadata, error) {
	root := m.projectDir(projectID)
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return nil, nil
	}

	var files []FileMetadata
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		sum, err := checksumFile(path)
		if err != nil {
			sum = ""
		}
		files = append(files, FileMetadata{
			Path:         rel,
			Size:         info.Size(),
			Checksum:     sum,
			LastModified: info.ModTime().UTC(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("blob: scan project files for %s: %w", projectID, err)
	}
	return files, nil
}

func checksumFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:]), nil
}

// SyncToS3 uploads every file in files (or every file the local scan finds,
// if files is nil) to the blob store under this project's prefix.
func (m *SyncManager) SyncToS3(ctx context.Context, projectID string, files []FileMetadata) (int, error) {
	var err error
	if files == nil {
		files, err = m.ScanProjectFiles(projectID)
		if err != nil {
			return 0, err
		}
	}
	if len(files) == 0 {
		return 0, nil
	}

	root := m.projectDir(projectID)
	synced := 0
	for _, f := range files {
		local := filepath.Join(root, f.Path)
		content, readErr := os.ReadFile(local)
		if readErr != nil {
			continue
		}
		key := m.objectKey(projectID, f.Path)
		if putErr := m.store.Put(ctx, key, content, f.Checksum, projectID); putErr != nil {
			return synced, fmt.Errorf("blob: sync to s3 %s: %w", f.Path, putErr)
		}
		synced++
	}
	return synced, nil
}

// SyncFromS3 downloads objects under the project's prefix whose remote
// LastModified is newer than the local file's mtime (or which are missing
// locally). When paths is non-nil, only those relative paths are considered.
func (m *SyncManager) SyncFromS3(ctx context.Context, projectID string, paths []string) (int, error) {
	root := m.projectDir(projectID)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return 0, fmt.Errorf("blob: sync from s3: create project dir: %w", err)
	}

	wanted := make(map[string]bool, len(paths))
	for _, p := range paths {
		wanted[p] = true
	}

	prefix := m.objectPrefix(projectID)
	objects, err := m.store.List(ctx, prefix)
	if err != nil {
		return 0, fmt.Errorf("blob: sync from s3: list: %w", err)
	}

	synced := 0
	for _, obj := range objects {
		rel := strings.TrimPrefix(obj.Key, prefix)
		if len(wanted) > 0 && !wanted[rel] {
			continue
		}

		local := filepath.Join(root, rel)
		if info, statErr := os.Stat(local); statErr == nil {
			if !info.ModTime().UTC().Before(obj.LastModified.UTC()) {
				continue // local copy is current
			}
		}

		content, getErr := m.store.Get(ctx, obj.Key)
		if getErr != nil {
			return synced, fmt.Errorf("blob: sync from s3 %s: %w", rel, getErr)
		}
		if err := os.MkdirAll(filepath.Dir(local), 0o755); err != nil {
			return synced, fmt.Errorf("blob: sync from s3: create dir for %s: %w", rel, err)
		}
		if err := os.WriteFile(local, content, 0o644); err != nil {
			return synced, fmt.Errorf("blob: sync from s3: write %s: %w", rel, err)
		}
		synced++
	}
	return synced, nil
}

// CheckMissingFiles reports which of required (relative paths) are absent
// from the project's local working copy.
func (m *SyncManager) CheckMissingFiles(projectID string, required []string) []string {
	root := m.projectDir(projectID)
	var missing []string
	for _, rel := range required {
		if _, err := os.Stat(filepath.Join(root, rel)); os.IsNotExist(err) {
			missing = append(missing, rel)
		}
	}
	return missing
}

// EnsureFilesAvailable checks required files locally; if any are missing it
// pulls the whole project from the blob store and rechecks, per §4.6's
// resumption glue used by the Worker before invoking the Engine when it
// suspects cross-worker resumption.
func (m *SyncManager) EnsureFilesAvailable(ctx context.Context, projectID string, required []string) (bool, error) {
	missing := m.CheckMissingFiles(projectID, required)
	if len(missing) == 0 {
		return true, nil
	}

	if _, err := m.SyncFromS3(ctx, projectID, nil); err != nil {
		return false, err
	}

	stillMissing := m.CheckMissingFiles(projectID, required)
	return len(stillMissing) == 0, nil
}

// GetFileContent reads a single file's content from the local working copy.
func (m *SyncManager) GetFileContent(projectID, relativePath string) (string, error) {
	full := filepath.Join(m.projectDir(projectID), relativePath)
	content, err := os.ReadFile(full)
	if err != nil {
		return "", fmt.Errorf("blob: get file content %s/%s: %w", projectID, relativePath, err)
	}
	return string(content), nil
}

// ReadLocalDoc reads a per-project local document (e.g. requirements.md,
// architecture.md) if present, returning ("", nil) when absent — per
// SPEC_FULL.md §4.8's local-documents supplement consumed by context
// assembly.
func (m *SyncManager) ReadLocalDoc(projectID, name string) (string, error) {
	full := filepath.Join(m.projectDir(projectID), name)
	content, err := os.ReadFile(full)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("blob: read local doc %s/%s: %w", projectID, name, err)
	}
	return string(content), nil
}
