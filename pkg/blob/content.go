package blob

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
)

// StageContentKey returns the object key an oversize stage output (or
// oversize context-manager document) is stored under, per §3's
// agent_output_s3_ref / s3_content_ref convention.
func (m *SyncManager) StageContentKey(projectID, stageName string) string {
	return m.config.Prefix + projectID + "/outputs/" + stageName + ".txt"
}

// PutStageContent stores oversize stage content in the blob store and
// returns the reference key to persist on the record (agent_output_s3_ref).
func (m *SyncManager) PutStageContent(ctx context.Context, projectID, stageName, content string) (string, error) {
	key := m.StageContentKey(projectID, stageName)
	sum := md5.Sum([]byte(content))
	checksum := hex.EncodeToString(sum[:])
	if err := m.store.Put(ctx, key, []byte(content), checksum, projectID); err != nil {
		return "", fmt.Errorf("blob: put stage content %s/%s: %w", projectID, stageName, err)
	}
	return key, nil
}

// GetStageContent retrieves previously offloaded stage content by its
// stored reference key.
func (m *SyncManager) GetStageContent(ctx context.Context, ref string) (string, error) {
	data, err := m.store.Get(ctx, ref)
	if err != nil {
		return "", fmt.Errorf("blob: get stage content %s: %w", ref, err)
	}
	return string(data), nil
}
