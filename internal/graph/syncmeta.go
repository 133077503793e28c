package graph

import (
	"context"
	"fmt"
)

const syncMetadataQuery = `MERGE (n:ModuleSyncMetadata {id: $id})
ON CREATE SET n.firstseen = timestamp()
SET n.syncedtype = $synced_type, n.grouptype = $group_type, n.groupid = $group_id, n.lastupdated = $update_tag`

// SyncMetadata records that one resource type was refreshed for a group.
type SyncMetadata struct {
	GroupType  string
	GroupID    string
	SyncedType string
	UpdateTag  int64
}

// ID is the ModuleSyncMetadata node key, e.g. "AWSAccount_123_AwsSnsTopic".
func (m SyncMetadata) ID() string {
	return fmt.Sprintf("%s_%s_%s", m.GroupType, m.GroupID, m.SyncedType)
}

// MergeModuleSyncMetadata upserts the ModuleSyncMetadata node for m.
// The statement is valid on every supported server version.
func MergeModuleSyncMetadata(ctx context.Context, s Session, m SyncMetadata) error {
	ctx, span := tracer.Start(ctx, "graph.MergeModuleSyncMetadata")
	defer span.End()

	_, err := s.Run(ctx, syncMetadataQuery, map[string]any{
		"id":          m.ID(),
		"synced_type": m.SyncedType,
		"group_type":  m.GroupType,
		"group_id":    m.GroupID,
		"update_tag":  m.UpdateTag,
	})
	if err != nil {
		return fmt.Errorf("failed to merge sync metadata %s: %w", m.ID(), err)
	}
	return nil
}
