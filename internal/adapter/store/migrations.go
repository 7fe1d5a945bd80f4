package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"

	"minirag/config"
	"minirag/internal/port"
)

// CurrentSchemaVersion is the current schema version.
// Increment this when making breaking changes to the storage format.
const CurrentSchemaVersion = 1

const (
	metaSchemaVersion = "schema_version"
	metaEmbedding     = "embedding_fingerprint"
)

// EmbeddingFingerprint identifies the vector space the stored embeddings
// live in. Cached query vectors are only valid for the same fingerprint.
func EmbeddingFingerprint(cfg config.EmbeddingConfig) string {
	relevant := struct {
		Provider  string `json:"provider"`
		Model     string `json:"model"`
		Dimension int    `json:"dimension"`
	}{
		Provider:  cfg.Provider,
		Model:     cfg.Model,
		Dimension: cfg.Dimension,
	}

	data, _ := json.Marshal(relevant)
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:8])
}

// MigrationResult describes what Prepare found and did.
type MigrationResult struct {
	OldVersion   int
	NewVersion   int
	CacheCleared bool
	Reason       string
}

// Prepare records the schema version and reconciles the persisted query cache
// with the configured embedding model. Documents are left alone: if their
// dimension no longer matches, the index rebuild reports it.
func Prepare(ctx context.Context, s port.Store, cfg config.EmbeddingConfig) (*MigrationResult, error) {
	raw, err := s.Meta(ctx, metaSchemaVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to get schema version: %w", err)
	}
	version := 0
	if raw != "" {
		version, err = strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid schema version %q: %w", raw, err)
		}
	}

	result := &MigrationResult{
		OldVersion: version,
		NewVersion: CurrentSchemaVersion,
	}
	if version > CurrentSchemaVersion {
		return nil, fmt.Errorf("database created by newer version (v%d > v%d)", version, CurrentSchemaVersion)
	}
	if version < CurrentSchemaVersion {
		if err := s.SetMeta(ctx, metaSchemaVersion, strconv.Itoa(CurrentSchemaVersion)); err != nil {
			return nil, err
		}
		result.Reason = fmt.Sprintf("schema upgrade from v%d to v%d", version, CurrentSchemaVersion)
	}

	fingerprint := EmbeddingFingerprint(cfg)
	old, err := s.Meta(ctx, metaEmbedding)
	if err != nil {
		return nil, err
	}
	if old != "" && old != fingerprint {
		if err := s.ClearCache(ctx); err != nil {
			return nil, fmt.Errorf("failed to clear query cache: %w", err)
		}
		result.CacheCleared = true
		result.Reason = "embedding configuration changed"
	}
	if old != fingerprint {
		if err := s.SetMeta(ctx, metaEmbedding, fingerprint); err != nil {
			return nil, err
		}
	}

	return result, nil
}
