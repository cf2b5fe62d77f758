package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Layr-Labs/merkletree-go/pkg/persistence"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Key prefixes for namespacing in Redis
const (
	keyPrefixSnapshot    = "merkle:snapshot:"
	keyPrefixProof       = "merkle:proof:"
	keySchemaVersion     = "merkle:metadata:schema_version"
	currentSchemaVersion = "v1"

	// Key sets for listing operations (Redis doesn't support prefix iteration natively)
	keySetSnapshots = "merkle:snapshots:index"
	keySetProofs    = "merkle:proofs:index"

	operationTimeout = 5 * time.Second
)

// RedisPersistence is a persistence implementation using Redis.
// Snapshots and proofs can be shared by every process pointed at the same server.
type RedisPersistence struct {
	client    *redis.Client
	logger    *zap.Logger
	keyPrefix string
	mu        sync.RWMutex
	closed    bool
}

// RedisConfig holds the configuration for connecting to Redis
type RedisConfig struct {
	// Address is the Redis server address (host:port)
	Address string
	// Password is the optional Redis password
	Password string
	// DB is the Redis database number (0-15)
	DB int
	// KeyPrefix is an optional custom prefix for all keys (for multi-tenant setups).
	// "myapp:" would result in keys like "myapp:merkle:snapshot:airdrop".
	KeyPrefix string
}

// NewRedisPersistence creates a new Redis-backed persistence layer.
func NewRedisPersistence(cfg *RedisConfig, logger *zap.Logger) (*RedisPersistence, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config cannot be nil")
	}

	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address cannot be empty")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Address, err)
	}

	rp := &RedisPersistence{
		client:    client,
		logger:    logger,
		keyPrefix: cfg.KeyPrefix,
	}

	if err := rp.initSchema(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Sugar().Debugw("Redis persistence initialized", "address", cfg.Address, "db", cfg.DB, "key_prefix", cfg.KeyPrefix)

	return rp, nil
}

// prefixKey adds the custom key prefix (if configured) to a key
func (r *RedisPersistence) prefixKey(key string) string {
	return r.keyPrefix + key
}

// initSchema initializes or validates the schema version
func (r *RedisPersistence) initSchema(ctx context.Context) error {
	schemaKey := r.prefixKey(keySchemaVersion)

	existingVersion, err := r.client.Get(ctx, schemaKey).Result()
	if err == redis.Nil {
		return r.client.Set(ctx, schemaKey, currentSchemaVersion, 0).Err()
	}
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	if existingVersion != currentSchemaVersion {
		return fmt.Errorf("unsupported schema version: %s (expected: %s)", existingVersion, currentSchemaVersion)
	}

	return nil
}

// put stores data under prefix+id and adds id to the index set in one pipeline
func (r *RedisPersistence) put(ctx context.Context, prefix, index, id string, data []byte) error {
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.prefixKey(prefix+id), data, 0)
	pipe.SAdd(ctx, r.prefixKey(index), id)
	_, err := pipe.Exec(ctx)
	return err
}

// remove deletes prefix+id and drops id from the index set
func (r *RedisPersistence) remove(ctx context.Context, prefix, index, id string) error {
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, r.prefixKey(prefix+id))
	pipe.SRem(ctx, r.prefixKey(index), id)
	_, err := pipe.Exec(ctx)
	return err
}

// fetchAll reads every value listed in the index set. Stale index members are pruned.
func (r *RedisPersistence) fetchAll(ctx context.Context, prefix, index string) (map[string]string, error) {
	indexKey := r.prefixKey(index)

	ids, err := r.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read index %s: %w", index, err)
	}
	if len(ids) == 0 {
		return map[string]string{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.prefixKey(prefix + id)
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch values: %w", err)
	}

	result := make(map[string]string, len(values))
	for i, val := range values {
		if val == nil {
			// Key was in index but doesn't exist - clean up index
			r.client.SRem(ctx, indexKey, ids[i])
			continue
		}

		data, ok := val.(string)
		if !ok {
			r.logger.Sugar().Warnw("Unexpected value type in Redis", "key", keys[i])
			continue
		}
		result[keys[i]] = data
	}
	return result, nil
}

// SaveSnapshot persists a snapshot record
func (r *RedisPersistence) SaveSnapshot(record *persistence.SnapshotRecord) error {
	if record == nil {
		return fmt.Errorf("cannot save nil SnapshotRecord")
	}
	if record.Name == "" {
		return fmt.Errorf("cannot save SnapshotRecord without a name")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return persistence.ErrClosed
	}

	data, err := persistence.MarshalSnapshotRecord(record)
	if err != nil {
		return fmt.Errorf("failed to marshal SnapshotRecord: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()

	if err := r.put(ctx, keyPrefixSnapshot, keySetSnapshots, record.Name, data); err != nil {
		return fmt.Errorf("failed to save SnapshotRecord: %w", err)
	}
	return nil
}

// LoadSnapshot retrieves a snapshot record
func (r *RedisPersistence) LoadSnapshot(name string) (*persistence.SnapshotRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, persistence.ErrClosed
	}

	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()

	data, err := r.client.Get(ctx, r.prefixKey(keyPrefixSnapshot+name)).Bytes()
	if err == redis.Nil {
		return nil, nil // Not found is not an error
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load SnapshotRecord: %w", err)
	}

	record, err := persistence.UnmarshalSnapshotRecord(data)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal SnapshotRecord: %w", err)
	}

	return record, nil
}

// ListSnapshots returns all snapshot records sorted by name
func (r *RedisPersistence) ListSnapshots() ([]*persistence.SnapshotRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, persistence.ErrClosed
	}

	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()

	values, err := r.fetchAll(ctx, keyPrefixSnapshot, keySetSnapshots)
	if err != nil {
		return nil, fmt.Errorf("failed to list SnapshotRecords: %w", err)
	}

	records := make([]*persistence.SnapshotRecord, 0, len(values))
	for key, data := range values {
		record, err := persistence.UnmarshalSnapshotRecord([]byte(data))
		if err != nil {
			r.logger.Sugar().Warnw("Failed to unmarshal SnapshotRecord, skipping", "key", key, "error", err)
			continue
		}
		records = append(records, record)
	}

	persistence.SortSnapshots(records)
	return records, nil
}

// DeleteSnapshot removes a snapshot record
func (r *RedisPersistence) DeleteSnapshot(name string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return persistence.ErrClosed
	}

	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()

	return r.remove(ctx, keyPrefixSnapshot, keySetSnapshots, name)
}

// SaveProof persists a proof record
func (r *RedisPersistence) SaveProof(record *persistence.ProofRecord) error {
	if record == nil {
		return fmt.Errorf("cannot save nil ProofRecord")
	}
	if record.ID == "" {
		return fmt.Errorf("cannot save ProofRecord without an ID")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return persistence.ErrClosed
	}

	data, err := persistence.MarshalProofRecord(record)
	if err != nil {
		return fmt.Errorf("failed to marshal ProofRecord: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()

	if err := r.put(ctx, keyPrefixProof, keySetProofs, record.ID, data); err != nil {
		return fmt.Errorf("failed to save ProofRecord: %w", err)
	}
	return nil
}

// LoadProof retrieves a proof record
func (r *RedisPersistence) LoadProof(id string) (*persistence.ProofRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, persistence.ErrClosed
	}

	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()

	data, err := r.client.Get(ctx, r.prefixKey(keyPrefixProof+id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load ProofRecord: %w", err)
	}

	record, err := persistence.UnmarshalProofRecord(data)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal ProofRecord: %w", err)
	}

	return record, nil
}

// ListProofs returns the proof records of a tree, or of every tree when treeName is empty
func (r *RedisPersistence) ListProofs(treeName string) ([]*persistence.ProofRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, persistence.ErrClosed
	}

	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()

	values, err := r.fetchAll(ctx, keyPrefixProof, keySetProofs)
	if err != nil {
		return nil, fmt.Errorf("failed to list ProofRecords: %w", err)
	}

	records := make([]*persistence.ProofRecord, 0, len(values))
	for key, data := range values {
		record, err := persistence.UnmarshalProofRecord([]byte(data))
		if err != nil {
			r.logger.Sugar().Warnw("Failed to unmarshal ProofRecord, skipping", "key", key, "error", err)
			continue
		}
		if treeName != "" && record.TreeName != treeName {
			continue
		}
		records = append(records, record)
	}

	persistence.SortProofs(records)
	return records, nil
}

// DeleteProof removes a proof record
func (r *RedisPersistence) DeleteProof(id string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return persistence.ErrClosed
	}

	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()

	return r.remove(ctx, keyPrefixProof, keySetProofs, id)
}

// Close shuts down the persistence layer
func (r *RedisPersistence) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil // Already closed, idempotent
	}
	r.closed = true
	r.mu.Unlock()

	if err := r.client.Close(); err != nil {
		return fmt.Errorf("failed to close Redis client: %w", err)
	}

	r.logger.Sugar().Debug("Redis persistence closed")
	return nil
}

// HealthCheck verifies the persistence layer is operational
func (r *RedisPersistence) HealthCheck() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return fmt.Errorf("health check failed: %w", persistence.ErrClosed)
	}

	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()

	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}

	_, err := r.client.Get(ctx, r.prefixKey(keySchemaVersion)).Result()
	if err == redis.Nil {
		return fmt.Errorf("schema version not found - database may not be properly initialized")
	}
	if err != nil {
		return fmt.Errorf("failed to verify schema version: %w", err)
	}

	return nil
}
