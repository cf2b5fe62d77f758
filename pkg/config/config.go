package config

import (
	"fmt"
	"strings"

	"github.com/Layr-Labs/merkletree-go/pkg/merkle"
	"k8s.io/apimachinery/pkg/util/validation/field"
)

// Environment variable names for the merkletree CLI
const (
	EnvMerklePersistenceType = "MERKLE_PERSISTENCE_TYPE"
	EnvMerkleDataPath        = "MERKLE_DATA_PATH"
	EnvMerkleRedisAddress    = "MERKLE_REDIS_ADDRESS"
	EnvMerkleRedisPassword   = "MERKLE_REDIS_PASSWORD"
	EnvMerkleRedisDB         = "MERKLE_REDIS_DB"
	EnvMerkleRedisKeyPrefix  = "MERKLE_REDIS_KEY_PREFIX"
	EnvMerkleVerbose         = "MERKLE_VERBOSE"
)

type PersistenceType string

func (p PersistenceType) String() string {
	return string(p)
}

const (
	PersistenceTypeMemory PersistenceType = "memory"
	PersistenceTypeBadger PersistenceType = "badger"
	PersistenceTypeRedis  PersistenceType = "redis"
)

// GetSupportedPersistenceTypes returns all supported persistence backends
func GetSupportedPersistenceTypes() []PersistenceType {
	return []PersistenceType{
		PersistenceTypeMemory,
		PersistenceTypeBadger,
		PersistenceTypeRedis,
	}
}

// GetSupportedPersistenceTypesString returns supported persistence backends for CLI help
func GetSupportedPersistenceTypesString() string {
	return strings.Join(persistenceTypeNames(), ", ")
}

const (
	DefaultPersistenceType = PersistenceTypeBadger
	DefaultDataPath        = "./merkletree-data"
	DefaultRedisAddress    = "localhost:6379"
)

// RedisConfig holds the Redis connection settings
type RedisConfig struct {
	Address   string `json:"address"`
	Password  string `json:"-"`
	DB        int    `json:"db"`
	KeyPrefix string `json:"keyPrefix"`
}

// MerkleToolConfig represents the complete configuration for the merkletree CLI
type MerkleToolConfig struct {
	PersistenceType PersistenceType `json:"persistenceType"`

	// DataPath is the badger database directory
	DataPath string `json:"dataPath"`

	Redis RedisConfig `json:"redis"`

	Verbose bool `json:"verbose"`
}

// Validate validates the configuration, reporting every problem at once
func (c *MerkleToolConfig) Validate() error {
	var allErrors field.ErrorList

	switch c.PersistenceType {
	case PersistenceTypeMemory:
	case PersistenceTypeBadger:
		if c.DataPath == "" {
			allErrors = append(allErrors, field.Required(field.NewPath("dataPath"), "dataPath is required for badger persistence"))
		}
	case PersistenceTypeRedis:
		redisPath := field.NewPath("redis")
		if c.Redis.Address == "" {
			allErrors = append(allErrors, field.Required(redisPath.Child("address"), "address is required for redis persistence"))
		}
		if c.Redis.DB < 0 || c.Redis.DB > 15 {
			allErrors = append(allErrors, field.Invalid(redisPath.Child("db"), c.Redis.DB, "must be between 0 and 15"))
		}
	default:
		allErrors = append(allErrors, field.NotSupported(field.NewPath("persistenceType"), c.PersistenceType, persistenceTypeNames()))
	}

	if len(allErrors) > 0 {
		return allErrors.ToAggregate()
	}
	return nil
}

func persistenceTypeNames() []string {
	types := GetSupportedPersistenceTypes()
	names := make([]string, len(types))
	for i, p := range types {
		names[i] = p.String()
	}
	return names
}

// ParseSchemaFlag parses a comma separated leaf encoding such as "address,uint256".
func ParseSchemaFlag(value string) (merkle.Schema, error) {
	if strings.TrimSpace(value) == "" {
		return merkle.Schema{}, fmt.Errorf("leaf encoding cannot be empty")
	}
	return merkle.ParseSchema(strings.Split(value, ","))
}
