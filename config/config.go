package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Query   queryConfig   `yaml:"query"`
	Log     logConfig     `yaml:"log"`
	Storage storageConfig `yaml:"storage"`
	Secrets secretsConfig `yaml:"-"` // never read from yaml, see LoadSecrets
}
type queryConfig struct {
	MaxThreads        int    `yaml:"max_threads"`    // filter/projection workers and numbers_mt partitions
	MaxBlockSize      int    `yaml:"max_block_size"` // rows per block produced by sources
	DefaultSourceRows uint64 `yaml:"default_source_rows"`
}
type logConfig struct {
	Level  string `yaml:"level"`  // DEBUG, INFO, WARN, ERROR
	Format string `yaml:"format"` // json, text
}
type storageConfig struct {
	CSVBatchSize     int    `yaml:"csv_batch_size"`
	ParquetBatchSize int64  `yaml:"parquet_batch_size"`
	ParquetParallel  bool   `yaml:"parquet_parallel"`
	S3Endpoint       string `yaml:"s3_endpoint"`
	S3Bucket         string `yaml:"s3_bucket"`
	S3UseSSL         bool   `yaml:"s3_use_ssl"`
}
type secretsConfig struct {
	AccessKey string
	SecretKey string
}

func defaultConfig() *Config {
	return &Config{
		Query: queryConfig{
			MaxThreads:        8,
			MaxBlockSize:      1024 * 8, // rows per block
			DefaultSourceRows: 10000,
		},
		Log: logConfig{
			Level:  "INFO",
			Format: "text",
		},
		Storage: storageConfig{
			CSVBatchSize:     1024,
			ParquetBatchSize: 1024,
			ParquetParallel:  true,
			S3Endpoint:       "localhost:9000",
			S3Bucket:         "fuse-query",
			S3UseSSL:         false,
		},
	}
}

var configInstance = defaultConfig()

func GetConfig() *Config {
	return configInstance
}

// Reset restores the defaults. Used by tests and by the CLI before decoding.
func Reset() {
	configInstance = defaultConfig()
}

// overwrite global instance with loaded config
func Decode(filePath string) error {
	suffix := strings.TrimPrefix(filepath.Ext(filePath), ".")
	if suffix != "yaml" && suffix != "yml" {
		return errors.New("file must be a .yaml or .yml file")
	}
	r, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer r.Close()
	config := make(map[string]interface{})
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(config); err != nil {
		return fmt.Errorf("failed to decode config: %w", err)
	}
	mergeConfig(configInstance, config)
	return configInstance.Validate()
}

// LoadSecrets reads object store credentials from the environment, after
// loading envFile when it is not empty. Credentials never live in yaml.
func LoadSecrets(envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	}
	configInstance.Secrets.AccessKey = os.Getenv("FUSE_QUERY_S3_ACCESS_KEY")
	configInstance.Secrets.SecretKey = os.Getenv("FUSE_QUERY_S3_SECRET_KEY")
	if v := os.Getenv("FUSE_QUERY_S3_ENDPOINT"); v != "" {
		configInstance.Storage.S3Endpoint = v
	}
	if v := os.Getenv("FUSE_QUERY_S3_BUCKET"); v != "" {
		configInstance.Storage.S3Bucket = v
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Query.MaxThreads <= 0 {
		return fmt.Errorf("query.max_threads must be > 0, got %d", c.Query.MaxThreads)
	}
	if c.Query.MaxBlockSize <= 0 {
		return fmt.Errorf("query.max_block_size must be > 0, got %d", c.Query.MaxBlockSize)
	}
	if c.Storage.CSVBatchSize <= 0 || c.Storage.ParquetBatchSize <= 0 {
		return errors.New("storage batch sizes must be > 0")
	}
	return nil
}

func mergeConfig(dst *Config, src map[string]interface{}) {
	// =============================
	// QUERY
	// =============================
	if query, ok := src["query"].(map[string]interface{}); ok {
		if v, ok := query["max_threads"].(int); ok {
			dst.Query.MaxThreads = v
		}
		if v, ok := query["max_block_size"].(int); ok {
			dst.Query.MaxBlockSize = v
		}
		if v, ok := query["default_source_rows"].(int); ok && v >= 0 {
			dst.Query.DefaultSourceRows = uint64(v)
		}
	}

	// =============================
	// LOG
	// =============================
	if log, ok := src["log"].(map[string]interface{}); ok {
		if v, ok := log["level"].(string); ok {
			dst.Log.Level = strings.ToUpper(v)
		}
		if v, ok := log["format"].(string); ok {
			dst.Log.Format = strings.ToLower(v)
		}
	}

	// =============================
	// STORAGE
	// =============================
	if storage, ok := src["storage"].(map[string]interface{}); ok {
		if v, ok := storage["csv_batch_size"].(int); ok {
			dst.Storage.CSVBatchSize = v
		}
		if v, ok := storage["parquet_batch_size"].(int); ok {
			dst.Storage.ParquetBatchSize = int64(v)
		}
		if v, ok := storage["parquet_parallel"].(bool); ok {
			dst.Storage.ParquetParallel = v
		}
		if v, ok := storage["s3_endpoint"].(string); ok {
			dst.Storage.S3Endpoint = v
		}
		if v, ok := storage["s3_bucket"].(string); ok {
			dst.Storage.S3Bucket = v
		}
		if v, ok := storage["s3_use_ssl"].(bool); ok {
			dst.Storage.S3UseSSL = v
		}
	}
}
