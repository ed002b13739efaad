package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Storage  StorageConfig  `yaml:"storage"`
	Minio    MinioConfig    `yaml:"minio"`
	Redis    RedisConfig    `yaml:"redis"`
	Postgres PostgresConfig `yaml:"postgres"`
	Model    ModelConfig    `yaml:"model"`
	Create   CreateConfig   `yaml:"create"`
	Auth     AuthConfig     `yaml:"auth"`
	Users    []User         `yaml:"users"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// StorageConfig selects the persistence drivers. The memory drivers run the
// full service without any external dependency.
type StorageConfig struct {
	MetadataDriver string `yaml:"metadata_driver"` // memory, redis, postgres
	BlobDriver     string `yaml:"blob_driver"`     // memory, minio
}

type MinioConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

type ModelConfig struct {
	APIURL      string  `yaml:"api_url"`
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
	Version     string  `yaml:"version"` // anthropic-version header
}

// CreateConfig holds the creation-path degradation policy. When
// TolerateMetadataFailure is true (the default), a failed metadata write after
// a successful blob write still reports creation success.
type CreateConfig struct {
	TolerateMetadataFailure *bool `yaml:"tolerate_metadata_failure"`
}

type AuthConfig struct {
	JWTSecret        string `yaml:"jwt_secret"`
	TokenExpireHours int    `yaml:"token_expire_hours"`
}

type User struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Environment overrides for secrets
	if v := os.Getenv("MODEL_API_KEY"); v != "" {
		cfg.Model.APIKey = v
	}
	if v := os.Getenv("MINIO_ACCESS_KEY"); v != "" {
		cfg.Minio.AccessKey = v
	}
	if v := os.Getenv("MINIO_SECRET_KEY"); v != "" {
		cfg.Minio.SecretKey = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		cfg.Postgres.DSN = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}

	// Set defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.MetadataDriver == "" {
		cfg.Storage.MetadataDriver = "memory"
	}
	if cfg.Storage.BlobDriver == "" {
		cfg.Storage.BlobDriver = "memory"
	}
	if cfg.Minio.Bucket == "" {
		cfg.Minio.Bucket = "gencontract-data"
	}
	if cfg.Model.Model == "" {
		cfg.Model.Model = "claude-3-sonnet-20240229"
	}
	if cfg.Model.MaxTokens == 0 {
		cfg.Model.MaxTokens = 2000
	}
	if cfg.Model.Temperature == 0 {
		cfg.Model.Temperature = 0.3
	}
	if cfg.Model.Version == "" {
		cfg.Model.Version = "2023-06-01"
	}
	if cfg.Create.TolerateMetadataFailure == nil {
		t := true
		cfg.Create.TolerateMetadataFailure = &t
	}
	if cfg.Auth.TokenExpireHours == 0 {
		cfg.Auth.TokenExpireHours = 24
	}

	return &cfg, nil
}

// AuthEnabled reports whether the JWT layer should guard contract routes.
func (c *Config) AuthEnabled() bool {
	return len(c.Users) > 0
}

// FindUser finds a user by username
func (c *Config) FindUser(username string) *User {
	for i := range c.Users {
		if c.Users[i].Username == username {
			return &c.Users[i]
		}
	}
	return nil
}
