package config

import (
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const envPrefix = "PICSHELF"

const (
	DBDriverMySQL  = "mysql"
	DBDriverSQLite = "sqlite"
	DBDriverMemory = "memory"

	StorageTypeDisk = "disk"
	StorageTypeS3   = "s3"
)

// Config is read from PICSHELF_* environment variables, e.g. PICSHELF_BIND_ADDRESS
type Config struct {
	BindAddress string `envconfig:"BIND_ADDRESS" default:"0.0.0.0:8080"`
	TLSDomains  string `envconfig:"TLS_DOMAINS"` // e.g. "example.com,example2.com"
	DebugMode   bool   `envconfig:"DEBUG_MODE" default:"false"`
	CORSOrigins string `envconfig:"CORS_ORIGINS" default:"http://localhost:5173"`
	MaxUploadMB int64  `envconfig:"MAX_UPLOAD_MB" default:"5"`

	DBDriver   string `envconfig:"DB_DRIVER" default:"sqlite"`
	MySQLDSN   string `envconfig:"MYSQL_DSN"`
	SQLiteFile string `envconfig:"SQLITE_FILE" default:"picshelf.db"`

	StorageType      string `envconfig:"STORAGE_TYPE" default:"disk"`
	StoragePath      string `envconfig:"STORAGE_PATH" default:"./data"` // Path on a drive or a prefix in a S3 bucket
	StoragePublicURL string `envconfig:"STORAGE_PUBLIC_URL"`            // Prepended to object paths to build references
	S3Bucket         string `envconfig:"S3_BUCKET"`
	S3Region         string `envconfig:"S3_REGION" default:"us-east-1"`
	S3Endpoint       string `envconfig:"S3_ENDPOINT"`
	S3Key            string `envconfig:"S3_KEY"`
	S3Secret         string `envconfig:"S3_SECRET"`
	S3SSEEncryption  string `envconfig:"S3_SSE_ENCRYPTION"`

	GoogleClientID     string        `envconfig:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string        `envconfig:"GOOGLE_CLIENT_SECRET"`
	BackendURL         string        `envconfig:"BACKEND_URL" default:"http://localhost:8080"`
	FrontendURL        string        `envconfig:"FRONTEND_URL" default:"http://localhost:5173"`
	JWTSecret          string        `envconfig:"JWT_SECRET"`
	JWTTTL             time.Duration `envconfig:"JWT_TTL" default:"24h"`
	SessionKey         string        `envconfig:"SESSION_KEY" default:"this is a long key"`
}

var Current Config

// Load reads the environment into Current. It is called once from main.
func Load() error {
	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return err
	}
	Current = cfg
	return nil
}

func (c *Config) TLSDomainList() []string {
	return splitList(c.TLSDomains)
}

func (c *Config) CORSOriginList() []string {
	return splitList(c.CORSOrigins)
}

func splitList(s string) []string {
	result := []string{}
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			result = append(result, v)
		}
	}
	return result
}
