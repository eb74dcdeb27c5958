package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables read by ApplyEnv
const (
	EnvS3Endpoint  = "PAIRCORPUS_S3_ENDPOINT"
	EnvS3Bucket    = "PAIRCORPUS_S3_BUCKET"
	EnvS3AccessKey = "PAIRCORPUS_S3_ACCESS_KEY"
	EnvS3SecretKey = "PAIRCORPUS_S3_SECRET_KEY"
)

// LoadDotEnv loads KEY=VALUE pairs from the given .env files into the process
// environment without overriding variables that are already set. Missing
// files are ignored.
func LoadDotEnv(paths ...string) {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		_ = godotenv.Load(p)
	}
}

// ApplyEnv overlays environment values onto the publish settings.
// Credentials come only from the environment.
func (c *Config) ApplyEnv() {
	c.Publish.Endpoint = firstNonEmpty(os.Getenv(EnvS3Endpoint), c.Publish.Endpoint)
	c.Publish.Bucket = firstNonEmpty(os.Getenv(EnvS3Bucket), c.Publish.Bucket)
	c.Publish.AccessKey = strings.TrimSpace(os.Getenv(EnvS3AccessKey))
	c.Publish.SecretKey = strings.TrimSpace(os.Getenv(EnvS3SecretKey))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
