package config

import (
	"fmt"
	"os"
	"strings"
)

// Config is the process configuration read from the environment.
type Config struct {
	MongoURI   string
	MongoDB    string
	RedisAddr  string
	Port       string
	PolicyFile string

	Policy Policy
}

// Load reads the environment and the optional program policy file.
func Load() (*Config, error) {
	cfg := &Config{
		MongoURI:   getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:    getEnv("MONGO_DB", "carepath"),
		RedisAddr:  redisAddr(getEnv("REDIS_URI", "localhost:6379")),
		Port:       getEnv("PORT", "8080"),
		PolicyFile: os.Getenv("PROGRAM_POLICY_FILE"),
	}

	policy, err := LoadPolicy(cfg.PolicyFile)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg.Policy = policy
	return cfg, nil
}

// redisAddr strips a redis:// scheme, go-redis Options.Addr wants host:port.
func redisAddr(uri string) string {
	return strings.TrimPrefix(uri, "redis://")
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
