package shared

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	HTTPAddr    string
	MetricsAddr string

	// Backend selects the key-value store: memory|redis|mysql|mongo.
	Backend     string
	MemoryQuota int
	MySQLDSN    string
	RedisAddr   string
	RedisDB     int
	RedisPass   string
	MongoURI    string
	MongoDB     string

	// TestMode enables the auto-approver; never set it in production.
	TestMode            bool
	AutoApproveInterval time.Duration
	AutoApproveAfter    time.Duration

	SubmitRPS   int
	CORSOrigins []string
	APIURL      string
}

// Load reads the environment, after merging a .env file when one exists.
func Load() Config {
	// ignore error: in production the variables are set directly
	_ = godotenv.Load()

	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
			log.Warn().Str("key", k).Str("value", v).Msg("ignoring non-numeric setting")
		}
		return def
	}
	c := Config{
		AppEnv:              env("APP_ENV", "prod"),
		HTTPAddr:            env("HTTP_ADDR", ":8080"),
		MetricsAddr:         env("METRICS_ADDR", ""),
		Backend:             strings.ToLower(env("REVIEWS_BACKEND", "memory")),
		MemoryQuota:         atoi("MEMORY_QUOTA_BYTES", 5<<20),
		MySQLDSN:            env("MYSQL_DSN", "root:root@tcp(localhost:3306)/reviews?parseTime=true&charset=utf8mb4&loc=UTC"),
		RedisAddr:           env("REDIS_ADDR", "localhost:6379"),
		RedisPass:           env("REDIS_PASSWORD", ""),
		RedisDB:             atoi("REDIS_DB", 0),
		MongoURI:            env("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDB:             env("MONGODB_DB", "reviews"),
		TestMode:            envBool("REVIEWS_TEST_MODE"),
		AutoApproveInterval: time.Duration(atoi("AUTO_APPROVE_INTERVAL_SECONDS", 5)) * time.Second,
		AutoApproveAfter:    time.Duration(atoi("AUTO_APPROVE_AFTER_SECONDS", 30)) * time.Second,
		SubmitRPS:           atoi("SUBMIT_RPS", 2),
		CORSOrigins:         splitList(env("CORS_ORIGINS", "")),
		APIURL:              env("REVIEWS_API_URL", "http://localhost:8080"),
	}
	if c.TestMode {
		log.Warn().Msg("REVIEWS_TEST_MODE is on: pending reviews will be auto-approved")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envBool(k string) bool {
	b, _ := strconv.ParseBool(os.Getenv(k))
	return b
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
