package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultSourceURL is the Inside Airbnb NYC listings summary.
const DefaultSourceURL = "http://data.insideairbnb.com/united-states/ny/new-york-city/2021-09-01/visualisations/listings.csv"

// Config holds all application configuration loaded from environment variables.
type Config struct {
	SourceURL   string
	WatchSource bool

	ListenAddr    string
	CORSOrigins   []string
	LogLevel      string
	LogFormat     string
	TraceToStdout bool

	HTTPTimeout      time.Duration
	MaxRetries       int
	RetryBaseDelay   time.Duration
	BreakerThreshold uint32
	ChromeBin        string

	MaxConcurrency     int
	ExpensiveThreshold float64
	AffordableCeiling  float64
	PriceSliderCap     float64
	SampleSeed         int64
	ReviewsLimit       int
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}
	return FromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("SOURCE_URL", DefaultSourceURL)
	v.SetDefault("WATCH_SOURCE", false)

	v.SetDefault("LISTEN_ADDR", ":8080")
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")
	v.SetDefault("TRACE_STDOUT", false)

	v.SetDefault("HTTP_TIMEOUT", "60s")
	v.SetDefault("MAX_RETRIES", 3)
	v.SetDefault("RETRY_BASE_DELAY", "2s")
	v.SetDefault("BREAKER_THRESHOLD", 5)
	v.SetDefault("CHROME_BIN", "")

	v.SetDefault("MAX_CONCURRENCY", 4)
	v.SetDefault("EXPENSIVE_THRESHOLD", 800.0)
	v.SetDefault("AFFORDABLE_CEILING", 200.0)
	v.SetDefault("PRICE_SLIDER_CAP", 1000.0)
	v.SetDefault("SAMPLE_SEED", 4)
	v.SetDefault("REVIEWS_LIMIT", 50)
	return v
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		SourceURL:   v.GetString("SOURCE_URL"),
		WatchSource: v.GetBool("WATCH_SOURCE"),

		ListenAddr:    v.GetString("LISTEN_ADDR"),
		CORSOrigins:   splitList(v.GetString("CORS_ORIGINS")),
		LogLevel:      v.GetString("LOG_LEVEL"),
		LogFormat:     v.GetString("LOG_FORMAT"),
		TraceToStdout: v.GetBool("TRACE_STDOUT"),

		HTTPTimeout:      v.GetDuration("HTTP_TIMEOUT"),
		MaxRetries:       v.GetInt("MAX_RETRIES"),
		RetryBaseDelay:   v.GetDuration("RETRY_BASE_DELAY"),
		BreakerThreshold: v.GetUint32("BREAKER_THRESHOLD"),
		ChromeBin:        v.GetString("CHROME_BIN"),

		MaxConcurrency:     v.GetInt("MAX_CONCURRENCY"),
		ExpensiveThreshold: v.GetFloat64("EXPENSIVE_THRESHOLD"),
		AffordableCeiling:  v.GetFloat64("AFFORDABLE_CEILING"),
		PriceSliderCap:     v.GetFloat64("PRICE_SLIDER_CAP"),
		SampleSeed:         v.GetInt64("SAMPLE_SEED"),
		ReviewsLimit:       v.GetInt("REVIEWS_LIMIT"),
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
