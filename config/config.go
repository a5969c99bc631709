package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Route is one origin→destination pair to crawl, identified by airport code.
type Route struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// Routes is the crawl-target file: which routes to search and how many days
// ahead to sweep.
type Routes struct {
	Routes    []Route `yaml:"routes"`
	DaysAhead int     `yaml:"days_ahead"`
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	MaxConcurrency int
	RateLimitMs    int
	MaxRetries     int

	RawDataPath   string
	CleanDataPath string
	ArtifactsPath string
	LogPath       string
	RoutesPath    string
	ChromeBin     string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "airfare"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "airfare123"),
		PostgresDB:       getEnv("POSTGRES_DB", "flight_db"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 2),
		RateLimitMs:    getEnvInt("RATE_LIMIT_MS", 3000),
		MaxRetries:     getEnvInt("MAX_RETRIES", 3),

		RawDataPath:   getEnv("RAW_PATH", "data/raw"),
		CleanDataPath: getEnv("CLEAN_PATH", "data/clean"),
		ArtifactsPath: getEnv("ARTIFACTS_PATH", "models/artifacts"),
		LogPath:       getEnv("LOG_PATH", "logs"),
		RoutesPath:    getEnv("ROUTES_PATH", "routes.yaml"),
		ChromeBin:     getEnv("CHROME_BIN", ""),
	}
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

// LoadRoutes reads the YAML crawl-target file.
func (c *Config) LoadRoutes() (*Routes, error) {
	data, err := os.ReadFile(c.RoutesPath)
	if err != nil {
		return nil, fmt.Errorf("config: read routes file %q: %w", c.RoutesPath, err)
	}
	var r Routes
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("config: parse routes file: %w", err)
	}
	if r.DaysAhead <= 0 {
		r.DaysAhead = 1
	}
	if len(r.Routes) == 0 {
		return nil, fmt.Errorf("config: routes file %q lists no routes", c.RoutesPath)
	}
	return &r, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}
