package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment string
	Port        string
	Store       StoreConfig
	Database    DatabaseConfig
	Supabase    SupabaseConfig
	AI          AIConfig
	Realtime    RealtimeConfig
	Homes       HomesConfig
	CORS        CORSConfig
}

// StoreConfig selects the repository backend: "supabase", "postgres" or "memory".
type StoreConfig struct {
	Backend string
}

type DatabaseConfig struct {
	URL      string
	Host     string
	Port     string
	Name     string
	User     string
	Password string
}

type SupabaseConfig struct {
	URL            string
	ServiceRoleKey string
	JWTSecret      string
}

type AIConfig struct {
	APIKey        string
	Model         string
	RetryAttempts int
	RetryBackoff  time.Duration
	RatePerMinute int
	Timeout       time.Duration
	// City anchors discovery and geocoding prompts.
	City string
}

// RealtimeConfig selects where change events come from. "local" publishes
// after writes made through this service; "postgres" listens to database
// notifications and also sees writes made by other clients.
type RealtimeConfig struct {
	Source string
}

type Home struct {
	Name string
	Lat  float64
	Lng  float64
}

type HomesConfig struct {
	Homes           []Home
	DefaultRadiusKm float64
}

type CORSConfig struct {
	AllowedOrigins []string
}

func Load() *Config {
	// .env is optional; the environment wins when both are set
	_ = godotenv.Load()

	return &Config{
		Environment: getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "3001"),
		Store: StoreConfig{
			Backend: getEnv("STORE_BACKEND", "supabase"),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			Name:     getEnv("DB_NAME", "organizer"),
			User:     getEnv("DB_USER", "organizer"),
			Password: getEnv("DB_PASSWORD", "organizer"),
		},
		Supabase: SupabaseConfig{
			URL:            getEnv("SUPABASE_URL", ""),
			ServiceRoleKey: getEnv("SUPABASE_SERVICE_ROLE_KEY", ""),
			JWTSecret:      getEnv("SUPABASE_JWT_SECRET", ""),
		},
		AI: AIConfig{
			APIKey:        getEnv("GEMINI_API_KEY", ""),
			Model:         getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
			RetryAttempts: getEnvInt("AI_RETRY_ATTEMPTS", 3),
			RetryBackoff:  getEnvDuration("AI_RETRY_BACKOFF", 2*time.Second),
			RatePerMinute: getEnvInt("AI_RATE_PER_MINUTE", 30),
			Timeout:       getEnvDuration("AI_TIMEOUT", 90*time.Second),
			City:          getEnv("AI_CITY", "São Paulo"),
		},
		Realtime: RealtimeConfig{
			Source: getEnv("REALTIME_SOURCE", "local"),
		},
		Homes: HomesConfig{
			Homes: []Home{
				{
					Name: getEnv("HOME_A_NAME", "casa"),
					Lat:  getEnvFloat("HOME_A_LAT", -23.5614),
					Lng:  getEnvFloat("HOME_A_LNG", -46.6559),
				},
				{
					Name: getEnv("HOME_B_NAME", "trabalho"),
					Lat:  getEnvFloat("HOME_B_LAT", -23.5869),
					Lng:  getEnvFloat("HOME_B_LNG", -46.6822),
				},
			},
			DefaultRadiusKm: getEnvFloat("PROXIMITY_RADIUS_KM", 3),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitOrigins(getEnv("FRONTEND_URL", "http://localhost:5173")),
		},
	}
}

// DSN returns the pgx connection string, preferring DATABASE_URL.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s", d.User, d.Password, d.Host, d.Port, d.Name)
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// Validate reports settings that make the selected backends unusable.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "supabase":
		if c.Supabase.URL == "" || c.Supabase.ServiceRoleKey == "" {
			return fmt.Errorf("SUPABASE_URL and SUPABASE_SERVICE_ROLE_KEY are required for the supabase store")
		}
	case "postgres", "memory":
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.Store.Backend)
	}

	switch c.Realtime.Source {
	case "local":
	case "postgres":
		if c.Store.Backend != "postgres" {
			return fmt.Errorf("REALTIME_SOURCE=postgres requires STORE_BACKEND=postgres")
		}
	default:
		return fmt.Errorf("unknown REALTIME_SOURCE %q", c.Realtime.Source)
	}

	if c.Supabase.JWTSecret == "" {
		return fmt.Errorf("SUPABASE_JWT_SECRET is required to verify access tokens")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if f, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return f
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return defaultValue
}

func splitOrigins(value string) []string {
	var origins []string
	for _, origin := range strings.Split(value, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}
