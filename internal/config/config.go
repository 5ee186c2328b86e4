package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/cmlabs-hris/attendance-engine-go/internal/pkg/geo"
	"github.com/joho/godotenv"
)

type Config struct {
	Database   DatabaseConfig
	JWT        JWTConfig
	App        AppConfig
	Attendance AttendanceConfig
	RateLimit  RateLimitConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int32
	MinConns int32
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string
	AccessExpiration time.Duration
}

// AppConfig holds application configuration
type AppConfig struct {
	Name           string
	Version        string
	Port           int
	Env            string
	LogLevel       string
	AllowedOrigins []string
}

// AttendanceConfig holds the engine's tunables
type AttendanceConfig struct {
	Timezone           *time.Location
	LocationTimeout    time.Duration
	ProximityThreshold float64
	OffsetStep         float64
	MaxOffsetAttempts  int
	StreamInterval     time.Duration
	Geofences          []geo.Geofence
}

// RateLimitConfig bounds punch submissions per user
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	} else if err != nil {
		slog.Info("No .env file found, using process environment")
	}

	return FromEnv()
}

// FromEnv builds the configuration from environment variables only.
func FromEnv() (*Config, error) {
	config := &Config{}

	// Database configuration
	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}
	maxConns, err := strconv.Atoi(getEnv("DB_MAX_CONNS", "25"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}
	minConns, err := strconv.Atoi(getEnv("DB_MIN_CONNS", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MIN_CONNS: %w", err)
	}

	config.Database = DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     dbPort,
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "cmlabs-attendance"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		MaxConns: int32(maxConns),
		MinConns: int32(minConns),
	}

	// Application configuration
	appPort, err := strconv.Atoi(getEnv("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}

	config.App = AppConfig{
		Name:           getEnv("APP_NAME", "attendance-engine"),
		Version:        getEnv("APP_VERSION", "v1.0.0"),
		Port:           appPort,
		Env:            getEnv("APP_ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		AllowedOrigins: getEnvSlice("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
	}

	// JWT configuration
	accessExpiration, err := time.ParseDuration(getEnv("JWT_ACCESS_EXPIRATION_TIME", "1h"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_ACCESS_EXPIRATION_TIME: %w", err)
	}

	config.JWT = JWTConfig{
		Secret:           getEnv("JWT_SECRET_KEY", ""),
		AccessExpiration: accessExpiration,
	}

	// Attendance configuration
	attendance, err := loadAttendance()
	if err != nil {
		return nil, err
	}
	config.Attendance = attendance

	// Rate limit configuration
	rps, err := strconv.ParseFloat(getEnv("RATE_LIMIT_RPS", "1"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_RPS: %w", err)
	}
	burst, err := strconv.Atoi(getEnv("RATE_LIMIT_BURST", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BURST: %w", err)
	}

	config.RateLimit = RateLimitConfig{
		RequestsPerSecond: rps,
		Burst:             burst,
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

func loadAttendance() (AttendanceConfig, error) {
	tz, err := time.LoadLocation(getEnv("ATTENDANCE_TIMEZONE", "Asia/Jakarta"))
	if err != nil {
		return AttendanceConfig{}, fmt.Errorf("invalid ATTENDANCE_TIMEZONE: %w", err)
	}

	locationTimeout, err := time.ParseDuration(getEnv("ATTENDANCE_LOCATION_TIMEOUT", "10s"))
	if err != nil {
		return AttendanceConfig{}, fmt.Errorf("invalid ATTENDANCE_LOCATION_TIMEOUT: %w", err)
	}

	threshold, err := strconv.ParseFloat(getEnv("ATTENDANCE_PROXIMITY_THRESHOLD", "0.0001"), 64)
	if err != nil {
		return AttendanceConfig{}, fmt.Errorf("invalid ATTENDANCE_PROXIMITY_THRESHOLD: %w", err)
	}

	offsetStep, err := strconv.ParseFloat(getEnv("ATTENDANCE_OFFSET_STEP", "0.0003"), 64)
	if err != nil {
		return AttendanceConfig{}, fmt.Errorf("invalid ATTENDANCE_OFFSET_STEP: %w", err)
	}

	maxAttempts, err := strconv.Atoi(getEnv("ATTENDANCE_MAX_OFFSET_ATTEMPTS", "10"))
	if err != nil {
		return AttendanceConfig{}, fmt.Errorf("invalid ATTENDANCE_MAX_OFFSET_ATTEMPTS: %w", err)
	}

	streamInterval, err := time.ParseDuration(getEnv("ATTENDANCE_STREAM_INTERVAL", "1s"))
	if err != nil {
		return AttendanceConfig{}, fmt.Errorf("invalid ATTENDANCE_STREAM_INTERVAL: %w", err)
	}

	fences, err := parseGeofences(getEnv("ATTENDANCE_GEOFENCES", ""))
	if err != nil {
		return AttendanceConfig{}, fmt.Errorf("invalid ATTENDANCE_GEOFENCES: %w", err)
	}

	return AttendanceConfig{
		Timezone:           tz,
		LocationTimeout:    locationTimeout,
		ProximityThreshold: threshold,
		OffsetStep:         offsetStep,
		MaxOffsetAttempts:  maxAttempts,
		StreamInterval:     streamInterval,
		Geofences:          fences,
	}, nil
}

// parseGeofences reads "lat:lng:radius[:name];..." entries.
func parseGeofences(raw string) ([]geo.Geofence, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	var fences []geo.Geofence
	for i, entry := range strings.Split(raw, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, ":")
		if len(parts) < 3 || len(parts) > 4 {
			return nil, fmt.Errorf("entry %d: expected lat:lng:radius[:name]", i+1)
		}

		values := make([]float64, 3)
		for j := 0; j < 3; j++ {
			v, err := strconv.ParseFloat(strings.TrimSpace(parts[j]), 64)
			if err != nil {
				return nil, fmt.Errorf("entry %d: %w", i+1, err)
			}
			values[j] = v
		}

		fence := geo.Geofence{
			Name:         fmt.Sprintf("fence-%d", i+1),
			Lat:          values[0],
			Lng:          values[1],
			RadiusMeters: values[2],
		}
		if len(parts) == 4 && strings.TrimSpace(parts[3]) != "" {
			fence.Name = strings.TrimSpace(parts[3])
		}
		if fence.Lat < -90 || fence.Lat > 90 || fence.Lng < -180 || fence.Lng > 180 || fence.RadiusMeters <= 0 {
			return nil, fmt.Errorf("entry %d: coordinates out of range or non-positive radius", i+1)
		}
		fences = append(fences, fence)
	}
	return fences, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if c.Attendance.LocationTimeout <= 0 {
		return fmt.Errorf("ATTENDANCE_LOCATION_TIMEOUT must be positive")
	}
	if c.Attendance.ProximityThreshold <= 0 {
		return fmt.Errorf("ATTENDANCE_PROXIMITY_THRESHOLD must be positive")
	}
	if c.Attendance.OffsetStep <= 0 {
		return fmt.Errorf("ATTENDANCE_OFFSET_STEP must be positive")
	}
	if c.Attendance.MaxOffsetAttempts < 0 {
		return fmt.Errorf("ATTENDANCE_MAX_OFFSET_ATTEMPTS must not be negative")
	}
	if c.Attendance.StreamInterval <= 0 {
		return fmt.Errorf("ATTENDANCE_STREAM_INTERVAL must be positive")
	}
	if c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	return nil
}

// DeclutterOptions returns the team-map declutter settings.
func (c AttendanceConfig) DeclutterOptions() geo.DeclutterOptions {
	return geo.DeclutterOptions{
		Threshold:   c.ProximityThreshold,
		OffsetStep:  c.OffsetStep,
		MaxAttempts: c.MaxOffsetAttempts,
	}
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvSlice(key, fallback string) []string {
	value := getEnv(key, fallback)
	if value == "" {
		return []string{}
	}
	var result []string
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			result = append(result, v)
		}
	}
	return result
}
