package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	APIPort            string
	WorkerEnabled      bool
	BackendAPIKey      string // API key for authenticating requests (empty = no auth, dev mode)
	CorsAllowedOrigins string // Comma-separated allowed origins (empty = *, dev mode)

	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// Supabase
	SupabaseURL           string
	SupabaseServiceKey    string
	SupabaseStorageBucket string

	// Workflow service (remote generative-media backend, node-graph workflows)
	WorkflowAPIURL       string
	WorkflowAPIKey       string
	StoryboardWorkflowID string // Workflow that composes 10 reference photos into a 3x3 storyboard
	VideoWorkflowID      string // Workflow that animates one storyboard frame into a short clip

	// OpenAI (optional — storyboard prompt enhancement; empty = catalog prompts used as-is)
	OpenAIKey string

	// Veo (optional clip backend — when enabled, frames are animated via Veo
	// instead of the workflow service's video workflow)
	VeoClipsEnabled bool
	VeoModel        string
	GeminiKey       string

	// Assets
	MusicDir string // Directory with per-style background tracks (<style>.mp3)

	// Rendering
	TempDir string

	// Worker
	MaxConcurrentJobs int
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	_ = godotenv.Load()

	cfg := &Config{
		APIPort:               getEnv("API_PORT", "8080"),
		WorkerEnabled:         getEnvBool("WORKER_ENABLED", true),
		BackendAPIKey:         getEnv("BACKEND_API_KEY", ""),
		CorsAllowedOrigins:    getEnv("CORS_ALLOWED_ORIGINS", ""),
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		RedisURL:              getEnv("REDIS_URL", "redis://localhost:6379"),
		SupabaseURL:           getEnv("SUPABASE_URL", ""),
		SupabaseServiceKey:    getEnv("SUPABASE_SERVICE_KEY", ""),
		SupabaseStorageBucket: getEnv("SUPABASE_STORAGE_BUCKET", "keepsake-films"),
		WorkflowAPIURL:        getEnv("WORKFLOW_API_URL", ""),
		WorkflowAPIKey:        getEnv("WORKFLOW_API_KEY", ""),
		StoryboardWorkflowID:  getEnv("STORYBOARD_WORKFLOW_ID", ""),
		VideoWorkflowID:       getEnv("VIDEO_WORKFLOW_ID", ""),
		OpenAIKey:             getEnv("OPENAI_API_KEY", ""),
		VeoClipsEnabled:       getEnvBool("VEO_CLIPS_ENABLED", false),
		VeoModel:              getEnv("VEO_MODEL", "veo-3.1-generate-preview"),
		GeminiKey:             getEnv("GEMINI_API_KEY", ""),
		MusicDir:              getEnv("MUSIC_DIR", "assets/music"),
		TempDir:               getEnv("TEMP_DIR", "/tmp/keepsake"),
		MaxConcurrentJobs:     getEnvInt("MAX_CONCURRENT_JOBS", 2),
	}

	// Validate required fields
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.WorkflowAPIURL == "" || cfg.WorkflowAPIKey == "" {
		return nil, fmt.Errorf("WORKFLOW_API_URL and WORKFLOW_API_KEY are required")
	}

	if cfg.StoryboardWorkflowID == "" {
		return nil, fmt.Errorf("STORYBOARD_WORKFLOW_ID is required")
	}

	if !cfg.VeoClipsEnabled && cfg.VideoWorkflowID == "" {
		return nil, fmt.Errorf("VIDEO_WORKFLOW_ID is required unless VEO_CLIPS_ENABLED is set")
	}

	if cfg.VeoClipsEnabled && cfg.GeminiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required when VEO_CLIPS_ENABLED is set")
	}

	if cfg.SupabaseURL == "" || cfg.SupabaseServiceKey == "" {
		return nil, fmt.Errorf("SUPABASE_URL and SUPABASE_SERVICE_KEY are required")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		b, err := strconv.ParseBool(value)
		if err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		i, err := strconv.Atoi(value)
		if err == nil {
			return i
		}
	}
	return defaultValue
}
