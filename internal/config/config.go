package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Estimator EstimatorConfig
	MQTT      MQTTConfig
	Email     EmailConfig
	Live      LiveConfig
}

type ServerConfig struct {
	Port      string
	Mode      string // gin mode: debug, release, test
	OutputDir string
	UploadDir string
	// MaxUploadBytes limits multipart bodies on analysis and upload routes.
	MaxUploadBytes int64
	CORSOrigins    []string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// Enabled reports whether a database is configured. Without one the
// service runs on in-memory stores.
func (d DatabaseConfig) Enabled() bool {
	return d.Host != ""
}

type JWTConfig struct {
	Secret string
	TTL    time.Duration
	Issuer string
	// DemoEmail/DemoPassword seed the in-memory user store with one account.
	DemoEmail    string
	DemoPassword string
}

type EstimatorConfig struct {
	// Provider selects the keypoint source: gemini, openai, mediapipe or movenet.
	Provider string
	Timeout  time.Duration

	GeminiAPIKey string
	GeminiModel  string
	OpenAIAPIKey string
	OpenAIModel  string

	PythonPath     string
	ExtractorPath  string
	OnnxLibrary    string
	MoveNetModel   string
	MoveNetSize    int
	MoveNetInput   string
	MoveNetOutput  string
	ScoreTolerance float64
}

type MQTTConfig struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	QoS         int
	TopicPrefix string
}

type EmailConfig struct {
	ServiceURL string
	APIKey     string
	AdminEmail string
	Timeout    time.Duration
}

type LiveConfig struct {
	// Interval is the polling period of the live runner.
	Interval   time.Duration
	SessionTTL time.Duration
}

// Load reads .env (if present) and the process environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file loaded", "error", err)
	}

	return &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Mode:           getEnv("GIN_MODE", "release"),
			OutputDir:      getEnv("OUTPUT_DIR", "output"),
			UploadDir:      getEnv("UPLOAD_DIR", "public/uploads"),
			MaxUploadBytes: int64(getEnvAsInt("MAX_UPLOAD_MB", 50)) << 20,
			CORSOrigins:    []string{getEnv("CORS_ORIGIN", "*")},
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", ""),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "poseai"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		JWT: JWTConfig{
			Secret:       getEnv("JWT_SECRET", ""),
			TTL:          getEnvAsDuration("JWT_TTL", time.Hour),
			Issuer:       getEnv("JWT_ISSUER", "poseai"),
			DemoEmail:    getEnv("DEMO_EMAIL", ""),
			DemoPassword: getEnv("DEMO_PASSWORD", ""),
		},
		Estimator: EstimatorConfig{
			Provider:       getEnv("POSE_PROVIDER", "gemini"),
			Timeout:        getEnvAsDuration("POSE_TIMEOUT", 2*time.Minute),
			GeminiAPIKey:   getEnv("GOOGLE_API_KEY", os.Getenv("GEMINI_API_KEY")),
			GeminiModel:    getEnv("GEMINI_MODEL", "gemini-2.5-flash-lite"),
			OpenAIAPIKey:   getEnv("OPENAI_API_KEY", ""),
			OpenAIModel:    getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			PythonPath:     getEnv("POSE_PYTHON", "python3"),
			ExtractorPath:  getEnv("POSE_EXTRACTOR", "pose_extractor.py"),
			OnnxLibrary:    getEnv("ONNXRUNTIME_LIB", ""),
			MoveNetModel:   getEnv("MOVENET_MODEL", "movenet_singlepose_lightning.onnx"),
			MoveNetSize:    getEnvAsInt("MOVENET_SIZE", 192),
			MoveNetInput:   getEnv("MOVENET_INPUT", "input"),
			MoveNetOutput:  getEnv("MOVENET_OUTPUT", "output_0"),
			ScoreTolerance: getEnvAsFloat("POSE_TOLERANCE_PX", 20),
		},
		MQTT: MQTTConfig{
			Broker:      getEnv("MQTT_BROKER", ""),
			ClientID:    getEnv("MQTT_CLIENT_ID", "poseai"),
			Username:    getEnv("MQTT_USERNAME", ""),
			Password:    getEnv("MQTT_PASSWORD", ""),
			QoS:         getEnvAsInt("MQTT_QOS", 0),
			TopicPrefix: getEnv("MQTT_TOPIC_PREFIX", "poseai/live"),
		},
		Email: EmailConfig{
			ServiceURL: getEnv("EMAIL_SERVICE_URL", "https://api.emailservice.com/v1/send"),
			APIKey:     getEnv("EMAIL_SERVICE_API_KEY", ""),
			AdminEmail: getEnv("ADMIN_EMAIL", ""),
			Timeout:    getEnvAsDuration("EMAIL_TIMEOUT", 15*time.Second),
		},
		Live: LiveConfig{
			Interval:   getEnvAsDuration("LIVE_INTERVAL", 100*time.Millisecond),
			SessionTTL: getEnvAsDuration("LIVE_SESSION_TTL", 30*time.Minute),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
		slog.Warn("Ignoring invalid integer setting", "key", key, "value", value)
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
		slog.Warn("Ignoring invalid number setting", "key", key, "value", value)
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		slog.Warn("Ignoring invalid duration setting", "key", key, "value", value)
	}
	return defaultValue
}
