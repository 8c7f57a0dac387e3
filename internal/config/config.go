package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type TelemetryConfig struct {
	LogLevel     string `yaml:"log_level"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	OTLPInsecure bool   `yaml:"otlp_insecure"`
}

type HTTPConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

type StorageConfig struct {
	UploadDir   string `yaml:"upload_dir"`
	OutputDir   string `yaml:"output_dir"`
	MaxUploadMB int    `yaml:"max_upload_mb"`
}

type BusConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Embedded       bool     `yaml:"embedded"`
	Port           int      `yaml:"port"`
	Servers        []string `yaml:"servers"`
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	Token          string   `yaml:"token"`
	TLSInsecure    bool     `yaml:"tls_insecure"`
	ConnectTimeout int      `yaml:"connect_timeout_ms"`
}

type RunLogConfig struct {
	Path          string `yaml:"path"`
	RetentionMode string `yaml:"retention_mode"`
	RetentionDays int    `yaml:"retention_days"`
	MaxRuns       int    `yaml:"max_runs"`
	VacuumOnStart bool   `yaml:"vacuum_on_start"`
}

type ExtractConfig struct {
	Mode string `yaml:"mode"` // pdf, text
}

type GenConfig struct {
	Mode        string  `yaml:"mode"` // mock, gemini, ollama
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	Endpoint    string  `yaml:"endpoint"`
	Temperature float64 `yaml:"temperature"`
}

type SpeechConfig struct {
	Mode         string `yaml:"mode"` // mock, elevenlabs
	APIKey       string `yaml:"api_key"`
	Endpoint     string `yaml:"endpoint"`
	ModelID      string `yaml:"model_id"`
	OutputFormat string `yaml:"output_format"`
}

type PodcastConfig struct {
	ShowName    string   `yaml:"show_name"`
	NamePool    []string `yaml:"name_pool"`
	PageDelayMS int      `yaml:"page_delay_ms"`
}

type Config struct {
	RuntimeName string          `yaml:"runtime_name"`
	Environment string          `yaml:"environment"`
	HTTP        HTTPConfig      `yaml:"http"`
	Telemetry   TelemetryConfig `yaml:"telemetry"`
	Storage     StorageConfig   `yaml:"storage"`
	Bus         BusConfig       `yaml:"bus"`
	RunLog      RunLogConfig    `yaml:"run_log"`
	Extract     ExtractConfig   `yaml:"extract"`
	Gen         GenConfig       `yaml:"gen"`
	Speech      SpeechConfig    `yaml:"speech"`
	Podcast     PodcastConfig   `yaml:"podcast"`
}

func Default() Config {
	return Config{
		RuntimeName: "paperwave-runtime",
		Environment: "development",
		HTTP: HTTPConfig{
			Bind: "0.0.0.0",
			Port: 8080,
		},
		Telemetry: TelemetryConfig{
			LogLevel:     "info",
			OTLPEndpoint: "",
			OTLPInsecure: true,
		},
		Storage: StorageConfig{
			UploadDir:   "./data/uploads",
			OutputDir:   "./data/output",
			MaxUploadMB: 16,
		},
		Bus: BusConfig{
			Enabled:        false,
			Embedded:       true,
			Port:           4222,
			Servers:        []string{"nats://localhost:4222"},
			ConnectTimeout: 2000,
		},
		RunLog: RunLogConfig{
			Path:          "./data/paperwave-runs.db",
			RetentionMode: "session",
			RetentionDays: 30,
			MaxRuns:       10000,
		},
		Extract: ExtractConfig{
			Mode: "pdf",
		},
		Gen: GenConfig{
			Mode:        "mock",
			Model:       "gemini-1.5-flash",
			Endpoint:    "http://localhost:11434",
			Temperature: 0.7,
		},
		Speech: SpeechConfig{
			Mode:         "mock",
			Endpoint:     "https://api.elevenlabs.io",
			ModelID:      "eleven_flash_v2_5",
			OutputFormat: "mp3_44100_128",
		},
		Podcast: PodcastConfig{
			ShowName: "Paperwave",
			NamePool: []string{
				"Alex", "Taylor", "Jordan", "Casey", "Morgan",
				"Riley", "Dakota", "Harper", "Quinn", "Reese",
			},
			PageDelayMS: 1000,
		},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.RuntimeName, "PAPERWAVE_RUNTIME_NAME")
	overrideString(&cfg.Environment, "PAPERWAVE_RUNTIME_ENVIRONMENT")
	overrideString(&cfg.HTTP.Bind, "PAPERWAVE_HTTP_BIND")
	overrideInt(&cfg.HTTP.Port, "PAPERWAVE_HTTP_PORT")
	overrideString(&cfg.Telemetry.LogLevel, "PAPERWAVE_TELEMETRY_LOG_LEVEL")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "PAPERWAVE_TELEMETRY_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "PAPERWAVE_TELEMETRY_OTLP_INSECURE")
	overrideString(&cfg.Storage.UploadDir, "PAPERWAVE_STORAGE_UPLOAD_DIR")
	overrideString(&cfg.Storage.OutputDir, "PAPERWAVE_STORAGE_OUTPUT_DIR")
	overrideInt(&cfg.Storage.MaxUploadMB, "PAPERWAVE_STORAGE_MAX_UPLOAD_MB")
	overrideBool(&cfg.Bus.Enabled, "PAPERWAVE_BUS_ENABLED")
	overrideBool(&cfg.Bus.Embedded, "PAPERWAVE_BUS_EMBEDDED")
	overrideInt(&cfg.Bus.Port, "PAPERWAVE_BUS_PORT")
	overrideStringSlice(&cfg.Bus.Servers, "PAPERWAVE_BUS_SERVERS")
	overrideString(&cfg.Bus.Username, "PAPERWAVE_BUS_USERNAME")
	overrideString(&cfg.Bus.Password, "PAPERWAVE_BUS_PASSWORD")
	overrideString(&cfg.Bus.Token, "PAPERWAVE_BUS_TOKEN")
	overrideBool(&cfg.Bus.TLSInsecure, "PAPERWAVE_BUS_TLS_INSECURE")
	overrideInt(&cfg.Bus.ConnectTimeout, "PAPERWAVE_BUS_CONNECT_TIMEOUT_MS")
	overrideString(&cfg.RunLog.Path, "PAPERWAVE_RUN_LOG_PATH")
	overrideString(&cfg.RunLog.RetentionMode, "PAPERWAVE_RUN_LOG_RETENTION_MODE")
	overrideInt(&cfg.RunLog.RetentionDays, "PAPERWAVE_RUN_LOG_RETENTION_DAYS")
	overrideInt(&cfg.RunLog.MaxRuns, "PAPERWAVE_RUN_LOG_MAX_RUNS")
	overrideBool(&cfg.RunLog.VacuumOnStart, "PAPERWAVE_RUN_LOG_VACUUM_ON_START")
	overrideString(&cfg.Extract.Mode, "PAPERWAVE_EXTRACT_MODE")
	overrideString(&cfg.Gen.Mode, "PAPERWAVE_GEN_MODE")
	overrideString(&cfg.Gen.APIKey, "PAPERWAVE_GEN_API_KEY")
	overrideString(&cfg.Gen.Model, "PAPERWAVE_GEN_MODEL")
	overrideString(&cfg.Gen.Endpoint, "PAPERWAVE_GEN_ENDPOINT")
	overrideFloat(&cfg.Gen.Temperature, "PAPERWAVE_GEN_TEMPERATURE")
	overrideString(&cfg.Speech.Mode, "PAPERWAVE_SPEECH_MODE")
	overrideString(&cfg.Speech.APIKey, "PAPERWAVE_SPEECH_API_KEY")
	overrideString(&cfg.Speech.Endpoint, "PAPERWAVE_SPEECH_ENDPOINT")
	overrideString(&cfg.Speech.ModelID, "PAPERWAVE_SPEECH_MODEL_ID")
	overrideString(&cfg.Speech.OutputFormat, "PAPERWAVE_SPEECH_OUTPUT_FORMAT")
	overrideString(&cfg.Podcast.ShowName, "PAPERWAVE_PODCAST_SHOW_NAME")
	overrideStringSlice(&cfg.Podcast.NamePool, "PAPERWAVE_PODCAST_NAME_POOL")
	overrideInt(&cfg.Podcast.PageDelayMS, "PAPERWAVE_PODCAST_PAGE_DELAY_MS")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func overrideFloat(target *float64, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			*target = parsed
		}
	}
}

func overrideStringSlice(target *[]string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		parts := strings.Split(value, ",")
		var trimmed []string
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			*target = trimmed
		}
	}
}

func validate(cfg Config) error {
	if cfg.RuntimeName == "" {
		return errors.New("runtime_name must not be empty")
	}
	if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
		return errors.New("http.port must be between 1 and 65535")
	}
	if cfg.Storage.UploadDir == "" {
		return errors.New("storage.upload_dir must not be empty")
	}
	if cfg.Storage.OutputDir == "" {
		return errors.New("storage.output_dir must not be empty")
	}
	if cfg.Storage.MaxUploadMB <= 0 {
		return errors.New("storage.max_upload_mb must be positive")
	}
	if cfg.Bus.Enabled {
		if cfg.Bus.Embedded {
			if cfg.Bus.Port <= 0 || cfg.Bus.Port > 65535 {
				return errors.New("bus.port must be between 1 and 65535 when embedded mode is enabled")
			}
		} else if len(cfg.Bus.Servers) == 0 {
			return errors.New("bus.servers must not be empty when embedded mode is disabled")
		}
	}
	switch cfg.RunLog.RetentionMode {
	case "ephemeral", "session", "persistent":
		// ok
	default:
		return errors.New("run_log.retention_mode must be one of ephemeral|session|persistent")
	}
	if cfg.RunLog.RetentionMode != "ephemeral" && cfg.RunLog.Path == "" {
		return errors.New("run_log.path must not be empty")
	}
	if cfg.RunLog.RetentionDays < 0 {
		return errors.New("run_log.retention_days must be >= 0")
	}
	switch cfg.Extract.Mode {
	case "pdf", "text":
	default:
		return errors.New("extract.mode must be one of pdf|text")
	}
	switch cfg.Gen.Mode {
	case "mock", "gemini", "ollama":
	default:
		return errors.New("gen.mode must be one of mock|gemini|ollama")
	}
	if cfg.Gen.Mode == "gemini" && cfg.Gen.APIKey == "" {
		return errors.New("gen.api_key must be set when mode=gemini")
	}
	if cfg.Gen.Mode == "ollama" && cfg.Gen.Endpoint == "" {
		return errors.New("gen.endpoint must be set when mode=ollama")
	}
	switch cfg.Speech.Mode {
	case "mock", "elevenlabs":
	default:
		return errors.New("speech.mode must be one of mock|elevenlabs")
	}
	if cfg.Speech.Mode == "elevenlabs" {
		if cfg.Speech.APIKey == "" {
			return errors.New("speech.api_key must be set when mode=elevenlabs")
		}
		if cfg.Speech.Endpoint == "" {
			return errors.New("speech.endpoint must be set when mode=elevenlabs")
		}
	}
	if cfg.Podcast.ShowName == "" {
		return errors.New("podcast.show_name must not be empty")
	}
	if len(cfg.Podcast.NamePool) < 7 {
		return errors.New("podcast.name_pool must hold at least 7 names (4 hosts + 3 guests)")
	}
	if cfg.Podcast.PageDelayMS < 0 {
		return errors.New("podcast.page_delay_ms must be >= 0")
	}
	return nil
}
