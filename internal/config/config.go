package config

import "github.com/spf13/viper"

// Config holds all runtime configuration for a proofreel run.
// Values are populated from .proofreel.yaml, PROOFREEL_* env vars, and CLI
// flags.
type Config struct {
	AnthropicAPIKey         string `mapstructure:"anthropic_api_key"`
	Model                   string `mapstructure:"model"`
	OutputDir               string `mapstructure:"output_dir"`
	MaxAttempts             int    `mapstructure:"max_attempts"`
	MaxConcurrentScenes     int    `mapstructure:"max_concurrent_scenes"`
	ExecutionTimeoutSeconds int    `mapstructure:"execution_timeout_seconds"`
	Strict                  bool   `mapstructure:"strict"`
	ManimPath               string `mapstructure:"manim_path"`
	FFmpegPath              string `mapstructure:"ffmpeg_path"`
	FFprobePath             string `mapstructure:"ffprobe_path"`
	TTSPath                 string `mapstructure:"tts_path"`
	Quality                 string `mapstructure:"quality"`
	Language                string `mapstructure:"language"`
	Verbose                 bool   `mapstructure:"verbose"`
}

// Load reads configuration from viper, applying built-in defaults for any
// values not set by config file, environment, or flags.
func Load() Config {
	viper.SetDefault("anthropic_api_key", "")
	viper.SetDefault("model", "")
	viper.SetDefault("output_dir", "outputs")
	viper.SetDefault("max_attempts", 3)
	viper.SetDefault("max_concurrent_scenes", 2)
	viper.SetDefault("execution_timeout_seconds", 60)
	viper.SetDefault("strict", false)
	viper.SetDefault("manim_path", "manim")
	viper.SetDefault("ffmpeg_path", "ffmpeg")
	viper.SetDefault("ffprobe_path", "ffprobe")
	viper.SetDefault("tts_path", "gtts-cli")
	viper.SetDefault("quality", "medium")
	viper.SetDefault("language", "en")
	viper.SetDefault("verbose", false)

	// The upstream convention for the key is the bare ANTHROPIC_API_KEY
	// variable; accept it alongside the prefixed form.
	_ = viper.BindEnv("anthropic_api_key", "PROOFREEL_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY")

	var cfg Config
	_ = viper.Unmarshal(&cfg)
	return cfg
}
