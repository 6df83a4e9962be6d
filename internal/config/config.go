package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Mode      string        `mapstructure:"mode"`
	Port      int           `mapstructure:"port"`
	ReadLimit int64         `mapstructure:"read_limit"`
	Secret    string        `mapstructure:"secret"`

	GracePeriod       time.Duration `mapstructure:"grace_period"`
	ReconcileInterval time.Duration `mapstructure:"reconcile_interval"`

	VoiceCellSize  float64 `mapstructure:"voice_cell_size"`
	ProximityRange float64 `mapstructure:"proximity_range"`

	TeamSpaceSize    float64 `mapstructure:"team_space_size"`
	TeamSpaceSpacing float64 `mapstructure:"team_space_spacing"`

	DirectoryURL string `mapstructure:"directory_url"`

	LiveKitHost      string `mapstructure:"livekit_host"`
	LiveKitAPIKey    string `mapstructure:"livekit_api_key"`
	LiveKitAPISecret string `mapstructure:"livekit_api_secret"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("read_limit", 32768)
	v.SetDefault("grace_period", "5s")
	v.SetDefault("reconcile_interval", "300s")
	v.SetDefault("voice_cell_size", 400.0)
	v.SetDefault("proximity_range", 800.0)
	v.SetDefault("team_space_size", 600.0)
	v.SetDefault("team_space_spacing", 800.0)
	v.SetDefault("directory_url", "http://localhost:3000/api/teams")
	v.SetDefault("livekit_host", "http://localhost:7880")

	v.SetEnvPrefix("presence")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("⚠️ Config file not found (%s), using defaults\n", fileName)
	} else {
		fmt.Printf("✅ Loaded config: %s\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	fmt.Printf("🧩 Mode: %s | Port: %d | Grace: %s | Reconcile: %s\n",
		cfg.Mode, cfg.Port, cfg.GracePeriod, cfg.ReconcileInterval)
	if cfg.Secret == "" {
		fmt.Println("⚠️ No secret configured: credentials cannot be verified, all sessions will be anonymous")
	}
	return &cfg, nil
}
