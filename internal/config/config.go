package config

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/viper"

	"github.com/musiclite/musiclite/internal/platform"
)

type Config struct {
	Debug bool `mapstructure:"debug"`

	Lookup struct {
		BaseURL   string `mapstructure:"base_url"`
		RateLimit struct {
			RequestsPerSecond int `mapstructure:"requests_per_second"`
			BurstSize         int `mapstructure:"burst_size"`
		} `mapstructure:"rate_limit"`
		Timeout   int    `mapstructure:"timeout"`
		Retries   int    `mapstructure:"retries"`
		UserAgent string `mapstructure:"user_agent"`
	} `mapstructure:"lookup"`

	Storage struct {
		DatabasePath string `mapstructure:"database_path"`
		CacheDir     string `mapstructure:"cache_dir"`
		EnableWAL    bool   `mapstructure:"enable_wal"`
	} `mapstructure:"storage"`

	Library struct {
		MusicDir        string `mapstructure:"music_dir"`
		PageSize        int    `mapstructure:"page_size"`
		QuickScanLimit  int    `mapstructure:"quick_scan_limit"`
		FreshnessHours  int    `mapstructure:"freshness_hours"`
		RefreshInterval int    `mapstructure:"refresh_interval"`
		WatchEnabled    bool   `mapstructure:"watch_enabled"`
	} `mapstructure:"library"`

	Audio struct {
		SampleRate    int     `mapstructure:"sample_rate"`
		BufferSize    int     `mapstructure:"buffer_size"`
		DefaultVolume float64 `mapstructure:"default_volume"`
	} `mapstructure:"audio"`

	Search struct {
		MaxResults     int     `mapstructure:"max_results"`
		FuzzyThreshold float64 `mapstructure:"fuzzy_threshold"`
	} `mapstructure:"search"`
}

func Load(configPath string) (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		configDir, err := platform.GetConfigDir()
		if err != nil {
			return nil, err
		}
		viper.AddConfigPath(configDir)
		viper.AddConfigPath("./configs")
		viper.AddConfigPath(".")
	}

	viper.SetEnvPrefix("MUSICLITE")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := ensureDirectories(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func DefaultMobileConfig() *Config {
	setDefaults()

	cfg := &Config{}
	_ = viper.Unmarshal(cfg)

	dataDir, _ := platform.GetDataDir()
	cacheDir, _ := platform.GetCacheDir()

	cfg.Storage.DatabasePath = filepath.Join(dataDir, "music.db")
	cfg.Storage.CacheDir = cacheDir
	cfg.Audio.BufferSize = 16384

	return cfg
}

func setDefaults() {
	viper.SetDefault("debug", false)

	viper.SetDefault("lookup.base_url", "")
	viper.SetDefault("lookup.rate_limit.requests_per_second", 10)
	viper.SetDefault("lookup.rate_limit.burst_size", 5)
	viper.SetDefault("lookup.timeout", 30)
	viper.SetDefault("lookup.retries", 3)
	viper.SetDefault("lookup.user_agent", "MusicLite/1.0.0")

	dataDir, _ := platform.GetDataDir()
	cacheDir, _ := platform.GetCacheDir()
	musicDir, _ := platform.GetMusicDir()

	viper.SetDefault("storage.database_path", filepath.Join(dataDir, "music.db"))
	viper.SetDefault("storage.cache_dir", cacheDir)
	viper.SetDefault("storage.enable_wal", true)

	viper.SetDefault("library.music_dir", musicDir)
	viper.SetDefault("library.page_size", 100)
	viper.SetDefault("library.quick_scan_limit", 50)
	viper.SetDefault("library.freshness_hours", 24)
	viper.SetDefault("library.refresh_interval", 300)
	viper.SetDefault("library.watch_enabled", true)

	viper.SetDefault("audio.sample_rate", 44100)
	viper.SetDefault("audio.buffer_size", getDefaultBufferSize())
	viper.SetDefault("audio.default_volume", 0.7)

	viper.SetDefault("search.max_results", 100)
	viper.SetDefault("search.fuzzy_threshold", 0.6)
}

func getDefaultBufferSize() int {
	switch runtime.GOOS {
	case "windows", "darwin":
		return 8192
	default:
		return 16384
	}
}

func ensureDirectories(cfg *Config) error {
	dirs := []string{
		filepath.Dir(cfg.Storage.DatabasePath),
		cfg.Storage.CacheDir,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	return nil
}

func (c *Config) Save() error {
	configDir, err := platform.GetConfigDir()
	if err != nil {
		return err
	}

	configFile := filepath.Join(configDir, "config.yaml")
	return viper.WriteConfigAs(configFile)
}
