package config

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

var (
	// GlobalConfig holds the global configuration instance
	GlobalConfig *Config

	// vip is the viper instance the configuration was loaded from,
	// kept so WatchConfig observes the same file.
	vip *viper.Viper
)

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath("../configs")
		v.AddConfigPath("../../configs")
		v.AddConfigPath("/etc/shopflow")
	}

	// Environment variables, e.g. SHOPFLOW_BROKER_URL, SHOPFLOW_DATABASE_PASSWORD
	v.SetEnvPrefix("SHOPFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			fmt.Printf("Config file not found, using defaults and environment variables\n")
		} else {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		fmt.Printf("Using config file: %s\n", v.ConfigFileUsed())
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.SetDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	GlobalConfig = config
	vip = v

	return config, nil
}

// MustLoadConfig loads configuration and panics on error
func MustLoadConfig(configPath string) *Config {
	config, err := LoadConfig(configPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}
	return config
}

// GetConfig returns the global configuration instance
func GetConfig() *Config {
	if GlobalConfig == nil {
		panic("Config not loaded. Call LoadConfig first.")
	}
	return GlobalConfig
}

// WatchConfig watches the loaded config file and refreshes GlobalConfig when
// it changes. An edit that fails to unmarshal or validate is ignored and the
// last good configuration stays in effect.
func WatchConfig(callback func(*Config)) {
	if vip == nil {
		return
	}

	vip.WatchConfig()
	vip.OnConfigChange(func(e fsnotify.Event) {
		fmt.Printf("Config file changed: %s\n", e.Name)

		fresh := &Config{}
		if err := vip.Unmarshal(fresh); err != nil {
			fmt.Printf("Ignoring config change: %v\n", err)
			return
		}
		fresh.SetDefaults()
		if err := fresh.Validate(); err != nil {
			fmt.Printf("Ignoring invalid config change: %v\n", err)
			return
		}

		GlobalConfig = fresh
		if callback != nil {
			callback(fresh)
		}
	})
}
