package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. PHUB_ENDPOINT
const EnvPrefix = "PHUB"

// Load merges the global config file, the project config file and PHUB_*
// environment variables over the defaults. A non-empty path replaces both
// files and must exist.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if err := mergeFile(v, path); err != nil {
			return nil, err
		}
	} else {
		for _, p := range []string{GlobalConfigPath(), ProjectConfigPath()} {
			if _, err := os.Stat(p); os.IsNotExist(err) {
				continue
			}
			if err := mergeFile(v, p); err != nil {
				return nil, err
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("endpoint", d.Endpoint)
	v.SetDefault("invite_url_base", d.InviteURLBase)
	v.SetDefault("request_timeout", d.RequestTimeout)
	v.SetDefault("cache_max_age", d.CacheMaxAge)
	v.SetDefault("data_dir", d.DataDir)
	v.SetDefault("log_file", d.LogFile)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("theme", d.Theme)
}

func mergeFile(v *viper.Viper, path string) error {
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	return v.MergeInConfig()
}

// GlobalConfigPath returns the per-user config file
func GlobalConfigPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "phub", "config.yaml")
}

// ProjectConfigPath returns the config file in the working directory
func ProjectConfigPath() string {
	cwd, _ := os.Getwd()
	return filepath.Join(cwd, ".phub.yaml")
}
