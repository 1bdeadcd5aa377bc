package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultRepo       = "kubefleet-dev/kubefleet"
	DefaultBaseURL    = "https://api.github.com"
	DefaultInterval   = 30 * time.Second
	DefaultRerunDelay = time.Second
	DefaultTimeout    = 30 * time.Second
)

type Config struct {
	GitHub struct {
		BaseURL string        `yaml:"base_url"`
		Token   string        `yaml:"token"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"github"`

	Repo string `yaml:"repo"`

	Retry struct {
		PollInterval time.Duration `yaml:"poll_interval"`
		RerunDelay   time.Duration `yaml:"rerun_delay"`
	} `yaml:"retry"`

	Cache struct {
		Path string `yaml:"path"`
	} `yaml:"cache"`
}

// Load builds the configuration from defaults, the optional YAML file and
// environment overrides, in that order. Token may legitimately be empty
// here; credential resolution falls back to a gh session at startup.
func Load(path string) (Config, error) {
	var c Config

	c.GitHub.BaseURL = DefaultBaseURL
	c.GitHub.Timeout = DefaultTimeout
	c.Repo = DefaultRepo
	c.Retry.PollInterval = DefaultInterval
	c.Retry.RerunDelay = DefaultRerunDelay

	if path != "" {
		if b, err := os.ReadFile(path); err == nil {
			if err := yaml.Unmarshal(b, &c); err != nil {
				return c, err
			}
		}
	}

	if v := os.Getenv("GITHUB_API_URL"); v != "" {
		c.GitHub.BaseURL = v
	}

	if v := os.Getenv("GITHUB_TOKEN"); v != "" {
		c.GitHub.Token = v
	}

	if v := os.Getenv("CHECKRETRY_REPO"); v != "" {
		c.Repo = v
	}

	if v := os.Getenv("CHECKRETRY_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Retry.PollInterval = d
		}
	}

	if v := os.Getenv("CHECKRETRY_RERUN_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Retry.RerunDelay = d
		}
	}

	if v := os.Getenv("CHECKRETRY_CACHE"); v != "" {
		c.Cache.Path = v
	}

	if c.GitHub.BaseURL == "" {
		c.GitHub.BaseURL = DefaultBaseURL
	}

	if c.Retry.PollInterval <= 0 {
		c.Retry.PollInterval = DefaultInterval
	}

	if c.Retry.RerunDelay < 0 {
		c.Retry.RerunDelay = DefaultRerunDelay
	}

	if c.GitHub.Timeout <= 0 {
		c.GitHub.Timeout = DefaultTimeout
	}

	if c.Repo == "" {
		return c, errors.New("repository is required (config `repo` or CHECKRETRY_REPO)")
	}

	c.Cache.Path = expandHome(c.Cache.Path)

	return c, nil
}

func expandHome(p string) string {
	if strings.HasPrefix(p, "~/") {
		if h, _ := os.UserHomeDir(); h != "" {
			return h + p[1:]
		}
	}
	return p
}
