package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Summarizer strategy names.
const (
	SummarizerAI    = "ai"
	SummarizerPlain = "plain"
)

type Config struct {
	DiscordToken string `yaml:"discord_token"`
	GitHubToken  string `yaml:"github_token"`
	// Repo is the issue target as "owner/repo".
	Repo string `yaml:"repo"`
	// OwnerUserID is the single Discord user allowed to issue commands.
	OwnerUserID string `yaml:"owner_user_id"`

	Summarizer  string `yaml:"summarizer"`
	OpenAIKey   string `yaml:"openai_key"`
	OpenAIModel string `yaml:"openai_model"`

	// DBPath enables the persisted thread-to-issue index when set.
	DBPath string `yaml:"db_path"`

	// NoticeDelay overrides the per-strategy default for self-deleting
	// notices when non-zero.
	NoticeDelay Duration `yaml:"notice_delay"`
}

// Duration accepts yaml values like "30s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// Load reads the optional yaml config file, then applies environment
// overrides. A .env file next to the process is honored via godotenv.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	applyEnv(&cfg)

	if cfg.Summarizer == "" {
		if cfg.OpenAIKey != "" {
			cfg.Summarizer = SummarizerAI
		} else {
			cfg.Summarizer = SummarizerPlain
		}
	}

	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("DISCORD_TOKEN"); v != "" {
		cfg.DiscordToken = v
	}
	if v := os.Getenv("GITHUB_TOKEN"); v != "" {
		cfg.GitHubToken = v
	}
	if v := os.Getenv("GITHUB_REPO"); v != "" {
		cfg.Repo = v
	}
	if v := os.Getenv("OWNER_USER_ID"); v != "" {
		cfg.OwnerUserID = v
	}
	if v := os.Getenv("SUMMARIZER"); v != "" {
		cfg.Summarizer = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.OpenAIKey = v
	}
	if v := os.Getenv("OPENAI_MODEL"); v != "" {
		cfg.OpenAIModel = v
	}
	if v := os.Getenv("TRACKER_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("NOTICE_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.NoticeDelay = Duration(d)
		}
	}
}

func (c *Config) Validate() error {
	if c.DiscordToken == "" {
		return fmt.Errorf("DISCORD_TOKEN is required")
	}
	if c.GitHubToken == "" {
		return fmt.Errorf("GITHUB_TOKEN is required")
	}
	if c.OwnerUserID == "" {
		return fmt.Errorf("OWNER_USER_ID is required")
	}
	if _, _, err := c.SplitRepo(); err != nil {
		return err
	}
	if c.Summarizer != SummarizerAI && c.Summarizer != SummarizerPlain {
		return fmt.Errorf("unknown summarizer %q (want %q or %q)", c.Summarizer, SummarizerAI, SummarizerPlain)
	}
	if c.Summarizer == SummarizerAI && c.OpenAIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required for the ai summarizer")
	}
	return nil
}

func (c *Config) SplitRepo() (owner, repo string, err error) {
	parts := strings.SplitN(c.Repo, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("GITHUB_REPO must be owner/repo, got %q", c.Repo)
	}
	return parts[0], parts[1], nil
}
