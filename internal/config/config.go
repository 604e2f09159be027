// Package config loads the run configuration from paperfeed.yml, the
// environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	// ConfigName is the config file name without extension.
	ConfigName = "paperfeed"
	// ConfigDir is the directory name under XDG_CONFIG_HOME.
	ConfigDir = "paperfeed"
	// EnvPrefix prefixes every environment override, e.g. PAPERFEED_ZOTERO_API_KEY.
	EnvPrefix = "PAPERFEED"

	// AllPapers is the max_papers sentinel for "no limit".
	AllPapers = "all"
)

// Config is built once at run start and passed down read-only.
type Config struct {
	Zotero    ZoteroConfig    `mapstructure:"zotero" yaml:"zotero" json:"zotero"`
	Corpus    CorpusConfig    `mapstructure:"corpus" yaml:"corpus" json:"corpus"`
	Arxiv     ArxivConfig     `mapstructure:"arxiv" yaml:"arxiv" json:"arxiv"`
	Embedding EmbeddingConfig `mapstructure:"embedding" yaml:"embedding" json:"embedding"`
	Summarize SummarizeConfig `mapstructure:"summarize" yaml:"summarize" json:"summarize"`
	Notify    NotifyConfig    `mapstructure:"notify" yaml:"notify" json:"notify"`
	Log       LogConfig       `mapstructure:"log" yaml:"log" json:"log"`

	// SendEmpty sends a "no new papers" digest instead of staying silent.
	SendEmpty bool `mapstructure:"send_empty" yaml:"send_empty" json:"send_empty"`

	// File is the config file that was read, if any.
	File string `mapstructure:"-" yaml:"-" json:"-"`
}

type ZoteroConfig struct {
	ID          string `mapstructure:"id" yaml:"id" json:"id"`
	APIKey      string `mapstructure:"api_key" yaml:"api_key" json:"api_key"`
	LibraryType string `mapstructure:"library_type" yaml:"library_type" json:"library_type" validate:"oneof=user group"`
	LocalDB     string `mapstructure:"local_db" yaml:"local_db" json:"local_db"`
}

type CorpusConfig struct {
	Ignore       string `mapstructure:"ignore" yaml:"ignore" json:"ignore"`
	File         string `mapstructure:"file" yaml:"file" json:"file"`
	Decay        string `mapstructure:"decay" yaml:"decay" json:"decay" validate:"oneof=log exponential linear"`
	HalfLife     int    `mapstructure:"half_life" yaml:"half_life" json:"half_life" validate:"min=1"`
	AllowPartial bool   `mapstructure:"allow_partial" yaml:"allow_partial" json:"allow_partial"`
}

type ArxivConfig struct {
	Query     string `mapstructure:"query" yaml:"query" json:"query" validate:"required"`
	MaxPapers string `mapstructure:"max_papers" yaml:"max_papers" json:"max_papers" validate:"maxpapers"`
	Debug     bool   `mapstructure:"debug" yaml:"debug" json:"debug"`
	Enrich    bool   `mapstructure:"enrich" yaml:"enrich" json:"enrich"`
	Workers   int    `mapstructure:"workers" yaml:"workers" json:"workers" validate:"min=1"`

	// LLMAffiliations asks the summarization backend for affiliations when
	// the HTML rendering lists none.
	LLMAffiliations bool `mapstructure:"llm_affiliations" yaml:"llm_affiliations" json:"llm_affiliations"`
}

// Limit returns max_papers as a count; 0 means all.
func (a ArxivConfig) Limit() int {
	n, _ := parseMaxPapers(a.MaxPapers)
	return n
}

type EmbeddingConfig struct {
	Provider   string `mapstructure:"provider" yaml:"provider" json:"provider" validate:"oneof=ollama openai"`
	Model      string `mapstructure:"model" yaml:"model" json:"model"`
	URL        string `mapstructure:"url" yaml:"url" json:"url" validate:"omitempty,url"`
	APIKey     string `mapstructure:"api_key" yaml:"api_key" json:"api_key" validate:"required_if=Provider openai"`
	Dimensions int    `mapstructure:"dimensions" yaml:"dimensions" json:"dimensions" validate:"min=0"`
	BatchSize  int    `mapstructure:"batch_size" yaml:"batch_size" json:"batch_size" validate:"min=1"`
	Workers    int    `mapstructure:"workers" yaml:"workers" json:"workers" validate:"min=1"`
}

type SummarizeConfig struct {
	Backend           string        `mapstructure:"backend" yaml:"backend" json:"backend" validate:"oneof=local remote"`
	Model             string        `mapstructure:"model" yaml:"model" json:"model"`
	URL               string        `mapstructure:"url" yaml:"url" json:"url" validate:"omitempty,url"`
	APIKey            string        `mapstructure:"api_key" yaml:"api_key" json:"api_key" validate:"required_if=Backend remote"`
	Language          string        `mapstructure:"language" yaml:"language" json:"language"`
	Timeout           time.Duration `mapstructure:"timeout" yaml:"timeout" json:"timeout" validate:"min=0"`
	ContextWindow     int           `mapstructure:"context_window" yaml:"context_window" json:"context_window" validate:"min=0"`
	Concurrency       int           `mapstructure:"concurrency" yaml:"concurrency" json:"concurrency" validate:"min=0"`
	MaxRetries        int           `mapstructure:"max_retries" yaml:"max_retries" json:"max_retries" validate:"min=0"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute" yaml:"requests_per_minute" json:"requests_per_minute" validate:"min=0"`
}

type NotifyConfig struct {
	Sink   string       `mapstructure:"sink" yaml:"sink" json:"sink" validate:"oneof=feishu slack email sheets terminal"`
	Feishu FeishuConfig `mapstructure:"feishu" yaml:"feishu" json:"feishu"`
	Slack  SlackConfig  `mapstructure:"slack" yaml:"slack" json:"slack"`
	Email  EmailConfig  `mapstructure:"email" yaml:"email" json:"email"`
	Sheets SheetsConfig `mapstructure:"sheets" yaml:"sheets" json:"sheets"`
}

type FeishuConfig struct {
	Webhook string `mapstructure:"webhook" yaml:"webhook" json:"webhook" validate:"omitempty,url"`
	Secret  string `mapstructure:"secret" yaml:"secret" json:"secret"`
}

type SlackConfig struct {
	Webhook string `mapstructure:"webhook" yaml:"webhook" json:"webhook" validate:"omitempty,url"`
}

type EmailConfig struct {
	Host     string   `mapstructure:"host" yaml:"host" json:"host"`
	Port     int      `mapstructure:"port" yaml:"port" json:"port" validate:"min=0,max=65535"`
	Username string   `mapstructure:"username" yaml:"username" json:"username"`
	Password string   `mapstructure:"password" yaml:"password" json:"password"`
	From     string   `mapstructure:"from" yaml:"from" json:"from" validate:"omitempty,email"`
	To       []string `mapstructure:"to" yaml:"to" json:"to" validate:"dive,email"`
}

type SheetsConfig struct {
	Credentials   string `mapstructure:"credentials" yaml:"credentials" json:"credentials"`
	SpreadsheetID string `mapstructure:"spreadsheet_id" yaml:"spreadsheet_id" json:"spreadsheet_id"`
	Range         string `mapstructure:"range" yaml:"range" json:"range"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level" json:"level" validate:"oneof=trace debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" json:"format" validate:"oneof=auto console json"`
}

// defaults lists every key so that environment overrides reach Unmarshal.
var defaults = map[string]any{
	"zotero.id":                     "",
	"zotero.api_key":                "",
	"zotero.library_type":           "user",
	"zotero.local_db":               "",
	"corpus.ignore":                 "",
	"corpus.file":                   "",
	"corpus.decay":                  "log",
	"corpus.half_life":              50,
	"corpus.allow_partial":          false,
	"arxiv.query":                   "",
	"arxiv.max_papers":              "100",
	"arxiv.debug":                   false,
	"arxiv.enrich":                  true,
	"arxiv.workers":                 4,
	"arxiv.llm_affiliations":        true,
	"embedding.provider":            "ollama",
	"embedding.model":               "",
	"embedding.url":                 "",
	"embedding.api_key":             "",
	"embedding.dimensions":          0,
	"embedding.batch_size":          32,
	"embedding.workers":             2,
	"summarize.backend":             "local",
	"summarize.model":               "",
	"summarize.url":                 "",
	"summarize.api_key":             "",
	"summarize.language":            "English",
	"summarize.timeout":             "3m",
	"summarize.context_window":      0,
	"summarize.concurrency":         0,
	"summarize.max_retries":         3,
	"summarize.requests_per_minute": 0,
	"send_empty":                    false,
	"notify.sink":                   "terminal",
	"notify.feishu.webhook":         "",
	"notify.feishu.secret":          "",
	"notify.slack.webhook":          "",
	"notify.email.host":             "",
	"notify.email.port":             587,
	"notify.email.username":         "",
	"notify.email.password":         "",
	"notify.email.from":             "",
	"notify.email.to":               []string{},
	"notify.sheets.credentials":     "",
	"notify.sheets.spreadsheet_id":  "",
	"notify.sheets.range":           "",
	"log.level":                     "info",
	"log.format":                    "auto",
}

// Options locates the configuration sources.
type Options struct {
	File    string // Explicit config file; empty searches the default paths
	EnvFile string // .env file; empty means ".env" in the current directory
}

// Dir returns the per-user config directory, respecting XDG_CONFIG_HOME.
func Dir() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, ConfigDir)
}

// Load reads .env, then the config file, then PAPERFEED_* environment
// overrides, and validates the result. A missing config file is fine when
// none was named explicitly.
func Load(opts Options) (*Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading %s: %w", envFile, err)
	}

	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.File != "" {
		v.SetConfigFile(opts.File)
	} else {
		v.SetConfigName(ConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir := Dir(); dir != "" {
			v.AddConfigPath(dir)
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if opts.File != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()
	cfg.Arxiv.MaxPapers = strings.TrimSpace(strings.ToLower(cfg.Arxiv.MaxPapers))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterValidation("maxpapers", func(fl validator.FieldLevel) bool {
		_, err := parseMaxPapers(fl.Field().String())
		return err == nil
	})
	return v
}

// Validate checks field constraints and cross-field requirements.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, len(verrs))
			for i, fe := range verrs {
				msgs[i] = fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag())
			}
			return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	if c.Corpus.File == "" && c.Zotero.LocalDB == "" && (c.Zotero.ID == "" || c.Zotero.APIKey == "") {
		return fmt.Errorf("%w: no corpus source; set zotero.id and zotero.api_key, zotero.local_db, or corpus.file", ErrInvalid)
	}

	n := c.Notify
	var missing string
	switch n.Sink {
	case "feishu":
		if n.Feishu.Webhook == "" {
			missing = "notify.feishu.webhook"
		}
	case "slack":
		if n.Slack.Webhook == "" {
			missing = "notify.slack.webhook"
		}
	case "email":
		if n.Email.Host == "" || n.Email.From == "" || len(n.Email.To) == 0 {
			missing = "notify.email.host, from and to"
		}
	case "sheets":
		if n.Sheets.Credentials == "" || n.Sheets.SpreadsheetID == "" {
			missing = "notify.sheets.credentials and spreadsheet_id"
		}
	}
	if missing != "" {
		return fmt.Errorf("%w: sink %s requires %s", ErrInvalid, n.Sink, missing)
	}
	return nil
}

// parseMaxPapers accepts "all", empty or 0 for no limit, or a positive count.
func parseMaxPapers(s string) (int, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" || s == AllPapers {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("max_papers must be %q or a non-negative integer, got %q", AllPapers, s)
	}
	return n, nil
}

const redacted = "********"

// Redacted returns a copy with secrets masked, for display.
func (c Config) Redacted() Config {
	mask := func(s *string) {
		if *s != "" {
			*s = redacted
		}
	}
	mask(&c.Zotero.APIKey)
	mask(&c.Embedding.APIKey)
	mask(&c.Summarize.APIKey)
	mask(&c.Notify.Feishu.Secret)
	mask(&c.Notify.Feishu.Webhook)
	mask(&c.Notify.Slack.Webhook)
	mask(&c.Notify.Email.Password)
	return c
}
