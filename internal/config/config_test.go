package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalYAML = `
zotero:
  id: "12345"
  api_key: secret-key
arxiv:
  query: cs.AI+cs.CV
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func load(t *testing.T, yml string) (*Config, error) {
	t.Helper()
	dir := t.TempDir()
	return Load(Options{
		File:    writeFile(t, dir, "paperfeed.yml", yml),
		EnvFile: filepath.Join(dir, "missing.env"),
	})
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(t, minimalYAML)
	require.NoError(t, err)

	assert.Equal(t, "12345", cfg.Zotero.ID)
	assert.Equal(t, "user", cfg.Zotero.LibraryType)
	assert.Equal(t, "log", cfg.Corpus.Decay)
	assert.Equal(t, 100, cfg.Arxiv.Limit())
	assert.True(t, cfg.Arxiv.LLMAffiliations)
	assert.Equal(t, "ollama", cfg.Embedding.Provider)
	assert.Equal(t, 32, cfg.Embedding.BatchSize)
	assert.Equal(t, "local", cfg.Summarize.Backend)
	assert.Equal(t, 3*time.Minute, cfg.Summarize.Timeout)
	assert.Equal(t, "terminal", cfg.Notify.Sink)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.SendEmpty)
	assert.NotEmpty(t, cfg.File)
}

func TestLoad_MaxPapers(t *testing.T) {
	tests := []struct {
		value   string
		want    int
		wantErr bool
	}{
		{"all", 0, false},
		{"ALL", 0, false},
		{"25", 25, false},
		{"0", 0, false},
		{"-3", 0, true},
		{"lots", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			cfg, err := load(t, minimalYAML+"  max_papers: \""+tt.value+"\"\n")
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalid)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.Arxiv.Limit())
		})
	}
}

func TestLoad_NumericMaxPapers(t *testing.T) {
	cfg, err := load(t, minimalYAML+"  max_papers: 7\n")
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Arxiv.Limit())
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("PAPERFEED_ZOTERO_API_KEY", "from-env")
	t.Setenv("PAPERFEED_SUMMARIZE_LANGUAGE", "zh")
	t.Setenv("PAPERFEED_SEND_EMPTY", "true")

	cfg, err := load(t, minimalYAML)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Zotero.APIKey)
	assert.Equal(t, "zh", cfg.Summarize.Language)
	assert.True(t, cfg.SendEmpty)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := writeFile(t, dir, ".env", "PAPERFEED_ARXIV_QUERY=math.CO\n")
	cfgFile := writeFile(t, dir, "paperfeed.yml", "corpus:\n  file: lib.json\n")
	// godotenv does not unset what it loads.
	t.Setenv("PAPERFEED_ARXIV_QUERY", "")
	os.Unsetenv("PAPERFEED_ARXIV_QUERY")

	cfg, err := Load(Options{File: cfgFile, EnvFile: envFile})
	require.NoError(t, err)
	assert.Equal(t, "math.CO", cfg.Arxiv.Query)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(Options{File: filepath.Join(t.TempDir(), "nope.yml"), EnvFile: filepath.Join(t.TempDir(), "x.env")})
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		extra string
	}{
		{"bad decay", "corpus:\n  decay: cubic\n"},
		{"remote without key", "summarize:\n  backend: remote\n"},
		{"openai without key", "embedding:\n  provider: openai\n"},
		{"feishu without webhook", "notify:\n  sink: feishu\n"},
		{"email without recipients", "notify:\n  sink: email\n  email:\n    host: smtp.example.com\n    from: me@example.com\n"},
		{"unknown sink", "notify:\n  sink: pigeon\n"},
		{"bad log level", "log:\n  level: loud\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := load(t, minimalYAML+tt.extra)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestValidate_NoCorpusSource(t *testing.T) {
	_, err := load(t, "arxiv:\n  query: cs.AI\n")
	assert.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, err.Error(), "no corpus source")
}

func TestValidate_RemoteBackendWithKey(t *testing.T) {
	cfg, err := load(t, minimalYAML+"summarize:\n  backend: remote\n  api_key: sk-x\n  concurrency: 4\n")
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Summarize.Concurrency)
}

func TestRedacted(t *testing.T) {
	cfg, err := load(t, minimalYAML+"notify:\n  sink: feishu\n  feishu:\n    webhook: https://open.feishu.cn/hook/x\n    secret: s\n")
	require.NoError(t, err)

	r := cfg.Redacted()
	assert.Equal(t, redacted, r.Zotero.APIKey)
	assert.Equal(t, redacted, r.Notify.Feishu.Webhook)
	assert.Equal(t, redacted, r.Notify.Feishu.Secret)
	assert.Empty(t, r.Summarize.APIKey)
	assert.Equal(t, "secret-key", cfg.Zotero.APIKey)
}

func TestDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")
	assert.Equal(t, "/custom/config/paperfeed", Dir())
}
