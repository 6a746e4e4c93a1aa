package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())
	for _, k := range []string{"PORT", "OPENAI_MODEL", "BRAND_NAME", "PERSONA_NAME", "DEDUP_TTL", "SESSION_TTL", "KNOWLEDGE_BASE_PATH"} {
		t.Setenv(k, "")
	}

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", c.Port)
	assert.Equal(t, "gpt-4o-mini", c.OpenAIModel)
	assert.Equal(t, "v20.0", c.GraphVersion)
	assert.Equal(t, "TRÍVIA", c.BrandName)
	assert.Equal(t, "Mel", c.PersonaName)
	assert.Equal(t, 15*time.Minute, c.DedupTTL)
	assert.Equal(t, 40*time.Minute, c.SessionTTL)
	assert.Equal(t, 6000, c.KnowledgeMaxChars)
	assert.Empty(t, c.KnowledgeBase)
}

func TestLoad_Overrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("PORT", "9090")
	t.Setenv("SESSION_TTL", "5m")
	t.Setenv("DEDUP_TTL", "soon")
	t.Setenv("WHATSAPP_SEND_RPS", "7.5")
	t.Setenv("BRAND_NAME", "Acme")
	t.Setenv("KNOWLEDGE_BASE_PATH", "")

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", c.Port)
	assert.Equal(t, 5*time.Minute, c.SessionTTL)
	assert.Equal(t, 15*time.Minute, c.DedupTTL)
	assert.InDelta(t, 7.5, c.SendRPS, 0.0001)
	assert.Equal(t, "Acme", c.BrandName)
}

func TestLoad_CollectsWarnings(t *testing.T) {
	chdir(t, t.TempDir())
	for _, k := range []string{"VERIFY_TOKEN", "WHATSAPP_TOKEN", "PHONE_NUMBER_ID", "OPENAI_API_KEY", "KNOWLEDGE_BASE_PATH"} {
		t.Setenv(k, "")
	}
	t.Setenv("SESSION_TTL", "forever")
	t.Setenv("KB_MAX_CHARS", "lots")

	c, err := Load()
	require.NoError(t, err)
	assert.Contains(t, c.Warnings, "missing env: VERIFY_TOKEN / WHATSAPP_TOKEN / PHONE_NUMBER_ID")
	assert.Contains(t, c.Warnings, "missing env: OPENAI_API_KEY, chat replies will use the offline line")
	assert.Contains(t, c.Warnings, `SESSION_TTL="forever" is not a duration, using default 40m0s`)
	assert.Contains(t, c.Warnings, `KB_MAX_CHARS="lots" is not an integer, using default 6000`)
	assert.Equal(t, 40*time.Minute, c.SessionTTL)
}

func TestLoad_NoWarningsWhenConfigured(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("VERIFY_TOKEN", "v")
	t.Setenv("WHATSAPP_TOKEN", "w")
	t.Setenv("PHONE_NUMBER_ID", "p")
	t.Setenv("OPENAI_API_KEY", "k")
	for _, k := range []string{"KNOWLEDGE_BASE_PATH", "SESSION_TTL", "DEDUP_TTL", "SWEEP_INTERVAL", "KB_MAX_CHARS", "WHATSAPP_SEND_RPS"} {
		t.Setenv(k, "")
	}

	c, err := Load()
	require.NoError(t, err)
	assert.Empty(t, c.Warnings)
}

func TestLoad_KnowledgeBaseTruncationWarns(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	path := filepath.Join(dir, "kb.md")
	require.NoError(t, os.WriteFile(path, []byte("Planos: Essencial e Pro."), 0o600))
	t.Setenv("KNOWLEDGE_BASE_PATH", path)
	t.Setenv("KB_MAX_CHARS", "7")

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "Planos:", c.KnowledgeBase)
	assert.Contains(t, c.Warnings, "knowledge base truncated from 24 to 7 chars")
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("PERSONA_NAME", "")
	require.NoError(t, os.Unsetenv("PERSONA_NAME"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("PERSONA_NAME=Lia\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("PERSONA_NAME") })

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "Lia", c.PersonaName)
}

func TestLoadKnowledgeBase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kb.md")
	require.NoError(t, os.WriteFile(path, []byte("  Planos: Essencial e Pro. Integração com WhatsApp Cloud API.  \n"), 0o600))

	kb, err := LoadKnowledgeBase(path, 0)
	require.NoError(t, err)
	assert.Equal(t, "Planos: Essencial e Pro. Integração com WhatsApp Cloud API.", kb)

	kb, err = LoadKnowledgeBase(path, 7)
	require.NoError(t, err)
	assert.Equal(t, "Planos:", kb)

	_, err = LoadKnowledgeBase(filepath.Join(t.TempDir(), "missing.md"), 10)
	assert.Error(t, err)
}

func TestLoad_KnowledgeBaseMissingFile(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("KNOWLEDGE_BASE_PATH", "/nonexistent/kb.md")

	_, err := Load()
	assert.Error(t, err)
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
