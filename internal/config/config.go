// Package config reads the service settings from the environment, after an
// optional .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

type Config struct {
	Port string

	VerifyToken   string
	WhatsAppToken string
	PhoneNumberID string
	AppSecret     string
	GraphVersion  string
	SendRPS       float64

	OpenAIKey     string
	OpenAIModel   string
	OpenAIBaseURL string

	CommercialRecipient string
	CommercialContact   string
	BrandName           string
	PersonaName         string

	KnowledgeBasePath string
	KnowledgeMaxChars int
	// KnowledgeBase is the file content, already cut to KnowledgeMaxChars.
	KnowledgeBase string

	DedupTTL      time.Duration
	SessionTTL    time.Duration
	SweepInterval time.Duration

	RedisURL    string
	DatabaseURL string

	LogLevel  string
	LogFormat string

	// Warnings collects degraded-mode notices found while loading.
	Warnings []string
}

// Load never fails on missing secrets; it records a warning and the service
// runs degraded. Only an unreadable knowledge base file is an error. Warnings
// are returned in Config.Warnings for the caller to log.
func Load() (Config, error) {
	var l loader
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		l.warnf(".env not loaded: %v", err)
	}

	c := Config{
		Port: l.env("PORT", "8080"),

		VerifyToken:   l.env("VERIFY_TOKEN", ""),
		WhatsAppToken: l.env("WHATSAPP_TOKEN", ""),
		PhoneNumberID: l.env("PHONE_NUMBER_ID", ""),
		AppSecret:     l.env("WHATSAPP_APP_SECRET", ""),
		GraphVersion:  l.env("GRAPH_VERSION", "v20.0"),
		SendRPS:       l.envFloat("WHATSAPP_SEND_RPS", 20),

		OpenAIKey:     l.env("OPENAI_API_KEY", ""),
		OpenAIModel:   l.env("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL: l.env("OPENAI_BASE_URL", ""),

		CommercialRecipient: l.env("COMMERCIAL_RECIPIENT_ID", ""),
		CommercialContact:   l.env("COMMERCIAL_CONTACT", ""),
		BrandName:           l.env("BRAND_NAME", "TRÍVIA"),
		PersonaName:         l.env("PERSONA_NAME", "Mel"),

		KnowledgeBasePath: l.env("KNOWLEDGE_BASE_PATH", ""),
		KnowledgeMaxChars: l.envInt("KB_MAX_CHARS", 6000),

		DedupTTL:      l.envDuration("DEDUP_TTL", 15*time.Minute),
		SessionTTL:    l.envDuration("SESSION_TTL", 40*time.Minute),
		SweepInterval: l.envDuration("SWEEP_INTERVAL", time.Minute),

		RedisURL:    l.env("REDIS_URL", ""),
		DatabaseURL: l.env("DATABASE_URL", ""),

		LogLevel:  l.env("LOG_LEVEL", "info"),
		LogFormat: l.env("LOG_FORMAT", "json"),
	}

	if c.VerifyToken == "" || c.WhatsAppToken == "" || c.PhoneNumberID == "" {
		l.warnf("missing env: VERIFY_TOKEN / WHATSAPP_TOKEN / PHONE_NUMBER_ID")
	}
	if c.OpenAIKey == "" {
		l.warnf("missing env: OPENAI_API_KEY, chat replies will use the offline line")
	}

	if c.KnowledgeBasePath != "" {
		kb, err := LoadKnowledgeBase(c.KnowledgeBasePath, 0)
		if err != nil {
			c.Warnings = l.warnings
			return c, err
		}
		if r := []rune(kb); c.KnowledgeMaxChars > 0 && len(r) > c.KnowledgeMaxChars {
			l.warnf("knowledge base truncated from %d to %d chars", len(r), c.KnowledgeMaxChars)
		}
		c.KnowledgeBase = truncate(kb, c.KnowledgeMaxChars)
	}
	c.Warnings = l.warnings
	return c, nil
}

// LoadKnowledgeBase reads path once and keeps at most maxChars runes.
func LoadKnowledgeBase(path string, maxChars int) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(err, "read knowledge base %s", path)
	}
	return truncate(strings.TrimSpace(string(b)), maxChars), nil
}

func truncate(s string, maxChars int) string {
	if r := []rune(s); maxChars > 0 && len(r) > maxChars {
		return string(r[:maxChars])
	}
	return s
}

// loader reads the environment and keeps every complaint for later.
type loader struct {
	warnings []string
}

func (l *loader) warnf(format string, args ...any) {
	l.warnings = append(l.warnings, fmt.Sprintf(format, args...))
}

func (l *loader) env(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func (l *loader) envInt(key string, def int) int {
	v := l.env(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		l.warnf("%s=%q is not an integer, using default %d", key, v, def)
		return def
	}
	return n
}

func (l *loader) envFloat(key string, def float64) float64 {
	v := l.env(key, "")
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		l.warnf("%s=%q is not a number, using default %g", key, v, def)
		return def
	}
	return f
}

func (l *loader) envDuration(key string, def time.Duration) time.Duration {
	v := l.env(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		l.warnf("%s=%q is not a duration, using default %s", key, v, def)
		return def
	}
	return d
}
