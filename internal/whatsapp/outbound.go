package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL    = "https://graph.facebook.com"
	DefaultAPIVersion = "v20.0"

	// MaxTextRunes is the Cloud API limit for a text body.
	MaxTextRunes = 4096
	maxErrorBody = 512
)

var ErrNotConfigured = errors.New("whatsapp: token or phone number id missing")

// APIError is a non-2xx answer from the Graph API.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("whatsapp api error: status=%d body=%s", e.Status, e.Body)
}

type Config struct {
	Token         string
	PhoneNumberID string
	APIVersion    string
	BaseURL       string
	// RPS paces outgoing requests; zero means unlimited.
	RPS     float64
	Timeout time.Duration
}

type Client struct {
	endpoint string
	token    string
	http     *http.Client
	limiter  *rate.Limiter
}

func NewClient(cfg Config) *Client {
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAPIVersion
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	limit := rate.Inf
	if cfg.RPS > 0 {
		limit = rate.Limit(cfg.RPS)
	}

	c := &Client{
		token:   strings.TrimSpace(cfg.Token),
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(limit, 1),
	}
	if id := strings.TrimSpace(cfg.PhoneNumberID); id != "" {
		c.endpoint = fmt.Sprintf("%s/%s/%s/messages", strings.TrimRight(cfg.BaseURL, "/"), cfg.APIVersion, id)
	}
	return c
}

// Send delivers text to a contact, split into chunks the API accepts. It
// stops at the first failed chunk.
func (c *Client) Send(ctx context.Context, to, text string) error {
	if c.token == "" || c.endpoint == "" {
		return ErrNotConfigured
	}
	for i, part := range SplitText(text, MaxTextRunes) {
		if err := c.limiter.Wait(ctx); err != nil {
			return errors.Wrap(err, "wait send slot")
		}
		if err := c.send(ctx, to, part); err != nil {
			return errors.Wrapf(err, "send chunk %d", i+1)
		}
	}
	return nil
}

func (c *Client) send(ctx context.Context, to, body string) error {
	msg := outboundText{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             "text",
	}
	msg.Text.Body = body

	b, err := json.Marshal(msg)
	if err != nil {
		return errors.Wrap(err, "marshal message")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(b))
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "post message")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{Status: resp.StatusCode, Body: string(respBody)}
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	zerolog.Ctx(ctx).Debug().Str("to", to).Int("runes", len([]rune(body))).Msg("whatsapp message sent")
	return nil
}

// SplitText cuts text into pieces of at most limit runes, preferring line
// breaks, then spaces, then a hard cut.
func SplitText(text string, limit int) []string {
	text = strings.TrimSpace(text)
	r := []rune(text)
	if limit <= 0 || len(r) <= limit {
		return []string{text}
	}

	var out []string
	for len(r) > limit {
		cut := lastIndex(r[:limit], func(x rune) bool { return x == '\n' })
		if cut <= 0 {
			cut = lastIndex(r[:limit], unicode.IsSpace)
		}
		if cut <= 0 {
			cut = limit
		}
		if part := strings.TrimSpace(string(r[:cut])); part != "" {
			out = append(out, part)
		}
		r = []rune(strings.TrimLeftFunc(string(r[cut:]), unicode.IsSpace))
	}
	if rest := strings.TrimSpace(string(r)); rest != "" {
		out = append(out, rest)
	}
	return out
}

func lastIndex(r []rune, f func(rune) bool) int {
	for i := len(r) - 1; i >= 0; i-- {
		if f(r[i]) {
			return i
		}
	}
	return -1
}
