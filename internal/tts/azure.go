// Package tts synthesizes narration audio through the Azure Cognitive
// Services text-to-speech endpoint.
package tts

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/SulagnaSasmal/ppt-to-mp4-doc-automation/internal/domain"
)

const (
	outputFormat   = "audio-24khz-160kbitrate-mono-mp3"
	defaultTimeout = 60 * time.Second
)

// Options configures the Azure TTS client.
type Options struct {
	Key            string
	Region         string
	HTTPClient     *http.Client
	RequestTimeout time.Duration
}

// Client performs SSML synthesis calls against the regional TTS endpoint.
type Client struct {
	key        string
	region     string
	endpoint   string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient creates a client. Missing credentials are not an immediate
// error; Configured reports them so the pipeline can fail fast before any
// external call.
func NewClient(opts Options, logger zerolog.Logger) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		key:        strings.TrimSpace(opts.Key),
		region:     strings.TrimSpace(opts.Region),
		endpoint:   fmt.Sprintf("https://%s.tts.speech.microsoft.com/cognitiveservices/v1", strings.TrimSpace(opts.Region)),
		httpClient: httpClient,
		logger:     logger.With().Str("component", "tts").Logger(),
	}
}

// Configured verifies synthesis credentials are present.
func (c *Client) Configured() error {
	if c.key == "" || c.region == "" {
		return &domain.ConfigError{
			Detail: "set AZURE_TTS_KEY and AZURE_TTS_REGION before starting the server",
			Err:    domain.ErrMissingCredentials,
		}
	}
	return nil
}

// Synthesize converts text to audio bytes with the given voice and speaking
// rate tag.
func (c *Client) Synthesize(ctx context.Context, text, voice, rate string) ([]byte, error) {
	if err := c.Configured(); err != nil {
		return nil, err
	}

	ssml := buildSSML(text, voice, rate)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewBufferString(ssml))
	if err != nil {
		return nil, fmt.Errorf("tts: build request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.key)
	req.Header.Set("Content-Type", "application/ssml+xml")
	req.Header.Set("X-Microsoft-OutputFormat", outputFormat)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &domain.ExternalToolError{Tool: "azure tts", Detail: "synthesis request", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.ExternalToolError{Tool: "azure tts", Detail: "read synthesis response", Err: err}
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, &domain.ConfigError{
			Detail: fmt.Sprintf("speech service rejected credentials (status %d)", resp.StatusCode),
			Err:    domain.ErrMissingCredentials,
		}
	}
	if resp.StatusCode != http.StatusOK {
		detail := fmt.Sprintf("synthesis failed with status %d", resp.StatusCode)
		if len(body) > 0 {
			detail = fmt.Sprintf("%s: %s", detail, truncate(string(body), 300))
		}
		return nil, &domain.ExternalToolError{Tool: "azure tts", Detail: detail}
	}
	if len(body) == 0 {
		return nil, &domain.ExternalToolError{Tool: "azure tts", Detail: "service returned no audio"}
	}
	return body, nil
}

// buildSSML wraps the text in a voice element, adding a prosody rate only
// when it differs from the neutral default.
func buildSSML(text, voice, rate string) string {
	escaped := xmlEscape(text)
	inner := escaped
	if rate != "" && rate != "medium" {
		inner = fmt.Sprintf("<prosody rate='%s'>%s</prosody>", rate, escaped)
	}
	return fmt.Sprintf(
		"<speak version='1.0' xml:lang='en-US'><voice name='%s'>%s</voice></speak>",
		xmlEscape(voice), inner,
	)
}

var xmlReplacer = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	"'", "&apos;",
	`"`, "&quot;",
)

func xmlEscape(s string) string {
	return xmlReplacer.Replace(s)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
