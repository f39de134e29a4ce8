package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/pkg/errors"
)

const deepgramSpeakURL = "https://api.deepgram.com/v1/speak"

type DeepgramClient struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
}

func NewDeepgramClient(apiKey string, model string) (*DeepgramClient, error) {
	if apiKey == "" {
		return nil, errors.New("deepgram tts: API key is required")
	}
	if model == "" {
		return nil, errors.New("deepgram tts: voice model is required")
	}
	return &DeepgramClient{
		APIKey:     apiKey,
		Model:      model,
		BaseURL:    deepgramSpeakURL,
		HTTPClient: defaultHTTPClient(),
	}, nil
}

// Synthesize returns raw 8 kHz mulaw audio without a container.
func (c *DeepgramClient) Synthesize(ctx context.Context, text string) ([]byte, error) {
	base, err := url.Parse(c.BaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "deepgram tts: parse url")
	}
	q := base.Query()
	q.Set("model", c.Model)
	q.Set("encoding", "mulaw")
	q.Set("sample_rate", "8000")
	q.Set("container", "none")
	base.RawQuery = q.Encode()

	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, errors.Wrap(err, "deepgram tts: marshal payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base.String(), bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "deepgram tts: build request")
	}
	req.Header.Set("Authorization", fmt.Sprintf("Token %s", c.APIKey))
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "deepgram tts: request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, errors.Errorf("deepgram tts: bad status %s: %s", resp.Status, bytes.TrimSpace(msg))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "deepgram tts: read audio")
	}
	return audio, nil
}
