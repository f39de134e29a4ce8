package tts

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/pkg/errors"
)

const elevenLabsBaseURL = "https://api.elevenlabs.io"

type ElevenLabsClient struct {
	APIKey     string
	VoiceId    string
	ModelId    string
	BaseURL    string
	HTTPClient *http.Client
}

func NewElevenLabsClient(apiKey string, voiceId string, modelId string) (*ElevenLabsClient, error) {
	if apiKey == "" {
		return nil, errors.New("elevenlabs: API key is required")
	}
	if voiceId == "" {
		return nil, errors.New("elevenlabs: voice id is required")
	}
	if modelId == "" {
		modelId = "eleven_multilingual_v2"
	}
	return &ElevenLabsClient{
		APIKey:     apiKey,
		VoiceId:    voiceId,
		ModelId:    modelId,
		BaseURL:    elevenLabsBaseURL,
		HTTPClient: defaultHTTPClient(),
	}, nil
}

// Synthesize streams ulaw_8000 audio with timestamps and concatenates the
// decoded chunks.
func (client *ElevenLabsClient) Synthesize(ctx context.Context, text string) ([]byte, error) {
	base, err := url.Parse(
		fmt.Sprintf("%s/v1/text-to-speech/%s/stream/with-timestamps", client.BaseURL, url.PathEscape(client.VoiceId)),
	)
	if err != nil {
		return nil, errors.Wrap(err, "elevenlabs: parse url")
	}
	q := base.Query()
	q.Set("output_format", "ulaw_8000")
	base.RawQuery = q.Encode()

	payload := map[string]interface{}{
		"text":     text,
		"model_id": client.ModelId,
		"voice_settings": map[string]float64{
			"stability":        0.75,
			"similarity_boost": 0.7,
		},
	}
	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "elevenlabs: marshal payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base.String(), bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, errors.Wrap(err, "elevenlabs: build request")
	}
	req.Header.Set("xi-api-key", client.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.HTTPClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "elevenlabs: request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("elevenlabs: bad status %s", resp.Status)
	}

	// The body is a sequence of JSON objects, one per audio chunk.
	var audio bytes.Buffer
	dec := json.NewDecoder(resp.Body)
	for {
		var chunk struct {
			AudioBase64 string `json:"audio_base64"`
		}
		if err := dec.Decode(&chunk); err != nil {
			if err == io.EOF {
				break
			}
			return nil, errors.Wrap(err, "elevenlabs: decode chunk")
		}
		if chunk.AudioBase64 == "" {
			continue
		}
		decoded, err := base64.StdEncoding.DecodeString(chunk.AudioBase64)
		if err != nil {
			return nil, errors.Wrap(err, "elevenlabs: decode audio")
		}
		audio.Write(decoded)
	}

	return audio.Bytes(), nil
}
