// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/template"

	"github.com/pdiddy/pdf2comp/internal/httputil"
)

const systemPrompt = `You are an expert electronics engineer and data extraction assistant.
Your task is to extract structured information from a component datasheet.
Output the data strictly in JSON format.`

// extractionPromptTmpl is the user prompt sent with each document. It asks
// for the component, package, and pin table as a single JSON object.
var extractionPromptTmpl = template.Must(template.New("extraction").Parse(`Extract the following information from the provided datasheet text:

1. Component Details:
   - Part Number
   - Manufacturer
   - Description

2. Package Details:
   - Package Name (e.g., SOIC-8, TO-220)
   - Package Type (e.g., SOIC, DIP, QFN)
   - Dimensions (width, length, height if available) - approximate or nominal values in mm.

3. Pin Configuration:
   - List of pins with:
     - Pin Number
     - Pin Name
     - Electrical Type (Input, Output, Power, Ground, Bidirectional, Passive, etc.)
     - Description (brief function)

Output JSON Schema:
{
  "component": {"part_number": "string", "manufacturer": "string", "description": "string"},
  "package": {"name": "string", "package_type": "string", "dimensions": {"width": float, "length": float, "height": float}},
  "pins": [{"number": "string", "name": "string", "electrical_type": "string", "description": "string"}]
}

If a value is not found, use null or an empty string.
Ensure the JSON is valid.

Datasheet Text:
{{.Datasheet}}
`))

const (
	defaultBaseURL     = "http://localhost:8000/v1"
	defaultTemperature = 0.1
)

// OpenAIBackend calls an OpenAI-compatible chat completions endpoint, such
// as a vLLM server, in JSON mode.
type OpenAIBackend struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	UserAgent   string
	Client      *http.Client
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Extract sends the datasheet context and decodes the JSON answer.
func (o *OpenAIBackend) Extract(ctx context.Context, datasheet string) (Response, error) {
	prompt, err := renderPrompt(datasheet)
	if err != nil {
		return Response{}, fmt.Errorf("rendering prompt: %w", err)
	}

	temperature := o.Temperature
	if temperature <= 0 {
		temperature = defaultTemperature
	}

	reqBody := chatRequest{
		Model: o.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature:    temperature,
		ResponseFormat: &responseFormat{Type: "json_object"},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return Response{}, fmt.Errorf("marshaling request: %w", err)
	}

	baseURL := o.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	url := strings.TrimRight(baseURL, "/") + "/chat/completions"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return Response{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if o.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+o.APIKey)
	}
	if o.UserAgent != "" {
		req.Header.Set("User-Agent", o.UserAgent)
	}

	client := o.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := httputil.DoWithRetry(ctx, client, req, 0)
	if err != nil {
		return Response{}, fmt.Errorf("calling LLM API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return Response{}, fmt.Errorf("LLM API returned %d: %s", resp.StatusCode, string(body))
	}

	var cResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cResp); err != nil {
		return Response{}, fmt.Errorf("decoding LLM response: %w", err)
	}
	if len(cResp.Choices) == 0 {
		return Response{}, fmt.Errorf("LLM API returned no choices")
	}

	content := stripCodeFence(cResp.Choices[0].Message.Content)
	var out Response
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return Response{}, fmt.Errorf("parsing LLM response JSON: %w", err)
	}
	return out, nil
}

// stripCodeFence removes a ```json fence some models wrap JSON mode output in.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// renderPrompt executes the extraction prompt template with the given context.
func renderPrompt(datasheet string) (string, error) {
	var buf bytes.Buffer
	if err := extractionPromptTmpl.Execute(&buf, struct{ Datasheet string }{Datasheet: datasheet}); err != nil {
		return "", err
	}
	return buf.String(), nil
}
