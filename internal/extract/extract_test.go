package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pdiddy/pdf2comp/internal/httputil"
	"github.com/pdiddy/pdf2comp/internal/segment"
	"github.com/pdiddy/pdf2comp/pkg/types"
)

// --- mock backends ---

type mockBackend struct {
	response Response
	err      error
	calls    int
	contexts []string
}

func (m *mockBackend) Extract(_ context.Context, datasheet string) (Response, error) {
	m.calls++
	m.contexts = append(m.contexts, datasheet)
	if m.err != nil {
		return Response{}, m.err
	}
	return m.response, nil
}

// failNTimesBackend fails the first N calls, then succeeds.
type failNTimesBackend struct {
	failures  int
	callCount int
	response  Response
}

func (f *failNTimesBackend) Extract(_ context.Context, _ string) (Response, error) {
	f.callCount++
	if f.callCount <= f.failures {
		return Response{}, fmt.Errorf("transient error (call %d)", f.callCount)
	}
	return f.response, nil
}

func TestMain(m *testing.M) {
	// Override backoff to avoid real sleeps in retry tests.
	backoffBase = time.Millisecond
	httputil.RetryBaseDelay = time.Millisecond
	os.Exit(m.Run())
}

func testConfig(docsDir string) types.ExtractionConfig {
	return types.ExtractionConfig{
		LLMConfig: types.LLMConfig{
			Model:      "test-model",
			MaxRetries: 3,
		},
		DocsDir: docsDir,
	}
}

func sampleResponse() Response {
	return Response{
		Component: ResponseComponent{PartNumber: "LM317", Manufacturer: "TI", Description: "Adjustable regulator"},
		Package:   ResponsePackage{Name: "TO-220", PackageType: "TO", Dimensions: map[string]float64{"width": 10.2}},
		Pins: []ResponsePin{
			{Number: "1", Name: "ADJ", ElectricalType: "Input"},
			{Number: "2", Name: "OUT", ElectricalType: "Output"},
			{Number: "3", Name: "IN", ElectricalType: "Power"},
		},
	}
}

const datasheet = `LM317 3-Terminal Adjustable Regulator

# Features
- Output adjustable from 1.25 V to 37 V

# Description
The LM317 is an adjustable three-terminal positive voltage regulator.

# Pin Configuration and Functions
| Pin | Name | Type |
| 1 | ADJ | I |

# Package Dimensions
TO-220 body 10.2 mm

# Ordering Information
LM317T
`

// --- BuildContext ---

func TestBuildContext(t *testing.T) {
	sections := segment.Segment(datasheet)
	got := BuildContext(sections, datasheet)

	order := []string{
		"--- COMPONENT DESCRIPTION ---",
		"adjustable three-terminal",
		"Output adjustable",
		"LM317 3-Terminal Adjustable Regulator",
		"--- PACKAGE INFORMATION ---",
		"TO-220 body",
		"LM317T",
		"--- PIN CONFIGURATION ---",
		"| 1 | ADJ | I |",
	}
	pos := -1
	for _, want := range order {
		i := strings.Index(got, want)
		if i < 0 {
			t.Fatalf("context missing %q:\n%s", want, got)
		}
		if i < pos {
			t.Errorf("%q appears out of order", want)
		}
		pos = i
	}
}

func TestBuildContextTruncatesPreamble(t *testing.T) {
	sections := types.NewSectionMap()
	sections.Append(types.SectionPreamble, strings.Repeat("p", 5000))

	got := BuildContext(sections, "")
	if n := strings.Count(got, "p"); n != preambleLimit {
		t.Errorf("preamble chars = %d, want %d", n, preambleLimit)
	}
}

func TestBuildContextFallsBackToRaw(t *testing.T) {
	raw := strings.Repeat("x", rawLimit+10)
	got := BuildContext(types.NewSectionMap(), raw)
	if len(got) != rawLimit {
		t.Errorf("len = %d, want %d", len(got), rawLimit)
	}
}

func TestTruncateRunes(t *testing.T) {
	if got := truncate("ΩΩΩΩ", 2); got != "ΩΩ" {
		t.Errorf("truncate = %q, want %q", got, "ΩΩ")
	}
	if got := truncate("abc", 10); got != "abc" {
		t.Errorf("truncate = %q, want %q", got, "abc")
	}
}

// --- convertResponse ---

func TestConvertResponseDefaults(t *testing.T) {
	resp := Response{
		Pins: []ResponsePin{
			{Number: " 7 ", Name: " SCL ", ElectricalType: ""},
		},
	}
	got := convertResponse(resp)

	if got.Component.PartNumber != unknown {
		t.Errorf("PartNumber = %q, want %q", got.Component.PartNumber, unknown)
	}
	if got.Package.Name != unknown || got.Package.PackageType != unknown {
		t.Errorf("Package = %+v, want Unknown name and type", got.Package)
	}
	if len(got.Pins) != 1 {
		t.Fatalf("got %d pins, want 1", len(got.Pins))
	}
	want := types.Pin{Number: "7", Name: "SCL", ElectricalType: "Passive"}
	if got.Pins[0] != want {
		t.Errorf("pin = %+v, want %+v", got.Pins[0], want)
	}
}

func TestResponsePinNumberDecoding(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{`{"number": "A1"}`, "A1"},
		{`{"number": 12}`, "12"},
		{`{"number": null}`, ""},
		{`{}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			var p ResponsePin
			if err := json.Unmarshal([]byte(tt.raw), &p); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if string(p.Number) != tt.want {
				t.Errorf("Number = %q, want %q", p.Number, tt.want)
			}
		})
	}

	var p ResponsePin
	if err := json.Unmarshal([]byte(`{"number": [1]}`), &p); err == nil {
		t.Error("expected error for array pin number")
	}
}

// --- callWithRetry ---

func TestCallWithRetry(t *testing.T) {
	tests := []struct {
		name       string
		failures   int
		maxRetries int
		wantErr    bool
	}{
		{"succeeds first try", 0, 3, false},
		{"succeeds after 2 failures", 2, 3, false},
		{"succeeds on last retry", 3, 3, false},
		{"fails after exhausting retries", 4, 3, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &failNTimesBackend{failures: tt.failures, response: sampleResponse()}

			_, err := callWithRetry(context.Background(), backend, "ctx", tt.maxRetries)

			if tt.wantErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestCallWithRetryCancelled(t *testing.T) {
	old := backoffBase
	backoffBase = time.Second
	defer func() { backoffBase = old }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	backend := &failNTimesBackend{failures: 10}
	_, err := callWithRetry(ctx, backend, "ctx", 3)
	if err != context.Canceled {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

// --- ExtractDocument / ExtractAll ---

func writeDoc(t *testing.T, docsDir, name, content string) string {
	t.Helper()
	dir := filepath.Join(docsDir, markdownDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestExtractDocument(t *testing.T) {
	docsDir := t.TempDir()
	path := writeDoc(t, docsDir, "lm317.md", datasheet)

	backend := &mockBackend{response: sampleResponse()}
	result, err := ExtractDocument(context.Background(), backend, "lm317", path, testConfig(docsDir))
	if err != nil {
		t.Fatalf("ExtractDocument: %v", err)
	}

	if result.DocumentID != "lm317" {
		t.Errorf("DocumentID = %q, want lm317", result.DocumentID)
	}
	if result.Component.PartNumber != "LM317" {
		t.Errorf("PartNumber = %q, want LM317", result.Component.PartNumber)
	}
	if len(result.Pins) != 3 {
		t.Errorf("got %d pins, want 3", len(result.Pins))
	}
	if backend.calls != 1 {
		t.Fatalf("backend.calls = %d, want 1", backend.calls)
	}
	if !strings.Contains(backend.contexts[0], "--- PIN CONFIGURATION ---") {
		t.Error("backend did not receive section-based context")
	}
}

func TestExtractDocumentRetryExhaustion(t *testing.T) {
	docsDir := t.TempDir()
	path := writeDoc(t, docsDir, "bad.md", "# Pinout\n1 VCC")

	backend := &mockBackend{err: fmt.Errorf("model offline")}
	_, err := ExtractDocument(context.Background(), backend, "bad", path, testConfig(docsDir))
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "model offline") {
		t.Errorf("error = %v, want wrapped backend error", err)
	}
	if backend.calls != 4 {
		t.Errorf("backend.calls = %d, want 4 (1 + 3 retries)", backend.calls)
	}
}

func TestExtractAll(t *testing.T) {
	docsDir := t.TempDir()
	writeDoc(t, docsDir, "doc1.md", datasheet)
	writeDoc(t, docsDir, "doc2.md", "# Pinout\n1 VCC")
	writeDoc(t, docsDir, "notes.txt", "ignored")

	backend := &mockBackend{response: sampleResponse()}

	var buf strings.Builder
	summary, err := ExtractAll(context.Background(), backend, testConfig(docsDir), &buf)
	if err != nil {
		t.Fatalf("ExtractAll: %v", err)
	}

	if summary.Extracted != 2 || summary.Skipped != 0 || summary.Failed != 0 {
		t.Errorf("summary = %+v, want 2 extracted", summary)
	}
	if !strings.Contains(buf.String(), "extracted doc1 (LM317, 3 pins)") {
		t.Errorf("output missing progress line:\n%s", buf.String())
	}

	for _, id := range []string{"doc1", "doc2"} {
		result, err := ReadResult(ResultPath(docsDir, id))
		if err != nil {
			t.Errorf("ReadResult %s: %v", id, err)
			continue
		}
		if result.DocumentID != id || len(result.Pins) != 3 {
			t.Errorf("%s: got %+v", id, result)
		}
	}
}

func TestExtractAllSkipsUnchanged(t *testing.T) {
	docsDir := t.TempDir()
	writeDoc(t, docsDir, "doc1.md", datasheet)

	outPath := ResultPath(docsDir, "doc1")
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := WriteResult(outPath, &types.ExtractionResult{DocumentID: "doc1"}); err != nil {
		t.Fatal(err)
	}
	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(outPath, future, future); err != nil {
		t.Fatal(err)
	}

	backend := &mockBackend{response: sampleResponse()}
	var buf strings.Builder
	summary, err := ExtractAll(context.Background(), backend, testConfig(docsDir), &buf)
	if err != nil {
		t.Fatalf("ExtractAll: %v", err)
	}

	if summary.Skipped != 1 || summary.Extracted != 0 {
		t.Errorf("summary = %+v, want 1 skipped", summary)
	}
	if backend.calls != 0 {
		t.Errorf("backend.calls = %d, want 0", backend.calls)
	}
}

func TestExtractAllCountsFailures(t *testing.T) {
	docsDir := t.TempDir()
	writeDoc(t, docsDir, "doc1.md", datasheet)

	backend := &mockBackend{err: fmt.Errorf("boom")}
	var buf strings.Builder
	summary, err := ExtractAll(context.Background(), backend, testConfig(docsDir), &buf)
	if err != nil {
		t.Fatalf("ExtractAll: %v", err)
	}
	if !summary.HasFailures() || summary.Total() != 1 {
		t.Errorf("summary = %+v, want 1 failure", summary)
	}
	if !strings.Contains(buf.String(), "failed  doc1") {
		t.Errorf("output missing failure line:\n%s", buf.String())
	}
}

func TestExtractAllMissingDir(t *testing.T) {
	_, err := ExtractAll(context.Background(), &mockBackend{}, testConfig(t.TempDir()), &strings.Builder{})
	if err == nil {
		t.Fatal("expected error for missing markdown directory")
	}
}

// --- OpenAIBackend ---

func TestOpenAIBackend(t *testing.T) {
	var got chatRequest
	var auth string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		answer, _ := json.Marshal(map[string]any{
			"component": map[string]any{"part_number": "NE555", "description": "Timer"},
			"pins":      []map[string]any{{"number": 3, "name": "OUT", "electrical_type": "Output"}},
		})
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "```json\n" + string(answer) + "\n```"}},
			},
		})
	}))
	defer ts.Close()

	backend := &OpenAIBackend{BaseURL: ts.URL + "/v1/", APIKey: "sk-test", Model: "qwen", Client: ts.Client()}
	resp, err := backend.Extract(context.Background(), "NE555 datasheet")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	if resp.Component.PartNumber != "NE555" {
		t.Errorf("PartNumber = %q, want NE555", resp.Component.PartNumber)
	}
	if len(resp.Pins) != 1 || resp.Pins[0].Number != "3" {
		t.Errorf("Pins = %+v", resp.Pins)
	}
	if auth != "Bearer sk-test" {
		t.Errorf("Authorization = %q", auth)
	}
	if got.Model != "qwen" || got.Temperature != defaultTemperature {
		t.Errorf("request model/temperature = %q/%v", got.Model, got.Temperature)
	}
	if got.ResponseFormat == nil || got.ResponseFormat.Type != "json_object" {
		t.Errorf("response_format = %+v, want json_object", got.ResponseFormat)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" {
		t.Fatalf("messages = %+v", got.Messages)
	}
	if !strings.Contains(got.Messages[1].Content, "NE555 datasheet") {
		t.Error("user prompt missing datasheet text")
	}
}

func TestOpenAIBackendErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantErr string
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "overloaded", http.StatusInternalServerError)
			},
			wantErr: "returned 500",
		},
		{
			name: "no choices",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Write([]byte(`{"choices": []}`))
			},
			wantErr: "no choices",
		},
		{
			name: "invalid content",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Write([]byte(`{"choices": [{"message": {"content": "not json"}}]}`))
			},
			wantErr: "parsing LLM response JSON",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(tt.handler)
			defer ts.Close()

			backend := &OpenAIBackend{BaseURL: ts.URL, Client: ts.Client()}
			_, err := backend.Extract(context.Background(), "x")
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestRenderPrompt(t *testing.T) {
	prompt, err := renderPrompt("PIN TABLE HERE")
	if err != nil {
		t.Fatalf("renderPrompt: %v", err)
	}
	for _, want := range []string{"Pin Configuration", "Output JSON Schema", "PIN TABLE HERE"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestStripCodeFence(t *testing.T) {
	tests := map[string]string{
		`{"a":1}`:               `{"a":1}`,
		"```json\n{\"a\":1}\n```": `{"a":1}`,
		"```\n{\"a\":1}```":       `{"a":1}`,
	}
	for in, want := range tests {
		if got := stripCodeFence(in); got != want {
			t.Errorf("stripCodeFence(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBatchSummary(t *testing.T) {
	s := BatchSummary{Extracted: 2, Skipped: 1, Failed: 0}
	if s.Total() != 3 {
		t.Errorf("Total = %d, want 3", s.Total())
	}
	if s.HasFailures() {
		t.Error("HasFailures = true, want false")
	}
}
