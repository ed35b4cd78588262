package ai

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
	"unicode/utf8"

	"day-planner/backend/internal/models"
)

const (
	placeholderTitle       = "Untitled Task"
	placeholderDescription = "Task description"
)

// Enhancer rewrites task text through a generative provider, walking an
// ordered candidate model list and degrading to a deterministic local
// transform when the provider is unavailable or exhausted.
type Enhancer struct {
	apiKey     string
	baseURL    string
	candidates []string
	client     *http.Client
}

type Meta struct {
	ModelsTried   []string `json:"modelsTried"`
	ModelUsed     string   `json:"modelUsed,omitempty"`
	ErrorChain    []string `json:"errorChain,omitempty"`
	UsedFallback  bool     `json:"usedFallback"`
	ParsingFailed bool     `json:"parsingFailed,omitempty"`
}

type Result struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Meta        Meta   `json:"meta"`
}

type Status struct {
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

// Draft is a task shape derived from a one-line prompt.
type Draft struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	StartDate   string          `json:"startDate"`
	Priority    models.Priority `json:"priority"`
	Category    models.Category `json:"category"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

type generateError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func NewEnhancer(apiKey, baseURL string, candidates []string, timeout time.Duration) *Enhancer {
	return &Enhancer{
		apiKey:     apiKey,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		candidates: candidates,
		client:     &http.Client{Timeout: timeout},
	}
}

func (e *Enhancer) Status() Status {
	if e.apiKey == "" {
		return Status{Available: false, Reason: "missing API key (GEMINI_API_KEY)"}
	}
	return Status{Available: true}
}

// Enhance rewrites the title/description pair. Provider failures never
// surface as errors; the deterministic transform is the floor.
func (e *Enhancer) Enhance(ctx context.Context, title, description string) Result {
	if e.apiKey == "" {
		return Result{
			Title:       fallbackTitle(title),
			Description: fallbackDescription(description),
			Meta:        Meta{ModelsTried: []string{}, UsedFallback: true},
		}
	}

	attempted := make([]string, 0, len(e.candidates))
	errorChain := make([]string, 0, len(e.candidates))
	parsingFailed := false

	for _, candidate := range e.candidates {
		attempted = append(attempted, candidate)

		text, err := e.generate(ctx, candidate, rewritePrompt(title, description))
		if err != nil {
			errorChain = append(errorChain, fmt.Sprintf("%s: %v", candidate, err))
			continue
		}

		parsed, ok := extractTaskJSON(text)
		if !ok {
			parsingFailed = true
			errorChain = append(errorChain, fmt.Sprintf("%s: no usable JSON object in response", candidate))
			continue
		}

		return Result{
			Title:       fallbackTitle(parsed.Title),
			Description: fallbackDescription(parsed.Description),
			Meta: Meta{
				ModelsTried: attempted,
				ModelUsed:   candidate,
				ErrorChain:  errorChain,
			},
		}
	}

	// Every candidate failed: transform the original input.
	return Result{
		Title:       fallbackTitle(title),
		Description: fallbackDescription(description),
		Meta: Meta{
			ModelsTried:   attempted,
			ErrorChain:    errorChain,
			UsedFallback:  true,
			ParsingFailed: parsingFailed,
		},
	}
}

// GenerateFromPrompt shapes a task draft from a one-line prompt. The
// shaping is deterministic and never fails.
func (e *Enhancer) GenerateFromPrompt(ctx context.Context, prompt string) Draft {
	return Draft{
		Title:       fallbackTitle(prompt),
		Description: placeholderDescription,
		StartDate:   time.Now().Format("2006-01-02"),
		Priority:    models.PriorityMedium,
		Category:    models.CategoryPersonal,
	}
}

func (e *Enhancer) generate(ctx context.Context, model, prompt string) (string, error) {
	reqBody := generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", e.baseURL, model, e.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}

	respBody, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var genErr generateError
		if json.Unmarshal(respBody, &genErr) == nil && genErr.Error.Message != "" {
			return "", fmt.Errorf("provider error (%d): %s", resp.StatusCode, genErr.Error.Message)
		}
		return "", fmt.Errorf("provider error (%d)", resp.StatusCode)
	}

	var genResp generateResponse
	if err := json.Unmarshal(respBody, &genResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if len(genResp.Candidates) == 0 || len(genResp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response")
	}

	return strings.TrimSpace(genResp.Candidates[0].Content.Parts[0].Text), nil
}

func rewritePrompt(title, description string) string {
	return fmt.Sprintf(`You are an assistant that rewrites task items succinctly.
Return ONLY a JSON object with keys: title, description.
Constraints:
- Title <= 60 chars, imperative style.
- Description: one concise sentence.

Original Title: %s
Original Description: %s`, title, description)
}

type taskJSON struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// extractTaskJSON pulls the first JSON-object-shaped substring out of
// raw provider text, tolerating surrounding prose. Both fields must be
// present and non-empty.
func extractTaskJSON(text string) (taskJSON, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return taskJSON{}, false
	}

	var parsed taskJSON
	if err := json.Unmarshal([]byte(text[start:end+1]), &parsed); err != nil {
		return taskJSON{}, false
	}

	if strings.TrimSpace(parsed.Title) == "" || strings.TrimSpace(parsed.Description) == "" {
		return taskJSON{}, false
	}

	return parsed, true
}

func fallbackTitle(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return placeholderTitle
	}

	first, size := utf8.DecodeRuneInString(trimmed)
	return string(unicode.ToUpper(first)) + trimmed[size:]
}

func fallbackDescription(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return placeholderDescription
	}
	return trimmed
}
