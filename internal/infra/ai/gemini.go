package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/sskkslay-netizen/Bst/internal/domain"
	"github.com/sskkslay-netizen/Bst/internal/infra/observability"
)

// ─── Config ─────────────────────────────────────────────────────────────────

// Config configures the Gemini client.
type Config struct {
	APIKey  string        `toml:"api_key"`
	Model   string        `toml:"model"`
	BaseURL string        `toml:"base_url"`
	Timeout time.Duration `toml:"-"`
}

// DefaultConfig returns the production endpoint and model.
func DefaultConfig() Config {
	return Config{
		Model:   "gemini-3-flash-preview",
		BaseURL: "https://generativelanguage.googleapis.com",
		Timeout: 60 * time.Second,
	}
}

var (
	errNoAPIKey   = errors.New("ai: no api key configured")
	errEmptyReply = errors.New("ai: empty response")
)

// ─── Client ─────────────────────────────────────────────────────────────────

// Client calls the Gemini generateContent REST endpoint.
type Client struct {
	cfg  Config
	http *http.Client
	log  *observability.Logger
	now  func() time.Time
}

var _ Service = (*Client)(nil)

// New creates a client. A zero timeout uses the default.
func New(cfg Config, log *observability.Logger) *Client {
	def := DefaultConfig()
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  log.Named("ai"),
		now:  time.Now,
	}
}

// ─── Wire Types ─────────────────────────────────────────────────────────────

type part struct {
	Text       string  `json:"text,omitempty"`
	InlineData *inline `json:"inlineData,omitempty"`
}

type inline struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	ResponseMIMEType string         `json:"responseMimeType,omitempty"`
	ResponseSchema   map[string]any `json:"responseSchema,omitempty"`
}

type generateRequest struct {
	Contents          []content         `json:"contents"`
	SystemInstruction *content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

// ─── Operations ─────────────────────────────────────────────────────────────

const extractPrompt = "Extract all the relevant study information from this image. " +
	"Summarize the key concepts, definitions, and facts into a structured text format " +
	"that can be used to generate a quiz or matching game. Be as detailed as possible."

// ExtractStudyMaterial turns a photo of notes into plain study text.
func (c *Client) ExtractStudyMaterial(ctx context.Context, img Image) string {
	req := generateRequest{Contents: []content{{
		Role: string(RoleUser),
		Parts: []part{
			{InlineData: &inline{MIMEType: img.MIMEType, Data: img.Data}},
			{Text: extractPrompt},
		},
	}}}
	text, err := c.generate(ctx, "extract", req)
	switch {
	case errors.Is(err, errEmptyReply):
		return FallbackEmptyExtract
	case err != nil:
		return FallbackExtractError
	}
	return text
}

var questionSchema = map[string]any{
	"type": "ARRAY",
	"items": map[string]any{
		"type": "OBJECT",
		"properties": map[string]any{
			"question": map[string]any{"type": "STRING"},
			"options":  map[string]any{"type": "ARRAY", "items": map[string]any{"type": "STRING"}},
			"answer":   map[string]any{"type": "INTEGER"},
		},
		"required": []string{"question", "options", "answer"},
	},
}

// GenerateQuestions asks for QuestionCount multiple choice questions.
// Malformed entries are dropped.
func (c *Client) GenerateQuestions(ctx context.Context, material string) []domain.Question {
	prompt := fmt.Sprintf(`Generate %d UNIQUE multiple-choice questions based on the following material.
Seed: %s.
CRITICAL: Do not repeat previous questions. Mix difficulty levels (basic facts, application of concepts, and deep analysis).
Return them as a JSON array of objects with 'question', 'options' (array of 4), and 'answer' (index of correct option).
Material: %s`, QuestionCount, c.seed(), material)

	text, err := c.generate(ctx, "questions", jsonRequest(prompt, questionSchema))
	if err != nil {
		return []domain.Question{}
	}
	return parseQuestions(text)
}

var pairSchema = map[string]any{
	"type": "ARRAY",
	"items": map[string]any{
		"type": "OBJECT",
		"properties": map[string]any{
			"term":       map[string]any{"type": "STRING"},
			"definition": map[string]any{"type": "STRING"},
		},
		"required": []string{"term", "definition"},
	},
}

// GenerateMatchingPairs asks for PairCount term/definition pairs.
func (c *Client) GenerateMatchingPairs(ctx context.Context, material string) []domain.StudyPair {
	prompt := fmt.Sprintf(`Extract %d UNIQUE pairs of key terms and their concise definitions from this material for a matching game.
Seed: %s.
Focus on different aspects than a standard quiz. Ensure definitions are distinct.
Return a JSON array of objects with 'term' and 'definition'.
Material: %s`, PairCount, c.seed(), material)

	text, err := c.generate(ctx, "pairs", jsonRequest(prompt, pairSchema))
	if err != nil {
		return []domain.StudyPair{}
	}
	return parsePairs(text)
}

// CharacterReply answers message in the voice of the named character.
func (c *Client) CharacterReply(ctx context.Context, name string, history []Message, message string, mode ChatMode) string {
	contents := make([]content, 0, len(history)+1)
	for _, m := range history {
		contents = append(contents, content{Role: string(m.Role), Parts: []part{{Text: m.Text}}})
	}
	contents = append(contents, content{Role: string(RoleUser), Parts: []part{{Text: message}}})

	req := generateRequest{
		Contents:          contents,
		SystemInstruction: &content{Parts: []part{{Text: characterInstruction(name, mode)}}},
	}
	text, err := c.generate(ctx, "chat", req)
	switch {
	case errors.Is(err, errEmptyReply):
		return FallbackEmptyReply
	case err != nil:
		return FallbackReplyError
	}
	return text
}

func characterInstruction(name string, mode ChatMode) string {
	if mode == ModeDebate {
		return fmt.Sprintf("You are %s from Bungou Stray Dogs. You are challenging the user to a intellectual debate "+
			"about their study material. Be sharp, witty, and slightly condescending if you are a detective like "+
			"Ranpo or Dazai. After the user's explanation, rate their answer from 1 to 10 based on accuracy and logic.", name)
	}
	return fmt.Sprintf("You are %s from Bungou Stray Dogs. Stay in character. Speak exactly like %s. "+
		"If asked about study topics, try to incorporate their personality into the explanation.", name, name)
}

// ─── Transport ──────────────────────────────────────────────────────────────

func jsonRequest(prompt string, schema map[string]any) generateRequest {
	return generateRequest{
		Contents: []content{{Role: string(RoleUser), Parts: []part{{Text: prompt}}}},
		GenerationConfig: &generationConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   schema,
		},
	}
}

func (c *Client) seed() string {
	return strconv.FormatInt(c.now().UnixMilli(), 10)
}

// generate posts req and returns the concatenated text parts of the first
// candidate. Every failure is logged and counted here.
func (c *Client) generate(ctx context.Context, op string, req generateRequest) (string, error) {
	start := time.Now()
	text, err := c.do(ctx, req)
	observability.AILatency.WithLabelValues(op).Observe(time.Since(start).Seconds())

	if err != nil {
		observability.AIRequests.WithLabelValues(op, "error").Inc()
		c.log.Warn("ai request failed", "operation", op, "error", err)
		return "", err
	}
	observability.AIRequests.WithLabelValues(op, "ok").Inc()
	c.log.Debug("ai request", "operation", op, "chars", len(text), "duration", time.Since(start))
	return text, nil
}

func (c *Client) do(ctx context.Context, req generateRequest) (string, error) {
	if c.cfg.APIKey == "" {
		return "", errNoAPIKey
	}
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.cfg.BaseURL, c.cfg.Model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.cfg.APIKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := gjson.GetBytes(raw, "error.message").String()
		if msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		return "", fmt.Errorf("gemini http %d: %s", resp.StatusCode, msg)
	}

	var sb strings.Builder
	gjson.GetBytes(raw, "candidates.0.content.parts").ForEach(func(_, p gjson.Result) bool {
		sb.WriteString(p.Get("text").String())
		return true
	})
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", errEmptyReply
	}
	return text, nil
}

// ─── Parsing ────────────────────────────────────────────────────────────────

func parseQuestions(text string) []domain.Question {
	out := []domain.Question{}
	if !gjson.Valid(text) {
		return out
	}
	gjson.Parse(text).ForEach(func(_, v gjson.Result) bool {
		q := domain.Question{
			Question: strings.TrimSpace(v.Get("question").String()),
			Answer:   int(v.Get("answer").Int()),
		}
		v.Get("options").ForEach(func(_, o gjson.Result) bool {
			q.Options = append(q.Options, o.String())
			return true
		})
		if q.Valid() {
			out = append(out, q)
		}
		return true
	})
	return out
}

func parsePairs(text string) []domain.StudyPair {
	out := []domain.StudyPair{}
	if !gjson.Valid(text) {
		return out
	}
	gjson.Parse(text).ForEach(func(_, v gjson.Result) bool {
		p := domain.StudyPair{
			Term:       strings.TrimSpace(v.Get("term").String()),
			Definition: strings.TrimSpace(v.Get("definition").String()),
		}
		if p.Term != "" && p.Definition != "" {
			out = append(out, p)
		}
		return true
	})
	return out
}
