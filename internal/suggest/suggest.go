// Package suggest asks a chat-completion model for house rules and
// punishments. It is optional: without an API key Configured reports false
// and callers fall back to manual entry.
package suggest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/dukerupert/gavel/internal/model"
)

// ErrNotConfigured is returned when no API key was supplied.
var ErrNotConfigured = errors.New("suggestions not configured")

// ErrEmptyResponse is returned when the model answered without content.
var ErrEmptyResponse = errors.New("empty completion")

const (
	suggestionCount = 5
	defaultModel    = openai.GPT4oMini
)

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

type Client struct {
	api   *openai.Client
	model string
}

// New returns a Client. A zero Config yields a Client that is not configured.
func New(cfg Config) *Client {
	if cfg.APIKey == "" {
		return &Client{}
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	m := cfg.Model
	if m == "" {
		m = defaultModel
	}
	return &Client{api: openai.NewClientWithConfig(oc), model: m}
}

func (c *Client) Configured() bool {
	return c != nil && c.api != nil
}

func ruleSchema() *jsonschema.Definition {
	return &jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"rules": {
				Type: jsonschema.Array,
				Items: &jsonschema.Definition{
					Type: jsonschema.Object,
					Properties: map[string]jsonschema.Definition{
						"title":       {Type: jsonschema.String},
						"description": {Type: jsonschema.String},
						"severity":    {Type: jsonschema.String, Enum: []string{"low", "medium", "high"}},
					},
					Required:             []string{"title", "description", "severity"},
					AdditionalProperties: false,
				},
			},
		},
		Required:             []string{"rules"},
		AdditionalProperties: false,
	}
}

func punishmentSchema() *jsonschema.Definition {
	return &jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"punishments": {
				Type:  jsonschema.Array,
				Items: &jsonschema.Definition{Type: jsonschema.String},
			},
		},
		Required:             []string{"punishments"},
		AdditionalProperties: false,
	}
}

// SuggestRules proposes house rules suited to familyType, for example
// "共働き夫婦". Severities outside low/medium/high become low and drafts
// without a title are dropped.
func (c *Client) SuggestRules(ctx context.Context, familyType string) ([]model.RuleDraft, error) {
	familyType = strings.TrimSpace(familyType)
	if familyType == "" {
		familyType = "一般的な夫婦"
	}
	prompt := fmt.Sprintf("%s向けの円満な夫婦生活のための家事ルールを%dつ提案してください。", familyType, suggestionCount)

	var out struct {
		Rules []model.RuleDraft `json:"rules"`
	}
	if err := c.complete(ctx, "house_rules", ruleSchema(), prompt, &out); err != nil {
		return nil, fmt.Errorf("suggest rules: %w", err)
	}

	drafts := make([]model.RuleDraft, 0, len(out.Rules))
	for _, d := range out.Rules {
		d.Title = strings.TrimSpace(d.Title)
		d.Description = strings.TrimSpace(d.Description)
		if d.Title == "" {
			continue
		}
		if !d.Severity.Valid() {
			d.Severity = model.SeverityLow
		}
		drafts = append(drafts, d)
	}
	return drafts, nil
}

// SuggestPunishments proposes light-hearted penalties.
func (c *Client) SuggestPunishments(ctx context.Context) ([]string, error) {
	prompt := fmt.Sprintf("夫婦で楽しめる、重すぎず笑える「罰ゲーム」を%dつ提案してください。", suggestionCount)

	var out struct {
		Punishments []string `json:"punishments"`
	}
	if err := c.complete(ctx, "punishments", punishmentSchema(), prompt, &out); err != nil {
		return nil, fmt.Errorf("suggest punishments: %w", err)
	}

	result := make([]string, 0, len(out.Punishments))
	for _, p := range out.Punishments {
		if p = strings.TrimSpace(p); p != "" {
			result = append(result, p)
		}
	}
	return result, nil
}

func (c *Client) complete(ctx context.Context, name string, schema *jsonschema.Definition, prompt string, dst any) error {
	if !c.Configured() {
		return ErrNotConfigured
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: 0.9,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: "You answer in Japanese with JSON only."},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   name,
				Schema: schema,
				Strict: true,
			},
		},
	})
	if err != nil {
		return err
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return ErrEmptyResponse
	}
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), dst); err != nil {
		return fmt.Errorf("decode completion: %w", err)
	}
	return nil
}
