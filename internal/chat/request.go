package chat

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/Vovarama1992/tabletalk-host/internal/ai"
	"github.com/Vovarama1992/tabletalk-host/internal/conversation"
)

const DefaultMaxMessages = 100

const turnSchema = `{
	"type": "object",
	"required": ["restaurantId", "conversationId", "messages"],
	"properties": {
		"restaurantId": {"type": "string", "minLength": 1},
		"conversationId": {"type": "string", "minLength": 1},
		"messages": {
			"type": "array",
			"minItems": 1,
			"maxItems": %d,
			"items": {
				"type": "object",
				"required": ["role"],
				"properties": {
					"role": {"enum": ["user", "assistant", "system", "data"]},
					"content": {"type": "string"},
					"parts": {"type": "array"}
				}
			}
		}
	}
}`

type TurnRequest struct {
	RestaurantID   string         `json:"restaurantId"`
	ConversationID string         `json:"conversationId"`
	Messages       []InputMessage `json:"messages"`
}

type InputMessage struct {
	Role    string `json:"role"`
	Content string `json:"content,omitempty"`
	Parts   []Part `json:"parts,omitempty"`
}

type PartKind string

const (
	PartText      PartKind = "text"
	PartReasoning PartKind = "reasoning"
	PartOther     PartKind = "other"
)

// Part is one fragment of rich client content.
type Part struct {
	Kind PartKind
	Text string
}

func (p *Part) UnmarshalJSON(b []byte) error {
	var raw struct {
		Type string  `json:"type"`
		Text *string `json:"text"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		*p = Part{Kind: PartOther}
		return nil
	}

	switch PartKind(raw.Type) {
	case PartText:
		if raw.Text == nil {
			*p = Part{Kind: PartOther}
			return nil
		}
		*p = Part{Kind: PartText, Text: *raw.Text}
	case PartReasoning:
		*p = Part{Kind: PartReasoning}
		if raw.Text != nil {
			p.Text = *raw.Text
		}
	default:
		*p = Part{Kind: PartOther}
	}
	return nil
}

func (p Part) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type string `json:"type"`
		Text string `json:"text,omitempty"`
	}{Type: string(p.Kind), Text: p.Text})
}

// Text prefers flat content and otherwise joins the text parts in order.
func (m InputMessage) Text() string {
	if m.Content != "" {
		return m.Content
	}
	var b strings.Builder
	for _, p := range m.Parts {
		if p.Kind == PartText {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

type decoder struct {
	schema *gojsonschema.Schema
}

func newDecoder(maxMessages int) (*decoder, error) {
	if maxMessages <= 0 {
		maxMessages = DefaultMaxMessages
	}
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(fmt.Sprintf(turnSchema, maxMessages)))
	if err != nil {
		return nil, fmt.Errorf("compile turn schema: %w", err)
	}
	return &decoder{schema: schema}, nil
}

// Decode validates the raw body and returns *ValidationError on any violation.
func (d *decoder) Decode(payload []byte) (TurnRequest, error) {
	if !json.Valid(payload) {
		return TurnRequest{}, &ValidationError{Violations: []Violation{
			{Field: "(root)", Message: "Invalid JSON body"},
		}}
	}

	result, err := d.schema.Validate(gojsonschema.NewBytesLoader(payload))
	if err != nil {
		return TurnRequest{}, &ValidationError{Violations: []Violation{
			{Field: "(root)", Message: err.Error()},
		}}
	}
	if !result.Valid() {
		return TurnRequest{}, &ValidationError{Violations: violations(result.Errors())}
	}

	var req TurnRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return TurnRequest{}, &ValidationError{Violations: []Violation{
			{Field: "(root)", Message: err.Error()},
		}}
	}
	return req, nil
}

func violations(errs []gojsonschema.ResultError) []Violation {
	out := make([]Violation, 0, len(errs))
	for _, e := range errs {
		field := e.Field()
		if e.Type() == "required" {
			if prop, ok := e.Details()["property"].(string); ok {
				if field == "(root)" {
					field = prop
				} else {
					field += "." + prop
				}
			}
		}
		out = append(out, Violation{Field: field, Message: e.Description()})
	}
	return out
}

// FilterHistory keeps user/assistant entries, flattened to plain text.
func FilterHistory(msgs []InputMessage) []ai.Message {
	out := make([]ai.Message, 0, len(msgs))
	for _, m := range msgs {
		switch conversation.Role(m.Role) {
		case conversation.RoleUser, conversation.RoleAssistant:
			out = append(out, ai.Message{Role: m.Role, Text: m.Text()})
		}
	}
	return out
}

// triggeringUserText is the content of the last entry when it is a user
// message, otherwise empty.
func triggeringUserText(history []ai.Message) string {
	if len(history) == 0 {
		return ""
	}
	last := history[len(history)-1]
	if last.Role != string(conversation.RoleUser) {
		return ""
	}
	return last.Text
}
