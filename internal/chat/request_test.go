package chat

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vovarama1992/tabletalk-host/internal/ai"
)

func mustDecoder(t *testing.T) *decoder {
	t.Helper()
	d, err := newDecoder(DefaultMaxMessages)
	require.NoError(t, err)
	return d
}

func fields(t *testing.T, err error) []string {
	t.Helper()
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	var out []string
	for _, v := range ve.Violations {
		out = append(out, v.Field)
	}
	return out
}

func turnPayload(n int) []byte {
	msgs := make([]string, n)
	for i := range msgs {
		msgs[i] = fmt.Sprintf(`{"role":"user","content":"m%d"}`, i)
	}
	return []byte(`{"restaurantId":"r1","conversationId":"c1","messages":[` + strings.Join(msgs, ",") + `]}`)
}

func TestDecode_Valid(t *testing.T) {
	req, err := mustDecoder(t).Decode(turnPayload(100))
	require.NoError(t, err)
	assert.Equal(t, "r1", req.RestaurantID)
	assert.Equal(t, "c1", req.ConversationID)
	assert.Len(t, req.Messages, 100)
}

func TestDecode_TooManyMessages(t *testing.T) {
	_, err := mustDecoder(t).Decode(turnPayload(101))
	assert.Equal(t, []string{"messages"}, fields(t, err))
}

func TestDecode_Violations(t *testing.T) {
	cases := []struct {
		name string
		body string
		want []string
	}{
		{"invalid json", `{"restaurantId":`, []string{"(root)"}},
		{"missing ids", `{"messages":[{"role":"user","content":"hi"}]}`, []string{"restaurantId", "conversationId"}},
		{"empty ids", `{"restaurantId":"","conversationId":"","messages":[{"role":"user"}]}`, []string{"restaurantId", "conversationId"}},
		{"no messages", `{"restaurantId":"r","conversationId":"c","messages":[]}`, []string{"messages"}},
		{"bad role", `{"restaurantId":"r","conversationId":"c","messages":[{"role":"tool","content":"x"}]}`, []string{"messages.0.role"}},
		{"missing role", `{"restaurantId":"r","conversationId":"c","messages":[{"content":"x"}]}`, []string{"messages.0.role"}},
		{"content not string", `{"restaurantId":"r","conversationId":"c","messages":[{"role":"user","content":5}]}`, []string{"messages.0.content"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := mustDecoder(t).Decode([]byte(tc.body))
			assert.ElementsMatch(t, tc.want, fields(t, err))
		})
	}
}

func TestDecode_CustomLimit(t *testing.T) {
	d, err := newDecoder(2)
	require.NoError(t, err)

	_, err = d.Decode(turnPayload(3))
	assert.Equal(t, []string{"messages"}, fields(t, err))
}

func TestPartsText(t *testing.T) {
	var m InputMessage
	require.NoError(t, json.Unmarshal([]byte(`{
		"role": "user",
		"parts": [
			{"type": "text", "text": "Are you "},
			{"type": "reasoning", "text": "thinking"},
			{"type": "step-start"},
			"odd",
			null,
			{"type": "text"},
			{"type": "text", "text": "open late?"}
		]
	}`), &m))

	require.Len(t, m.Parts, 7)
	assert.Equal(t, PartReasoning, m.Parts[1].Kind)
	assert.Equal(t, PartOther, m.Parts[2].Kind)
	assert.Equal(t, PartOther, m.Parts[3].Kind)
	assert.Equal(t, "Are you open late?", m.Text())

	m.Content = "flat wins"
	assert.Equal(t, "flat wins", m.Text())
}

func TestFilterHistory(t *testing.T) {
	got := FilterHistory([]InputMessage{
		{Role: "system", Content: "ignore me"},
		{Role: "user", Content: "hi"},
		{Role: "data", Content: "{}"},
		{Role: "assistant", Parts: []Part{{Kind: PartText, Text: "hello"}}},
	})
	assert.Equal(t, []ai.Message{
		{Role: "user", Text: "hi"},
		{Role: "assistant", Text: "hello"},
	}, got)

	assert.Empty(t, FilterHistory([]InputMessage{{Role: "system"}, {Role: "data"}}))
}

func TestTriggeringUserText(t *testing.T) {
	assert.Equal(t, "q", triggeringUserText([]ai.Message{{Role: "assistant", Text: "a"}, {Role: "user", Text: "q"}}))
	assert.Equal(t, "", triggeringUserText([]ai.Message{{Role: "user", Text: "q"}, {Role: "assistant", Text: "a"}}))
	assert.Equal(t, "", triggeringUserText(nil))
}
