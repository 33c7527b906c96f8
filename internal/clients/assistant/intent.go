package assistant

import (
	"encoding/json"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/tazhate/remindbot/internal/domain"
)

type IntentType string

const (
	IntentReminder     IntentType = "reminder"
	IntentTask         IntentType = "task"
	IntentDelete       IntentType = "delete"
	IntentConversation IntentType = "conversation"
)

// Intent is the classified meaning of a user message.
type Intent struct {
	Type IntentType `json:"type"`
	// Item is the kind to delete, only for IntentDelete.
	Item string `json:"item,omitempty"`
	Text string `json:"text"`
	Time string `json:"time,omitempty"`
	// Message is the free-form reply for IntentConversation.
	Message string `json:"-"`
}

// Kind maps the intent to the entity kind it creates or deletes.
func (i *Intent) Kind() domain.EntityKind {
	if i.Type == IntentTask || (i.Type == IntentDelete && i.Item == string(domain.KindTask)) {
		return domain.KindTask
	}
	return domain.KindReminder
}

// ParseIntent reads a model reply. A JSON object anywhere in the reply is taken
// as a structured intent; broken JSON is repaired before giving up. Anything
// else is conversation.
func ParseIntent(reply string) *Intent {
	reply = strings.TrimSpace(reply)
	conversation := &Intent{Type: IntentConversation, Message: reply}

	start := strings.Index(reply, "{")
	if start < 0 {
		return conversation
	}
	raw := reply[start:]
	if end := strings.LastIndex(raw, "}"); end >= 0 {
		raw = raw[:end+1]
	}

	var in Intent
	if err := json.Unmarshal([]byte(raw), &in); err != nil {
		repaired, rerr := jsonrepair.JSONRepair(raw)
		if rerr != nil {
			return conversation
		}
		if err := json.Unmarshal([]byte(repaired), &in); err != nil {
			return conversation
		}
	}

	in.Type = IntentType(strings.ToLower(strings.TrimSpace(string(in.Type))))
	in.Item = strings.ToLower(strings.TrimSpace(in.Item))
	in.Text = strings.TrimSpace(in.Text)
	in.Time = strings.TrimSpace(in.Time)
	switch in.Type {
	case IntentReminder, IntentTask, IntentDelete:
		return &in
	}
	return conversation
}
