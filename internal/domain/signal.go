package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// DefaultSignalContext is substituted when a signal carries no context tag.
const DefaultSignalContext = "CAPTURE"

type Signal struct {
	ID          uuid.UUID      `json:"id"`
	RealmID     uuid.UUID      `json:"realm_id"`
	Type        string         `json:"type"`
	Context     string         `json:"context,omitempty"`
	Payload     Payload        `json:"payload"`
	Annotations Annotations    `json:"annotations"`
	Fields      FieldMap       `json:"fields"`
	History     []HistoryEntry `json:"history,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Content returns the text fed into prompts: the direct content field, or the
// transcript for recorded signals.
func (s *Signal) Content() string {
	return s.Payload.Text()
}

// StringField returns a string-valued analysis field, or "" when unset.
func (s *Signal) StringField(name string) string {
	if s.Fields == nil {
		return ""
	}
	v, _ := s.Fields[name].(string)
	return v
}

// Payload is the type-dependent body of a signal. Text signals carry content,
// audio/video signals carry a transcript. Any other keys are preserved as-is.
type Payload struct {
	Content    string         `json:"content,omitempty"`
	Transcript string         `json:"transcript,omitempty"`
	Extra      map[string]any `json:"-"`
}

func (p Payload) Text() string {
	if p.Content != "" {
		return p.Content
	}
	return p.Transcript
}

func (p *Payload) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = Payload{}
	for k, v := range raw {
		switch k {
		case "content":
			if s, ok := v.(string); ok {
				p.Content = s
				continue
			}
		case "transcript":
			if s, ok := v.(string); ok {
				p.Transcript = s
				continue
			}
		}
		if p.Extra == nil {
			p.Extra = make(map[string]any)
		}
		p.Extra[k] = v
	}
	return nil
}

func (p Payload) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(p.Extra)+2)
	for k, v := range p.Extra {
		out[k] = v
	}
	if p.Content != "" {
		out["content"] = p.Content
	}
	if p.Transcript != "" {
		out["transcript"] = p.Transcript
	}
	return json.Marshal(out)
}

type Annotations struct {
	UserNotes []UserNote `json:"user_notes,omitempty"`
}

// UserNote is a note the realm holder attached to a signal. Notes are injected
// verbatim into every prompt.
type UserNote struct {
	Note      string `json:"note"`
	Timestamp string `json:"timestamp"`
}
