package prompts

import (
	"fmt"
	"strings"
	"time"

	"github.com/Harshitk-cp/signalrealm/internal/domain"
)

// DefaultRealmHolderName fills {{realm_holder_name}} when the realm has none configured.
const DefaultRealmHolderName = "the Realm Holder"

// TemplateSource is the read side of the template store.
type TemplateSource interface {
	Text(pass, name string) (string, error)
	Questions(pass string) ([]Question, error)
}

// Prompt is a composed (system, user) pair ready for the model router.
type Prompt struct {
	System string
	User   string
}

type Compositor struct {
	templates TemplateSource
	now       func() time.Time
}

func NewCompositor(templates TemplateSource) *Compositor {
	return &Compositor{templates: templates, now: time.Now}
}

// ComposeAnalysis builds the prompts for one analysis layer. When requested is
// non-empty only the questions for those fields are asked.
func (c *Compositor) ComposeAnalysis(layer domain.Layer, sig *domain.Signal, realm *domain.RealmLLMConfig, requested []string) (Prompt, error) {
	pass := string(layer)

	questions, err := c.templates.Questions(pass)
	if err != nil {
		return Prompt{}, err
	}
	if len(requested) > 0 {
		questions = FilterQuestions(questions, requested)
	}

	return c.compose(pass, sig, realm, questions)
}

// ComposeReflection builds the prompts for one reflection type.
func (c *Compositor) ComposeReflection(rt domain.ReflectionType, sig *domain.Signal, realm *domain.RealmLLMConfig) (Prompt, error) {
	return c.compose(rt.Pass(), sig, realm, nil)
}

func (c *Compositor) compose(pass string, sig *domain.Signal, realm *domain.RealmLLMConfig, questions []Question) (Prompt, error) {
	system, err := c.SystemPrompt(pass, realm)
	if err != nil {
		return Prompt{}, err
	}
	user, err := c.UserPrompt(pass, sig, questions)
	if err != nil {
		return Prompt{}, err
	}
	return Prompt{System: system, User: user}, nil
}

// SystemPrompt joins the invocation, the rendered realm fragment and the pass's
// system fragment with blank lines.
func (c *Compositor) SystemPrompt(pass string, realm *domain.RealmLLMConfig) (string, error) {
	invocation, err := c.templates.Text(Shared, FragmentInvocation)
	if err != nil {
		return "", err
	}
	realmTmpl, err := c.templates.Text(Shared, FragmentRealm)
	if err != nil {
		return "", err
	}
	system, err := c.templates.Text(pass, FragmentSystem)
	if err != nil {
		return "", err
	}

	var realmContext, holder string
	if realm != nil {
		realmContext = realm.RealmContext
		holder = realm.RealmHolderName
	}
	if strings.TrimSpace(holder) == "" {
		holder = DefaultRealmHolderName
	}

	realmText, err := Render(realmTmpl, map[string]Value{
		"realm_context":     Optional(realmContext),
		"realm_holder_name": Required(holder),
	})
	if err != nil {
		return "", fmt.Errorf("render realm template: %w", err)
	}

	return joinSections(invocation, realmText, system), nil
}

// UserPrompt renders the pass's user template against the signal.
func (c *Compositor) UserPrompt(pass string, sig *domain.Signal, questions []Question) (string, error) {
	tmpl, err := c.templates.Text(pass, FragmentUser)
	if err != nil {
		return "", err
	}

	signalContext := sig.Context
	if strings.TrimSpace(signalContext) == "" {
		signalContext = domain.DefaultSignalContext
	}
	created := sig.CreatedAt
	if created.IsZero() {
		created = c.now()
	}

	out, err := Render(tmpl, map[string]Value{
		"type":        Required(sig.Type),
		"context":     Optional(signalContext),
		"created":     Optional(created.UTC().Format(time.RFC3339)),
		"annotations": Optional(FormatAnnotations(sig.Annotations)),
		"content":     Optional(sig.Content()),
		"title":       Optional(sig.StringField(domain.FieldTitle)),
		"summary":     Optional(sig.StringField(domain.FieldSummary)),
		"questions":   Optional(FormatQuestions(questions)),
	})
	if err != nil {
		return "", fmt.Errorf("render %s user template: %w", pass, err)
	}
	return out, nil
}

// FilterQuestions keeps only the questions whose field was requested. Unknown
// field names are ignored.
func FilterQuestions(questions []Question, requested []string) []Question {
	keys := make(map[string]bool, len(requested))
	for _, f := range requested {
		if k, ok := domain.QuestionKey(f); ok {
			keys[k] = true
		}
	}
	var out []Question
	for _, q := range questions {
		if keys[q.Key] {
			out = append(out, q)
		}
	}
	return out
}

// FormatQuestions renders "**key:** text" entries separated by blank lines.
func FormatQuestions(questions []Question) string {
	parts := make([]string, 0, len(questions))
	for _, q := range questions {
		parts = append(parts, fmt.Sprintf("**%s:** %s", q.Key, q.Text))
	}
	return strings.Join(parts, "\n\n")
}

// FormatAnnotations renders the realm holder's notes, or "" when there are none.
func FormatAnnotations(a domain.Annotations) string {
	if len(a.UserNotes) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("### User notes (highest priority context)\n")
	for _, n := range a.UserNotes {
		sb.WriteString("\n- ")
		if n.Timestamp != "" {
			sb.WriteString("[" + n.Timestamp + "] ")
		}
		sb.WriteString(n.Note)
	}
	return sb.String()
}

func joinSections(sections ...string) string {
	parts := make([]string, 0, len(sections))
	for _, s := range sections {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n\n")
}
