package main

import (
	"fmt"
	"os"
	"time"

	"github.com/Harshitk-cp/signalrealm/internal/domain"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// signalFixture is the YAML form of a signal used by prompt and seed.
type signalFixture struct {
	ID         string         `yaml:"id"`
	Type       string         `yaml:"type"`
	Context    string         `yaml:"context"`
	Created    time.Time      `yaml:"created"`
	Content    string         `yaml:"content"`
	Transcript string         `yaml:"transcript"`
	Notes      []noteFixture  `yaml:"notes"`
	Fields     map[string]any `yaml:"fields"`
}

type noteFixture struct {
	Note      string `yaml:"note"`
	Timestamp string `yaml:"timestamp"`
}

type accountFixture struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Provider string `yaml:"provider"`
	// APIKey may reference environment variables, e.g. "${ANTHROPIC_API_KEY}".
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	Enabled *bool  `yaml:"enabled"`
}

type realmFixture struct {
	ID             string           `yaml:"id"`
	Name           string           `yaml:"name"`
	Holder         string           `yaml:"holder"`
	Context        string           `yaml:"context"`
	DefaultAccount string           `yaml:"default_account"`
	Accounts       []accountFixture `yaml:"accounts"`
}

// seedFixture is one realm with the signals captured in it.
type seedFixture struct {
	Realm   realmFixture    `yaml:"realm"`
	Signals []signalFixture `yaml:"signals"`
}

func decodeYAMLFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func parseOptionalUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid id %q: %w", s, err)
	}
	return id, nil
}

func (f signalFixture) toDomain(realmID uuid.UUID) (*domain.Signal, error) {
	id, err := parseOptionalUUID(f.ID)
	if err != nil {
		return nil, err
	}
	if f.Type == "" {
		return nil, fmt.Errorf("signal %s: type is required", f.ID)
	}
	if unknown := domain.UnknownFields(mapKeys(f.Fields)); len(unknown) > 0 {
		return nil, fmt.Errorf("signal %s: unknown fields %v", f.ID, unknown)
	}

	sig := &domain.Signal{
		ID:        id,
		RealmID:   realmID,
		Type:      f.Type,
		Context:   f.Context,
		CreatedAt: f.Created,
		Payload:   domain.Payload{Content: f.Content, Transcript: f.Transcript},
	}
	for _, n := range f.Notes {
		sig.Annotations.UserNotes = append(sig.Annotations.UserNotes, domain.UserNote{Note: n.Note, Timestamp: n.Timestamp})
	}
	if len(f.Fields) > 0 {
		sig.Fields = domain.FieldMap(f.Fields)
	}
	return sig, nil
}

func (f realmFixture) toDomain() (*domain.RealmLLMConfig, error) {
	id, err := parseOptionalUUID(f.ID)
	if err != nil {
		return nil, err
	}
	cfg := &domain.RealmLLMConfig{
		RealmID:          id,
		DefaultAccountID: f.DefaultAccount,
		RealmContext:     f.Context,
		RealmHolderName:  f.Holder,
	}
	for _, a := range f.Accounts {
		if a.ID == "" || a.Provider == "" {
			return nil, fmt.Errorf("realm account needs id and provider")
		}
		enabled := true
		if a.Enabled != nil {
			enabled = *a.Enabled
		}
		cfg.Accounts = append(cfg.Accounts, domain.Account{
			ID:       a.ID,
			Name:     a.Name,
			Provider: a.Provider,
			APIKey:   os.ExpandEnv(a.APIKey),
			Model:    a.Model,
			Enabled:  enabled,
		})
	}
	return cfg, nil
}

func loadSignalFixture(path string) (*domain.Signal, error) {
	var f signalFixture
	if err := decodeYAMLFile(path, &f); err != nil {
		return nil, err
	}
	return f.toDomain(uuid.Nil)
}

func loadRealmFixture(path string) (*domain.RealmLLMConfig, error) {
	var f realmFixture
	if err := decodeYAMLFile(path, &f); err != nil {
		return nil, err
	}
	return f.toDomain()
}

func mapKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
