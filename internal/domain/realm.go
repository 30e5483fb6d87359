package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrNoDefaultAccount = errors.New("no llm account selected and realm has no default account")
	ErrAccountNotFound  = errors.New("llm account not found")
	ErrAccountDisabled  = errors.New("llm account is disabled")
)

// Account is one set of model-provider credentials configured on a realm.
type Account struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Provider string `json:"provider"`
	APIKey   string `json:"api_key"`
	Model    string `json:"model,omitempty"`
	Enabled  bool   `json:"enabled"`
}

// RealmLLMConfig is the LLM section of a realm's settings.
type RealmLLMConfig struct {
	RealmID          uuid.UUID `json:"realm_id"`
	Accounts         []Account `json:"accounts"`
	DefaultAccountID string    `json:"default_account_id,omitempty"`
	RealmContext     string    `json:"realm_context,omitempty"`
	RealmHolderName  string    `json:"realm_holder_name,omitempty"`
}

// ResolveAccount picks the account with the given id, or the realm default when
// id is empty. Only enabled accounts resolve.
func (c *RealmLLMConfig) ResolveAccount(id string) (*Account, error) {
	if id == "" {
		id = c.DefaultAccountID
	}
	if id == "" {
		return nil, ErrNoDefaultAccount
	}
	for i := range c.Accounts {
		if c.Accounts[i].ID != id {
			continue
		}
		if !c.Accounts[i].Enabled {
			return nil, fmt.Errorf("%w: %s", ErrAccountDisabled, id)
		}
		acct := c.Accounts[i]
		return &acct, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, id)
}
