package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type ReflectionType string

const (
	ReflectionMirror    ReflectionType = "MIRROR"
	ReflectionMyth      ReflectionType = "MYTH"
	ReflectionNarrative ReflectionType = "NARRATIVE"
)

var ReflectionTypes = []ReflectionType{ReflectionMirror, ReflectionMyth, ReflectionNarrative}

// ParseReflectionType accepts either case ("mirror" or "MIRROR").
func ParseReflectionType(s string) (ReflectionType, bool) {
	rt := ReflectionType(strings.ToUpper(strings.TrimSpace(s)))
	switch rt {
	case ReflectionMirror, ReflectionMyth, ReflectionNarrative:
		return rt, true
	}
	return "", false
}

// Pass is the template directory name for this reflection type.
func (t ReflectionType) Pass() string {
	return strings.ToLower(string(t))
}

// Reflection is a free-text artifact produced for a signal. Artifacts are
// immutable; reflecting again creates a new one.
type Reflection struct {
	ID        uuid.UUID      `json:"id"`
	SignalID  uuid.UUID      `json:"signal_id"`
	RealmID   uuid.UUID      `json:"realm_id"`
	Type      ReflectionType `json:"type"`
	Source    string         `json:"source"`
	Content   string         `json:"content"`
	History   []HistoryEntry `json:"history"`
	CreatedAt time.Time      `json:"created_at"`
}
