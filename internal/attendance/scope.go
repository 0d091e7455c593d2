package attendance

import (
	"fmt"

	"github.com/shrimpsizemoose/klassbok/internal/models"
)

// Action is what a scope change resolves to.
type Action int

const (
	ActionNone Action = iota
	ActionReloadVisited
	ActionReloadPersisted
	ActionConfirmReset
)

func (a Action) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionReloadVisited:
		return "reload_visited"
	case ActionReloadPersisted:
		return "reload_persisted"
	case ActionConfirmReset:
		return "confirm_reset"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// MarshalText encodes an action by name in JSON responses and cached sessions.
func (a Action) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// Decide resolves a scope change without touching any state.
// A scope visited earlier in the same edit flow wins over the persisted record,
// since its in-memory flags are newer than what was saved.
func Decide(oldScope, newScope string, hasPersisted, wasVisited bool) Action {
	if oldScope == newScope {
		return ActionNone
	}
	if wasVisited {
		return ActionReloadVisited
	}
	if hasPersisted {
		return ActionReloadPersisted
	}
	return ActionConfirmReset
}

// Groups lists the distinct group labels of roster in order of first appearance.
func Groups(roster []models.Student) []string {
	seen := make(map[string]bool)
	var groups []string
	for i := range roster {
		if !roster[i].HasGroup() {
			continue
		}
		label := *roster[i].Group
		if !seen[label] {
			seen[label] = true
			groups = append(groups, label)
		}
	}
	return groups
}

// DefaultScope picks the scope of a session that has no saved record yet.
func DefaultScope(roster []models.Student, cfg *models.ClassConfig) string {
	groups := Groups(roster)
	if len(groups) == 0 {
		return ScopeAll
	}
	if cfg != nil && cfg.Mode == models.ModeComplete {
		return ScopeAll
	}
	return groups[0]
}

// Confirmer asks the user a blocking yes/no question.
type Confirmer interface {
	Confirm(message string) bool
}

// ConfirmFunc adapts a plain function to Confirmer.
type ConfirmFunc func(message string) bool

// Confirm calls f(message).
func (f ConfirmFunc) Confirm(message string) bool {
	return f(message)
}

func resetPrompt(oldScope string) string {
	return fmt.Sprintf("switching will discard unsaved attendance entered for %s", oldScope)
}
