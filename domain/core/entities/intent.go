package entities

import (
	"time"

	"github.com/google/uuid"

	"github.com/DoozHub/dooz-pm-suite/pkg/errors"
)

// IntentState is the lifecycle state of an intent.
type IntentState string

const (
	StateResearch  IntentState = "research"
	StatePlanning  IntentState = "planning"
	StateExecution IntentState = "execution"
	StateArchived  IntentState = "archived"
)

// allowedTransitions is the full lifecycle table. Absent keys or empty sets
// mean the state is terminal. Self-loops are intentionally not listed.
var allowedTransitions = map[IntentState][]IntentState{
	StateResearch:  {StatePlanning, StateArchived},
	StatePlanning:  {StateResearch, StateExecution, StateArchived},
	StateExecution: {StatePlanning, StateArchived},
	StateArchived:  {},
}

// AllowedTransitions returns the legal targets from a state. The returned
// slice is a copy; archived returns an empty (non-nil) slice.
func AllowedTransitions(from IntentState) []IntentState {
	targets := allowedTransitions[from]
	out := make([]IntentState, len(targets))
	copy(out, targets)
	return out
}

// CanTransition reports whether from -> to is in the lifecycle table.
func CanTransition(from, to IntentState) bool {
	for _, target := range allowedTransitions[from] {
		if target == to {
			return true
		}
	}
	return false
}

// ParseIntentState validates a raw state string.
func ParseIntentState(s string) (IntentState, error) {
	switch IntentState(s) {
	case StateResearch, StatePlanning, StateExecution, StateArchived:
		return IntentState(s), nil
	}
	return "", errors.NewValidationError("unknown intent state: " + s)
}

// VisibilityScope controls who inside the tenant can read an intent.
type VisibilityScope string

const (
	VisibilityPrivate      VisibilityScope = "private"
	VisibilityTeam         VisibilityScope = "team"
	VisibilityOrganization VisibilityScope = "organization"
)

func (v VisibilityScope) IsValid() bool {
	switch v {
	case VisibilityPrivate, VisibilityTeam, VisibilityOrganization:
		return true
	}
	return false
}

// Intent is a unit of purposeful work moving through the research,
// planning, execution, archived lifecycle. State only changes through
// TransitionTo so the lifecycle table cannot be bypassed.
type Intent struct {
	id                  string
	tenantID            string
	title               string
	description         string
	currentState        IntentState
	createdBy           string
	createdAt           time.Time
	lastHumanReviewedAt *time.Time
	confidenceLevel     *float64
	visibilityScope     VisibilityScope
	version             int
}

// NewIntent creates an intent in the research state.
func NewIntent(tenantID, createdBy, title, description string, visibility VisibilityScope) (*Intent, error) {
	if tenantID == "" {
		return nil, errors.NewValidationError("tenant id is required")
	}
	if createdBy == "" {
		return nil, errors.NewValidationError("created by is required")
	}
	if title == "" {
		return nil, errors.NewValidationError("intent title is required")
	}
	if visibility == "" {
		visibility = VisibilityTeam
	}
	if !visibility.IsValid() {
		return nil, errors.NewValidationError("unknown visibility scope: " + string(visibility))
	}

	return &Intent{
		id:              uuid.New().String(),
		tenantID:        tenantID,
		title:           title,
		description:     description,
		currentState:    StateResearch,
		createdBy:       createdBy,
		createdAt:       time.Now().UTC(),
		visibilityScope: visibility,
		version:         0,
	}, nil
}

// ReconstructIntent rebuilds an intent from persistence without validation
// side effects. Used only by repositories.
func ReconstructIntent(
	id, tenantID, title, description string,
	state IntentState,
	createdBy string,
	createdAt time.Time,
	lastHumanReviewedAt *time.Time,
	confidenceLevel *float64,
	visibility VisibilityScope,
	version int,
) *Intent {
	return &Intent{
		id:                  id,
		tenantID:            tenantID,
		title:               title,
		description:         description,
		currentState:        state,
		createdBy:           createdBy,
		createdAt:           createdAt,
		lastHumanReviewedAt: lastHumanReviewedAt,
		confidenceLevel:     confidenceLevel,
		visibilityScope:     visibility,
		version:             version,
	}
}

// Getters

func (i *Intent) ID() string                       { return i.id }
func (i *Intent) TenantID() string                 { return i.tenantID }
func (i *Intent) Title() string                    { return i.title }
func (i *Intent) Description() string              { return i.description }
func (i *Intent) CurrentState() IntentState        { return i.currentState }
func (i *Intent) CreatedBy() string                { return i.createdBy }
func (i *Intent) CreatedAt() time.Time             { return i.createdAt }
func (i *Intent) ConfidenceLevel() *float64        { return i.confidenceLevel }
func (i *Intent) VisibilityScope() VisibilityScope { return i.visibilityScope }
func (i *Intent) Version() int                     { return i.version }

// LastHumanReviewedAt returns the last review timestamp, nil if never reviewed.
func (i *Intent) LastHumanReviewedAt() *time.Time {
	if i.lastHumanReviewedAt == nil {
		return nil
	}
	t := *i.lastHumanReviewedAt
	return &t
}

// TransitionTo moves the intent to target if the lifecycle table allows it.
// A successful transition counts as a human review. Archived is absorbing:
// every transition out of it fails with an empty allowed set.
func (i *Intent) TransitionTo(target IntentState, now time.Time) error {
	if _, err := ParseIntentState(string(target)); err != nil {
		return err
	}
	if !CanTransition(i.currentState, target) {
		allowed := AllowedTransitions(i.currentState)
		allowedStrs := make([]string, len(allowed))
		for n, s := range allowed {
			allowedStrs[n] = string(s)
		}
		return errors.NewInvalidTransitionError(string(i.currentState), string(target), allowedStrs)
	}

	now = now.UTC()
	i.currentState = target
	i.lastHumanReviewedAt = &now
	i.version++
	return nil
}

// MarkReviewed records a human review without touching state. Idempotent;
// legal in every state including archived.
func (i *Intent) MarkReviewed(now time.Time) {
	now = now.UTC()
	i.lastHumanReviewedAt = &now
	i.version++
}

// SetConfidence records the team's confidence in the intent, in [0, 1].
func (i *Intent) SetConfidence(level float64) error {
	if level < 0 || level > 1 {
		return errors.NewValidationError("confidence level must be between 0 and 1")
	}
	i.confidenceLevel = &level
	i.version++
	return nil
}
