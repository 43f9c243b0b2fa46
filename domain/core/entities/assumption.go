package entities

import (
	"time"

	"github.com/google/uuid"

	"github.com/DoozHub/dooz-pm-suite/pkg/errors"
)

// Origin records whether a human wrote a record or an AI proposal
// materialized it.
type Origin string

const (
	OriginHuman Origin = "human"
	OriginAI    Origin = "ai"
)

func (o Origin) IsValid() bool {
	return o == OriginHuman || o == OriginAI
}

// AssumptionStatus is the lifecycle status of an assumption.
type AssumptionStatus string

const (
	AssumptionStatusActive      AssumptionStatus = "active"
	AssumptionStatusInvalidated AssumptionStatus = "invalidated"
)

// Assumption is a belief the work is built on. It stays active until a
// human invalidates it; invalidated is terminal.
type Assumption struct {
	id                  string
	tenantID            string
	intentID            string
	assumptionStatement string
	confidenceLevel     *float64
	createdFrom         Origin
	createdAt           time.Time
	expiryHint          string
	status              AssumptionStatus
}

// NewAssumption creates an active assumption.
func NewAssumption(tenantID, intentID, statement string, confidence *float64, createdFrom Origin, expiryHint string) (*Assumption, error) {
	if tenantID == "" {
		return nil, errors.NewValidationError("tenant id is required")
	}
	if intentID == "" {
		return nil, errors.NewValidationError("intent id is required")
	}
	if statement == "" {
		return nil, errors.NewValidationError("assumption statement is required")
	}
	if !createdFrom.IsValid() {
		return nil, errors.NewValidationError("created from must be human or ai")
	}
	if confidence != nil && (*confidence < 0 || *confidence > 1) {
		return nil, errors.NewValidationError("confidence level must be between 0 and 1")
	}

	return &Assumption{
		id:                  uuid.New().String(),
		tenantID:            tenantID,
		intentID:            intentID,
		assumptionStatement: statement,
		confidenceLevel:     confidence,
		createdFrom:         createdFrom,
		createdAt:           time.Now().UTC(),
		expiryHint:          expiryHint,
		status:              AssumptionStatusActive,
	}, nil
}

// ReconstructAssumption rebuilds an assumption from persistence.
func ReconstructAssumption(
	id, tenantID, intentID, statement string,
	confidence *float64,
	createdFrom Origin,
	createdAt time.Time,
	expiryHint string,
	status AssumptionStatus,
) *Assumption {
	return &Assumption{
		id:                  id,
		tenantID:            tenantID,
		intentID:            intentID,
		assumptionStatement: statement,
		confidenceLevel:     confidence,
		createdFrom:         createdFrom,
		createdAt:           createdAt,
		expiryHint:          expiryHint,
		status:              status,
	}
}

func (a *Assumption) ID() string                { return a.id }
func (a *Assumption) TenantID() string          { return a.tenantID }
func (a *Assumption) IntentID() string          { return a.intentID }
func (a *Assumption) Statement() string         { return a.assumptionStatement }
func (a *Assumption) ConfidenceLevel() *float64 { return a.confidenceLevel }
func (a *Assumption) CreatedFrom() Origin       { return a.createdFrom }
func (a *Assumption) CreatedAt() time.Time      { return a.createdAt }
func (a *Assumption) ExpiryHint() string        { return a.expiryHint }
func (a *Assumption) Status() AssumptionStatus  { return a.status }

// Invalidate flips an active assumption to invalidated. The flip happens at
// most once; repeating it is a conflict, not a no-op.
func (a *Assumption) Invalidate() error {
	if a.status != AssumptionStatusActive {
		return errors.NewConflictError("assumption is already invalidated")
	}
	a.status = AssumptionStatusInvalidated
	return nil
}
