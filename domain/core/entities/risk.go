package entities

import (
	"time"

	"github.com/google/uuid"

	"github.com/DoozHub/dooz-pm-suite/pkg/errors"
)

// RiskSeverity grades how bad a risk would be if it landed.
type RiskSeverity string

const (
	SeverityLow      RiskSeverity = "low"
	SeverityMedium   RiskSeverity = "medium"
	SeverityHigh     RiskSeverity = "high"
	SeverityCritical RiskSeverity = "critical"
)

func (s RiskSeverity) IsValid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// RiskLikelihood grades how likely a risk is to land.
type RiskLikelihood string

const (
	LikelihoodLow    RiskLikelihood = "low"
	LikelihoodMedium RiskLikelihood = "medium"
	LikelihoodHigh   RiskLikelihood = "high"
)

func (l RiskLikelihood) IsValid() bool {
	switch l {
	case LikelihoodLow, LikelihoodMedium, LikelihoodHigh:
		return true
	}
	return false
}

// RiskStatus is the lifecycle status of a risk.
type RiskStatus string

const (
	RiskStatusActive    RiskStatus = "active"
	RiskStatusMitigated RiskStatus = "mitigated"
	RiskStatusAccepted  RiskStatus = "accepted"
)

// Risk is a known threat to an intent. Active risks can be resolved to
// mitigated or accepted; both resolutions are terminal.
type Risk struct {
	id              string
	tenantID        string
	intentID        string
	riskStatement   string
	severity        RiskSeverity
	likelihood      RiskLikelihood
	createdFrom     Origin
	mitigationNotes string
	createdAt       time.Time
	status          RiskStatus
}

// NewRisk creates an active risk. Severity and likelihood are optional
// (empty means ungraded).
func NewRisk(tenantID, intentID, statement string, severity RiskSeverity, likelihood RiskLikelihood, createdFrom Origin, mitigationNotes string) (*Risk, error) {
	if tenantID == "" {
		return nil, errors.NewValidationError("tenant id is required")
	}
	if intentID == "" {
		return nil, errors.NewValidationError("intent id is required")
	}
	if statement == "" {
		return nil, errors.NewValidationError("risk statement is required")
	}
	if severity != "" && !severity.IsValid() {
		return nil, errors.NewValidationError("unknown risk severity: " + string(severity))
	}
	if likelihood != "" && !likelihood.IsValid() {
		return nil, errors.NewValidationError("unknown risk likelihood: " + string(likelihood))
	}
	if !createdFrom.IsValid() {
		return nil, errors.NewValidationError("created from must be human or ai")
	}

	return &Risk{
		id:              uuid.New().String(),
		tenantID:        tenantID,
		intentID:        intentID,
		riskStatement:   statement,
		severity:        severity,
		likelihood:      likelihood,
		createdFrom:     createdFrom,
		mitigationNotes: mitigationNotes,
		createdAt:       time.Now().UTC(),
		status:          RiskStatusActive,
	}, nil
}

// ReconstructRisk rebuilds a risk from persistence.
func ReconstructRisk(
	id, tenantID, intentID, statement string,
	severity RiskSeverity,
	likelihood RiskLikelihood,
	createdFrom Origin,
	mitigationNotes string,
	createdAt time.Time,
	status RiskStatus,
) *Risk {
	return &Risk{
		id:              id,
		tenantID:        tenantID,
		intentID:        intentID,
		riskStatement:   statement,
		severity:        severity,
		likelihood:      likelihood,
		createdFrom:     createdFrom,
		mitigationNotes: mitigationNotes,
		createdAt:       createdAt,
		status:          status,
	}
}

func (r *Risk) ID() string                 { return r.id }
func (r *Risk) TenantID() string           { return r.tenantID }
func (r *Risk) IntentID() string           { return r.intentID }
func (r *Risk) Statement() string          { return r.riskStatement }
func (r *Risk) Severity() RiskSeverity     { return r.severity }
func (r *Risk) Likelihood() RiskLikelihood { return r.likelihood }
func (r *Risk) CreatedFrom() Origin        { return r.createdFrom }
func (r *Risk) MitigationNotes() string    { return r.mitigationNotes }
func (r *Risk) CreatedAt() time.Time       { return r.createdAt }
func (r *Risk) Status() RiskStatus         { return r.status }

// Resolve moves an active risk to mitigated or accepted, optionally
// recording how it was handled. Resolutions are terminal.
func (r *Risk) Resolve(target RiskStatus, mitigationNotes string) error {
	if target != RiskStatusMitigated && target != RiskStatusAccepted {
		return errors.NewValidationError("risk can only be resolved to mitigated or accepted")
	}
	if r.status != RiskStatusActive {
		return errors.NewConflictError("risk is already resolved as " + string(r.status))
	}
	r.status = target
	if mitigationNotes != "" {
		r.mitigationNotes = mitigationNotes
	}
	return nil
}
