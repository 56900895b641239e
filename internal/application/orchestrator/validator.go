package orchestrator

import (
	"fmt"
	"unicode/utf8"

	"github.com/aescanero/eduvid/internal/domain"
)

const (
	maxConceptNameLen  = 200
	maxDomainLen       = 100
	maxRequirementsLen = 2000
)

// Validator validates generation requests
type Validator struct{}

// NewValidator creates a new request validator
func NewValidator() *Validator {
	return &Validator{}
}

// Validate normalizes and validates a request
func (v *Validator) Validate(req domain.GenerationRequest) (domain.GenerationRequest, error) {
	req, err := req.Normalize()
	if err != nil {
		return req, err
	}

	if utf8.RuneCountInString(req.ConceptName) > maxConceptNameLen {
		return req, fmt.Errorf("%w: concept name longer than %d characters", domain.ErrInvalidRequest, maxConceptNameLen)
	}
	if utf8.RuneCountInString(req.Domain) > maxDomainLen {
		return req, fmt.Errorf("%w: domain longer than %d characters", domain.ErrInvalidRequest, maxDomainLen)
	}
	if utf8.RuneCountInString(req.CustomRequirements) > maxRequirementsLen {
		return req, fmt.Errorf("%w: custom requirements longer than %d characters", domain.ErrInvalidRequest, maxRequirementsLen)
	}

	return req, nil
}
