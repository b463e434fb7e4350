package shared

import (
	"errors"
	"net/http"
	"sort"
	"strings"

	"competency/internal/domain/assessment"
	"competency/internal/transport/http/api"
)

type ValidationIssue struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// Validator collects field issues so a request reports all of them in one
// 400 instead of failing on the first.
type Validator struct {
	issues []ValidationIssue
}

func NewValidator() *Validator {
	return &Validator{}
}

func (v *Validator) Add(field, reason string) {
	if reason = strings.TrimSpace(reason); reason == "" {
		return
	}
	v.issues = append(v.issues, ValidationIssue{Field: field, Reason: reason})
}

func (v *Validator) Required(field, value, reason string) {
	if strings.TrimSpace(value) == "" {
		v.Add(field, reason)
	}
}

// Rating flags a missing rating or one outside the 1-5 scale. The comments
// rule stays with the rating policy, which knows whether it is enabled.
func (v *Validator) Rating(field string, rating *int) {
	switch {
	case rating == nil:
		v.Add(field, "rating is required")
	case !assessment.Rating(*rating).Valid():
		v.Add(field, "rating must be an integer between 1 and 5")
	}
}

// Merge folds a domain validation failure into the collected issues and
// reports whether err was one.
func (v *Validator) Merge(err error) bool {
	var validation *assessment.ValidationError
	if !errors.As(err, &validation) {
		return false
	}
	v.Add(validation.Field, validation.Message)
	return true
}

func (v *Validator) HasIssues() bool {
	return len(v.issues) > 0
}

// Issues returns the issues ordered by field, then reason.
func (v *Validator) Issues() []ValidationIssue {
	if len(v.issues) == 0 {
		return nil
	}
	out := append([]ValidationIssue(nil), v.issues...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Field == out[j].Field {
			return out[i].Reason < out[j].Reason
		}
		return out[i].Field < out[j].Field
	})
	return out
}

func (v *Validator) Reject(w http.ResponseWriter, requestID string) bool {
	if !v.HasIssues() {
		return false
	}
	FailValidation(w, requestID, v.Issues())
	return true
}

// OneOf flags a non-empty value that is not one of the allowed enum values.
// Matching is exact; enum values are lower case on the wire.
func OneOf[T ~string](v *Validator, field, value string, allowed []T, reason string) {
	if value == "" {
		return
	}
	for _, candidate := range allowed {
		if value == string(candidate) {
			return
		}
	}
	v.Add(field, reason)
}

func FailValidation(w http.ResponseWriter, requestID string, issues []ValidationIssue) {
	api.FailWithDetails(w, http.StatusBadRequest, "validation_error", "payload validation failed",
		map[string]any{"fields": issues}, requestID)
}
