// internal/workers/application/validate-application-data/models.go
package validateapplicationdata

import "hireflow/internal/wizard"

// Input asks for one stage's validation, or the final gate when Stage is 0.
type Input struct {
	Stage int              `json:"stage"`
	Form  wizard.FormState `json:"form"`
}

type Output struct {
	IsValid          bool              `json:"isValid"`
	Stage            string            `json:"stage"`
	ValidationErrors []ValidationError `json:"validationErrors"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

const finalStage = "final"

// inputSchema guards the job variables before they are decoded.
const inputSchema = `{
	"type": "object",
	"required": ["form"],
	"properties": {
		"stage": {"type": "integer", "minimum": 0, "maximum": 5},
		"form": {
			"type": "object",
			"properties": {
				"applicant": {"type": "object"},
				"workHistory": {"type": ["array", "null"]},
				"education": {"type": ["array", "null"]},
				"skills": {"type": ["array", "null"], "items": {"type": "string"}},
				"termsAccepted": {"type": "boolean"}
			}
		}
	}
}`
