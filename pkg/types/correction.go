// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// CorrectionRecord captures a user's fix to an extraction output so it can
// be replayed later as training or evaluation data.
type CorrectionRecord struct {
	// ID is a UUID assigned when the record is logged.
	ID string `json:"id" yaml:"id"`

	// TaskType names the extraction task (e.g. "pin_extraction").
	TaskType string `json:"task_type" yaml:"task_type"`

	// InputContext is the prompt or context text sent to the model.
	InputContext string `json:"input_context" yaml:"input_context"`

	// LLMOutput is the model output, JSON-encoded when structured.
	LLMOutput string `json:"llm_output" yaml:"llm_output"`

	// UserCorrection is the corrected output, JSON-encoded when structured.
	UserCorrection string `json:"user_correction" yaml:"user_correction"`

	ModelVersion string    `json:"model_version" yaml:"model_version"`
	Confidence   float64   `json:"confidence" yaml:"confidence"`
	CreatedAt    time.Time `json:"created_at" yaml:"created_at"`
}
