package domain

import (
	"time"
)

// Saga step status constants.
const (
	SagaStepPending     = "pending"
	SagaStepCompleted   = "completed"
	SagaStepFailed      = "failed"
	SagaStepCompensated = "compensated"
	SagaStepSkipped     = "skipped"
)

// Purchase saga step names, in execution order.
const (
	SagaStepLoadGame       = "load_game"
	SagaStepCreatePayment  = "create_payment"
	SagaStepAssembleRecord = "assemble_record"
)

// SagaStep tracks the execution status of a single step.
type SagaStep struct {
	Name       string    `json:"name"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	ExecutedAt time.Time `json:"executed_at,omitempty"`
}

// NewSagaStep creates a new saga step in the pending state.
func NewSagaStep(name string) SagaStep {
	return SagaStep{
		Name:   name,
		Status: SagaStepPending,
	}
}

// Complete marks the step as succeeded.
func (s *SagaStep) Complete() {
	s.Status = SagaStepCompleted
	s.ExecutedAt = time.Now().UTC()
}

// Fail marks the step as failed with the given error message.
func (s *SagaStep) Fail(err string) {
	s.Status = SagaStepFailed
	s.Error = err
	s.ExecutedAt = time.Now().UTC()
}

// Compensate marks a completed step as rolled back.
func (s *SagaStep) Compensate() {
	s.Status = SagaStepCompensated
	s.ExecutedAt = time.Now().UTC()
}

// Saga is the ordered execution record of one multi-step operation.
type Saga struct {
	Steps []SagaStep `json:"steps"`
}

// NewSaga creates a saga with every step pending.
func NewSaga(names ...string) *Saga {
	s := &Saga{Steps: make([]SagaStep, 0, len(names))}
	for _, n := range names {
		s.Steps = append(s.Steps, NewSagaStep(n))
	}
	return s
}

// Step returns the step with the given name, or nil.
func (s *Saga) Step(name string) *SagaStep {
	for i := range s.Steps {
		if s.Steps[i].Name == name {
			return &s.Steps[i]
		}
	}
	return nil
}

// SkipPending marks every step that never ran as skipped.
func (s *Saga) SkipPending() {
	for i := range s.Steps {
		if s.Steps[i].Status == SagaStepPending {
			s.Steps[i].Status = SagaStepSkipped
		}
	}
}

// Succeeded reports whether every step completed.
func (s *Saga) Succeeded() bool {
	for _, st := range s.Steps {
		if st.Status != SagaStepCompleted {
			return false
		}
	}
	return len(s.Steps) > 0
}
