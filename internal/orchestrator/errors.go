package orchestrator

import (
	"errors"
	"fmt"
)

// errEmptyTranscript marks audio that transcribed to nothing usable.
var errEmptyTranscript = errors.New("audio produced an empty transcript")

// The error taxonomy callers see. Every failure surfaces as exactly one of
// these, carrying the stage it happened in; raw collaborator errors never
// escape the pipeline.

// ValidationError reports unusable user input (missing or undecodable
// image). No collaborator is invoked once validation fails.
type ValidationError struct {
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("validation: %s: %v", e.Reason, e.Err)
	}
	return "validation: " + e.Reason
}

func (e *ValidationError) Unwrap() error { return e.Err }

// TranscriptionError reports a failed transcription when audio was the
// sole input channel. With a text prompt present the same failure is
// tolerated and never surfaces.
type TranscriptionError struct {
	Err error
}

func (e *TranscriptionError) Error() string {
	return fmt.Sprintf("transcription failed: %v", e.Err)
}

func (e *TranscriptionError) Unwrap() error { return e.Err }

// UpstreamAIError reports an inference failure after the adapter's retry
// budget is spent, or an unretryable provider rejection. Fatal for the
// request: no answer exists to degrade to.
type UpstreamAIError struct {
	Err error
}

func (e *UpstreamAIError) Error() string {
	return fmt.Sprintf("upstream inference failed: %v", e.Err)
}

func (e *UpstreamAIError) Unwrap() error { return e.Err }

// SynthesisError is never fatal: the pipeline logs it and completes with a
// text-only result.
type SynthesisError struct {
	Err error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("speech synthesis failed: %v", e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }

// FailureStage maps a pipeline error to the stage it belongs to.
func FailureStage(err error) (Stage, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return StageReceived, true
	}
	var terr *TranscriptionError
	if errors.As(err, &terr) {
		return StageTranscribing, true
	}
	var uerr *UpstreamAIError
	if errors.As(err, &uerr) {
		return StageInferring, true
	}
	var serr *SynthesisError
	if errors.As(err, &serr) {
		return StageSynthesizing, true
	}
	return StageFailed, false
}
