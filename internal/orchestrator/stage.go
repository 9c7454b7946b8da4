package orchestrator

import "fmt"

// Stage is the position of a request in the interaction pipeline. Stages
// advance strictly in order; Completed and Failed are terminal.
type Stage int

const (
	StageReceived Stage = iota
	StageTranscribing
	StageInferring
	StageSynthesizing
	StageCompleted
	StageFailed
)

var stageNames = map[Stage]string{
	StageReceived:     "received",
	StageTranscribing: "transcribing",
	StageInferring:    "inferring",
	StageSynthesizing: "synthesizing",
	StageCompleted:    "completed",
	StageFailed:       "failed",
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// MarshalText lets Stage round-trip through JSON cache entries as a name
// rather than a bare integer.
func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Stage) UnmarshalText(text []byte) error {
	for stage, name := range stageNames {
		if name == string(text) {
			*s = stage
			return nil
		}
	}
	return fmt.Errorf("unknown stage %q", string(text))
}
