package orchestrator

import (
	"encoding/json"
	"fmt"
)

// Composer assembles the final result payload and the cache entry. It is
// the only place the cached flag is decided: fresh computations are
// cached=false, anything served from the cache or joined from an
// in-flight computation is cached=true.
type Composer struct{}

// Fresh builds the result of a newly computed pipeline run.
func (Composer) Fresh(text, audioID string) Result {
	return Result{
		Text:    text,
		AudioID: audioID,
		Stage:   StageCompleted,
		Cached:  false,
	}
}

// Joined marks a result delivered to a follower of an in-flight
// computation. No stage was rerun for this caller.
func (Composer) Joined(res Result) Result {
	res.Cached = true
	res.Stage = StageCompleted
	return res
}

// Encode serializes a result for storage. The cached flag is not
// persisted; FromCache decides it on the way out.
func (Composer) Encode(res Result) ([]byte, error) {
	res.Cached = false
	data, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return data, nil
}

// FromCache rebuilds a stored result and marks it as served from cache.
func (Composer) FromCache(data []byte) (Result, error) {
	var res Result
	if err := json.Unmarshal(data, &res); err != nil {
		return Result{}, fmt.Errorf("decode cached result: %w", err)
	}
	res.Cached = true
	res.Stage = StageCompleted
	return res, nil
}
