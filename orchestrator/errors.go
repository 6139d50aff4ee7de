package orchestrator

import "fmt"

// Stage names the pipeline stage a failure or progress event belongs to.
type Stage string

const (
	StageRoute        Stage = "route"
	StageClassify     Stage = "classify"
	StageCanned       Stage = "canned"
	StageCacheLookup  Stage = "cache_lookup"
	StageRetrieve     Stage = "retrieve"
	StageRerank       Stage = "rerank"
	StageGenerate     Stage = "generate"
	StageGuard        Stage = "guard"
	StageFallback     Stage = "fallback_search"
	StageTranslateOut Stage = "translate_out"
	StageDone         Stage = "done"
)

// RetrievalError reports a failed document retrieval call.
type RetrievalError struct {
	Err error
}

func (e *RetrievalError) Error() string { return fmt.Sprintf("retrieval failed: %v", e.Err) }
func (e *RetrievalError) Unwrap() error { return e.Err }

// GenerationError reports a failed model generation call.
type GenerationError struct {
	Model string
	Err   error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation with %s failed: %v", e.Model, e.Err)
}
func (e *GenerationError) Unwrap() error { return e.Err }

// PipelineError tags any stage failure with the stage it happened in, so
// callers and dashboards can tell a routing problem from a generation one.
type PipelineError struct {
	Stage Stage
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline stage %s failed: %v", e.Stage, e.Err)
}
func (e *PipelineError) Unwrap() error { return e.Err }

func stageErr(stage Stage, err error) *PipelineError {
	return &PipelineError{Stage: stage, Err: err}
}
