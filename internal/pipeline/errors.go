package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/mohammad-safakhou/threader/internal/structured"
	"github.com/mohammad-safakhou/threader/models"
	"github.com/mohammad-safakhou/threader/provider"
	"github.com/mohammad-safakhou/threader/tools/web_search"
)

type Stage string

const (
	StageInput     Stage = "input"
	StageSearch    Stage = "search"
	StageRank      Stage = "rank"
	StageFetch     Stage = "fetch"
	StageSummarize Stage = "summarize"
	StageCompose   Stage = "compose"
)

// Kind tells the caller what to do about a failure: fix the input, fix the
// configuration, try again later, or inspect the model output.
type Kind string

const (
	KindInput    Kind = "input"
	KindConfig   Kind = "config"
	KindUpstream Kind = "upstream"
	KindParse    Kind = "parse"
)

var (
	ErrEmptyTopic   = errors.New("topic is empty")
	ErrNoDocuments  = errors.New("no article could be fetched")
	ErrRunCancelled = errors.New("run cancelled")
)

// StageError wraps every failure returned by Run.
type StageError struct {
	Stage Stage
	Kind  Kind
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed (%s): %v", e.Stage, e.Kind, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Raw returns the rejected model reply when the failure is a parse error.
func (e *StageError) Raw() string {
	var pe *structured.ParseError
	if errors.As(e.Err, &pe) {
		return pe.Raw
	}
	return ""
}

// RunError is the serialisable form kept on the run.
func (e *StageError) RunError() *models.RunError {
	return &models.RunError{Stage: string(e.Stage), Kind: string(e.Kind), Message: e.Err.Error(), Raw: e.Raw()}
}

// Classify maps an error from any stage to its Kind.
func Classify(err error) Kind {
	var (
		pe *structured.ParseError
		se *web_search.StatusError
	)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrEmptyTopic):
		return KindInput
	case errors.As(err, &pe):
		return KindParse
	case errors.Is(err, web_search.ErrMissingAPIKey), provider.IsAuthError(err):
		return KindConfig
	case errors.As(err, &se) && se.Unauthorized():
		return KindConfig
	default:
		return KindUpstream
	}
}

func stageError(stage Stage, err error) *StageError {
	var se *StageError
	if errors.As(err, &se) {
		return se
	}
	if errors.Is(err, context.Canceled) {
		err = fmt.Errorf("%w: %v", ErrRunCancelled, err)
	}
	return &StageError{Stage: stage, Kind: Classify(err), Err: err}
}
