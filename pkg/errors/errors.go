package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions
var (
	ErrInvalidFormat       = errors.New("unsupported audio format")
	ErrUnsupportedChannels = errors.New("unsupported channel count")
	ErrFormatMismatch      = errors.New("output already opened with a different format")
	ErrNotPlaying          = errors.New("nothing is playing")
	ErrTrackNotFound       = errors.New("track not found")
	ErrEmptyQuery          = errors.New("search query is empty")
	ErrNoResults           = errors.New("no results found")
	ErrDependencyMissing   = errors.New("required program not found in PATH")
	ErrPipeTimeout         = errors.New("timed out waiting for stream producer")
)

// Pipeline stages reported by PipelineError
const (
	StageFIFO     = "fifo"
	StageSpawn    = "spawn"
	StageProducer = "producer"
	StageOpen     = "open"
)

// DecoderOpenError is returned when an audio file cannot be opened or decoded
type DecoderOpenError struct {
	Path string
	Err  error
}

func (e *DecoderOpenError) Error() string {
	return fmt.Sprintf("open decoder for %s: %v", e.Path, e.Err)
}

func (e *DecoderOpenError) Unwrap() error {
	return e.Err
}

// SinkOpenError is returned when the audio output cannot be opened
type SinkOpenError struct {
	Backend string
	Err     error
}

func (e *SinkOpenError) Error() string {
	return fmt.Sprintf("open %s output: %v", e.Backend, e.Err)
}

func (e *SinkOpenError) Unwrap() error {
	return e.Err
}

// PipelineError reports which step of the stream pipeline failed
type PipelineError struct {
	Stage string
	ID    string
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("stream %s failed at %s: %v", e.ID, e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// NewPipelineError creates a new PipelineError
func NewPipelineError(stage, id string, err error) *PipelineError {
	return &PipelineError{Stage: stage, ID: id, Err: err}
}

// PlayerError wraps errors with additional context
type PlayerError struct {
	Op     string // Operation that failed
	Source string // Source name if applicable
	Err    error  // Underlying error
}

func (e *PlayerError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("%s failed for %s: %v", e.Op, e.Source, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *PlayerError) Unwrap() error {
	return e.Err
}

// NewPlayerError creates a new PlayerError
func NewPlayerError(op, source string, err error) *PlayerError {
	return &PlayerError{Op: op, Source: source, Err: err}
}

// ScanError represents an error while listing a music directory
type ScanError struct {
	Path string
	Err  error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("scan error at %s: %v", e.Path, e.Err)
}

func (e *ScanError) Unwrap() error {
	return e.Err
}
