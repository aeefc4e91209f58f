package domain

import (
	"sync"
	"time"
)

// Phase is the current node of the session state machine.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseUploaded   Phase = "uploaded"
	PhaseProcessing Phase = "processing"
	PhaseSucceeded  Phase = "succeeded"
	PhaseFailed     Phase = "failed"
)

// FallbackErrorMessage is shown when a failure carries no message of its own.
const FallbackErrorMessage = "generation failed, please try again"

// Session is the single source of truth for one user's headshot attempt. The
// phase tag makes illegal combinations unrepresentable: a result only exists
// in PhaseSucceeded, an error message only in PhaseFailed, and PhaseProcessing
// always has a source image. Only the latest attempt is kept.
type Session struct {
	id string

	mu       sync.Mutex
	phase    Phase
	original *EncodedImage
	result   *EncodedImage
	errMsg   string
	updated  time.Time
}

// Snapshot is a point-in-time read of a session for the presentation layer.
type Snapshot struct {
	ID        string
	Phase     Phase
	Original  *EncodedImage
	Result    *EncodedImage
	Error     string
	UpdatedAt time.Time
}

func NewSession(id string) *Session {
	return &Session{id: id, phase: PhaseIdle, updated: time.Now()}
}

func (s *Session) ID() string { return s.id }

// SelectImage installs a freshly loaded image and resets any previous result
// or error, moving to PhaseUploaded. Rejected while a generation is in
// flight: with no cancellation, a completing request would clobber the new
// image.
func (s *Session) SelectImage(img *EncodedImage) error {
	if img == nil || len(img.Data) == 0 {
		return ErrNoSourceImage
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == PhaseProcessing {
		return ErrGenerateInFlight
	}
	s.original = img
	s.result = nil
	s.errMsg = ""
	s.phase = PhaseUploaded
	s.updated = time.Now()
	return nil
}

// BeginGenerate gates entry to PhaseProcessing. It is the mutual-exclusion
// point: a second generate while one is in flight returns
// ErrGenerateInFlight and leaves the session untouched. On success the
// previous result and error are cleared and a copy of the source image is
// returned for processing.
func (s *Session) BeginGenerate() (*EncodedImage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.phase == PhaseProcessing:
		return nil, ErrGenerateInFlight
	case s.original == nil:
		return nil, ErrNoSourceImage
	}
	s.result = nil
	s.errMsg = ""
	s.phase = PhaseProcessing
	s.updated = time.Now()
	return s.original.Clone(), nil
}

// Succeed completes the in-flight attempt with a result image.
func (s *Session) Succeed(img *EncodedImage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseProcessing {
		return
	}
	s.result = img
	s.errMsg = ""
	s.phase = PhaseSucceeded
	s.updated = time.Now()
}

// Fail completes the in-flight attempt with an error. The message is taken
// from the failure, falling back to a generic text when it carries none.
func (s *Session) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseProcessing {
		return
	}
	msg := FallbackErrorMessage
	if err != nil && err.Error() != "" {
		msg = err.Error()
	}
	s.result = nil
	s.errMsg = msg
	s.phase = PhaseFailed
	s.updated = time.Now()
}

// Result returns the generated image, or ErrNoResultImage when the session
// has none.
func (s *Session) Result() (*EncodedImage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return nil, ErrNoResultImage
	}
	return s.result, nil
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		ID:        s.id,
		Phase:     s.phase,
		Original:  s.original,
		Result:    s.result,
		Error:     s.errMsg,
		UpdatedAt: s.updated,
	}
}
