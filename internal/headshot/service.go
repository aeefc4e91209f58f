// Package headshot drives one generation attempt end to end: gate the
// session, bound the photo, call the model, land in a terminal phase.
package headshot

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"headshot/internal/domain"
	"headshot/internal/imageproc"
	"headshot/internal/providers/genai"
)

// Instruction is the fixed transformation sent with every request. It is not
// user-configurable.
const Instruction = "Transform this photo into a professional studio headshot. " +
	"Replace the background with a clean, neutral studio backdrop and apply soft, " +
	"even studio lighting. Keep the person's face, expression, and identity exactly " +
	"as they are. If the person wears glasses, keep them but remove any glare from " +
	"the lenses. Frame the subject from the chest up, centered, wearing professional attire."

// Editor is the seam over the remote generation model.
type Editor interface {
	EditImage(ctx context.Context, src *domain.EncodedImage, instruction string) (*domain.EncodedImage, error)
}

// Options configures the pipeline service. APIKey is a function so the
// credential is read when a generate is attempted, not at startup; its
// absence fails only that attempt. NewEditor overrides the default Gemini
// client factory in tests. Logger may be nil.
type Options struct {
	APIKey     func() string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
	Logger     *zerolog.Logger
	NewEditor  func() (Editor, error)
}

// Service runs the upload → resize → generate pipeline against a session.
type Service struct {
	apiKey     func() string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     zerolog.Logger
	newEditor  func() (Editor, error)
}

func NewService(opts Options) *Service {
	logger := zerolog.New(io.Discard)
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	s := &Service{
		apiKey:     opts.APIKey,
		baseURL:    opts.BaseURL,
		model:      opts.Model,
		httpClient: opts.HTTPClient,
		logger:     logger,
		newEditor:  opts.NewEditor,
	}
	if s.apiKey == nil {
		s.apiKey = func() string { return "" }
	}
	if s.newEditor == nil {
		s.newEditor = s.geminiEditor
	}
	return s
}

// geminiEditor is the per-attempt client factory. Constructing the client
// lazily keeps a missing credential from poisoning the whole process.
func (s *Service) geminiEditor() (Editor, error) {
	return genai.NewClient(genai.Options{
		APIKey:     s.apiKey(),
		BaseURL:    s.baseURL,
		Model:      s.model,
		HTTPClient: s.httpClient,
	})
}

// Generate runs a single attempt. Gate failures (generation already in
// flight, no source image) are returned as errors and leave the session
// untouched; pipeline failures become the session's Failed state and are not
// errors to the caller. The returned snapshot reflects the terminal phase.
func (s *Service) Generate(ctx context.Context, sess *domain.Session) (domain.Snapshot, error) {
	src, err := sess.BeginGenerate()
	if err != nil {
		return sess.Snapshot(), err
	}

	start := time.Now()
	resized, err := imageproc.Downscale(src)
	if err != nil {
		s.logger.Error().Err(err).Str("session_id", sess.ID()).Msg("headshot: downscale failed")
		sess.Fail(err)
		return sess.Snapshot(), nil
	}

	editor, err := s.newEditor()
	if err != nil {
		s.logger.Warn().Err(err).Str("session_id", sess.ID()).Msg("headshot: editor unavailable")
		sess.Fail(err)
		return sess.Snapshot(), nil
	}

	result, err := editor.EditImage(ctx, resized, Instruction)
	if err != nil {
		s.logger.Error().Err(err).Str("session_id", sess.ID()).Msg("headshot: generation failed")
		sess.Fail(err)
		return sess.Snapshot(), nil
	}

	sess.Succeed(result)
	s.logger.Info().
		Str("session_id", sess.ID()).
		Str("mime", result.MIME).
		Int("bytes", len(result.Data)).
		Dur("elapsed", time.Since(start)).
		Msg("headshot: generation succeeded")
	return sess.Snapshot(), nil
}
