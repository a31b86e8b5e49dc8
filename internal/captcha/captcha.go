// Package captcha turns the portal's login captcha image into its text.
package captcha

import (
	"attendance-backend/internal/components/assert"
	"attendance-backend/internal/components/telemetry"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const (
	report_solver_solve = "solver.solve"
)

// ErrUnavailable means the image could not be turned into a guess at all, either because
// the payload is not an image or because the OCR engine failed.
var ErrUnavailable = errors.New("captcha unavailable")

// Engine performs optical character recognition over an encoded image.
//
// note: fault injection point
type Engine interface {
	Recognize(ctx context.Context, image []byte) (string, error)
}

// Solver solves captchas with an Engine. It does not judge whether a guess is
// plausible, only the portal can accept or reject it.
type Solver struct {
	engine Engine
	tel    telemetry.API
}

func NewSolver(engine Engine, tel telemetry.API) Solver {
	assert.NotNil(engine, "engine")
	assert.NotNil(tel, "tel")

	return Solver{
		engine: engine,
		tel:    telemetry.NewScopedAPI("captcha", tel),
	}
}

// Solve returns the whitespace trimmed text of the captcha image.
func (s Solver) Solve(ctx context.Context, image []byte) (string, error) {
	if len(image) == 0 {
		err := fmt.Errorf("%w: empty image", ErrUnavailable)
		s.tel.ReportWarning(report_solver_solve, err)
		return "", err
	}
	contentType := http.DetectContentType(image)
	if !strings.HasPrefix(contentType, "image/") {
		err := fmt.Errorf("%w: response is %s, not an image", ErrUnavailable, contentType)
		s.tel.ReportWarning(report_solver_solve, err)
		return "", err
	}

	text, err := s.engine.Recognize(ctx, image)
	if err != nil {
		err = fmt.Errorf("%w: ocr: %w", ErrUnavailable, err)
		s.tel.ReportBroken(report_solver_solve, err)
		return "", err
	}

	guess := strings.TrimSpace(text)
	s.tel.ReportDebug(report_solver_solve, len(image), guess)
	return guess, nil
}
