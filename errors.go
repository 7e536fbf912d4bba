package docgen

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/alnah/go-docgen/internal/browser"
	"github.com/alnah/go-docgen/internal/pipeline"
	"github.com/alnah/go-docgen/internal/session"
)

// ErrorKind classifies render failures so callers can branch on the kind
// instead of matching messages.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindValidation
	KindBrowserLaunch
	KindTemplateCompile
	KindRenderTimeout
	KindUnsupportedFormat
	KindRender
	KindCanceled
)

var kindNames = map[ErrorKind]string{
	KindInternal:          "internal",
	KindValidation:        "validation",
	KindBrowserLaunch:     "browser_launch",
	KindTemplateCompile:   "template_compile",
	KindRenderTimeout:     "render_timeout",
	KindUnsupportedFormat: "unsupported_format",
	KindRender:            "render",
	KindCanceled:          "canceled",
}

func (k ErrorKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// HTTPStatus maps a kind to the status code an HTTP front end should use.
func (k ErrorKind) HTTPStatus() int {
	switch k {
	case KindValidation, KindUnsupportedFormat:
		return http.StatusBadRequest
	case KindCanceled:
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

// Sentinel errors, one per kind. errors.Is(err, ErrRenderTimeout) holds for
// any *Error of that kind.
var (
	ErrInternal          = errors.New("internal error")
	ErrValidation        = errors.New("invalid request")
	ErrBrowserLaunch     = errors.New("browser launch failed")
	ErrTemplateCompile   = errors.New("template compilation failed")
	ErrRenderTimeout     = errors.New("render timed out")
	ErrUnsupportedFormat = errors.New("unsupported output format")
	ErrRender            = errors.New("render failed")
	ErrCanceled          = errors.New("render canceled")
)

var kindSentinels = map[ErrorKind]error{
	KindInternal:          ErrInternal,
	KindValidation:        ErrValidation,
	KindBrowserLaunch:     ErrBrowserLaunch,
	KindTemplateCompile:   ErrTemplateCompile,
	KindRenderTimeout:     ErrRenderTimeout,
	KindUnsupportedFormat: ErrUnsupportedFormat,
	KindRender:            ErrRender,
	KindCanceled:          ErrCanceled,
}

// Error is a classified render failure.
type Error struct {
	Kind ErrorKind
	Op   string // pipeline stage, e.g. "decode", "template", "session"
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", kindSentinels[e.Kind], e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, kindSentinels[e.Kind], e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of the error's kind.
func (e *Error) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

// KindOf returns the kind of err. Errors that are not *Error are classified
// from the internal sentinels they wrap.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return classify(err)
}

func newError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// wrap classifies err and attaches op, keeping an existing *Error as is.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return newError(classify(err), op, err)
}

func classify(err error) ErrorKind {
	switch {
	case err == nil:
		return KindInternal
	case errors.Is(err, session.ErrLoadTimeout):
		return KindRenderTimeout
	case errors.Is(err, context.DeadlineExceeded):
		return KindRenderTimeout
	case errors.Is(err, context.Canceled):
		return KindCanceled
	case errors.Is(err, browser.ErrLaunch):
		return KindBrowserLaunch
	case errors.Is(err, pipeline.ErrTemplateCompile):
		return KindTemplateCompile
	case errors.Is(err, session.ErrUnsupportedFormat):
		return KindUnsupportedFormat
	case errors.Is(err, browser.ErrClosed):
		return KindInternal
	default:
		return KindRender
	}
}
