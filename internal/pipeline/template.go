package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/mailgun/raymond/v2"

	"github.com/alnah/go-docgen/internal/dateutil"
)

// ErrTemplateCompile indicates the layout could not be parsed or executed.
var ErrTemplateCompile = errors.New("template compilation failed")

// Engine renders handlebars layouts with the document helpers registered:
//
//	{{formatDate value "DD/MM/YYYY"}}   date tokens or presets, "" for YYYY-MM-DD; missing values render empty
//	{{#ifEquals a b}}...{{else}}...{{/ifEquals}}
//	{{markdown text}}                   markdown to HTML, not escaped
type Engine struct {
	markdown *Markdown
	now      func() time.Time
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithClock sets the time source used for "now" date values.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates a template engine.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		markdown: NewMarkdown(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Render compiles source and executes it against data.
// Parse errors, helper failures and panics are all reported as ErrTemplateCompile.
// Template execution runs in a goroutine so ctx cancellation is honoured.
func (e *Engine) Render(ctx context.Context, source string, data map[string]any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	tpl, err := raymond.Parse(source)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTemplateCompile, err)
	}
	tpl.RegisterHelpers(e.helpers())

	type result struct {
		out string
		err error
	}

	done := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("%w: %v", ErrTemplateCompile, r)}
			}
		}()

		out, err := tpl.Exec(data)
		if err != nil {
			done <- result{err: fmt.Errorf("%w: %v", ErrTemplateCompile, err)}
			return
		}
		done <- result{out: out}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-done:
		return r.out, r.err
	}
}

// helpers returns a fresh helper set; raymond binds helpers per template.
// Helpers report failures by panicking with an error, which raymond turns
// into an Exec error.
func (e *Engine) helpers() map[string]any {
	return map[string]any{
		"formatDate": func(value any, format string) string {
			if value == nil || value == "" {
				return ""
			}
			s, err := dateutil.Format(value, format, e.now())
			if err != nil {
				panic(fmt.Errorf("formatDate: %w", err))
			}
			return s
		},
		"ifEquals": func(a, b any, options *raymond.Options) any {
			if looselyEqual(a, b) {
				return options.Fn()
			}
			return options.Inverse()
		},
		"markdown": func(text string) raymond.SafeString {
			out, err := e.markdown.ToHTML(text)
			if err != nil {
				panic(fmt.Errorf("markdown: %w", err))
			}
			return raymond.SafeString(out)
		},
	}
}

// looselyEqual compares template values the way JSON data reaches them:
// numbers compare numerically whatever their Go type, and a number equals
// its string spelling ("3" == 3).
func looselyEqual(a, b any) bool {
	if af, ok := toFloat(a); ok {
		if bf, ok := toFloat(b); ok {
			return af == bf
		}
	}
	return raymond.Str(a) == raymond.Str(b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
