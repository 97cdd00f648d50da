package isolation

import (
	"fmt"
	"strings"
)

// IsolationResult holds the outcome of one isolation pass.
type IsolationResult struct {
	// Cleaned is the input with every ad span replaced by the placeholder.
	Cleaned string
	// Original is the input text, retained for diffing.
	Original string
	// SpansRemoved counts the ad spans that were replaced.
	SpansRemoved int
}

// Engine strips ad-tagged spans from text. It holds only immutable compiled
// configuration and is safe for concurrent use.
type Engine struct {
	markers     []marker
	placeholder string
}

// NewEngine compiles cfg into an Engine. Zero-value config fields fall back
// to DefaultConfig. The placeholder is rejected if it would itself be
// matched as an opening marker, since that would break idempotence.
func NewEngine(cfg Config) (*Engine, error) {
	def := DefaultConfig()
	if cfg.XMLTags == nil {
		cfg.XMLTags = def.XMLTags
	}
	if cfg.BBCodeTags == nil {
		cfg.BBCodeTags = def.BBCodeTags
	}
	if cfg.CommentSentinels == nil {
		cfg.CommentSentinels = def.CommentSentinels
	}
	if cfg.Placeholder == "" {
		cfg.Placeholder = def.Placeholder
	}

	markers, err := compileMarkers(cfg)
	if err != nil {
		return nil, err
	}

	lowerPlaceholder := asciiLower(cfg.Placeholder)
	for _, m := range markers {
		if strings.Contains(lowerPlaceholder, m.open) {
			return nil, fmt.Errorf("isolation: placeholder %q contains opening marker %q", cfg.Placeholder, m.open)
		}
	}

	return &Engine{markers: markers, placeholder: cfg.Placeholder}, nil
}

// Isolate removes every well-formed ad span from text, replacing each
// outermost span with the placeholder. Unterminated openings are kept as
// plain text; the engine never truncates the document.
func (e *Engine) Isolate(text string) IsolationResult {
	if text == "" || len(e.markers) == 0 {
		return IsolationResult{Cleaned: text, Original: text}
	}

	// Markers are ASCII, so byte-wise lowering preserves offsets exactly.
	lower := asciiLower(text)

	var out strings.Builder
	out.Grow(len(text))

	// stack holds the keys of currently open spans. skipFrom is the input
	// offset where skipping began, i.e. the opening marker that took the
	// stack from empty to non-empty; it is the restart point if the text
	// ends before the stack drains.
	var stack []string
	skipFrom := 0
	removed := 0

	i := 0
	for i < len(text) {
		if len(stack) == 0 {
			if m, ok := e.matchOpen(lower, i); ok {
				stack = append(stack, m.key)
				skipFrom = i
				i += len(m.open)
				continue
			}
			out.WriteByte(text[i])
			i++
			continue
		}

		// Inside a span: content is skipped until the stack drains.
		if m, ok := e.matchClose(lower, i, stack); ok {
			stack = popKey(stack, m.key)
			i += len(m.end)
			if len(stack) == 0 {
				out.WriteString(e.placeholder)
				removed++
			}
			continue
		}
		if m, ok := e.matchOpen(lower, i); ok {
			stack = append(stack, m.key)
			i += len(m.open)
			continue
		}
		i++
	}

	if len(stack) > 0 {
		// Fail open: the region never finished closing, so everything
		// consumed since skipping began is restored verbatim.
		out.WriteString(text[skipFrom:])
	}

	return IsolationResult{
		Cleaned:      out.String(),
		Original:     text,
		SpansRemoved: removed,
	}
}

// matchOpen reports the marker whose opening form begins at offset i and
// whose closing form exists later in the text. Openings without a matching
// close never begin a span.
func (e *Engine) matchOpen(lower string, i int) (marker, bool) {
	for _, m := range e.markers {
		if !strings.HasPrefix(lower[i:], m.open) {
			continue
		}
		if strings.Contains(lower[i+len(m.open):], m.end) {
			return m, true
		}
	}
	return marker{}, false
}

// matchClose reports the marker whose closing form begins at offset i,
// provided that marker is currently open on the stack. A stray close with no
// matching open is plain text.
func (e *Engine) matchClose(lower string, i int, stack []string) (marker, bool) {
	for _, m := range e.markers {
		if !strings.HasPrefix(lower[i:], m.end) {
			continue
		}
		for _, key := range stack {
			if key == m.key {
				return m, true
			}
		}
	}
	return marker{}, false
}

// popKey removes the topmost stack entry with the given key.
func popKey(stack []string, key string) []string {
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == key {
			return append(stack[:i], stack[i+1:]...)
		}
	}
	return stack
}

// asciiLower lowercases ASCII letters only, leaving every other byte (and
// therefore all offsets) untouched.
func asciiLower(s string) string {
	hasUpper := false
	for i := 0; i < len(s); i++ {
		if s[i] >= 'A' && s[i] <= 'Z' {
			hasUpper = true
			break
		}
	}
	if !hasUpper {
		return s
	}
	b := []byte(s)
	for i := 0; i < len(b); i++ {
		if b[i] >= 'A' && b[i] <= 'Z' {
			b[i] += 'a' - 'A'
		}
	}
	return string(b)
}
