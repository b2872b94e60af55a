// Package render fills %NAME% placeholders in plain-text config templates and
// writes the result to the path the configured binary reads it from.
package render

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"modelshim/internal/common/fsutil"
)

// ErrMissingPlaceholderValue is matched by errors.Is for any unresolved placeholder.
var ErrMissingPlaceholderValue = errors.New("missing placeholder value")

// MissingPlaceholderError names the first placeholder that had no value.
type MissingPlaceholderError struct {
	Name     string
	Template string
}

func (e *MissingPlaceholderError) Error() string {
	if e.Template == "" {
		return fmt.Sprintf("missing placeholder value: %%%s%%", e.Name)
	}
	return fmt.Sprintf("missing placeholder value: %%%s%% in %s", e.Name, e.Template)
}

func (e *MissingPlaceholderError) Is(target error) bool { return target == ErrMissingPlaceholderValue }

// IsMissingPlaceholder reports whether err was caused by an unresolved placeholder.
func IsMissingPlaceholder(err error) bool { return errors.Is(err, ErrMissingPlaceholderValue) }

var placeholder = regexp.MustCompile(`%(\w+)%`)

// Substitute replaces every %NAME% token in tmpl with values[NAME].
// All other text is left byte-identical.
func Substitute(tmpl string, values map[string]string) (string, error) {
	var missing string
	out := placeholder.ReplaceAllStringFunc(tmpl, func(tok string) string {
		name := tok[1 : len(tok)-1]
		v, ok := values[name]
		if !ok {
			if missing == "" {
				missing = name
			}
			return tok
		}
		return v
	})
	if missing != "" {
		return "", &MissingPlaceholderError{Name: missing}
	}
	return out, nil
}

// Renderer renders templates and logs the result.
type Renderer struct {
	Log zerolog.Logger
}

// New returns a Renderer that logs through l.
func New(l zerolog.Logger) *Renderer { return &Renderer{Log: l} }

// Render reads templatePath, substitutes values and writes outputPath,
// replacing any existing file. Nothing is written if a placeholder is missing.
func (r *Renderer) Render(templatePath, outputPath string, values map[string]string) error {
	b, err := os.ReadFile(templatePath)
	if err != nil {
		return fmt.Errorf("read template: %w", err)
	}
	cfg, err := Substitute(string(b), values)
	if err != nil {
		var mp *MissingPlaceholderError
		if errors.As(err, &mp) {
			mp.Template = templatePath
		}
		return err
	}
	r.Log.Info().Str("template", templatePath).Str("output", outputPath).Msgf("rendered config:\n%s", cfg)
	if err := fsutil.WriteFileAtomic(outputPath, []byte(cfg), 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Render renders with the global zerolog logger.
func Render(templatePath, outputPath string, values map[string]string) error {
	return New(log.Logger).Render(templatePath, outputPath, values)
}
