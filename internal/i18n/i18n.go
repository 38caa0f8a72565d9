// Package i18n localizes the messages returned to API clients. Message IDs
// are the reason codes the services report.
package i18n

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

type ctxKey struct{}

type Translator struct {
	bundle   *i18n.Bundle
	fallback *i18n.Localizer
	logger   *slog.Logger
}

// New loads every embedded locale. defaultLang is used when a request names
// no language the bundle knows.
func New(defaultLang string, logger *slog.Logger) (*Translator, error) {
	tag, err := language.Parse(defaultLang)
	if err != nil {
		return nil, fmt.Errorf("parse language %q: %w", defaultLang, err)
	}

	bundle := i18n.NewBundle(tag)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		return nil, fmt.Errorf("read locales dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := localeFS.ReadFile("locales/" + e.Name())
		if err != nil {
			return nil, fmt.Errorf("read locale file %s: %w", e.Name(), err)
		}
		if _, err := bundle.ParseMessageFileBytes(data, e.Name()); err != nil {
			return nil, fmt.Errorf("parse locale file %s: %w", e.Name(), err)
		}
	}

	return &Translator{
		bundle:   bundle,
		fallback: i18n.NewLocalizer(bundle, tag.String()),
		logger:   logger,
	}, nil
}

// Localizer picks the best match among langs, which may be plain tags or
// Accept-Language header values.
func (t *Translator) Localizer(langs ...string) *i18n.Localizer {
	return i18n.NewLocalizer(t.bundle, langs...)
}

func WithLocalizer(ctx context.Context, loc *i18n.Localizer) context.Context {
	return context.WithValue(ctx, ctxKey{}, loc)
}

func (t *Translator) localizer(ctx context.Context) *i18n.Localizer {
	if loc, ok := ctx.Value(ctxKey{}).(*i18n.Localizer); ok {
		return loc
	}
	return t.fallback
}

// T translates a message by ID. Unknown IDs come back unchanged.
func (t *Translator) T(ctx context.Context, msgID string) string {
	return t.Td(ctx, msgID, nil)
}

// Td translates a message by ID with template data.
func (t *Translator) Td(ctx context.Context, msgID string, data map[string]any) string {
	s, err := t.localizer(ctx).Localize(&i18n.LocalizeConfig{
		MessageID:    msgID,
		TemplateData: data,
	})
	if err != nil {
		t.logger.WarnContext(ctx, "Missing translation", "id", msgID, "error", err)
		return msgID
	}
	return s
}
