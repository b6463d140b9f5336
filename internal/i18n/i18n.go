// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package i18n localizes user-facing API messages.
package i18n

import (
	"context"
	"embed"
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed translations/*.toml
var translationFS embed.FS

// Supported lists the languages with a translation file, default first.
var Supported = []language.Tag{
	language.English,
	language.German,
}

var (
	bundle  *i18n.Bundle
	matcher = language.NewMatcher(Supported)
)

type localeContextKey struct{}
type localizerContextKey struct{}

// Init loads the embedded translations.
func Init() error {
	b := i18n.NewBundle(Supported[0])
	b.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	for _, tag := range Supported {
		file := fmt.Sprintf("translations/active.%s.toml", tag)
		if _, err := b.LoadMessageFileFS(translationFS, file); err != nil {
			return fmt.Errorf("failed to load %s: %w", file, err)
		}
	}

	bundle = b
	return nil
}

// WithLocale adds the locale and a matching localizer to the context.
func WithLocale(ctx context.Context, lang language.Tag) context.Context {
	base, _ := lang.Base()
	locale := base.String()
	ctx = context.WithValue(ctx, localeContextKey{}, locale)
	return context.WithValue(ctx, localizerContextKey{}, i18n.NewLocalizer(bundle, locale))
}

// GetLocale returns the current locale from context.
func GetLocale(ctx context.Context) string {
	if locale, ok := ctx.Value(localeContextKey{}).(string); ok {
		return locale
	}
	return Supported[0].String()
}

// T translates a message by ID. Unknown IDs come back unchanged.
func T(ctx context.Context, messageID string) string {
	return localize(ctx, &i18n.LocalizeConfig{MessageID: messageID})
}

// TData translates a message with template data.
func TData(ctx context.Context, messageID string, data map[string]any) string {
	return localize(ctx, &i18n.LocalizeConfig{
		MessageID:    messageID,
		TemplateData: data,
	})
}

// TPlural translates a message with plural support. The count is
// available to the template as {{.Count}}.
func TPlural(ctx context.Context, messageID string, count int) string {
	return localize(ctx, &i18n.LocalizeConfig{
		MessageID:    messageID,
		PluralCount:  count,
		TemplateData: map[string]any{"Count": count},
	})
}

// MatchLanguage matches the best language from an Accept-Language header.
func MatchLanguage(acceptLanguage string) language.Tag {
	tag, _ := language.MatchStrings(matcher, acceptLanguage)
	return tag
}

func localize(ctx context.Context, cfg *i18n.LocalizeConfig) string {
	msg, err := getLocalizer(ctx).Localize(cfg)
	if err != nil {
		return cfg.MessageID
	}
	return msg
}

func getLocalizer(ctx context.Context) *i18n.Localizer {
	if localizer, ok := ctx.Value(localizerContextKey{}).(*i18n.Localizer); ok {
		return localizer
	}
	return i18n.NewLocalizer(bundle, Supported[0].String())
}
