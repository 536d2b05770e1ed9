// Package translate turns free-form Russian text into reminder shorthand,
// through a chat-completion model with a rule-based parser behind it.
package translate

import (
	"context"

	"github.com/rs/zerolog"
)

// Translator rewrites free text as shorthand.
type Translator interface {
	Translate(ctx context.Context, text string) (string, error)
}

// Fallback tries Primary and uses Secondary when it fails.
type Fallback struct {
	Primary   Translator
	Secondary Translator
	Log       zerolog.Logger
}

func (f *Fallback) Translate(ctx context.Context, text string) (string, error) {
	out, err := f.Primary.Translate(ctx, text)
	if err == nil {
		return out, nil
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	f.Log.Warn().Err(err).Msg("translator failed, using local parser")
	return f.Secondary.Translate(ctx, text)
}
