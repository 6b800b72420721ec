package backend

import (
	"context"

	"github.com/rs/zerolog"

	"vlmeval/internal/retry"
	"vlmeval/pkg/types"
)

// Discovery is the outcome of model discovery.
type Discovery struct {
	Models []types.ModelIdentifier
	// Fallback is true when the static list was used because listing failed.
	Fallback bool
	// Err is the last listing error when Fallback is set.
	Err error
}

// Discover lists models with a fixed retry schedule. When every attempt fails
// it returns the fallback list instead of an error.
func Discover(ctx context.Context, a Adapter, cfg retry.Config, fallback []types.ModelIdentifier, log zerolog.Logger) Discovery {
	var models []types.ModelIdentifier
	err := retry.Do(ctx, cfg, func(attempt, attempts int, err error) {
		log.Warn().Err(err).Int("attempt", attempt).Int("attempts", attempts).Str("backend", string(a.Kind())).Msg("model discovery failed")
	}, func(int) error {
		var err error
		models, err = a.ListModels(ctx)
		return err
	})
	if err == nil {
		return Discovery{Models: models}
	}
	log.Warn().Err(err).Strs("fallback", fallback).Msg("using fallback model list")
	return Discovery{
		Models:   append([]types.ModelIdentifier(nil), fallback...),
		Fallback: true,
		Err:      err,
	}
}
