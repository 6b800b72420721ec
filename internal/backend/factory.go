package backend

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"vlmeval/internal/config"
	"vlmeval/internal/retry"
)

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }

// OptionsFromConfig maps a defaulted backend section onto adapter options.
func OptionsFromConfig(b config.Backend, log *zerolog.Logger) Options {
	return Options{
		BaseURL:        b.BaseURL,
		APIKey:         b.APIKey,
		Models:         b.Models,
		ConnectTimeout: ms(b.ConnectTimeoutMS),
		ListTimeout:    ms(b.ListTimeoutMS),
		LoadTimeout:    ms(b.LoadTimeoutMS),
		InvokeTimeout:  ms(b.InvokeTimeoutMS),
		ContextLength:  b.ContextLength,
		GPURatio:       b.GPURatio,
		ProbeLoad:      b.ProbeLoad,
		Generation:     Generation{MaxTokens: b.MaxTokens, Temperature: b.Temperature},
		Logger:         log,
	}
}

// New selects the adapter variant named by the backend kind.
func New(b config.Backend, log *zerolog.Logger) (Adapter, error) {
	o := OptionsFromConfig(b, log)
	switch Kind(b.Kind) {
	case KindManual:
		return NewManualSwitchAdapter(o), nil
	case KindGateway:
		return NewAlwaysAvailableAdapter(o), nil
	case KindExplicit:
		return NewExplicitLoadAdapter(o), nil
	default:
		return nil, fmt.Errorf("unknown backend kind %q", b.Kind)
	}
}

// DiscoveryConfig returns the retry schedule configured for model discovery.
func DiscoveryConfig(b config.Backend) retry.Config {
	return retry.Config{Attempts: b.DiscoveryAttempts, Delay: ms(b.DiscoveryDelayMS)}
}
