package backend

import (
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"vlmeval/pkg/types"
)

// Options configures an adapter. Read once at construction.
type Options struct {
	BaseURL string
	// APIKey is sent as a Bearer token when set.
	APIKey string
	// Models is the configured evaluation list; the gateway treats the first as active.
	Models []types.ModelIdentifier

	ConnectTimeout time.Duration
	ListTimeout    time.Duration
	LoadTimeout    time.Duration
	InvokeTimeout  time.Duration

	// Explicit-load runtime configuration.
	ContextLength int
	GPURatio      float64

	// ProbeLoad lets the manual adapter try the known load endpoints once.
	ProbeLoad bool

	Generation Generation
	Logger     *zerolog.Logger
	// HTTPClient overrides the default transport (tests).
	HTTPClient *http.Client
}

func (o Options) endpoint() endpoint {
	cli := o.HTTPClient
	if cli == nil {
		cli = newHTTPClient(o.ConnectTimeout)
	}
	return endpoint{baseURL: strings.TrimRight(o.BaseURL, "/"), apiKey: o.APIKey, http: cli}
}

func (o Options) logger() zerolog.Logger {
	if o.Logger == nil {
		return zerolog.Nop()
	}
	return *o.Logger
}

func (o Options) generation() Generation {
	g := o.Generation
	if g.MaxTokens <= 0 {
		g.MaxTokens = DefaultGeneration.MaxTokens
	}
	return g
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
