package anthropic

import (
	"context"
	"errors"
	"fmt"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/vertex"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/victorarias/agentic-compact/agentic/log"
)

// VertexConfig controls an Anthropic client that routes through Vertex AI.
type VertexConfig struct {
	Project  string
	Location string

	// TokenSource, when set, replaces Application Default Credentials.
	TokenSource oauth2.TokenSource

	SummaryMaxTokens int
	MaxRetries       *int
	Logger           log.Logger
}

// NewVertex constructs an Anthropic client that uses Vertex AI as the backend.
func NewVertex(ctx context.Context, cfg VertexConfig) (client *Client, err error) {
	project := cfg.Project
	location := cfg.Location
	if project == "" {
		return nil, errors.New("anthropic vertex: project is required")
	}
	if location == "" {
		location = "us-east5"
	}

	// The SDK's vertex helpers panic on credential errors instead of returning them.
	defer func() {
		if r := recover(); r != nil {
			client = nil
			err = fmt.Errorf("anthropic vertex: %v", r)
		}
	}()

	var opts []option.RequestOption
	if cfg.TokenSource != nil {
		creds := &google.Credentials{ProjectID: project, TokenSource: cfg.TokenSource}
		opts = append(opts, vertex.WithCredentials(ctx, location, project, creds))
	} else {
		opts = append(opts, vertex.WithGoogleAuth(ctx, location, project))
	}
	if cfg.MaxRetries != nil {
		opts = append(opts, option.WithMaxRetries(*cfg.MaxRetries))
	}

	return newClient(sdk.NewClient(opts...), Config{
		SummaryMaxTokens: cfg.SummaryMaxTokens,
		Logger:           cfg.Logger,
	}), nil
}

// NewFromVertexEnv builds an Anthropic-on-Vertex client from environment variables.
// Required: VERTEX_PROJECT. Optional: VERTEX_LOCATION (default us-east5).
func NewFromVertexEnv(ctx context.Context, logger log.Logger) (*Client, error) {
	project := envTrimmed("VERTEX_PROJECT")
	if project == "" {
		return nil, errors.New("anthropic vertex: VERTEX_PROJECT is required")
	}
	return NewVertex(ctx, VertexConfig{
		Project:  project,
		Location: envTrimmed("VERTEX_LOCATION"),
		Logger:   logger,
	})
}
