// Package llm provides the text-generation client. The companion
// treats the model as an opaque collaborator: prompts go in, narrative
// text comes out, and nothing downstream depends on the content.
package llm

import "context"

// Turn roles for conversation contents.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Turn is one conversational exchange sent to the model.
type Turn struct {
	Role string
	Text string
}

// Client is the interface a text-generation provider must implement.
type Client interface {
	// Generate sends the conversation and returns the model's reply.
	Generate(ctx context.Context, turns []Turn) (string, error)

	// Ping checks if the provider is reachable.
	Ping(ctx context.Context) error
}
