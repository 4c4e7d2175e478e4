package domain

import (
	"context"
)

// Completer performs one chat completion round trip.
// Implementations never return a Go error: every failure is a Failure outcome.
type Completer interface {
	Complete(ctx context.Context, req *CompletionRequest) CompletionOutcome
}

// ReadinessChecker is implemented by completers that need configuration
// (such as a credential) before they may touch the network.
type ReadinessChecker interface {
	Ready() error
}

// TokenCounter estimates the number of tokens in a text for a model.
type TokenCounter interface {
	CountText(model, text string) (int, error)
}
