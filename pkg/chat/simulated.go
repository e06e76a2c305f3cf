package chat

import (
	"context"
	"fmt"
)

const simulatedReplyTemplate = "I'm running in offline demo mode right now, so I can't reach a live model. You said: %q. Configure an API key to get full answers."

// SimulatedCompleter produces deterministic offline replies. It stands in
// for a live model when no API credentials are configured.
type SimulatedCompleter struct{}

// NewSimulatedCompleter returns an offline reply generator.
func NewSimulatedCompleter() *SimulatedCompleter {
	return &SimulatedCompleter{}
}

// Complete answers immediately with a canned acknowledgement.
func (completer *SimulatedCompleter) Complete(ctx context.Context, systemInstruction string, history []Turn, message string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return fmt.Sprintf(simulatedReplyTemplate, message), nil
}
