// ABOUTME: Maps stored message history into the assistant's dialogue turns
// ABOUTME: Customer messages become user turns, everything else folds into the model role

package router

import (
	"github.com/caliber/livechat/internal/assistant"
	"github.com/caliber/livechat/internal/store"
)

// buildContext converts stored messages, oldest first, into dialogue turns.
// Operator messages are presented under the assistant's role: the model sees
// one coherent "us" side of the conversation regardless of who actually typed.
func buildContext(history []*store.Message) []assistant.Turn {
	turns := make([]assistant.Turn, 0, len(history))
	for _, msg := range history {
		role := assistant.RoleAssistant
		if msg.Sender == store.SenderCustomer {
			role = assistant.RoleCustomer
		}
		turns = append(turns, assistant.Turn{Role: role, Text: msg.Text})
	}
	return turns
}
