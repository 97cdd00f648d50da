package guardian

import "github.com/fallenangelsystems/guardian-go/pkg/isolation"

// IsolationResult is re-exported so callers using only the client API do not
// need to import pkg/isolation.
type IsolationResult = isolation.IsolationResult

// Isolate strips marked advertisement content from text using the client's
// configured tag dialects. Purely local; never calls the network.
func (c *Client) Isolate(text string) IsolationResult {
	result := c.isolator.Isolate(text)
	c.metrics.observeIsolation(result.SpansRemoved)
	return result
}

// IsolateConversation applies Isolate to each message's content. Roles and
// message order are preserved; the input slice is not modified.
func (c *Client) IsolateConversation(messages []ConversationMessage) []ConversationMessage {
	if messages == nil {
		return nil
	}
	cleaned := make([]ConversationMessage, len(messages))
	for i, msg := range messages {
		cleaned[i] = ConversationMessage{
			Role:    msg.Role,
			Content: c.Isolate(msg.Content).Cleaned,
		}
	}
	return cleaned
}
