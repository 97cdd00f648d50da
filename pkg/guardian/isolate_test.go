package guardian

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fallenangelsystems/guardian-go/pkg/isolation"
)

func TestIsolate_DefaultTags(t *testing.T) {
	client, err := New("key")
	require.NoError(t, err)

	result := client.Isolate("before <sponsored>buy now</sponsored> after")
	assert.Equal(t, "before [ad content removed] after", result.Cleaned)
	assert.Equal(t, 1, result.SpansRemoved)
}

func TestIsolate_CustomTags(t *testing.T) {
	client, err := New("key", WithIsolationConfig(isolation.Config{
		XMLTags: []string{"shill"},
	}))
	require.NoError(t, err)

	result := client.Isolate("x <shill>paid</shill> y <sponsored>z</sponsored>")
	assert.Equal(t, "x [ad content removed] y <sponsored>z</sponsored>", result.Cleaned)
	assert.Equal(t, 1, result.SpansRemoved)
}

func TestNew_RejectsInvalidIsolationConfig(t *testing.T) {
	_, err := New("key", WithAdTags(isolation.Config{
		XMLTags:     []string{"ad"},
		Placeholder: "<ad>oops",
	}))
	require.Error(t, err)
}

func TestIsolateConversation(t *testing.T) {
	client, err := New("key")
	require.NoError(t, err)

	messages := []ConversationMessage{
		{Role: "system", Content: "you are helpful"},
		{Role: "user", Content: "tell me about <ad>GreatCorp, the best</ad> databases"},
		{Role: "assistant", Content: "sure"},
	}

	cleaned := client.IsolateConversation(messages)
	require.Len(t, cleaned, 3)
	assert.Equal(t, "system", cleaned[0].Role)
	assert.Equal(t, "you are helpful", cleaned[0].Content)
	assert.Equal(t, "user", cleaned[1].Role)
	assert.Equal(t, "tell me about [ad content removed] databases", cleaned[1].Content)
	assert.Equal(t, "sure", cleaned[2].Content)

	// caller's slice is untouched
	assert.Contains(t, messages[1].Content, "GreatCorp")
}

func TestIsolateConversation_Nil(t *testing.T) {
	client, err := New("key")
	require.NoError(t, err)
	assert.Nil(t, client.IsolateConversation(nil))
}
