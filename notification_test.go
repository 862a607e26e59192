package pushkit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNotification(t *testing.T) {
	tests := []struct {
		name    string
		payload map[string]any
		want    Notification
	}{
		{
			name: "string alert",
			payload: map[string]any{
				"aps": map[string]any{
					"alert": "hello",
					"sound": "default",
				},
			},
			want: Notification{Body: "hello", Sound: "default"},
		},
		{
			name: "alert dictionary",
			payload: map[string]any{
				"aps": map[string]any{
					"alert": map[string]any{
						"title":    "New message",
						"subtitle": "from Ada",
						"body":     "See you at 5",
					},
					"badge":     float64(3),
					"category":  "MESSAGE",
					"thread-id": "chat-42",
				},
			},
			want: Notification{
				Title:    "New message",
				Subtitle: "from Ada",
				Body:     "See you at 5",
				Badge:    3,
				Category: "MESSAGE",
				ThreadID: "chat-42",
			},
		},
		{
			name: "custom data keys",
			payload: map[string]any{
				"aps":       map[string]any{"alert": "ping"},
				"deep_link": "app://chat/42",
				"campaign":  "onboarding",
			},
			want: Notification{
				Body: "ping",
				Data: map[string]any{
					"deep_link": "app://chat/42",
					"campaign":  "onboarding",
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseNotification(tt.payload)
			require.NoError(t, err)
			assert.Equal(t, &tt.want, got)
		})
	}
}

func TestParseNotificationErrors(t *testing.T) {
	_, err := ParseNotification(map[string]any{"foo": "bar"})
	require.Error(t, err)

	_, err = ParseNotification(map[string]any{"aps": "not a dictionary"})
	require.Error(t, err)
}
