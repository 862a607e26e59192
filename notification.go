package pushkit

import "fmt"

// Notification is the structured form of an incoming push payload.
type Notification struct {
	Title    string
	Subtitle string
	Body     string
	Badge    int
	Sound    string
	Category string
	ThreadID string

	// Data holds the custom keys delivered alongside the aps dictionary.
	Data map[string]any
}

// ParseNotification maps a raw push payload (the userInfo dictionary handed
// to the host by the platform) into a Notification. The alert may be a bare
// string or an object with title/subtitle/body fields.
func ParseNotification(payload map[string]any) (*Notification, error) {
	rawAPS, ok := payload["aps"]
	if !ok {
		return nil, fmt.Errorf("payload has no aps dictionary")
	}
	aps, ok := rawAPS.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("aps is not a dictionary")
	}

	n := &Notification{
		Sound:    stringField(aps, "sound"),
		Category: stringField(aps, "category"),
		ThreadID: stringField(aps, "thread-id"),
	}

	switch alert := aps["alert"].(type) {
	case string:
		n.Body = alert
	case map[string]any:
		n.Title = stringField(alert, "title")
		n.Subtitle = stringField(alert, "subtitle")
		n.Body = stringField(alert, "body")
	}

	// JSON numbers decode as float64
	switch badge := aps["badge"].(type) {
	case float64:
		n.Badge = int(badge)
	case int:
		n.Badge = badge
	}

	for key, value := range payload {
		if key == "aps" {
			continue
		}
		if n.Data == nil {
			n.Data = make(map[string]any)
		}
		n.Data[key] = value
	}

	return n, nil
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}
