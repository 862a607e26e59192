package pushkit

import "context"

// Endpoint paths, relative to the environment's base URL.
const (
	pathRegister         = "/v1/push/register"
	pathUnregister       = "/v1/push/unregister"
	pathTopicSubscribe   = "/v1/push/topics/subscribe"
	pathTopicUnsubscribe = "/v1/push/topics/unsubscribe"
	pathAnalyticsTrack   = "/v1/analytics/track"
)

// registerRequest is the body of POST /v1/push/register.
type registerRequest struct {
	APNSToken     string `json:"apns_token"`
	DeviceID      string `json:"device_id"`
	Platform      string `json:"platform"`
	AppVersion    string `json:"app_version"`
	BundleID      string `json:"bundle_id"`
	Timezone      string `json:"timezone"`
	Locale        string `json:"locale"`
	IsTokenUpdate bool   `json:"is_token_update"`
	OSVersion     string `json:"os_version,omitempty"`
	DeviceModel   string `json:"device_model,omitempty"`
}

// registerResponse is the body the backend returns on a successful
// registration.
type registerResponse struct {
	Token string `json:"token"`
}

// unregisterRequest is the body of POST /v1/push/unregister.
type unregisterRequest struct {
	Token string `json:"token"`
}

// topicRequest is the body of the topic subscribe/unsubscribe endpoints.
type topicRequest struct {
	Token string `json:"token"`
	Topic string `json:"topic"`
}

// trackRequest is the body of POST /v1/analytics/track.
type trackRequest struct {
	Event      string         `json:"event"`
	Properties map[string]any `json:"properties,omitempty"`
	Token      string         `json:"token,omitempty"`
}

func (c *apiClient) register(ctx context.Context, req registerRequest) (registerResponse, error) {
	var resp registerResponse
	if err := c.send(ctx, pathRegister, req, &resp); err != nil {
		return registerResponse{}, err
	}
	if resp.Token == "" {
		return registerResponse{}, ErrInvalidResponse
	}
	return resp, nil
}

func (c *apiClient) unregister(ctx context.Context, req unregisterRequest) error {
	return c.send(ctx, pathUnregister, req, nil)
}

func (c *apiClient) subscribeTopic(ctx context.Context, req topicRequest) error {
	return c.send(ctx, pathTopicSubscribe, req, nil)
}

func (c *apiClient) unsubscribeTopic(ctx context.Context, req topicRequest) error {
	return c.send(ctx, pathTopicUnsubscribe, req, nil)
}

func (c *apiClient) track(ctx context.Context, req trackRequest) error {
	return c.send(ctx, pathAnalyticsTrack, req, nil)
}
