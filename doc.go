// Package pushkit registers a device's push token with a remote backend,
// caches the mapping between the platform-issued token and the
// backend-issued one, and parses incoming push payloads into a structured
// form.
//
// The host application obtains a platform push token from the OS push
// service and hands it to Client.SetPlatformToken. The client decides
// whether a registration is needed (the token changed, or no backend token
// is cached), performs the network exchange with bounded retry/backoff, and
// persists the result durably so a restart never produces a duplicate or
// orphaned registration.
//
//	cfg, _ := pushkit.Default()
//	cfg.APIKey = "pk-..."
//	cfg.Device = pushkit.DeviceMetadata{Platform: "ios", BundleID: "com.example.app"}
//
//	client, err := pushkit.New(cfg)
//	if err != nil {
//		// handle invalid configuration
//	}
//	backendToken, err := client.SetPlatformToken(ctx, platformToken)
//
// Persisted state lives in a secure store: the OS keyring by default, a
// file-backed store, or one supplied by the host via WithSecureStore.
package pushkit
