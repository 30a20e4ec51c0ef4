// Package chorus is the Go SDK for the Chorus voice AI platform.
//
// # Overview
//
// The SDK talks to the platform over two transports:
//   - Request/response HTTP for speech synthesis, stored configurations
//     and analysis jobs, with exponential-backoff retry and typed errors.
//   - A persistent bidirectional WebSocket for live chat sessions, with
//     keepalive, typed message dispatch and ordered handler fan-out.
//
// Streaming synthesis responses arrive as server-sent events and are
// parsed incrementally, so chunk boundaries never corrupt an event.
//
// # Quick Start
//
//	config := chorus.NewClientConfig()
//	client, err := chorus.NewClient(config)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	audio, err := client.Synthesize(ctx, chorus.SynthesisRequest{
//		Text:  "Hello from Chorus",
//		Voice: "aria",
//	})
//
// # Live Sessions
//
//	session := client.NewChatSession()
//	session.OnMessage(chorus.CreateTranscriptHandler(func(text string, final bool) {
//		fmt.Println(text)
//	}))
//	if err := session.Connect(ctx); err != nil {
//		log.Fatal(err)
//	}
//	session.SendText("How are you?")
//	defer session.Disconnect()
//
// # Authentication
//
// Set CHORUS_API_KEY (a .env file works too). With a token endpoint
// configured, the SDK exchanges the key for short-lived access tokens and
// refreshes them transparently before they expire.
//
// # Errors
//
// Every failure surfaces as a *chorus.Error carrying one of the ErrCode
// constants plus HTTP status, API error code and field-level validation
// details when the server provided them. Transient failures are retried
// per the client's RetryPolicy before the last classified error is
// returned.
package chorus
