// Package notifier delivers bot messages to the configured chat.
//
// # Transport
//
// The service delegates delivery to a transport.Sender implementation (the
// Telegram adapter in production). A failed send is reported to the caller
// wrapped in ErrDeliveryFailed; the service never retries on its own, the
// poll cadence does.
//
// # History
//
// For debugging and operator visibility, the service keeps a small in-memory
// history of recently delivered messages.
package notifier
