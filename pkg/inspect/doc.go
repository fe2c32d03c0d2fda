// Package inspect serves a debugging view of encoded messages.
//
// The server decodes messages posted over HTTP or streamed over a WebSocket
// and answers with a JSON Description. It can also build and encode a
// message from a JSON request, which is handy for producing test vectors.
//
// Routes:
//
//	POST /v1/decode   body: type byte + encoded message
//	                  query: skip_payload=1, sender=<address>
//	POST /v1/encode   body: EncodeRequest JSON
//	                  query: no_addrs=1, ref=<address>
//	GET  /v1/ws       binary WebSocket frames in the protocol frame layout
//	GET  /metrics     Prometheus exposition, when a gatherer is configured
//	GET  /healthz
//
// Every decode and encode runs inside an OpenTelemetry span taken from the
// global tracer provider.
package inspect
