// Package server hosts the Fiber HTTP service, request middleware chain, and
// the origin descriptor that wires configuration into the fetch handler. It
// bootstraps Fiber, attaches recover/request-ID middlewares, exposes the
// shared upstream HTTP client, and keeps the `/-/` diagnostics prefix out of
// the proxy path. Keep exports narrow and accept explicit dependencies so the
// proxy and lifecycle packages stay testable with fakes.
package server
