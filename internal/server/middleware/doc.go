// Package middleware provides HTTP middleware for the streamable HTTP and SSE
// transports: security headers, CORS for browser-based MCP clients, request
// body limits and request metrics.
package middleware
