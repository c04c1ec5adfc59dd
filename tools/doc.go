// Package tools holds the catalogue of MCP tools, resources, resource
// templates and prompts served by mcpgate.
//
// A Registry is transport-agnostic: List, Call, Read and GetPrompt are the
// invocation surface used by the MCP binding in package mcpserver and by
// tests. Every invocation runs through an observe.Middleware, so each one
// gets a span, metrics and a log entry keyed by its kind and name.
//
// Tool inputs are typed Go structs. NewTool infers the JSON schema from the
// struct with github.com/google/jsonschema-go and decodes arguments onto a
// copy of the declared defaults, so optional fields keep their default when
// the caller omits them.
//
// Handlers reach the calling client (progress, log notifications, sampling)
// through the Session carried by Call. Outside an MCP session the Session
// is a no-op and sampling reports ErrSamplingUnavailable.
package tools
