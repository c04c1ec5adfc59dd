// Package mcpserver serves a tools.Registry over the Model Context Protocol
// using github.com/modelcontextprotocol/go-sdk.
//
// New binds each registered tool, resource, resource template and prompt to
// a go-sdk server. Handler returns the streamable HTTP handler, meant to sit
// behind auth.Gate. ForwardUpdates turns store.Broadcaster updates into
// notifications/resources/updated for subscribed sessions.
//
// Tool failures are reported to the client as error results (isError);
// unknown tools and undecodable arguments are protocol errors.
package mcpserver
