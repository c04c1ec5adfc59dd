// Package client connects to an mcpgate server over streamable HTTP.
//
// When the client configuration carries an app registration (client id and
// secret), Connect obtains an Entra ID access token with the OAuth 2.0
// client-credentials grant and sends it as a bearer token on every request.
// Without one it connects anonymously, which only works while the server
// runs with AUTH_REQUIRED=false.
//
// The helpers ToolNames, CallText and ReadText cover what the smoke client
// needs; everything else is available on the returned *mcp.ClientSession.
package client
