// Package mcp implements the MCP (Model Context Protocol) session used
// as Tradewind's tool-execution channel. The agent loop connects to a
// market-data MCP server, discovers its tools via tools/list, and
// invokes them via tools/call.
//
// MCP uses JSON-RPC 2.0 over two transports: stdio (subprocess) and
// streamable HTTP. The JSON-RPC message types here are shared with the
// server side in internal/mcpserver.
package mcp
