// Package tools groups tool plumbing.
//
// Sub-packages:
//   - [github.com/germanamz/gmail-agent/pkg/tools/toolbox] — Tool type and ToolBox dispatcher
//   - [github.com/germanamz/gmail-agent/pkg/tools/mcpserver] — serves a ToolBox over MCP using the official MCP Go SDK
//   - [github.com/germanamz/gmail-agent/pkg/tools/mcpclient] — consumes tools from an MCP server
package tools
