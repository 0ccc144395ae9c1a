// Package composio is a thin client for the Composio tool platform, which
// owns the Gmail OAuth connections and executes Gmail actions on a user's
// behalf.
//
// [Client] speaks the HTTP API. [Client] also satisfies connection.Store, so
// the connection ensurer can use it directly, and [Toolset] turns the Gmail
// action schemas into toolbox tools whose handlers execute through the API.
package composio
