// Package client provides a Go SDK for the IoT hub service API.
//
// The service API exposes device and module twins, direct methods and
// scheduled jobs over HTTPS. Query results are paged; this package returns
// them as cursors from the query package, with the Client acting as the
// cursors' fetcher.
//
// # Quick Start
//
// Create a client from a connection string and walk a twin query:
//
//	c, err := client.NewFromConnectionString(os.Getenv("IOTHUB_CONNECTION_STRING"))
//	cur, err := c.QueryTwins(ctx, "SELECT * FROM devices WHERE status = 'enabled'", 0)
//	for twin, err := range cur.All(ctx) {
//	    ...
//	}
//
// Use custom configuration:
//
//	c := client.New("myhub.azure-devices.net",
//	    client.WithAuthorizer(auth),
//	    client.WithHTTPClient(customHTTPClient),
//	    client.WithPageSize(500),
//	)
//
// # Page-level access
//
// The Collection forms never fetch on their own. Hand the continuation token
// of a page to another process and resume there:
//
//	col, err := c.QueryTwinCollection("SELECT * FROM devices", 100)
//	page, err := col.Next(ctx)
//	token := page.ContinuationToken()
//
//	// later
//	page, err = col.NextWith(ctx, query.Options{ContinuationToken: token, PageSize: 100})
//
// # Errors
//
// Responses with status 400 and above are returned as *APIError. Protocol
// violations of query responses match query.ErrProtocol.
package client
