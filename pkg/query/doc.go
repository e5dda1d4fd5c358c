// Package query implements the paginated query protocol of the IoT hub
// service API.
//
// A query is sent as one HTTP request per page. The request carries the
// page size in the x-ms-max-item-count header and, when resuming, the
// service-issued token in x-ms-continuation. The response declares the kind
// of items it holds in x-ms-item-type and, if more pages exist, a new
// continuation token.
//
// # Cursor
//
// Cursor hides paging entirely:
//
//	cur, err := query.NewCursor[client.Twin]("SELECT * FROM devices", 100, query.TypeTwin)
//	if err := cur.Execute(ctx, target); err != nil { ... }
//	for twin, err := range cur.All(ctx) { ... }
//
// # Collection
//
// Collection hands out whole pages and lets the caller resume from any
// continuation token:
//
//	col, err := query.NewCollection[client.Twin]("SELECT * FROM devices", 100, query.TypeTwin, target)
//	for col.HasNext() {
//	    page, err := col.Next(ctx)
//	    ...
//	}
//
// Both validate that the service answered with the requested Type; a
// mismatch fails with ErrTypeMismatch and leaves the cursor unchanged.
package query
