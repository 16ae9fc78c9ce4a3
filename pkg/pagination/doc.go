// Package pagination accumulates a cursor-paginated catalog into one ordered,
// name-deduplicated list.
//
// Pages are fetched strictly forward, one at a time: FetchNextPage is a no-op
// while a fetch is in flight or after the catalog reported its last page.
// A failed fetch leaves the cursor where it was so the caller can try again;
// nothing is retried internally.
//
// Example usage:
//
//	pages := pagination.New(catalogClient)
//	for pages.HasMore() {
//		if err := pages.FetchNextPage(ctx); err != nil {
//			return err
//		}
//	}
//	records := pages.Accumulated()
package pagination
