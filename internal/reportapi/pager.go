package reportapi

import (
	"context"

	"github.com/bugfreev587/openshift-utilization/internal/models"
)

// FetchFunc fetches one page for a query.
type FetchFunc[T any] func(ctx context.Context, q models.Query) (*models.Page[T], error)

// Paginate fetches pages until the API returns a nil next_token, passing each
// page's records to handle. Each following request carries the exec_id and
// next_token of the previous response.
//
// A failed fetch stops the loop with a *PageError; whatever handle already
// received stays valid. An error from handle is returned as is.
func Paginate[T any](ctx context.Context, fetch FetchFunc[T], q models.Query, handle func([]T) error) (int, error) {
	pages := 0
	for {
		if err := ctx.Err(); err != nil {
			return pages, err
		}
		page, err := fetch(ctx, q)
		if err != nil {
			return pages, &PageError{Page: pages + 1, Err: err}
		}
		pages++
		if err := handle(page.Response); err != nil {
			return pages, err
		}
		if page.NextToken == nil {
			return pages, nil
		}
		token := *page.NextToken
		q.ExecID = page.ExecID
		q.NextToken = &token
	}
}
