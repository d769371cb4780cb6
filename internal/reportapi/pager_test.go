package reportapi

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bugfreev587/openshift-utilization/internal/models"
)

func strPtr(s string) *string { return &s }

func TestPaginate_StopsOnNilToken(t *testing.T) {
	pages := []models.Page[int]{
		{Response: []int{1, 2}, NextToken: strPtr("t1"), ExecID: "e1"},
		{Response: []int{3}, NextToken: strPtr("t2"), ExecID: "e2"},
		{Response: []int{4}},
	}
	var queries []models.Query
	fetch := func(ctx context.Context, q models.Query) (*models.Page[int], error) {
		queries = append(queries, q)
		return &pages[len(queries)-1], nil
	}

	var seen []int
	n, err := Paginate[int](context.Background(), fetch, models.Query{PageSize: 2}, func(items []int) error {
		seen = append(seen, items...)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []int{1, 2, 3, 4}, seen)

	require.Len(t, queries, 3)
	assert.Nil(t, queries[0].NextToken)
	assert.Equal(t, "e1", queries[1].ExecID)
	assert.Equal(t, "t1", *queries[1].NextToken)
	assert.Equal(t, "e2", queries[2].ExecID)
	assert.Equal(t, "t2", *queries[2].NextToken)
}

func TestPaginate_FetchErrorKeepsEarlierPages(t *testing.T) {
	calls := 0
	fetch := func(ctx context.Context, q models.Query) (*models.Page[int], error) {
		calls++
		if calls == 2 {
			return nil, &StatusError{StatusCode: 500, Body: "down"}
		}
		return &models.Page[int]{Response: []int{calls}, NextToken: strPtr("more")}, nil
	}

	var seen []int
	n, err := Paginate[int](context.Background(), fetch, models.Query{}, func(items []int) error {
		seen = append(seen, items...)
		return nil
	})
	require.Error(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []int{1}, seen)

	var pe *PageError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 2, pe.Page)
	var se *StatusError
	assert.True(t, errors.As(err, &se))
}

func TestPaginate_HandlerErrorIsReturnedAsIs(t *testing.T) {
	boom := errors.New("boom")
	fetch := func(ctx context.Context, q models.Query) (*models.Page[int], error) {
		return &models.Page[int]{Response: []int{1}, NextToken: strPtr("more")}, nil
	}
	_, err := Paginate[int](context.Background(), fetch, models.Query{}, func([]int) error { return boom })
	assert.Equal(t, boom, err)
}
