package batch

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnsupportedSource indicates a job config carried no usable data source.
var ErrUnsupportedSource = errors.New("unsupported data source")

// DataSource supplies the items of one batch job a page at a time.
// Implementations are typically backed by a repository query pair
// (count + offset/limit page) or by an in-memory slice.
type DataSource interface {
	// TotalCount returns the number of items the job will see in total.
	TotalCount(ctx context.Context) (int, error)
	// Page returns the items in [offset, offset+limit). A short or empty
	// page is valid near the end of the range.
	Page(ctx context.Context, offset, limit int) ([]interface{}, error)
}

// SliceSource adapts a finite in-memory slice into a DataSource.
type SliceSource struct {
	items []interface{}
}

// NewSliceSource wraps items already held in memory.
func NewSliceSource(items []interface{}) *SliceSource {
	return &SliceSource{items: items}
}

func (s *SliceSource) TotalCount(ctx context.Context) (int, error) {
	return len(s.items), nil
}

func (s *SliceSource) Page(ctx context.Context, offset, limit int) ([]interface{}, error) {
	if offset < 0 || limit < 0 {
		return nil, fmt.Errorf("%w: negative page bounds", ErrUnsupportedSource)
	}
	if offset >= len(s.items) {
		return nil, nil
	}
	end := offset + limit
	if end > len(s.items) {
		end = len(s.items)
	}
	return s.items[offset:end], nil
}

// FuncSource adapts a count/page function pair into a DataSource.
// Both functions must be non-nil.
type FuncSource struct {
	Count     func(ctx context.Context) (int, error)
	FetchPage func(ctx context.Context, offset, limit int) ([]interface{}, error)
}

func (f *FuncSource) TotalCount(ctx context.Context) (int, error) {
	if f.Count == nil {
		return 0, fmt.Errorf("%w: nil count function", ErrUnsupportedSource)
	}
	return f.Count(ctx)
}

func (f *FuncSource) Page(ctx context.Context, offset, limit int) ([]interface{}, error) {
	if f.FetchPage == nil {
		return nil, fmt.Errorf("%w: nil page function", ErrUnsupportedSource)
	}
	return f.FetchPage(ctx, offset, limit)
}
