package gitlab

import (
	"context"
	"errors"
	"iter"
)

// PageFunc fetches one page of a paginated collection. It returns the
// items on that page, the number of the next page to request (0 when the
// fetched page was the last one), and any error.
type PageFunc[T any] func(ctx context.Context, page int) ([]T, int, error)

type pagerState int

const (
	pagerNeedsFetch pagerState = iota
	pagerHasBuffer
	pagerExhausted
	pagerFailed
)

// Pager lazily pulls items from a paginated collection, one page at a
// time. No request is made until the first call to Next, and consuming
// fewer items than the collection holds fetches fewer pages.
//
// A Pager is single-use: once it returns ErrDone it stays exhausted, and
// once a fetch fails the error is sticky and returned on every subsequent
// call. Obtain a fresh Pager from the accessor that produced it to iterate
// again. Pagers are not safe for concurrent use.
type Pager[T any] struct {
	fetch PageFunc[T]
	state pagerState
	buf   []T
	pos   int
	page  int
	err   error
}

func newPager[T any](fetch PageFunc[T]) *Pager[T] {
	return &Pager[T]{fetch: fetch, page: 1}
}

// Next returns the next item in the collection. It fetches the next page
// only when the buffer is drained. After the final item it returns ErrDone.
func (p *Pager[T]) Next(ctx context.Context) (T, error) {
	var zero T
	for {
		switch p.state {
		case pagerFailed:
			return zero, p.err
		case pagerExhausted:
			return zero, ErrDone
		case pagerHasBuffer:
			if p.pos < len(p.buf) {
				item := p.buf[p.pos]
				p.pos++
				return item, nil
			}
			if p.page == 0 {
				p.state = pagerExhausted
			} else {
				p.state = pagerNeedsFetch
			}
		case pagerNeedsFetch:
			items, next, err := p.fetch(ctx, p.page)
			if err != nil {
				p.state = pagerFailed
				p.err = err
				return zero, err
			}
			p.buf, p.pos, p.page = items, 0, next
			p.state = pagerHasBuffer
		}
	}
}

// All drains the pager and returns every remaining item. On failure it
// returns the error and no items.
func (p *Pager[T]) All(ctx context.Context) ([]T, error) {
	var items []T
	for {
		item, err := p.Next(ctx)
		if errors.Is(err, ErrDone) {
			return items, nil
		}
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
}

// Seq adapts the pager to a range-over-func sequence. A fetch failure is
// yielded as the final element and ends the iteration.
func (p *Pager[T]) Seq(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for {
			item, err := p.Next(ctx)
			if errors.Is(err, ErrDone) {
				return
			}
			if err != nil {
				var zero T
				yield(zero, err)
				return
			}
			if !yield(item, nil) {
				return
			}
		}
	}
}
