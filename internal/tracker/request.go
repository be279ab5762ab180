package tracker

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/randytsao24/busalert/internal/livetimes"
)

const maxBodyBytes = 8 << 20

// Request is one retrieval of live times. PerformRequest is expected to run
// on its own goroutine; Cancel may be called from any goroutine, any number
// of times.
type Request interface {
	PerformRequest(ctx context.Context) (*livetimes.LiveTimes, error)
	Cancel()
}

// canceller is a one-way cancellation flag shared by both request kinds.
type canceller struct {
	ctx    context.Context
	cancel context.CancelFunc
}

func newCanceller() canceller {
	ctx, cancel := context.WithCancel(context.Background())
	return canceller{ctx: ctx, cancel: cancel}
}

func (c canceller) Cancel() { c.cancel() }

// bind returns a context that ends when parent ends or Cancel is called.
func (c canceller) bind(parent context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)
	stop := context.AfterFunc(c.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

func (c canceller) cancelled() bool { return c.ctx.Err() != nil }

// singleRequest performs exactly one network call.
type singleRequest struct {
	canceller
	client   *http.Client
	protocol Protocol
	mapper   *livetimes.Mapper
	query    Query
}

func newSingleRequest(client *http.Client, p Protocol, m *livetimes.Mapper, q Query) *singleRequest {
	return &singleRequest{
		canceller: newCanceller(),
		client:    client,
		protocol:  p,
		mapper:    m,
		query:     q,
	}
}

func (r *singleRequest) PerformRequest(ctx context.Context) (*livetimes.LiveTimes, error) {
	ctx, release := r.bind(ctx)
	defer release()

	if err := ctx.Err(); err != nil {
		return nil, r.contextFailure(ctx)
	}

	req, err := r.protocol.NewHTTPRequest(ctx, r.query)
	if err != nil {
		return nil, &NetworkError{Cause: err}
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, r.transportFailure(ctx, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, MapHTTPStatusCode(resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, r.transportFailure(ctx, err)
	}

	var lt *livetimes.LiveTimes
	if len(bytes.TrimSpace(body)) == 0 {
		lt = r.mapper.EmptyLiveTimes()
	} else {
		raw, err := r.protocol.Decode(body, r.query)
		if err != nil {
			return nil, &ServerError{Code: resp.StatusCode, Cause: err}
		}
		lt = r.mapper.MapToLiveTimes(raw)
	}

	// A cancel that raced with completion still wins.
	if ctx.Err() != nil {
		return nil, r.contextFailure(ctx)
	}
	return lt, nil
}

func (r *singleRequest) transportFailure(ctx context.Context, err error) Error {
	if r.cancelled() {
		return &CancelledError{}
	}
	return mapTransportError(ctx, err)
}

func (r *singleRequest) contextFailure(ctx context.Context) Error {
	if r.cancelled() {
		return &CancelledError{}
	}
	return mapContextError(ctx.Err())
}

// multiRequest runs several single requests concurrently. The first failure
// cancels the rest and is returned alone.
type multiRequest struct {
	canceller
	parts []*singleRequest
	now   func() time.Time
}

func newMultiRequest(parts []*singleRequest) *multiRequest {
	return &multiRequest{canceller: newCanceller(), parts: parts, now: time.Now}
}

func (r *multiRequest) PerformRequest(ctx context.Context) (*livetimes.LiveTimes, error) {
	ctx, release := r.bind(ctx)
	defer release()

	results := make([]*livetimes.LiveTimes, len(r.parts))
	g, gctx := errgroup.WithContext(ctx)
	for i, part := range r.parts {
		g.Go(func() error {
			lt, err := part.PerformRequest(gctx)
			if err != nil {
				return err
			}
			results[i] = lt
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if r.cancelled() {
			return nil, &CancelledError{}
		}
		return nil, err
	}

	if ctx.Err() != nil {
		if r.cancelled() {
			return nil, &CancelledError{}
		}
		return nil, mapContextError(ctx.Err())
	}
	return livetimes.Merge(r.now(), results...), nil
}

// Cancel stops every part still in flight.
func (r *multiRequest) Cancel() {
	r.canceller.Cancel()
	for _, p := range r.parts {
		p.Cancel()
	}
}
