package testutil

import (
	"errors"
	"sync"
	"sync/atomic"

	dErrors "placeclaim/pkg/domain-errors"
	"placeclaim/pkg/platform/sentinel"
)

// ConcurrentResult tracks outcomes of concurrent test operations.
type ConcurrentResult struct {
	Successes   int32
	Conflicts   int32
	RateLimited int32
	Errors      int32
}

// Total returns the total number of operations executed.
func (r *ConcurrentResult) Total() int32 {
	return r.Successes + r.Conflicts + r.RateLimited + r.Errors
}

// RunConcurrent executes fn in parallel goroutines, released together, and
// classifies each outcome. Conflicts are already_claimed / invalid_transition
// domain errors or the ErrAlreadyUsed / ErrInvalidState sentinels.
func RunConcurrent(goroutines int, fn func(idx int) error) *ConcurrentResult {
	var wg sync.WaitGroup
	var successes, conflicts, limited, errs atomic.Int32
	start := make(chan struct{})

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			<-start
			err := fn(idx)
			switch {
			case err == nil:
				successes.Add(1)
			case dErrors.HasCode(err, dErrors.CodeAlreadyClaimed),
				dErrors.HasCode(err, dErrors.CodeInvalidTransition),
				errors.Is(err, sentinel.ErrAlreadyUsed),
				errors.Is(err, sentinel.ErrInvalidState):
				conflicts.Add(1)
			case dErrors.HasCode(err, dErrors.CodeRateLimited):
				limited.Add(1)
			default:
				errs.Add(1)
			}
		}(i)
	}

	close(start)
	wg.Wait()

	return &ConcurrentResult{
		Successes:   successes.Load(),
		Conflicts:   conflicts.Load(),
		RateLimited: limited.Load(),
		Errors:      errs.Load(),
	}
}
