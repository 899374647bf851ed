package mentor

import (
	"context"
	"fmt"
	"sync"
)

// DispatchResult holds the outcome of a single tool dispatch.
type DispatchResult struct {
	Content string
	// IsError signals that Content is an error message rather than a
	// successful tool result. Structural, so consumers never need
	// string-prefix heuristics.
	IsError bool
}

// DispatchFunc executes a single tool call and returns the result.
type DispatchFunc func(ctx context.Context, tc ToolCall) DispatchResult

// maxParallelDispatch caps concurrent tool call goroutines to avoid
// overwhelming external services with unbounded parallelism.
const maxParallelDispatch = 10

// safeDispatch wraps a dispatch call with panic recovery. A panicking tool
// becomes an error result instead of crashing the process.
func safeDispatch(ctx context.Context, tc ToolCall, dispatch DispatchFunc) (dr DispatchResult) {
	defer func() {
		if p := recover(); p != nil {
			dr = DispatchResult{Content: fmt.Sprintf("error: tool %q panic: %v", tc.Name, p), IsError: true}
		}
	}()
	return dispatch(ctx, tc)
}

// dispatchParallel runs all tool calls concurrently via the dispatch function
// and returns results in the same order as the input calls.
// Single calls run inline (no goroutine). Multiple calls use a fixed worker
// pool of min(len(calls), maxParallelDispatch) goroutines pulling from a
// shared work channel.
//
// The collection loop is context-aware: if ctx is cancelled while calls are
// in flight, incomplete slots get context-error results instead of blocking.
func dispatchParallel(ctx context.Context, calls []ToolCall, dispatch DispatchFunc) []DispatchResult {
	// Fast path: single call, no goroutine needed.
	if len(calls) == 1 {
		return []DispatchResult{safeDispatch(ctx, calls[0], dispatch)}
	}

	type indexedResult struct {
		idx    int
		result DispatchResult
	}
	type workItem struct {
		idx int
		tc  ToolCall
	}

	resultCh := make(chan indexedResult, len(calls))
	workCh := make(chan workItem, len(calls))
	for i, tc := range calls {
		workCh <- workItem{idx: i, tc: tc}
	}
	close(workCh)

	numWorkers := min(len(calls), maxParallelDispatch)
	var wg sync.WaitGroup
	wg.Add(numWorkers)
	for range numWorkers {
		go func() {
			defer wg.Done()
			for w := range workCh {
				if ctx.Err() != nil {
					resultCh <- indexedResult{w.idx, DispatchResult{Content: "error: " + ctx.Err().Error(), IsError: true}}
					continue
				}
				resultCh <- indexedResult{w.idx, safeDispatch(ctx, w.tc, dispatch)}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	results := make([]DispatchResult, len(calls))
	seen := make([]bool, len(calls))
collect:
	for received := 0; received < len(calls); received++ {
		select {
		case r, ok := <-resultCh:
			if !ok {
				break collect
			}
			results[r.idx] = r.result
			seen[r.idx] = true
		case <-ctx.Done():
			errResult := DispatchResult{Content: "error: " + ctx.Err().Error(), IsError: true}
			for i := range results {
				if !seen[i] {
					results[i] = errResult
				}
			}
			return results
		}
	}
	for i := range results {
		if !seen[i] {
			results[i] = DispatchResult{Content: "error: result not received", IsError: true}
		}
	}
	return results
}
