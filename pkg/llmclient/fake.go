package llmclient

import (
	"context"
	"fmt"
)

// FakeInvoker is a scripted Invoker for tests: each call to Invoke consumes
// the next queued response (or repeats the last one once the queue is
// drained), recording every call it was handed.
type FakeInvoker struct {
	Responses []*InvokeResult
	Err       error

	Calls []FakeInvocation
	next  int
}

// FakeInvocation records one call made to a FakeInvoker.
type FakeInvocation struct {
	PromptTemplateName string
	Context            string
	State              map[string]string
}

// NewFakeInvoker returns a FakeInvoker that always answers with result.
func NewFakeInvoker(result *InvokeResult) *FakeInvoker {
	return &FakeInvoker{Responses: []*InvokeResult{result}}
}

func (f *FakeInvoker) Invoke(_ context.Context, promptTemplateName, context string, state map[string]string) (*InvokeResult, error) {
	f.Calls = append(f.Calls, FakeInvocation{PromptTemplateName: promptTemplateName, Context: context, State: state})
	if f.Err != nil {
		return nil, f.Err
	}
	if len(f.Responses) == 0 {
		return nil, fmt.Errorf("llmclient: fake invoker has no queued responses")
	}
	idx := f.next
	if idx >= len(f.Responses) {
		idx = len(f.Responses) - 1
	} else {
		f.next++
	}
	return f.Responses[idx], nil
}

func (f *FakeInvoker) Close() error { return nil }
