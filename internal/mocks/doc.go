// Package mocks holds hand-written test doubles for the backends, stores
// and token service.
//
// Every mock follows the same shape: an optional function field per
// method (SubmitVideoFn, CheckVideoFn, ...), plain default return values used
// when the function is nil, and call records so tests can assert what was
// sent:
//
//	backend := &mocks.MockVideoBackend{Operation: "operations/abc"}
//	// ... exercise code ...
//	require.Len(t, backend.SubmitCalls, 1)
package mocks
