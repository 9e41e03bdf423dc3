// Package httputil provides retry helpers for remote calls.
//
// # Overview
//
// This package provides infrastructure shared by everything that talks to
// remote services or contended storage:
//
//   - [Retry] / [RetryWithBackoff]: automatic retry with exponential backoff
//   - [RetryLinear]: bounded retry with linear backoff for storage conflicts
//
// # Retry
//
// [Retry] wraps requests with automatic retry for transient failures:
//
//   - Network errors
//   - 5xx server errors
//
// Errors must be wrapped with [Retryable] to trigger a retry; anything
// else is returned immediately. The delay doubles after each attempt.
//
// [RetryLinear] is the storage-side counterpart: the delay grows linearly
// with the attempt number, which is enough to spread out optimistic
// concurrency conflicts without the long tail of exponential backoff.
package httputil
