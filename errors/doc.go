// Package errors provides standardized error handling patterns for sduiterm components.
//
// # Overview
//
// The errors package implements a three-class error classification system for the
// terminal runtime: Transient (temporary, retryable), Invalid (bad input,
// non-retryable), and Fatal (unrecoverable, stop processing).
//
// This classification lets components make informed decisions about retries,
// graceful degradation, and failure recovery without hardcoded error string
// matching. A dropped WebSocket connection is transient and the transport
// reconnects; a malformed layout document is invalid and the renderer skips it;
// an exhausted memory region is fatal and boot aborts.
//
// # Error Classification
//
// Errors are automatically classified based on their type or content:
//
//   - Transient: Network timeouts, connection loss, full buffers (retry recommended)
//   - Invalid: Malformed envelopes, unknown node types (do not retry)
//   - Fatal: Region exhaustion, data corruption, bad or missing configuration (stop processing)
//
// The classification system integrates with Go's standard error handling patterns,
// supporting errors.Is(), errors.As(), and error wrapping chains.
//
// # Quick Start
//
// Use standard error variables for known conditions:
//
//	if conn == nil {
//	    return errors.ErrNoConnection
//	}
//
// Wrap errors with context for debugging:
//
//	if err := engine.Render(doc); err != nil {
//	    return errors.Wrap(err, "LayoutEngine", "Render", "build scene graph")
//	}
//
// Check classification for retry logic:
//
//	if err := store.Persist(); err != nil {
//	    if errors.IsTransient(err) {
//	        cfg := errors.DefaultRetryConfig().ToRetryConfig()
//	        return retry.Do(ctx, cfg, store.Persist)
//	    }
//	    return err
//	}
//
// # Error Wrapping Pattern
//
// All error wrapping follows the standardized format:
//
//	"component.method: action failed: %w"
//
// This format enables consistent log parsing and debugging across the runtime.
// Three wrapper functions provide classification-aware wrapping:
//
//	errors.WrapTransient(err, "Component", "Method", "action")  // For retryable errors
//	errors.WrapInvalid(err, "Component", "Method", "action")    // For validation errors
//	errors.WrapFatal(err, "Component", "Method", "action")      // For unrecoverable errors
//
// The generic Wrap() function preserves the original error's classification:
//
//	errors.Wrap(err, "Component", "Method", "action")
//
// # Standard Error Variables
//
// Pre-defined error variables cover the runtime's common conditions, organized
// by category:
//
//   - Component lifecycle: ErrAlreadyStarted, ErrNotStarted, ErrAlreadyStopped
//   - Connection issues: ErrNoConnection, ErrConnectionLost, ErrConnectionTimeout
//   - Envelope and payload: ErrInvalidData, ErrParsingFailed, ErrPayloadTooLarge
//   - Scene graph: ErrWidgetNotFound, ErrRegistryFull, ErrAnimationLimit
//   - Memory regions: ErrRegionExhausted, ErrBufferFull
//
// Use these variables instead of creating custom error messages so callers can
// branch on errors.Is.
//
// # Retry Configuration
//
// RetryConfig describes a retry budget and which errors are worth retrying.
// ShouldRetry gates the decision; ToRetryConfig converts the budget to a
// pkg/retry Config for the actual backoff loop:
//
//	cfg := errors.DefaultRetryConfig()
//	if cfg.ShouldRetry(err, attempt) {
//	    return retry.Do(ctx, cfg.ToRetryConfig(), operation)
//	}
//
// The provisioning store passes DefaultRetryConfig().ToRetryConfig() to
// retry.Do for its flash writes.
//
// # Context Cancellation
//
// Context errors (context.DeadlineExceeded, context.Canceled) are classified as
// Transient, so context-based timeouts flow through the same retry decisions as
// network timeouts.
//
// # Thread Safety
//
// All classification and wrapping operations are thread-safe. Error variables
// are immutable and safe for concurrent access. ClassifiedError is safe to
// share across goroutines after creation.
package errors
