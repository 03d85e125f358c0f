// Package generation defines the error taxonomy for calls to the remote
// generative service and the Executor that runs those calls against a
// pool of credentials, retrying transient failures with exponential
// backoff and rotating to the next credential on permanent ones.
//
// Errors are classified once, at the transport boundary (see
// platform/gemini), into a *Error carrying a Kind. The Executor never
// inspects error messages.
package generation
