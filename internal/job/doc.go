// Package job drives long-running video generation jobs through
// submit, poll, download and cancel.
//
// A Controller owns every live Job. Each job moves through
//
//	idle → submitting → polling → downloading → completed
//
// and may end early as failed or cancelled. Every remote call goes
// through the shared request executor, so credential rotation and retry
// apply to submission, status checks and downloads alike. Poll ticks are
// scheduled on a clock.Clock and a job never has more than one pending.
//
// Cancellation is cooperative. A result that arrives after the job left
// the state it was requested from is discarded, and an asset stored for
// a job that was cancelled meanwhile is released at once.
package job
