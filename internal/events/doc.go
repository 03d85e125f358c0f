// Package events carries job lifecycle notifications from the job
// controller to interested observers.
//
// The controller emits a JobEvent whenever a video job changes status.
// Subscribers of a Bus receive each event in subscription order.
package events
