// Package asset stores downloaded generation results and hands out
// Handles for them.
//
// A Handle is exclusively owned: whoever holds it must call Release once
// they are done with the bytes. Release is idempotent. Each store counts
// its unreleased handles (Live) so tests can assert that nothing leaks.
package asset
