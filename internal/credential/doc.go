// Package credential holds the pool of API keys used to authenticate calls
// to the generation service: one primary key and an ordered list of
// backups, plus a rotation cursor that selects the key for the next
// attempt.
//
// Rotation is sticky. A rotation triggered by one caller's failure
// persists and determines the starting credential of the next caller,
// until the backup list is replaced.
package credential
