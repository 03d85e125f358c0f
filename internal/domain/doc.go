// Package domain contains the core entities of the generation layer:
// credentials, model task keys, video requests and the generation job
// lifecycle. It is independent of any transport or storage mechanism.
package domain
