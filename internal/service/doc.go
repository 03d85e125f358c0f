// Package service contains the use cases the HTTP surface calls into.
//
// MediaService runs one-shot text and image generation through the
// retrying executor, picking the model for each task from the registry.
// SettingsService edits the runtime configuration: the backup credential
// list and the per-task model overrides.
//
// Services receive their collaborators through constructor injection and
// depend only on small interfaces, so the platform adapters stay
// replaceable in tests.
package service
