package domain

// ModelTask is a logical generation task that maps to a concrete
// backend model identifier.
type ModelTask string

// Known model tasks
const (
	TaskImage        ModelTask = "image"
	TaskText         ModelTask = "text"
	TaskFastVideo    ModelTask = "fast_video"
	TaskQualityVideo ModelTask = "quality_video"
	TaskSpeech       ModelTask = "speech"
)

// ModelTasks lists every known task key in a stable order.
func ModelTasks() []ModelTask {
	return []ModelTask{TaskImage, TaskText, TaskFastVideo, TaskQualityVideo, TaskSpeech}
}

// IsValid reports whether t is a known task key.
func (t ModelTask) IsValid() bool {
	switch t {
	case TaskImage, TaskText, TaskFastVideo, TaskQualityVideo, TaskSpeech:
		return true
	default:
		return false
	}
}
