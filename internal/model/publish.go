package model

import "time"

// PublishStatus is the release state shared by chapters and lessons.
type PublishStatus string

const (
	PublishDraft     PublishStatus = "draft"
	PublishScheduled PublishStatus = "scheduled"
	PublishPublished PublishStatus = "published"
)

var publishTransitions = map[PublishStatus][]PublishStatus{
	PublishDraft:     {PublishScheduled, PublishPublished},
	PublishScheduled: {PublishPublished, PublishDraft},
	PublishPublished: {PublishDraft},
}

func (s PublishStatus) Valid() bool {
	_, ok := publishTransitions[s]
	return ok
}

func (s PublishStatus) CanTransition(to PublishStatus) bool {
	return transitionAllowed(publishTransitions, s, to)
}

// releasePending is true while a visible item still waits for its release time.
func releasePending(status PublishStatus, releaseAt *time.Time, now time.Time) bool {
	if status != PublishPublished && status != PublishScheduled {
		return false
	}
	return releaseAt != nil && releaseAt.After(now)
}
