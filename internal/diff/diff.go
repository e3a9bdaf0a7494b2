// Package diff decides what changed in a course tree since the last
// observation, consulting and updating per-subscriber fingerprints.
package diff

import (
	"context"
	"fmt"

	"elearnbot/internal/elearn"
	"elearnbot/internal/store"
)

// FingerprintStore is the compare-and-record surface the engine needs.
// *store.Store satisfies it.
type FingerprintStore interface {
	SetFingerprint(ctx context.Context, subscriberID, itemKey, digest string, kind store.ItemKind) (changed bool, err error)
}

// ChangeEvent describes what changed in one course for one subscriber.
// A non-nil event with zero sections means the course page changed but no
// eligible activity did; callers treat it as not worth notifying.
type ChangeEvent struct {
	CourseName string
	CourseURL  string
	Sections   []SectionChange
}

type SectionChange struct {
	Name       string
	Activities []elearn.Activity
}

// ActivityCount is the number of eligible changed activities in the event.
func (e *ChangeEvent) ActivityCount() int {
	n := 0
	for _, s := range e.Sections {
		n += len(s.Activities)
	}
	return n
}

type Engine struct {
	fps FingerprintStore
}

func NewEngine(fps FingerprintStore) *Engine {
	return &Engine{fps: fps}
}

// Diff walks the course tree top-down, gated at each level: an unchanged
// course digest short-circuits the whole course (section text is derived
// from the same page snapshot, so an unchanged course cannot hide a changed
// section), and an unchanged section skips its activities likewise.
// Completed activities are never diffed and never recorded.
func (e *Engine) Diff(ctx context.Context, subscriberID string, course *elearn.Course) (*ChangeEvent, error) {
	changed, err := e.fps.SetFingerprint(ctx, subscriberID, ItemKey(course.URL), Digest(course.Text), store.KindCourse)
	if err != nil {
		return nil, fmt.Errorf("diff course %s: %w", course.URL, err)
	}
	if !changed {
		return nil, nil
	}

	event := &ChangeEvent{CourseName: course.Name, CourseURL: course.URL}
	for _, sec := range course.Sections {
		changed, err := e.fps.SetFingerprint(ctx, subscriberID,
			ItemKey(course.URL, sec.Name), Digest(sec.Text), store.KindSection)
		if err != nil {
			return nil, fmt.Errorf("diff section %q: %w", sec.Name, err)
		}
		if !changed {
			continue
		}

		var acts []elearn.Activity
		for _, act := range sec.Activities {
			if act.Completed {
				continue
			}
			changed, err := e.fps.SetFingerprint(ctx, subscriberID,
				ItemKey(course.URL, sec.Name, act.Text), Digest(act.Text), store.KindActivity)
			if err != nil {
				return nil, fmt.Errorf("diff activity in %q: %w", sec.Name, err)
			}
			if changed {
				acts = append(acts, act)
			}
		}
		if len(acts) > 0 {
			event.Sections = append(event.Sections, SectionChange{Name: sec.Name, Activities: acts})
		}
	}
	return event, nil
}
