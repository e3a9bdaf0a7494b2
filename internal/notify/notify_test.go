package notify

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"elearnbot/internal/diff"
	"elearnbot/internal/elearn"
	"elearnbot/internal/transport"
	logx "elearnbot/pkg/logx"
)

type fakeAdapter struct {
	texts     []string
	resources []string
	textErr   error
	missing   map[string]bool
}

func (f *fakeAdapter) Start(context.Context, chan<- transport.Message) error { return nil }
func (f *fakeAdapter) Stop(context.Context) error                            { return nil }

func (f *fakeAdapter) SendText(_ context.Context, _ transport.ChatTarget, text string, _ *transport.SendOptions) (transport.MessageRef, error) {
	if f.textErr != nil {
		return transport.MessageRef{}, f.textErr
	}
	f.texts = append(f.texts, text)
	return transport.MessageRef{}, nil
}

func (f *fakeAdapter) SendResource(_ context.Context, _ transport.ChatTarget, path string) error {
	if f.missing[path] {
		return fmt.Errorf("send %s: %w", path, transport.ErrResourceNotFound)
	}
	f.resources = append(f.resources, path)
	return nil
}

func sampleEvent() *diff.ChangeEvent {
	return &diff.ChangeEvent{
		CourseName: "Algorithms",
		CourseURL:  "https://learn.example.edu/course/view.php?id=7",
		Sections: []diff.SectionChange{
			{Name: "Week 2", Activities: []elearn.Activity{
				{Text: "Assignment 2", Links: []string{"https://learn.example.edu/mod/assign/view.php?id=20"}, SnapshotPath: "/tmp/a.txt"},
				{Text: "Reading list", SnapshotPath: "/tmp/b.txt"},
			}},
		},
	}
}

func TestDispatchMessageShape(t *testing.T) {
	t.Parallel()
	a := &fakeAdapter{}
	if err := NewDispatcher(a, logx.Nop()).Dispatch(context.Background(), 42, sampleEvent()); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	// One header plus one message per activity.
	if len(a.texts) != 3 {
		t.Fatalf("texts = %d, want 3: %q", len(a.texts), a.texts)
	}
	if a.texts[0] != "📚 Algorithms has updates\nhttps://learn.example.edu/course/view.php?id=7" {
		t.Fatalf("header = %q", a.texts[0])
	}
	if len(a.resources) != 2 {
		t.Fatalf("resources = %v", a.resources)
	}
}

func TestDispatchMissingSnapshotContinues(t *testing.T) {
	t.Parallel()
	a := &fakeAdapter{missing: map[string]bool{"/tmp/a.txt": true}}
	if err := NewDispatcher(a, logx.Nop()).Dispatch(context.Background(), 42, sampleEvent()); err != nil {
		t.Fatalf("missing snapshot must not fail dispatch: %v", err)
	}
	if len(a.texts) != 3 {
		t.Fatalf("texts = %d, want 3", len(a.texts))
	}
	if len(a.resources) != 1 || a.resources[0] != "/tmp/b.txt" {
		t.Fatalf("resources = %v", a.resources)
	}
}

func TestDispatchTextFailureAborts(t *testing.T) {
	t.Parallel()
	a := &fakeAdapter{textErr: errors.New("blocked by user")}
	err := NewDispatcher(a, logx.Nop()).Dispatch(context.Background(), 42, sampleEvent())
	if err == nil {
		t.Fatal("expected error")
	}
	if len(a.resources) != 0 {
		t.Fatalf("nothing should be delivered after a text failure: %v", a.resources)
	}
}

func TestDispatchEmptyEventNoop(t *testing.T) {
	t.Parallel()
	a := &fakeAdapter{}
	ev := &diff.ChangeEvent{CourseName: "Algorithms", CourseURL: "u"}
	if err := NewDispatcher(a, logx.Nop()).Dispatch(context.Background(), 42, ev); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(a.texts) != 0 {
		t.Fatalf("empty event must stay silent, got %q", a.texts)
	}
}
