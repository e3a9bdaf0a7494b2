// Package elearn fetches a subscriber's course trees from the e-learning
// site: form login, dashboard enumeration, course page parsing.
package elearn

// Course is one observed course page. The node tree is ephemeral; it is
// rebuilt from scratch every cycle and never persisted.
type Course struct {
	Name     string
	URL      string
	Text     string // full page text, the digest input
	Sections []Section
}

// Section text includes all of its activities' text, so any activity change
// necessarily changes the section digest.
type Section struct {
	Name       string
	Text       string
	Activities []Activity
}

type Activity struct {
	Text  string
	Links []string
	// Completed activities are excluded from diffing and notification even
	// when their text changed.
	Completed bool
	// SnapshotPath points at the rendered snapshot file for delivery;
	// empty when none was produced.
	SnapshotPath string
}
