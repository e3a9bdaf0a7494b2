package elearn

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"

	logx "elearnbot/pkg/logx"
)

// writeSnapshots renders each activity into a text snapshot file, the
// deliverable the dispatcher attaches to activity notifications. Snapshot
// failures are best-effort: a missing file surfaces later as a
// resource-not-found during dispatch, never as a fetch failure.
func writeSnapshots(dir string, course *Course, log logx.Logger) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Warn("snapshot dir unavailable", logx.String("dir", dir), logx.Err(err))
		return
	}
	for si := range course.Sections {
		sec := &course.Sections[si]
		for ai := range sec.Activities {
			act := &sec.Activities[ai]
			name := snapshotName(course.URL, sec.Name, act.Text)
			path := filepath.Join(dir, name)

			var b strings.Builder
			b.WriteString(course.Name)
			b.WriteString("\n")
			b.WriteString(sec.Name)
			b.WriteString("\n\n")
			b.WriteString(act.Text)
			for _, l := range act.Links {
				b.WriteString("\n")
				b.WriteString(l)
			}

			if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
				log.Warn("snapshot write failed", logx.String("path", path), logx.Err(err))
				continue
			}
			act.SnapshotPath = path
		}
	}
}

// snapshotName is stable across cycles for an unchanged activity, so
// re-fetches overwrite rather than accumulate.
func snapshotName(courseURL, sectionName, activityText string) string {
	h := sha256.Sum256([]byte(courseURL + "\x00" + sectionName + "\x00" + activityText))
	return hex.EncodeToString(h[:8]) + ".txt"
}
