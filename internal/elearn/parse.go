package elearn

import (
	"errors"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// parseDashboard pulls course page links off the dashboard, deduplicated and
// in document order.
func parseDashboard(doc *goquery.Document) []string {
	seen := map[string]bool{}
	var urls []string
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if !strings.Contains(href, "course/view.php") {
			return
		}
		if seen[href] {
			return
		}
		seen[href] = true
		urls = append(urls, href)
	})
	return urls
}

// parseCourse turns one course page into a node tree. Identity is
// content-derived: the course by URL, a section by its heading, an activity
// by its own text. Index positions are never part of identity, so reordering
// unrelated siblings cannot fake a change.
func parseCourse(doc *goquery.Document, courseURL string) (*Course, error) {
	content := doc.Find("#page-content")
	if content.Length() == 0 {
		return nil, errors.New("course page has no content region")
	}

	course := &Course{
		Name: cleanText(doc.Find("#page-header").Text()),
		URL:  courseURL,
		Text: cleanText(content.Text()),
	}
	if course.Name == "" {
		course.Name = courseURL
	}

	content.Find(`ul.topics li[id*="section"], ul.weeks li[id*="section"]`).Each(func(_ int, li *goquery.Selection) {
		section := Section{
			Name: cleanText(li.Find(".course-section-header h3").First().Text()),
			Text: cleanText(li.Text()),
		}
		li.Find("li.activity").Each(func(_ int, act *goquery.Selection) {
			a := Activity{
				Text:      cleanText(act.Text()),
				Completed: activityCompleted(act),
			}
			act.Find("a[href]").Each(func(_ int, link *goquery.Selection) {
				if href, ok := link.Attr("href"); ok && href != "" {
					a.Links = append(a.Links, href)
				}
			})
			section.Activities = append(section.Activities, a)
		})
		course.Sections = append(course.Sections, section)
	})

	return course, nil
}

// activityCompleted reads the completion marker the site renders on
// activities the subscriber already finished.
func activityCompleted(act *goquery.Selection) bool {
	if act.Find(`[data-region="completion-info"] .btn-success`).Length() > 0 {
		return true
	}
	done := false
	act.Find("[data-completion-state]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if v, _ := s.Attr("data-completion-state"); strings.EqualFold(v, "done") {
			done = true
			return false
		}
		return true
	})
	return done
}

func cleanText(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}
