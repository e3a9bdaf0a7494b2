package elearn

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

const coursePage = `
<html><body>
<header id="page-header">Algorithms 101</header>
<div id="page-content">
  <ul class="topics">
    <li id="section-1">
      <div class="course-section-header"><h3>Week 1</h3></div>
      <ul>
        <li class="activity">
          Lecture slides
          <a href="https://learn.example.edu/mod/resource/view.php?id=10">slides</a>
        </li>
        <li class="activity">
          Quiz 1
          <span data-completion-state="done">Done</span>
          <a href="https://learn.example.edu/mod/quiz/view.php?id=11">quiz</a>
        </li>
      </ul>
    </li>
    <li id="section-2">
      <div class="course-section-header"><h3>Week 2</h3></div>
      <ul>
        <li class="activity">Assignment 2</li>
      </ul>
    </li>
  </ul>
</div>
</body></html>`

const dashboardPage = `
<html><body>
<div data-region="paged-content-page">
  <a href="https://learn.example.edu/course/view.php?id=7">Algorithms</a>
  <a href="https://learn.example.edu/course/view.php?id=7">Algorithms again</a>
  <a href="https://learn.example.edu/course/view.php?id=9">Databases</a>
  <a href="https://learn.example.edu/grade/report.php?id=7">Grades</a>
</div>
</body></html>`

func docFrom(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	return doc
}

func TestParseDashboardDedupes(t *testing.T) {
	t.Parallel()
	urls := parseDashboard(docFrom(t, dashboardPage))
	want := []string{
		"https://learn.example.edu/course/view.php?id=7",
		"https://learn.example.edu/course/view.php?id=9",
	}
	if len(urls) != len(want) {
		t.Fatalf("got %d urls: %v", len(urls), urls)
	}
	for i := range want {
		if urls[i] != want[i] {
			t.Fatalf("url[%d] = %q, want %q", i, urls[i], want[i])
		}
	}
}

func TestParseCourseTree(t *testing.T) {
	t.Parallel()
	course, err := parseCourse(docFrom(t, coursePage), "https://learn.example.edu/course/view.php?id=7")
	if err != nil {
		t.Fatalf("parseCourse: %v", err)
	}
	if course.Name != "Algorithms 101" {
		t.Fatalf("course name = %q", course.Name)
	}
	if len(course.Sections) != 2 {
		t.Fatalf("sections = %d, want 2", len(course.Sections))
	}

	w1 := course.Sections[0]
	if w1.Name != "Week 1" {
		t.Fatalf("section name = %q", w1.Name)
	}
	if len(w1.Activities) != 2 {
		t.Fatalf("week 1 activities = %d, want 2", len(w1.Activities))
	}
	if w1.Activities[0].Completed {
		t.Fatal("lecture slides should not be completed")
	}
	if !w1.Activities[1].Completed {
		t.Fatal("quiz should be completed")
	}
	if len(w1.Activities[0].Links) != 1 {
		t.Fatalf("links = %v", w1.Activities[0].Links)
	}

	// Section text must contain activity text so activity edits bubble up
	// into the section digest.
	if !strings.Contains(w1.Text, "Lecture slides") {
		t.Fatalf("section text missing activity text: %q", w1.Text)
	}
}

func TestParseCourseNoContent(t *testing.T) {
	t.Parallel()
	if _, err := parseCourse(docFrom(t, "<html><body><p>login</p></body></html>"), "u"); err == nil {
		t.Fatal("expected error for missing content region")
	}
}

func TestLoginRejectedDetection(t *testing.T) {
	t.Parallel()
	rejected := docFrom(t, `<html><body><div id="loginerrormessage">Invalid login</div></body></html>`)
	if !loginRejected(rejected) {
		t.Fatal("error box should be detected as rejection")
	}
	dash := docFrom(t, `<html><body><div id="page-content">dashboard</div></body></html>`)
	if loginRejected(dash) {
		t.Fatal("dashboard must not look like a rejection")
	}
}
