package elearn

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	retry "github.com/codeGROOVE-dev/retry-go"

	logx "elearnbot/pkg/logx"
)

type Config struct {
	BaseURL     string
	SnapshotDir string
	HTTPTimeout time.Duration
}

// Client builds per-subscriber sessions against the e-learning site.
type Client struct {
	cfg Config
	log logx.Logger
}

func New(cfg Config, log logx.Logger) *Client {
	if log.IsZero() {
		log = logx.Nop()
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 30 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{cfg: cfg, log: log}
}

// Session is one authenticated subscriber session. Sessions are built fresh
// per cycle and discarded afterwards.
type Session struct {
	client *Client
	http   *http.Client
	log    logx.Logger
}

// Login establishes a session. A credential rejection returns an error
// wrapping ErrAuth; transport failures come back as *FetchError.
func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: missing credentials", ErrAuth)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	s := &Session{
		client: c,
		http:   &http.Client{Jar: jar, Timeout: c.cfg.HTTPTimeout},
		log:    c.log,
	}

	loginURL := c.cfg.BaseURL + "/login/index.php"
	doc, err := s.getDocument(ctx, loginURL)
	if err != nil {
		return nil, err
	}
	token, _ := doc.Find(`input[name="logintoken"]`).Attr("value")

	form := url.Values{
		"username":   {email},
		"password":   {password},
		"logintoken": {token},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, loginURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, &FetchError{URL: loginURL, Err: err}
	}
	defer resp.Body.Close()

	doc, err = goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, &FetchError{URL: loginURL, Err: err}
	}
	if loginRejected(doc) {
		return nil, fmt.Errorf("%w: site rejected credentials", ErrAuth)
	}
	return s, nil
}

// FetchCourses is the one-shot login-and-fetch used by the watcher.
func (c *Client) FetchCourses(ctx context.Context, email, password string) ([]*Course, error) {
	s, err := c.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return s.FetchCourseTrees(ctx)
}

// loginRejected detects the error box the login form renders on bad
// credentials; a successful login redirects to the dashboard instead.
func loginRejected(doc *goquery.Document) bool {
	if doc.Find("#loginerrormessage").Length() > 0 {
		return true
	}
	return doc.Find(`form#login input[name="password"]`).Length() > 0
}

// FetchCourseTrees enumerates the dashboard and parses every course page.
// A single broken course page fails the whole pass (the caller retries next
// cycle); transient HTTP errors are retried in place.
func (s *Session) FetchCourseTrees(ctx context.Context) ([]*Course, error) {
	dashURL := s.client.cfg.BaseURL + "/my/"
	doc, err := s.getDocumentRetry(ctx, dashURL)
	if err != nil {
		return nil, err
	}

	urls := parseDashboard(doc)
	if len(urls) == 0 {
		s.log.Warn("no courses found on dashboard", logx.String("url", dashURL))
	}

	courses := make([]*Course, 0, len(urls))
	for _, cu := range urls {
		cdoc, err := s.getDocumentRetry(ctx, cu)
		if err != nil {
			return nil, err
		}
		course, err := parseCourse(cdoc, cu)
		if err != nil {
			return nil, &FetchError{URL: cu, Err: err}
		}
		if dir := s.client.cfg.SnapshotDir; dir != "" {
			writeSnapshots(dir, course, s.log)
		}
		courses = append(courses, course)
	}
	return courses, nil
}

func (s *Session) getDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, http.NoBody)
	if err != nil {
		return nil, err
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return nil, &FetchError{URL: pageURL, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{URL: pageURL, Err: fmt.Errorf("HTTP %d", resp.StatusCode)}
	}
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, &FetchError{URL: pageURL, Err: err}
	}
	return doc, nil
}

func (s *Session) getDocumentRetry(ctx context.Context, pageURL string) (*goquery.Document, error) {
	var doc *goquery.Document
	err := retry.Do(
		func() error {
			var err error
			doc, err = s.getDocument(ctx, pageURL)
			return err
		},
		retry.Attempts(3),
		retry.Delay(time.Second),
		retry.MaxDelay(10*time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			s.log.Warn("retrying page fetch", logx.Any("attempt", n), logx.String("url", pageURL), logx.Err(err))
		}),
	)
	if err != nil {
		return nil, err
	}
	return doc, nil
}
