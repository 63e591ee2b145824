package browsekit

import (
	"encoding/base64"
	"io/ioutil"
	"path/filepath"
	"testing"
	"time"

	"github.com/tebeka/selenium"
)

// stubDriver satisfies selenium.WebDriver through embedding; only the
// methods a test exercises are implemented.
type stubDriver struct {
	selenium.WebDriver

	sessionID  string
	screenshot []byte
	source     string
	title      string
	url        string

	findElement  func(by, value string) (selenium.WebElement, error)
	findElements func(by, value string) ([]selenium.WebElement, error)
	implicitWait time.Duration

	waits []struct {
		timeout  time.Duration
		interval time.Duration
	}
	waitErr error
}

func (s *stubDriver) SessionID() string           { return s.sessionID }
func (s *stubDriver) Screenshot() ([]byte, error) { return s.screenshot, nil }
func (s *stubDriver) PageSource() (string, error) { return s.source, nil }
func (s *stubDriver) Title() (string, error)      { return s.title, nil }
func (s *stubDriver) CurrentURL() (string, error) { return s.url, nil }

func (s *stubDriver) FindElement(by, value string) (selenium.WebElement, error) {
	return s.findElement(by, value)
}

func (s *stubDriver) FindElements(by, value string) ([]selenium.WebElement, error) {
	return s.findElements(by, value)
}

func (s *stubDriver) SetImplicitWaitTimeout(timeout time.Duration) error {
	s.implicitWait = timeout
	return nil
}

func (s *stubDriver) WaitWithTimeoutAndInterval(cond selenium.Condition, timeout, interval time.Duration) error {
	s.waits = append(s.waits, struct {
		timeout  time.Duration
		interval time.Duration
	}{timeout, interval})
	if s.waitErr != nil {
		return s.waitErr
	}
	_, err := cond(s)
	return err
}

// stubElement satisfies selenium.WebElement the same way.
type stubElement struct {
	selenium.WebElement

	tagName   string
	attrs     map[string]string
	displayed bool
	enabled   bool
	selected  bool
	clicks    int
}

func (s *stubElement) TagName() (string, error)   { return s.tagName, nil }
func (s *stubElement) IsDisplayed() (bool, error) { return s.displayed, nil }
func (s *stubElement) IsEnabled() (bool, error)   { return s.enabled, nil }
func (s *stubElement) IsSelected() (bool, error)  { return s.selected, nil }
func (s *stubElement) Click() error               { s.clicks++; return nil }
func (s *stubElement) GetAttribute(name string) (string, error) {
	return s.attrs[name], nil
}

func TestNormalizeScreenshotFilename(t *testing.T) {
	tests := []struct {
		desc string
		in   string
		want string
	}{
		{
			desc: "suffix appended when missing",
			in:   "shot",
			want: "shot.png",
		},
		{
			desc: "lowercase suffix kept",
			in:   "shot.png",
			want: "shot.png",
		},
		{
			desc: "uppercase suffix kept",
			in:   "shot.PNG",
			want: "shot.PNG",
		},
		{
			desc: "other extension still gets the suffix",
			in:   "shot.jpg",
			want: "shot.jpg.png",
		},
	}

	for _, test := range tests {
		if got := normalizeScreenshotFilename(test.in); got != test.want {
			t.Errorf("%s: normalizeScreenshotFilename(%q) = %q, want %q", test.desc, test.in, got, test.want)
		}
	}
}

func TestSaveScreenshot(t *testing.T) {
	want := []byte("not really a png")
	b := &Browser{wd: &stubDriver{screenshot: want}}

	path := filepath.Join(t.TempDir(), "page")
	if err := b.SaveScreenshot(path); err != nil {
		t.Fatalf("SaveScreenshot returned error: %v", err)
	}
	got, err := ioutil.ReadFile(path + ".png")
	if err != nil {
		t.Fatalf("reading screenshot: %v", err)
	}
	if string(got) != string(want) {
		t.Errorf("screenshot content = %q, want %q", got, want)
	}
}

func TestScreenshotBase64(t *testing.T) {
	data := []byte{1, 2, 3}
	b := &Browser{wd: &stubDriver{screenshot: data}}

	got, err := b.ScreenshotBase64()
	if err != nil {
		t.Fatalf("ScreenshotBase64 returned error: %v", err)
	}
	if want := base64.StdEncoding.EncodeToString(data); got != want {
		t.Errorf("ScreenshotBase64 = %q, want %q", got, want)
	}
}

func TestFindElementConvertsLocator(t *testing.T) {
	var gotBy, gotValue string
	wd := &stubDriver{
		findElement: func(by, value string) (selenium.WebElement, error) {
			gotBy, gotValue = by, value
			return &stubElement{}, nil
		},
	}
	b := &Browser{wd: wd}

	if _, err := b.FindElement("class_name", "headline"); err != nil {
		t.Fatalf("FindElement returned error: %v", err)
	}
	if gotBy != selenium.ByClassName || gotValue != "headline" {
		t.Errorf("engine got (%q, %q), want (%q, %q)", gotBy, gotValue, selenium.ByClassName, "headline")
	}

	if _, err := b.FindElement("telepathy", "headline"); err == nil {
		t.Error("FindElement with an unknown strategy should fail")
	}
}

func TestBrowserString(t *testing.T) {
	b := &Browser{wd: &stubDriver{sessionID: "abc123"}}
	if got, want := b.String(), `<browsekit.Browser (session="abc123")>`; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestPageDocument(t *testing.T) {
	wd := &stubDriver{source: `<html><body><p id="x">hello</p></body></html>`}
	b := &Browser{wd: wd}

	doc, err := b.PageDocument()
	if err != nil {
		t.Fatalf("PageDocument returned error: %v", err)
	}
	if got, want := doc.Find("#x").Text(), "hello"; got != want {
		t.Errorf("doc text = %q, want %q", got, want)
	}
}

func TestElementDocument(t *testing.T) {
	el := &stubElement{attrs: map[string]string{
		"outerHTML": `<div class="card"><span>inner</span></div>`,
	}}
	wd := &stubDriver{
		findElement: func(by, value string) (selenium.WebElement, error) { return el, nil },
	}
	b := &Browser{wd: wd}

	doc, err := b.ElementDocument("css_selector", ".card")
	if err != nil {
		t.Fatalf("ElementDocument returned error: %v", err)
	}
	if got, want := doc.Find("span").Text(), "inner"; got != want {
		t.Errorf("doc text = %q, want %q", got, want)
	}
}
