package browsekit

import (
	"flag"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"testing"

	"github.com/BurntSushi/xgbutil"
	"github.com/tebeka/selenium"
)

var (
	liveBrowser = flag.String("live_browser", "",
		"Run live tests against this browser, e.g. chrome or firefox. Empty skips them.")
	liveDriverPath = flag.String("live_driver_path", "",
		"Driver binary for the live browser. Empty downloads one into the cache.")
)

// TestLiveSession drives a real browser against a local page, end to end:
// service start, navigation, explicit wait, element location and parse-tree
// extraction.
func TestLiveSession(t *testing.T) {
	if *liveBrowser == "" {
		t.Skip("no -live_browser specified")
	}

	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><title>browsekit live</title></head>
<body><div id="greeting" class="box">hello from the test server</div></body></html>`)
	}))
	defer s.Close()

	b, err := New(BrowserName(*liveBrowser), &Options{
		DriverPath: *liveDriverPath,
		Headless:   true,
		Args:       []string{"--no-sandbox", "--disable-dev-shm-usage"},
	})
	if err != nil {
		t.Fatalf("starting %s: %v", *liveBrowser, err)
	}
	defer b.Quit()

	if err := b.Get(s.URL); err != nil {
		t.Fatalf("navigating to %s: %v", s.URL, err)
	}
	if err := b.WaitUntil(TitleIs("browsekit live")); err != nil {
		t.Fatalf("waiting for the title: %v", err)
	}
	el, err := b.FindElementUntil("id", "greeting",
		ElementVisible("id", "greeting"), DefaultWaitTimeout)
	if err != nil {
		t.Fatalf("locating #greeting: %v", err)
	}
	text, err := el.Text()
	if err != nil {
		t.Fatalf("reading #greeting text: %v", err)
	}
	if want := "hello from the test server"; text != want {
		t.Errorf("#greeting text = %q, want %q", text, want)
	}

	doc, err := b.ElementDocument("css_selector", ".box")
	if err != nil {
		t.Fatalf("parsing #greeting: %v", err)
	}
	if got := doc.Find("div").AttrOr("id", ""); got != "greeting" {
		t.Errorf("parsed element id = %q, want %q", got, "greeting")
	}
}

// TestLiveFrameBuffer starts an X virtual frame buffer at a requested
// resolution and verifies the X server actually honors it.
func TestLiveFrameBuffer(t *testing.T) {
	if _, err := exec.LookPath("Xvfb"); err != nil {
		t.Skip("Xvfb not installed")
	}

	fb, err := selenium.NewFrameBufferWithOptions(selenium.FrameBufferOptions{
		ScreenSize: "1024x768x24",
	})
	if err != nil {
		t.Fatalf("starting the frame buffer: %v", err)
	}
	defer fb.Stop()

	if fb.Display == "" {
		t.Fatal("frame buffer has no display")
	}
	d, err := xgbutil.NewConnDisplay(":" + fb.Display)
	if err != nil {
		t.Fatalf("connecting to display %q: %v", fb.Display, err)
	}
	defer d.Conn().Close()

	screen := d.Screen()
	if screen.WidthInPixels != 1024 || screen.HeightInPixels != 768 {
		t.Errorf("screen is %dx%d, want 1024x768", screen.WidthInPixels, screen.HeightInPixels)
	}
}
