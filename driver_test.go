package browsekit

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/tebeka/selenium/chrome"
	"github.com/tebeka/selenium/firefox"
)

func TestChromeFamilyCaps(t *testing.T) {
	tests := []struct {
		desc string
		opts Options
		want chrome.Capabilities
	}{
		{
			desc: "empty options",
			opts: Options{},
			want: chrome.Capabilities{},
		},
		{
			desc: "args pass through",
			opts: Options{Args: []string{"--no-sandbox", "--window-size=1920,1080"}},
			want: chrome.Capabilities{Args: []string{"--no-sandbox", "--window-size=1920,1080"}},
		},
		{
			desc: "headless appends the flag",
			opts: Options{Headless: true},
			want: chrome.Capabilities{Args: []string{"--headless"}},
		},
		{
			desc: "user agent becomes an argument",
			opts: Options{UserAgent: "test-agent/1.0"},
			want: chrome.Capabilities{Args: []string{"user-agent=test-agent/1.0"}},
		},
		{
			desc: "binary path and prefs",
			opts: Options{
				BinaryPath: "/opt/brave/brave",
				Prefs:      map[string]interface{}{"download.default_directory": "/tmp"},
			},
			want: chrome.Capabilities{
				Path:  "/opt/brave/brave",
				Prefs: map[string]interface{}{"download.default_directory": "/tmp"},
			},
		},
	}

	for _, test := range tests {
		caps, err := chromeFamilyCaps("chrome", &test.opts, false)
		if err != nil {
			t.Errorf("%s: chromeFamilyCaps returned error: %v", test.desc, err)
			continue
		}
		got, ok := caps[chrome.CapabilitiesKey].(chrome.Capabilities)
		if !ok {
			t.Errorf("%s: capabilities missing %q entry", test.desc, chrome.CapabilitiesKey)
			continue
		}
		if diff := cmp.Diff(test.want, got); diff != "" {
			t.Errorf("%s: capabilities returned diff (-want/+got):\n%s", test.desc, diff)
		}
	}
}

func TestChromeFamilyCapsW3C(t *testing.T) {
	caps, err := chromeFamilyCaps("opera", &Options{}, true)
	if err != nil {
		t.Fatalf("chromeFamilyCaps returned error: %v", err)
	}
	cc := caps[chrome.CapabilitiesKey].(chrome.Capabilities)
	if !cc.W3C {
		t.Error("W3C flag not set")
	}
}

func TestFirefoxCaps(t *testing.T) {
	tests := []struct {
		desc string
		opts Options
		want firefox.Capabilities
	}{
		{
			desc: "empty options",
			opts: Options{},
			want: firefox.Capabilities{},
		},
		{
			desc: "headless appends the dash flag",
			opts: Options{Headless: true},
			want: firefox.Capabilities{Args: []string{"-headless"}},
		},
		{
			desc: "user agent becomes a profile preference",
			opts: Options{UserAgent: "test-agent/1.0"},
			want: firefox.Capabilities{
				Prefs: map[string]interface{}{"general.useragent.override": "test-agent/1.0"},
			},
		},
		{
			desc: "binary and prefs pass through",
			opts: Options{
				BinaryPath: "/usr/bin/firefox",
				Prefs:      map[string]interface{}{"dom.webnotifications.enabled": false},
			},
			want: firefox.Capabilities{
				Binary: "/usr/bin/firefox",
				Prefs:  map[string]interface{}{"dom.webnotifications.enabled": false},
			},
		},
	}

	for _, test := range tests {
		caps, err := firefoxCaps(&test.opts)
		if err != nil {
			t.Errorf("%s: firefoxCaps returned error: %v", test.desc, err)
			continue
		}
		got, ok := caps[firefox.CapabilitiesKey].(firefox.Capabilities)
		if !ok {
			t.Errorf("%s: capabilities missing %q entry", test.desc, firefox.CapabilitiesKey)
			continue
		}
		if diff := cmp.Diff(test.want, got); diff != "" {
			t.Errorf("%s: capabilities returned diff (-want/+got):\n%s", test.desc, diff)
		}
	}
}

func TestFirefoxCapsRejectExtensions(t *testing.T) {
	if _, err := firefoxCaps(&Options{Extensions: []string{"ext.crx"}}); err == nil {
		t.Error("firefoxCaps should reject Options.Extensions")
	}
}

func TestEdgeCaps(t *testing.T) {
	caps, err := edgeCaps(&Options{
		Args:       []string{"--disable-gpu"},
		Headless:   true,
		BinaryPath: "/usr/bin/microsoft-edge",
	})
	if err != nil {
		t.Fatalf("edgeCaps returned error: %v", err)
	}
	want := map[string]interface{}{
		"args":   []string{"--disable-gpu", "--headless"},
		"binary": "/usr/bin/microsoft-edge",
	}
	if diff := cmp.Diff(want, caps["ms:edgeOptions"]); diff != "" {
		t.Errorf("ms:edgeOptions returned diff (-want/+got):\n%s", diff)
	}
}

func TestIECapsRejectsUnsupportedOptions(t *testing.T) {
	tests := []struct {
		desc string
		opts Options
	}{
		{desc: "headless", opts: Options{Headless: true}},
		{desc: "args", opts: Options{Args: []string{"--anything"}}},
		{desc: "extensions", opts: Options{Extensions: []string{"ext.crx"}}},
		{desc: "user agent", opts: Options{UserAgent: "x"}},
	}
	for _, test := range tests {
		if _, err := ieCaps(&test.opts); err == nil {
			t.Errorf("%s: ieCaps should reject the option", test.desc)
		}
	}
}

func TestBraveRequiresBinaryPath(t *testing.T) {
	if _, err := profiles[Brave].caps(&Options{}); err == nil {
		t.Error("brave profile should require Options.BinaryPath")
	}
	if _, err := profiles[Brave].caps(&Options{BinaryPath: "/opt/brave/brave"}); err != nil {
		t.Errorf("brave profile with a binary path returned error: %v", err)
	}
}

func TestProfilesBrowserNames(t *testing.T) {
	want := map[BrowserName]string{
		Chrome:           "chrome",
		Chromium:         "chrome",
		Brave:            "chrome",
		Edge:             "MicrosoftEdge",
		Firefox:          "firefox",
		InternetExplorer: "internet explorer",
		Opera:            "opera",
	}
	for name, browserName := range want {
		p, ok := profiles[name]
		if !ok {
			t.Errorf("no profile for %q", name)
			continue
		}
		if p.browserName != browserName {
			t.Errorf("%s: browserName = %q, want %q", name, p.browserName, browserName)
		}
	}
}

func TestResolveUserAgent(t *testing.T) {
	if got := resolveUserAgent(&Options{UserAgent: "explicit"}, "chrome"); got != "explicit" {
		t.Errorf("explicit user agent not honored, got %q", got)
	}
	if got := resolveUserAgent(&Options{}, "chrome"); got != "" {
		t.Errorf("no override requested but got %q", got)
	}
	got := resolveUserAgent(&Options{RandomUserAgent: true}, "firefox")
	if !strings.Contains(got, "Firefox") {
		t.Errorf("random firefox user agent = %q, want a Firefox string", got)
	}
}

func TestFrameBufferOption(t *testing.T) {
	tests := []struct {
		desc    string
		in      string
		wantErr bool
	}{
		{desc: "empty uses the default size", in: ""},
		{desc: "width and height", in: "1920x1080"},
		{desc: "width, height and depth", in: "1024x768x24"},
		{desc: "garbage rejected", in: "not a screen size", wantErr: true},
		{desc: "missing height rejected", in: "1024x", wantErr: true},
	}
	for _, test := range tests {
		opt, err := FrameBufferOption(test.in)
		if gotErr := err != nil; gotErr != test.wantErr {
			t.Errorf("%s: FrameBufferOption(%q) error = %v, want error %t", test.desc, test.in, err, test.wantErr)
			continue
		}
		if !test.wantErr && opt == nil {
			t.Errorf("%s: FrameBufferOption(%q) returned a nil option", test.desc, test.in)
		}
	}
}

func TestPickUnusedPort(t *testing.T) {
	port, err := pickUnusedPort()
	if err != nil {
		t.Fatalf("pickUnusedPort returned error: %v", err)
	}
	if port <= 0 || port > 65535 {
		t.Errorf("pickUnusedPort = %d, want a valid port", port)
	}
}

func TestNewRejectsUnknownBrowser(t *testing.T) {
	if _, err := New("netscape", nil); err == nil {
		t.Error("New with an unknown browser should fail")
	}
}
