package browsekit

import (
	"fmt"
	"io/ioutil"
	"net"
	"os"
	"path/filepath"
	"regexp"

	crx3 "github.com/mediabuyerbot/go-crx3"
	"github.com/tebeka/selenium"
	"github.com/tebeka/selenium/chrome"
	"github.com/tebeka/selenium/firefox"

	"github.com/browsekit/browsekit/manager"
	"github.com/browsekit/browsekit/useragent"
)

// BrowserName identifies a supported browser.
type BrowserName string

// The supported browsers. Chromium and Brave are driven by ChromeDriver
// with a browser binary override; Internet Explorer goes through a Selenium
// server, the only path the engine supports for it.
const (
	Chrome           BrowserName = "chrome"
	Chromium         BrowserName = "chromium"
	Brave            BrowserName = "brave"
	Edge             BrowserName = "edge"
	Firefox          BrowserName = "firefox"
	InternetExplorer BrowserName = "ie"
	Opera            BrowserName = "opera"
)

// Options configures a browser started with New. The zero value is usable:
// the driver binary is resolved by the manager package and the browser runs
// with its default profile.
type Options struct {
	// DriverPath is the driver binary (or, for InternetExplorer, the
	// Selenium server JAR) to use. When empty the manager package resolves
	// and downloads one.
	DriverPath string
	// BinaryPath overrides the browser binary the driver launches.
	// Required for Brave, which drivers do not discover on their own.
	BinaryPath string
	// Args are command-line arguments passed to the browser binary.
	Args []string
	// Prefs are profile preferences (chrome-family and Firefox only).
	Prefs map[string]interface{}
	// Extensions are chrome-family extensions to install at startup. Each
	// entry is either a packed .crx file or an unpacked extension
	// directory, which is packed on the fly.
	Extensions []string
	// UserAgent overrides the browser's user agent.
	UserAgent string
	// RandomUserAgent picks a user agent for the browser family from the
	// useragent package. Ignored when UserAgent is set.
	RandomUserAgent bool
	// Headless runs the browser without a display where supported.
	Headless bool
	// Port is the port the driver service listens on. Zero picks a free
	// port.
	Port int
	// Debug enables wire-level logging in the engine and routes driver
	// service output to stderr.
	Debug bool
	// ServiceOptions are passed through to the driver service, e.g. a
	// frame buffer started with FrameBufferOption.
	ServiceOptions []selenium.ServiceOption
	// Capabilities are merged over the generated capabilities last, for
	// anything Options does not model.
	Capabilities selenium.Capabilities
}

// profile is one row of the browser/driver matrix: how to obtain a driver,
// start its service, build capabilities and address the remote end.
type profile struct {
	browserName string
	driver      manager.Driver
	newService  func(path string, port int, opts ...selenium.ServiceOption) (*selenium.Service, error)
	urlPrefix   func(port int) string
	caps        func(o *Options) (selenium.Capabilities, error)
}

var profiles = map[BrowserName]profile{
	Chrome: {
		browserName: "chrome",
		driver:      manager.ChromeDriver,
		newService:  selenium.NewChromeDriverService,
		urlPrefix:   chromeDriverURL,
		caps:        func(o *Options) (selenium.Capabilities, error) { return chromeFamilyCaps("chrome", o, false) },
	},
	Chromium: {
		browserName: "chrome",
		driver:      manager.ChromeDriver,
		newService:  selenium.NewChromeDriverService,
		urlPrefix:   chromeDriverURL,
		caps:        func(o *Options) (selenium.Capabilities, error) { return chromeFamilyCaps("chrome", o, false) },
	},
	Brave: {
		browserName: "chrome",
		driver:      manager.ChromeDriver,
		newService:  selenium.NewChromeDriverService,
		urlPrefix:   chromeDriverURL,
		caps: func(o *Options) (selenium.Capabilities, error) {
			if o.BinaryPath == "" {
				return nil, fmt.Errorf("brave: Options.BinaryPath is required")
			}
			return chromeFamilyCaps("chrome", o, false)
		},
	},
	Edge: {
		browserName: "MicrosoftEdge",
		driver:      manager.EdgeDriver,
		newService:  selenium.NewChromeDriverService,
		urlPrefix:   chromeDriverURL,
		caps:        edgeCaps,
	},
	Firefox: {
		browserName: "firefox",
		driver:      manager.GeckoDriver,
		newService:  selenium.NewGeckoDriverService,
		urlPrefix:   func(port int) string { return fmt.Sprintf("http://localhost:%d", port) },
		caps:        firefoxCaps,
	},
	InternetExplorer: {
		browserName: "internet explorer",
		driver:      manager.SeleniumServer,
		newService:  selenium.NewSeleniumService,
		urlPrefix:   func(port int) string { return fmt.Sprintf("http://localhost:%d/wd/hub", port) },
		caps:        ieCaps,
	},
	Opera: {
		browserName: "opera",
		driver:      manager.OperaDriver,
		newService:  selenium.NewChromeDriverService,
		urlPrefix:   chromeDriverURL,
		caps: func(o *Options) (selenium.Capabilities, error) {
			// OperaDriver is ChromeDriver-based but only speaks W3C when
			// asked to.
			return chromeFamilyCaps("opera", o, true)
		},
	},
}

func chromeDriverURL(port int) string {
	return fmt.Sprintf("http://localhost:%d/wd/hub", port)
}

// New starts a driver service for the named browser and opens a session
// against it. The returned Browser owns the service; Quit stops it.
func New(name BrowserName, o *Options) (*Browser, error) {
	p, ok := profiles[name]
	if !ok {
		return nil, fmt.Errorf("unsupported browser %q", name)
	}
	if o == nil {
		o = &Options{}
	}
	if o.Debug {
		selenium.SetDebug(true)
		SetDebug(true)
	}

	driverPath := o.DriverPath
	if driverPath == "" {
		var err error
		driverPath, err = manager.Install(p.driver, nil)
		if err != nil {
			return nil, fmt.Errorf("%s: resolving driver: %v", name, err)
		}
	}

	port := o.Port
	if port == 0 {
		var err error
		port, err = pickUnusedPort()
		if err != nil {
			return nil, err
		}
	}

	caps, err := p.caps(o)
	if err != nil {
		return nil, err
	}
	caps["browserName"] = p.browserName
	for k, v := range o.Capabilities {
		caps[k] = v
	}

	svcOpts := o.ServiceOptions
	if o.Debug {
		svcOpts = append(svcOpts, selenium.Output(os.Stderr))
	}
	service, err := p.newService(driverPath, port, svcOpts...)
	if err != nil {
		return nil, fmt.Errorf("%s: starting driver service: %v", name, err)
	}

	wd, err := selenium.NewRemote(caps, p.urlPrefix(port))
	if err != nil {
		service.Stop()
		return nil, fmt.Errorf("%s: creating session: %v", name, err)
	}
	return &Browser{wd: wd, service: service, name: name}, nil
}

// NewRemote attaches to an already-running WebDriver server. The returned
// Browser does not own a service; Quit only ends the session. An empty
// urlPrefix uses the engine's default executor address.
func NewRemote(urlPrefix string, caps selenium.Capabilities) (*Browser, error) {
	wd, err := selenium.NewRemote(caps, urlPrefix)
	if err != nil {
		return nil, err
	}
	return &Browser{wd: wd}, nil
}

// NewHeadlessChrome starts Chrome configured for container use: headless,
// sandbox off, /dev/shm workaround, image loading disabled.
func NewHeadlessChrome() (*Browser, error) {
	return New(Chrome, &Options{
		Headless: true,
		Args:     []string{"--no-sandbox", "--disable-dev-shm-usage"},
		Prefs: map[string]interface{}{
			"profile": map[string]interface{}{
				"default_content_settings": map[string]interface{}{
					"images": 2,
				},
			},
		},
	})
}

// chromeFamilyCaps builds chrome-family capabilities from Options: the
// options-list becomes a chrome.Capabilities payload, with user agent,
// headless flag and extensions folded into it.
func chromeFamilyCaps(family string, o *Options, w3c bool) (selenium.Capabilities, error) {
	cc := chrome.Capabilities{
		Path:  o.BinaryPath,
		Args:  append([]string(nil), o.Args...),
		Prefs: o.Prefs,
		W3C:   w3c,
	}
	if o.Headless {
		cc.Args = append(cc.Args, "--headless")
	}
	if ua := resolveUserAgent(o, family); ua != "" {
		cc.Args = append(cc.Args, "user-agent="+ua)
	}
	for _, ext := range o.Extensions {
		path, err := packedExtension(ext)
		if err != nil {
			return nil, err
		}
		if err := cc.AddExtension(path); err != nil {
			return nil, fmt.Errorf("adding extension %q: %v", ext, err)
		}
	}
	caps := selenium.Capabilities{}
	caps.AddChrome(cc)
	return caps, nil
}

func firefoxCaps(o *Options) (selenium.Capabilities, error) {
	if len(o.Extensions) > 0 {
		return nil, fmt.Errorf("firefox: extensions are installed via a profile, not Options.Extensions")
	}
	fc := firefox.Capabilities{
		Binary: o.BinaryPath,
		Args:   append([]string(nil), o.Args...),
		Prefs:  map[string]interface{}{},
	}
	for k, v := range o.Prefs {
		fc.Prefs[k] = v
	}
	if o.Headless {
		fc.Args = append(fc.Args, "-headless")
	}
	if ua := resolveUserAgent(o, "firefox"); ua != "" {
		fc.Prefs["general.useragent.override"] = ua
	}
	if len(fc.Prefs) == 0 {
		fc.Prefs = nil
	}
	caps := selenium.Capabilities{}
	caps.AddFirefox(fc)
	return caps, nil
}

func edgeCaps(o *Options) (selenium.Capabilities, error) {
	if len(o.Extensions) > 0 {
		return nil, fmt.Errorf("edge: extension install is not supported")
	}
	args := append([]string(nil), o.Args...)
	if o.Headless {
		args = append(args, "--headless")
	}
	if ua := resolveUserAgent(o, "edge"); ua != "" {
		args = append(args, "user-agent="+ua)
	}
	// The engine has no Edge-specific capability struct; msedgedriver
	// accepts the chromium options shape under its own key.
	opts := map[string]interface{}{}
	if len(args) > 0 {
		opts["args"] = args
	}
	if o.BinaryPath != "" {
		opts["binary"] = o.BinaryPath
	}
	if len(o.Prefs) > 0 {
		opts["prefs"] = o.Prefs
	}
	return selenium.Capabilities{"ms:edgeOptions": opts}, nil
}

func ieCaps(o *Options) (selenium.Capabilities, error) {
	if o.Headless {
		return nil, fmt.Errorf("ie: headless mode is not supported")
	}
	if len(o.Extensions) > 0 || len(o.Args) > 0 || o.UserAgent != "" || o.RandomUserAgent {
		return nil, fmt.Errorf("ie: args, extensions and user-agent overrides are not supported")
	}
	return selenium.Capabilities{}, nil
}

func resolveUserAgent(o *Options, family string) string {
	if o.UserAgent != "" {
		return o.UserAgent
	}
	if o.RandomUserAgent {
		return useragent.RandomFor(family)
	}
	return ""
}

// packedExtension returns a path to a packed .crx for ext, packing unpacked
// extension directories into the temp dir.
func packedExtension(ext string) (string, error) {
	fi, err := os.Stat(ext)
	if err != nil {
		return "", fmt.Errorf("extension %q: %v", ext, err)
	}
	if !fi.IsDir() {
		return ext, nil
	}
	dir, err := ioutil.TempDir("", "browsekit-crx")
	if err != nil {
		return "", err
	}
	crxPath := filepath.Join(dir, filepath.Base(ext)+".crx")
	if err := crx3.Extension(ext).PackTo(crxPath, nil); err != nil {
		return "", fmt.Errorf("packing extension %q: %v", ext, err)
	}
	return crxPath, nil
}

var screenSizeRE = regexp.MustCompile(`^\d+x\d+(?:x\d+)?$`)

// FrameBufferOption returns a service option that runs the browser inside
// an X virtual frame buffer. screenSize is "{width}x{height}[x{depth}]",
// e.g. "1920x1080x24"; empty uses the Xvfb default.
func FrameBufferOption(screenSize string) (selenium.ServiceOption, error) {
	if screenSize == "" {
		return selenium.StartFrameBuffer(), nil
	}
	if !screenSizeRE.MatchString(screenSize) {
		return nil, fmt.Errorf("invalid screen size: expected 'WxH[xD]', got %q", screenSize)
	}
	return selenium.StartFrameBufferWithOptions(selenium.FrameBufferOptions{ScreenSize: screenSize}), nil
}

func pickUnusedPort() (int, error) {
	l, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}
	port := l.Addr().(*net.TCPAddr).Port
	if err := l.Close(); err != nil {
		return 0, err
	}
	return port, nil
}
