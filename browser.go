package browsekit

import (
	"encoding/base64"
	"fmt"
	"io/ioutil"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/tebeka/selenium"
	"github.com/tebeka/selenium/log"

	"github.com/browsekit/browsekit/soup"
)

// Browser drives a single WebDriver session. Most methods delegate directly
// to the engine; the value added is session/service ownership, locator name
// conversion, and the goquery bridge.
type Browser struct {
	wd      selenium.WebDriver
	service *selenium.Service
	name    BrowserName
}

// WebDriver returns the underlying engine session for operations the facade
// does not cover.
func (b *Browser) WebDriver() selenium.WebDriver {
	return b.wd
}

// Name returns the browser this session was started for. Empty for sessions
// attached with NewRemote.
func (b *Browser) Name() BrowserName {
	return b.name
}

func (b *Browser) String() string {
	return fmt.Sprintf("<browsekit.Browser (session=%q)>", b.wd.SessionID())
}

// SessionID returns the engine session identifier.
func (b *Browser) SessionID() string {
	return b.wd.SessionID()
}

// Status returns the WebDriver server status.
func (b *Browser) Status() (*selenium.Status, error) {
	return b.wd.Status()
}

// Capabilities returns the capabilities the session was created with.
func (b *Browser) Capabilities() (selenium.Capabilities, error) {
	return b.wd.Capabilities()
}

// Get navigates to url. The call returns once the page load has completed.
func (b *Browser) Get(url string) error {
	debugLog("get %s", url)
	return b.wd.Get(url)
}

// CurrentURL returns the URL of the current page.
func (b *Browser) CurrentURL() (string, error) {
	return b.wd.CurrentURL()
}

// Title returns the title of the current page.
func (b *Browser) Title() (string, error) {
	return b.wd.Title()
}

// PageSource returns the source of the current page.
func (b *Browser) PageSource() (string, error) {
	return b.wd.PageSource()
}

// Back moves one step backward in the session history.
func (b *Browser) Back() error {
	return b.wd.Back()
}

// Forward moves one step forward in the session history.
func (b *Browser) Forward() error {
	return b.wd.Forward()
}

// Refresh reloads the current page.
func (b *Browser) Refresh() error {
	return b.wd.Refresh()
}

// Close closes the current window.
func (b *Browser) Close() error {
	return b.wd.Close()
}

// Quit ends the session and, when the browser was started with New, stops
// the driver service that was started for it.
func (b *Browser) Quit() error {
	debugLog("quit session %q", b.wd.SessionID())
	err := b.wd.Quit()
	if b.service != nil {
		if serr := b.service.Stop(); err == nil {
			err = serr
		}
		b.service = nil
	}
	return err
}

// Windows.

// CurrentWindowHandle returns the handle of the current window.
func (b *Browser) CurrentWindowHandle() (string, error) {
	return b.wd.CurrentWindowHandle()
}

// WindowHandles returns the handles of all windows in the session.
func (b *Browser) WindowHandles() ([]string, error) {
	return b.wd.WindowHandles()
}

// SwitchWindow switches focus to the named window.
func (b *Browser) SwitchWindow(name string) error {
	return b.wd.SwitchWindow(name)
}

// CloseWindow closes the named window.
func (b *Browser) CloseWindow(name string) error {
	return b.wd.CloseWindow(name)
}

// MaximizeWindow maximizes a window. An empty name means the current window.
func (b *Browser) MaximizeWindow(name string) error {
	return b.wd.MaximizeWindow(name)
}

// ResizeWindow sets the dimensions of a window. An empty name means the
// current window.
func (b *Browser) ResizeWindow(name string, width, height int) error {
	return b.wd.ResizeWindow(name, width, height)
}

// SwitchFrame switches to the given frame: a frame id string, a WebElement,
// or nil for the top-level browsing context.
func (b *Browser) SwitchFrame(frame interface{}) error {
	return b.wd.SwitchFrame(frame)
}

// Cookies.

// GetCookies returns all cookies visible to the session.
func (b *Browser) GetCookies() ([]selenium.Cookie, error) {
	return b.wd.GetCookies()
}

// GetCookie returns the named cookie, if present.
func (b *Browser) GetCookie(name string) (selenium.Cookie, error) {
	return b.wd.GetCookie(name)
}

// AddCookie adds a cookie to the session.
func (b *Browser) AddCookie(c *selenium.Cookie) error {
	return b.wd.AddCookie(c)
}

// DeleteCookie deletes the named cookie.
func (b *Browser) DeleteCookie(name string) error {
	return b.wd.DeleteCookie(name)
}

// DeleteAllCookies deletes every cookie in scope for the session.
func (b *Browser) DeleteAllCookies() error {
	return b.wd.DeleteAllCookies()
}

// Timeouts.

// SetImplicitWaitTimeout sets the sticky timeout the driver applies while
// locating elements.
func (b *Browser) SetImplicitWaitTimeout(timeout time.Duration) error {
	return b.wd.SetImplicitWaitTimeout(timeout)
}

// SetPageLoadTimeout sets how long the driver waits for a page load.
func (b *Browser) SetPageLoadTimeout(timeout time.Duration) error {
	return b.wd.SetPageLoadTimeout(timeout)
}

// SetAsyncScriptTimeout sets how long asynchronous scripts may run.
func (b *Browser) SetAsyncScriptTimeout(timeout time.Duration) error {
	return b.wd.SetAsyncScriptTimeout(timeout)
}

// Scripts.

// ExecuteScript synchronously executes JavaScript in the current frame.
func (b *Browser) ExecuteScript(script string, args []interface{}) (interface{}, error) {
	return b.wd.ExecuteScript(script, args)
}

// ExecuteScriptAsync executes JavaScript that signals completion by invoking
// the callback the driver appends to args.
func (b *Browser) ExecuteScriptAsync(script string, args []interface{}) (interface{}, error) {
	return b.wd.ExecuteScriptAsync(script, args)
}

// ExecuteScriptRaw executes a script and returns the raw, undecoded response.
func (b *Browser) ExecuteScriptRaw(script string, args []interface{}) ([]byte, error) {
	return b.wd.ExecuteScriptRaw(script, args)
}

// Alerts.

// AlertText returns the text of the open alert.
func (b *Browser) AlertText() (string, error) {
	return b.wd.AlertText()
}

// SetAlertText types into the open prompt.
func (b *Browser) SetAlertText(text string) error {
	return b.wd.SetAlertText(text)
}

// AcceptAlert accepts the open alert.
func (b *Browser) AcceptAlert() error {
	return b.wd.AcceptAlert()
}

// DismissAlert dismisses the open alert.
func (b *Browser) DismissAlert() error {
	return b.wd.DismissAlert()
}

// Log fetches logs of the given type. The type must have been enabled in
// the session capabilities.
func (b *Browser) Log(typ log.Type) ([]log.Message, error) {
	return b.wd.Log(typ)
}

// Screenshots.

// Screenshot returns a PNG screenshot of the current window.
func (b *Browser) Screenshot() ([]byte, error) {
	return b.wd.Screenshot()
}

// ScreenshotBase64 returns the screenshot as a base64 string, handy for
// embedding in HTML reports.
func (b *Browser) ScreenshotBase64() (string, error) {
	data, err := b.wd.Screenshot()
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// SaveScreenshot writes a PNG screenshot of the current window to filename.
// A ".png" suffix is appended when missing.
func (b *Browser) SaveScreenshot(filename string) error {
	filename = normalizeScreenshotFilename(filename)
	data, err := b.wd.Screenshot()
	if err != nil {
		return err
	}
	if err := ioutil.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("error writing screenshot to %q: %v", filename, err)
	}
	debugLog("saved screenshot to %s", filename)
	return nil
}

func normalizeScreenshotFilename(filename string) string {
	if !strings.HasSuffix(strings.ToLower(filename), ".png") {
		filename += ".png"
	}
	return filename
}

// Element location.

// FindElement locates exactly one element using a facade locator name.
func (b *Browser) FindElement(by, value string) (selenium.WebElement, error) {
	strategy, err := ParseBy(by)
	if err != nil {
		return nil, err
	}
	return b.wd.FindElement(strategy, value)
}

// FindElements locates all matching elements using a facade locator name.
func (b *Browser) FindElements(by, value string) ([]selenium.WebElement, error) {
	strategy, err := ParseBy(by)
	if err != nil {
		return nil, err
	}
	return b.wd.FindElements(strategy, value)
}

// ActiveElement returns the element that currently has focus.
func (b *Browser) ActiveElement() (selenium.WebElement, error) {
	return b.wd.ActiveElement()
}

// FindElementWait sets an implicit wait of timeout before locating the
// element. The implicit wait is sticky for the session, matching the
// engine's semantics.
func (b *Browser) FindElementWait(by, value string, timeout time.Duration) (selenium.WebElement, error) {
	if err := b.wd.SetImplicitWaitTimeout(timeout); err != nil {
		return nil, err
	}
	return b.FindElement(by, value)
}

// FindElementsWait sets an implicit wait of timeout before locating the
// matching elements, like FindElementWait for the plural lookup.
func (b *Browser) FindElementsWait(by, value string, timeout time.Duration) ([]selenium.WebElement, error) {
	if err := b.wd.SetImplicitWaitTimeout(timeout); err != nil {
		return nil, err
	}
	return b.FindElements(by, value)
}

// FindElementUntil polls cond until it succeeds or timeout elapses, then
// locates the element.
func (b *Browser) FindElementUntil(by, value string, cond selenium.Condition, timeout time.Duration) (selenium.WebElement, error) {
	if err := b.WaitUntil(cond, WithTimeout(timeout)); err != nil {
		return nil, err
	}
	return b.FindElement(by, value)
}

// FindElementsUntil polls cond until it succeeds or timeout elapses, then
// locates all matching elements.
func (b *Browser) FindElementsUntil(by, value string, cond selenium.Condition, timeout time.Duration) ([]selenium.WebElement, error) {
	if err := b.WaitUntil(cond, WithTimeout(timeout)); err != nil {
		return nil, err
	}
	return b.FindElements(by, value)
}

// Parse-tree bridge.

// PageDocument parses the current page source into a goquery document.
func (b *Browser) PageDocument() (*goquery.Document, error) {
	src, err := b.wd.PageSource()
	if err != nil {
		return nil, err
	}
	return soup.Parse(src)
}

// ElementDocument locates an element and parses its outer HTML into a
// goquery document.
func (b *Browser) ElementDocument(by, value string) (*goquery.Document, error) {
	el, err := b.FindElement(by, value)
	if err != nil {
		return nil, err
	}
	return soup.ParseElement(el)
}

// ElementsDocument locates all matching elements and parses each one's
// outer HTML into its own goquery document.
func (b *Browser) ElementsDocument(by, value string) ([]*goquery.Document, error) {
	els, err := b.FindElements(by, value)
	if err != nil {
		return nil, err
	}
	return soup.ParseElements(els)
}
