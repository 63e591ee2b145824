/*
Package browsekit is a convenience layer over the Selenium WebDriver client
(github.com/tebeka/selenium) and goquery. It removes the boilerplate of
wiring drivers, services, capabilities and parse trees together: starting a
browser is one call, locating elements uses plain locator names, and any
located fragment can be turned into a goquery document for text and
attribute extraction.

Starting a browser and scraping a fragment:

	b, err := browsekit.New(browsekit.Chrome, &browsekit.Options{
		Headless: true,
		Args:     []string{"--no-sandbox", "--window-size=1920,1080"},
	})
	if err != nil {
		// ...
	}
	defer b.Quit()

	if err := b.Get("https://news.ycombinator.com/"); err != nil {
		// ...
	}
	doc, err := b.ElementDocument("css_selector", ".itemlist")
	if err != nil {
		// ...
	}
	doc.Find(".titleline a").Each(func(_ int, s *goquery.Selection) {
		fmt.Println(s.Text())
	})

New resolves the driver binary through the manager package, which downloads
and caches chromedriver, geckodriver and friends the first time they are
needed. Pass Options.DriverPath to use a binary you manage yourself, or
attach to an already-running WebDriver server with NewRemote.

Waiting for asynchronous page state uses the engine's polling primitive with
ready-made conditions:

	err = b.WaitUntil(browsekit.ElementVisible("id", "results"),
		browsekit.WithTimeout(30*time.Second))

The soup and fetch subpackages cover the non-browser half: fetch is a thin
HTTP client for pages that do not need a browser at all, and soup converts
any HTML (a string, a response body, a located element) into a goquery
document.
*/
package browsekit
