package browsekit

import (
	"fmt"
	"log"

	"github.com/tebeka/selenium"
)

// Locator strategy names accepted by the facade. These are the snake_case
// names most callers already know; ParseBy converts them to the
// space-separated strategies the WebDriver protocol expects.
const (
	ByID              = "id"
	ByName            = "name"
	ByXPath           = "xpath"
	ByLinkText        = "link_text"
	ByPartialLinkText = "partial_link_text"
	ByTagName         = "tag_name"
	ByClassName       = "class_name"
	ByCSSSelector     = "css_selector"
)

var byStrategies = map[string]string{
	ByID:              selenium.ByID,
	ByName:            selenium.ByName,
	ByXPath:           selenium.ByXPATH,
	ByLinkText:        selenium.ByLinkText,
	ByPartialLinkText: selenium.ByPartialLinkText,
	ByTagName:         selenium.ByTagName,
	ByClassName:       selenium.ByClassName,
	ByCSSSelector:     selenium.ByCSSSelector,

	// The engine's own names are accepted too, so locators copied from
	// selenium-flavored code keep working.
	selenium.ByLinkText:        selenium.ByLinkText,
	selenium.ByPartialLinkText: selenium.ByPartialLinkText,
	selenium.ByTagName:         selenium.ByTagName,
	selenium.ByClassName:       selenium.ByClassName,
	selenium.ByCSSSelector:     selenium.ByCSSSelector,
}

// ParseBy converts a facade locator name into the engine's strategy string.
func ParseBy(by string) (string, error) {
	s, ok := byStrategies[by]
	if !ok {
		return "", fmt.Errorf("unsupported locator strategy %q", by)
	}
	return s, nil
}

var debugFlag = false

// SetDebug toggles debug logging of facade operations.
func SetDebug(debug bool) {
	debugFlag = debug
}

func debugLog(format string, args ...interface{}) {
	if !debugFlag {
		return
	}
	log.Printf(format+"\n", args...)
}
