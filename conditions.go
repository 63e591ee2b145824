package browsekit

import (
	"strings"

	"github.com/tebeka/selenium"
)

// Conditions for WaitUntil. Each constructor takes facade locator names and
// returns an engine condition. A locate failure while polling reports
// not-ready rather than aborting the wait: the element may simply not be in
// the DOM yet.

// ElementPresent reports whether the element exists in the DOM.
func ElementPresent(by, value string) selenium.Condition {
	return elementCondition(by, value, func(el selenium.WebElement) (bool, error) {
		return true, nil
	})
}

// ElementVisible reports whether the element exists and is displayed.
func ElementVisible(by, value string) selenium.Condition {
	return elementCondition(by, value, func(el selenium.WebElement) (bool, error) {
		return el.IsDisplayed()
	})
}

// ElementClickable reports whether the element is displayed and enabled.
func ElementClickable(by, value string) selenium.Condition {
	return elementCondition(by, value, func(el selenium.WebElement) (bool, error) {
		displayed, err := el.IsDisplayed()
		if err != nil || !displayed {
			return false, err
		}
		return el.IsEnabled()
	})
}

// ElementHasCSSDeclaration reports whether the element's inline style
// attribute contains a declaration for property. An empty want matches any
// value. Matching is case-insensitive unless caseSensitive is set.
func ElementHasCSSDeclaration(by, value, property, want string, caseSensitive bool) selenium.Condition {
	return elementCondition(by, value, func(el selenium.WebElement) (bool, error) {
		style, err := el.GetAttribute("style")
		if err != nil {
			return false, nil
		}
		return hasCSSDeclaration(style, property, want, caseSensitive), nil
	})
}

// TitleIs reports whether the page title equals title.
func TitleIs(title string) selenium.Condition {
	return func(wd selenium.WebDriver) (bool, error) {
		t, err := wd.Title()
		if err != nil {
			return false, err
		}
		return t == title, nil
	}
}

// TitleContains reports whether the page title contains substr.
func TitleContains(substr string) selenium.Condition {
	return func(wd selenium.WebDriver) (bool, error) {
		t, err := wd.Title()
		if err != nil {
			return false, err
		}
		return strings.Contains(t, substr), nil
	}
}

// URLContains reports whether the current URL contains substr.
func URLContains(substr string) selenium.Condition {
	return func(wd selenium.WebDriver) (bool, error) {
		u, err := wd.CurrentURL()
		if err != nil {
			return false, err
		}
		return strings.Contains(u, substr), nil
	}
}

func elementCondition(by, value string, check func(selenium.WebElement) (bool, error)) selenium.Condition {
	strategy, err := ParseBy(by)
	return func(wd selenium.WebDriver) (bool, error) {
		if err != nil {
			return false, err
		}
		el, ferr := wd.FindElement(strategy, value)
		if ferr != nil {
			// Not in the DOM yet; keep polling.
			return false, nil
		}
		return check(el)
	}
}

// hasCSSDeclaration scans an inline style attribute for a declaration
// matching property, and want when non-empty. Declarations that do not
// split into exactly "property: value" are skipped.
func hasCSSDeclaration(style, property, want string, caseSensitive bool) bool {
	if !caseSensitive {
		style = strings.ToLower(style)
		property = strings.ToLower(property)
		want = strings.ToLower(want)
	}
	for _, decl := range strings.Split(style, ";") {
		parts := strings.SplitN(decl, ":", 2)
		if len(parts) != 2 {
			continue
		}
		p := strings.TrimSpace(parts[0])
		v := strings.TrimSpace(parts[1])
		if p == property && (want == "" || v == want) {
			return true
		}
	}
	return false
}
