package browsekit

import (
	"fmt"
	"strings"

	"github.com/tebeka/selenium"
)

// SelectElement wraps a <select> element with option-level helpers.
type SelectElement struct {
	element selenium.WebElement
	isMulti bool
}

// Select wraps el, which must be a <select> element.
func Select(el selenium.WebElement) (SelectElement, error) {
	tagName, err := el.TagName()
	if err != nil {
		return SelectElement{}, err
	}
	if strings.ToLower(tagName) != "select" {
		return SelectElement{}, fmt.Errorf(`element should have been "select" but was %q`, tagName)
	}
	mult, err := el.GetAttribute("multiple")
	isMulti := err == nil && strings.ToLower(mult) != "false" && mult != ""
	return SelectElement{element: el, isMulti: isMulti}, nil
}

// Element returns the wrapped element.
func (s SelectElement) Element() selenium.WebElement {
	return s.element
}

// IsMultiple reports whether the element allows selecting several options
// at once, per its "multiple" attribute.
func (s SelectElement) IsMultiple() bool {
	return s.isMulti
}

// Options returns all options of the select.
func (s SelectElement) Options() ([]selenium.WebElement, error) {
	return s.element.FindElements(selenium.ByTagName, "option")
}

// SelectedOptions returns all currently selected options.
func (s SelectElement) SelectedOptions() ([]selenium.WebElement, error) {
	opts, err := s.Options()
	if err != nil {
		return nil, err
	}
	var selected []selenium.WebElement
	for _, o := range opts {
		sel, err := o.IsSelected()
		if err != nil {
			return nil, err
		}
		if sel {
			selected = append(selected, o)
		}
	}
	return selected, nil
}

// FirstSelectedOption returns the first selected option.
func (s SelectElement) FirstSelectedOption() (selenium.WebElement, error) {
	opts, err := s.SelectedOptions()
	if err != nil {
		return nil, err
	}
	if len(opts) == 0 {
		return nil, fmt.Errorf("no options are selected")
	}
	return opts[0], nil
}

// SelectByVisibleText selects options whose display text equals text.
func (s SelectElement) SelectByVisibleText(text string) error {
	return s.byVisibleText(text, true)
}

// SelectByValue selects options whose value attribute equals value.
func (s SelectElement) SelectByValue(value string) error {
	opts, err := s.optionsByValue(value)
	if err != nil {
		return err
	}
	for _, o := range opts {
		if err := s.setSelected(o, true); err != nil {
			return err
		}
		if !s.isMulti {
			return nil
		}
	}
	return nil
}

// SelectByIndex selects the option whose index attribute equals idx.
func (s SelectElement) SelectByIndex(idx int) error {
	return s.setSelectedByIndex(idx, true)
}

// DeselectAll clears every selection. Only valid for multi-selects.
func (s SelectElement) DeselectAll() error {
	if err := s.requireMulti(); err != nil {
		return err
	}
	opts, err := s.Options()
	if err != nil {
		return err
	}
	for _, o := range opts {
		if err := s.setSelected(o, false); err != nil {
			return err
		}
	}
	return nil
}

// DeselectByVisibleText deselects options whose display text equals text.
// Only valid for multi-selects.
func (s SelectElement) DeselectByVisibleText(text string) error {
	if err := s.requireMulti(); err != nil {
		return err
	}
	return s.byVisibleText(text, false)
}

// DeselectByValue deselects options whose value attribute equals value.
// Only valid for multi-selects.
func (s SelectElement) DeselectByValue(value string) error {
	if err := s.requireMulti(); err != nil {
		return err
	}
	opts, err := s.optionsByValue(value)
	if err != nil {
		return err
	}
	for _, o := range opts {
		if err := s.setSelected(o, false); err != nil {
			return err
		}
	}
	return nil
}

// DeselectByIndex deselects the option whose index attribute equals idx.
// Only valid for multi-selects.
func (s SelectElement) DeselectByIndex(idx int) error {
	if err := s.requireMulti(); err != nil {
		return err
	}
	return s.setSelectedByIndex(idx, false)
}

func (s SelectElement) requireMulti() error {
	if !s.isMulti {
		return fmt.Errorf("only multi-selects support deselection")
	}
	return nil
}

func (s SelectElement) byVisibleText(text string, selected bool) error {
	opts, err := s.element.FindElements(selenium.ByXPATH,
		`.//option[normalize-space(.) = "`+escapeQuotes(text)+`"]`)
	if err != nil {
		return err
	}
	if len(opts) == 0 {
		return fmt.Errorf("cannot locate option with text %q", text)
	}
	for _, o := range opts {
		if err := s.setSelected(o, selected); err != nil {
			return err
		}
		if !s.isMulti {
			return nil
		}
	}
	return nil
}

func (s SelectElement) optionsByValue(value string) ([]selenium.WebElement, error) {
	opts, err := s.element.FindElements(selenium.ByXPATH,
		`.//option[@value = "`+escapeQuotes(value)+`"]`)
	if err != nil {
		return nil, err
	}
	if len(opts) == 0 {
		return nil, fmt.Errorf("cannot locate option with value %q", value)
	}
	return opts, nil
}

func (s SelectElement) setSelectedByIndex(idx int, selected bool) error {
	opts, err := s.element.FindElements(selenium.ByXPATH,
		fmt.Sprintf(`.//option[@index = "%d"]`, idx))
	if err != nil {
		return err
	}
	if len(opts) == 0 {
		return fmt.Errorf("cannot locate option with index %d", idx)
	}
	return s.setSelected(opts[0], selected)
}

func (s SelectElement) setSelected(option selenium.WebElement, selected bool) error {
	sel, err := option.IsSelected()
	if err != nil {
		return err
	}
	if sel != selected {
		return option.Click()
	}
	return nil
}

func escapeQuotes(str string) string {
	return strings.Replace(str, `"`, `\"`, -1)
}
