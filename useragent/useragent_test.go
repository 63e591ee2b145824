package useragent

import (
	"strings"
	"testing"
)

func TestRandomFor(t *testing.T) {
	tests := []struct {
		desc   string
		family string
		want   string // substring of every acceptable answer
	}{
		{desc: "chrome", family: "chrome", want: "Chrome/"},
		{desc: "firefox", family: "firefox", want: "Firefox/"},
		{desc: "edge", family: "edge", want: "Edg/"},
		{desc: "opera", family: "opera", want: "OPR/"},
		{desc: "case-insensitive lookup", family: "FireFox", want: "Firefox/"},
		{desc: "unknown family falls back to chrome", family: "netscape", want: "Chrome/"},
	}

	for _, test := range tests {
		got := RandomFor(test.family)
		if !strings.Contains(got, test.want) {
			t.Errorf("%s: RandomFor(%q) = %q, want a string containing %q",
				test.desc, test.family, got, test.want)
		}
	}
}

func TestRandomDrawsFromWholePool(t *testing.T) {
	defer func(old func(int) int) { pick = old }(pick)

	var sizes []int
	pick = func(n int) int {
		sizes = append(sizes, n)
		return 0
	}

	if Random() == "" {
		t.Error("Random returned an empty user agent")
	}
	var total int
	for _, agents := range pool {
		total += len(agents)
	}
	if len(sizes) != 1 || sizes[0] != total {
		t.Errorf("Random drew from %v agents, want one draw from %d", sizes, total)
	}
}

func TestFamilies(t *testing.T) {
	families := Families()
	if len(families) != len(pool) {
		t.Fatalf("Families returned %d families, want %d", len(families), len(pool))
	}
	for _, f := range families {
		if _, ok := pool[f]; !ok {
			t.Errorf("Families returned %q, which is not in the pool", f)
		}
	}
}
