// Package useragent provides a small pool of real desktop user-agent
// strings for sessions that should not advertise an automation default.
package useragent

import (
	"math/rand"
	"strings"
	"sync"
)

// The pool is keyed by browser family. Entries are real desktop user
// agents; refresh the versions occasionally.
var pool = map[string][]string{
	"chrome": {
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
	},
	"firefox": {
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:124.0) Gecko/20100101 Firefox/124.0",
		"Mozilla/5.0 (X11; Linux x86_64; rv:125.0) Gecko/20100101 Firefox/125.0",
	},
	"edge": {
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36 Edg/124.0.0.0",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36 Edg/123.0.0.0",
	},
	"opera": {
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36 OPR/109.0.0.0",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36 OPR/109.0.0.0",
	},
}

var (
	mu sync.Mutex
	// Seeded from the global source; tests may swap this out.
	pick = rand.Intn
)

// Random returns a user agent from any family.
func Random() string {
	var all []string
	for _, agents := range pool {
		all = append(all, agents...)
	}
	return choose(all)
}

// RandomFor returns a user agent for the given browser family ("chrome",
// "firefox", "edge", "opera"; matching is case-insensitive). Unknown
// families fall back to chrome, the least remarkable answer.
func RandomFor(family string) string {
	agents, ok := pool[strings.ToLower(family)]
	if !ok {
		agents = pool["chrome"]
	}
	return choose(agents)
}

// Families lists the browser families the pool covers.
func Families() []string {
	out := make([]string, 0, len(pool))
	for family := range pool {
		out = append(out, family)
	}
	return out
}

func choose(agents []string) string {
	mu.Lock()
	defer mu.Unlock()
	return agents[pick(len(agents))]
}
