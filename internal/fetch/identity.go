package fetch

import (
	"math/rand"
	"net/http"
	"sync"
)

// Identity is one browser fingerprint: a user agent plus the header set
// that browser actually sends. Header sets are kept internally
// consistent so a Firefox UA never carries Chrome client-hint headers.
type Identity struct {
	Name      string
	UserAgent string
	Headers   http.Header
	Mobile    bool
}

func chromeHeaders(ua, chUA string, mobile bool) http.Header {
	mobileHint := "?0"
	if mobile {
		mobileHint = "?1"
	}
	h := http.Header{}
	h.Set("User-Agent", ua)
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	h.Set("Accept-Language", "en-US,en;q=0.9")
	h.Set("Accept-Encoding", "gzip, deflate, br")
	h.Set("Sec-CH-UA", chUA)
	h.Set("Sec-CH-UA-Mobile", mobileHint)
	h.Set("Sec-Fetch-Dest", "document")
	h.Set("Sec-Fetch-Mode", "navigate")
	h.Set("Sec-Fetch-Site", "none")
	h.Set("Upgrade-Insecure-Requests", "1")
	return h
}

func geckoHeaders(ua string) http.Header {
	h := http.Header{}
	h.Set("User-Agent", ua)
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	h.Set("Accept-Language", "en-US,en;q=0.5")
	h.Set("Accept-Encoding", "gzip, deflate, br")
	h.Set("Upgrade-Insecure-Requests", "1")
	h.Set("DNT", "1")
	return h
}

// DesktopIdentities returns the built-in desktop browser profiles.
func DesktopIdentities() []Identity {
	const chromeHint = `"Chromium";v="120", "Google Chrome";v="120", "Not-A.Brand";v="99"`
	return []Identity{
		{
			Name:      "chrome-win",
			UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			Headers:   chromeHeaders("Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36", chromeHint, false),
		},
		{
			Name:      "chrome-mac",
			UserAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			Headers:   chromeHeaders("Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36", chromeHint, false),
		},
		{
			Name:      "firefox-win",
			UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
			Headers:   geckoHeaders("Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0"),
		},
		{
			Name:      "safari-mac",
			UserAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
			Headers:   geckoHeaders("Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15"),
		},
	}
}

// MobileIdentities returns the mobile profiles used by the second
// evasion rung.
func MobileIdentities() []Identity {
	const chromeHint = `"Chromium";v="120", "Google Chrome";v="120", "Not-A.Brand";v="99"`
	android := "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Mobile Safari/537.36"
	iphone := "Mozilla/5.0 (iPhone; CPU iPhone OS 17_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Mobile/15E148 Safari/604.1"
	return []Identity{
		{Name: "chrome-android", UserAgent: android, Headers: chromeHeaders(android, chromeHint, true), Mobile: true},
		{Name: "safari-ios", UserAgent: iphone, Headers: geckoHeaders(iphone), Mobile: true},
	}
}

// Rotator hands out identities, supporting "give me a different one"
// for the evasion ladder.
type Rotator struct {
	mu      sync.Mutex
	desktop []Identity
	mobile  []Identity
	rng     *rand.Rand
}

// NewRotator builds a Rotator over the built-in profiles. A non-zero
// seed makes selection deterministic for tests.
func NewRotator(seed int64) *Rotator {
	src := rand.NewSource(seed)
	if seed == 0 {
		src = rand.NewSource(rand.Int63())
	}
	return &Rotator{
		desktop: DesktopIdentities(),
		mobile:  MobileIdentities(),
		rng:     rand.New(src),
	}
}

// Pick returns a random desktop identity.
func (r *Rotator) Pick() Identity {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.desktop[r.rng.Intn(len(r.desktop))]
}

// PickOther returns a desktop identity different from current.
func (r *Rotator) PickOther(current Identity) Identity {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := 0; i < 8; i++ {
		id := r.desktop[r.rng.Intn(len(r.desktop))]
		if id.Name != current.Name {
			return id
		}
	}
	return r.desktop[0]
}

// PickMobile returns a random mobile identity.
func (r *Rotator) PickMobile() Identity {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mobile[r.rng.Intn(len(r.mobile))]
}
