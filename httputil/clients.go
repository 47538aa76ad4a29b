package httputil

import (
	"net/http"
	"time"
)

const (
	BrowserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	APIUserAgent     = "AutoSniper"
)

type Clients struct {
	Scraping *http.Client // marketplace detail pages
	API      *http.Client // geocoder, history registry, AI
}

func NewClients(apiTimeout time.Duration) *Clients {
	scraping := &http.Client{
		Timeout: 15 * time.Second,
		Transport: &headerTransport{
			base: http.DefaultTransport,
			headers: map[string]string{
				"User-Agent":      BrowserUserAgent,
				"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
				"Accept-Language": "pl-PL,pl;q=0.9,en;q=0.8",
			},
		},
	}

	return &Clients{
		Scraping: scraping,
		API: &http.Client{
			Timeout: apiTimeout,
			Transport: &headerTransport{
				base:    http.DefaultTransport,
				headers: map[string]string{"User-Agent": APIUserAgent},
			},
		},
	}
}

// headerTransport sets default headers on requests that don't carry them.
type headerTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for k, v := range t.headers {
		if req.Header.Get(k) == "" {
			req.Header.Set(k, v)
		}
	}
	return t.base.RoundTrip(req)
}
