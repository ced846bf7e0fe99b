package favicon

import (
	"net/url"
	"strings"
)

// DefaultService is the remote favicon lookup service.
const DefaultService = "https://www.google.com/s2/favicons"

// FallbackIcon is cached for domains whose icon could not be loaded,
// so failed domains are not retried on every render.
const FallbackIcon = `data:image/svg+xml,<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 24 24" fill="rgba(255,255,255,0.7)"><path d="M12 2C6.48 2 2 6.48 2 12s4.48 10 10 10 10-4.48 10-10S17.52 2 12 2zm-2 15l-5-5 1.41-1.41L10 14.17l7.59-7.59L19 8l-9 9z"/></svg>`

// Domain returns the cache key for a bookmark URL: its lowercased hostname.
// URLs that don't parse, or have no host, key on the raw string.
func Domain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return rawURL
	}
	return strings.ToLower(u.Hostname())
}

// LookupURL returns the favicon lookup URL for a domain on the given service.
func LookupURL(service, domain string) string {
	if service == "" {
		service = DefaultService
	}
	sep := "?"
	if strings.Contains(service, "?") {
		sep = "&"
	}
	return service + sep + "sz=64&domain=" + url.QueryEscape(domain)
}
