package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"
	"unicode/utf8"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/cenkalti/backoff/v5"
)

// maxPostingBytes caps the downloaded page; maxPostingChars caps the
// converted Markdown handed to the model.
const (
	maxPostingBytes = 2 << 20
	maxPostingChars = 12000
)

// ErrBlockedAddress means a job URL resolved to a loopback, private,
// link-local or otherwise non-public address.
var ErrBlockedAddress = errors.New("job url resolves to a non-public address")

// sharedAddressSpace is the carrier-grade NAT range (RFC 6598).
var sharedAddressSpace = &net.IPNet{IP: net.IPv4(100, 64, 0, 0), Mask: net.CIDRMask(10, 32)}

// Fetcher downloads job postings.
type Fetcher struct {
	httpClient *http.Client
	// checkHosts rejects non-public literal hosts before dialing.
	checkHosts bool
}

// NewFetcher returns a fetcher with a 30s timeout and a redirect limit. Every
// connection, including redirects, is checked against publicIP after DNS
// resolution.
func NewFetcher() *Fetcher {
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
		Control:   guardDial,
	}
	transport := &http.Transport{
		// No proxy: the guard must see the real destination.
		Proxy:                 nil,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &Fetcher{checkHosts: true, httpClient: &http.Client{
		Timeout:   30 * time.Second,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return errors.New("stopped after 10 redirects")
			}
			return nil
		},
	}}
}

// NewFetcherWithClient is intended for tests. Address checks are left to
// hc's transport.
func NewFetcherWithClient(hc *http.Client) *Fetcher {
	return &Fetcher{httpClient: hc}
}

// FetchJobPosting downloads an http(s) job page and converts it to Markdown,
// truncated to maxPostingChars.
func (f *Fetcher) FetchJobPosting(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Hostname() == "" {
		return "", fmt.Errorf("invalid job url %q", rawURL)
	}
	if f.checkHosts {
		if err := checkHost(u.Hostname()); err != nil {
			return "", err
		}
	}

	operation := func() (string, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return "", backoff.Permanent(err)
		}
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")
		req.Header.Set("User-Agent", "InterviewAce/1.0 (+https://interviewace.app)")

		resp, err := f.httpClient.Do(req)
		if err != nil {
			if errors.Is(err, ErrBlockedAddress) {
				return "", backoff.Permanent(err)
			}
			return "", err
		}
		defer resp.Body.Close()

		if isRetryableStatus(resp.StatusCode) {
			return "", fmt.Errorf("status %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return "", backoff.Permanent(fmt.Errorf("status %d", resp.StatusCode))
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxPostingBytes))
		if err != nil {
			return "", err
		}
		return string(body), nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 1 * time.Second
	bo.MaxInterval = 10 * time.Second

	page, err := backoff.Retry(ctx, operation, backoff.WithBackOff(bo), backoff.WithMaxTries(3), backoff.WithMaxElapsedTime(30*time.Second))
	if err != nil {
		return "", fmt.Errorf("failed to fetch job posting: %w", err)
	}

	md, err := htmltomarkdown.ConvertString(page)
	if err != nil {
		return "", fmt.Errorf("failed to convert job posting: %w", err)
	}
	text := strings.TrimSpace(md)
	if text == "" {
		return "", errors.New("job posting is empty")
	}
	return truncateUTF8(text, maxPostingChars), nil
}

// checkHost rejects literal non-public IPs and localhost names before any
// connection is attempted. Names are checked again by guardDial once resolved.
func checkHost(host string) error {
	h := strings.TrimSuffix(strings.ToLower(host), ".")
	if h == "localhost" || strings.HasSuffix(h, ".localhost") {
		return fmt.Errorf("%w: %s", ErrBlockedAddress, host)
	}
	if ip := net.ParseIP(h); ip != nil && !publicIP(ip) {
		return fmt.Errorf("%w: %s", ErrBlockedAddress, host)
	}
	return nil
}

// guardDial runs after DNS resolution, so address is always ip:port.
func guardDial(network, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	ip := net.ParseIP(host)
	if ip == nil || !publicIP(ip) {
		return fmt.Errorf("%w: %s", ErrBlockedAddress, host)
	}
	return nil
}

func publicIP(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() ||
		ip.IsInterfaceLocalMulticast() || ip.IsMulticast() {
		return false
	}
	if v4 := ip.To4(); v4 != nil && (sharedAddressSpace.Contains(v4) || v4[0] == 0) {
		return false
	}
	return true
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
