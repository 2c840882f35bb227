// pkg/httpclient/httpclient.go
package httpclient

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	utls "github.com/refraction-networking/utls"
	proxy "golang.org/x/net/proxy"
)

var clientHelloIDs = []utls.ClientHelloID{
	utls.HelloChrome_Auto,
	utls.HelloFirefox_Auto,
	utls.HelloSafari_Auto,
	utls.HelloEdge_Auto,
}

// Doer is the subset of the client the upstream sources depend on. It returns
// the response with its body already drained into the byte slice.
type Doer interface {
	Do(req *http.Request) (*http.Response, []byte, error)
}

// RetryableClient wraps http.Client with bounded retries on transport errors
// and 5xx responses. 4xx responses (including 429) are returned to the caller
// untouched so the source clients can apply their own backoff policy. When
// proxy URLs are configured, requests go out through a rotating proxy set with
// uTLS browser fingerprinting.
type RetryableClient struct {
	client     *http.Client
	maxRetries int
	userAgent  string
}

func NewRetryableClient(proxyURLs []string, maxRetries int, userAgent string, timeout time.Duration) (*RetryableClient, error) {
	if maxRetries < 1 {
		maxRetries = 1
	}

	var transport http.RoundTripper
	if len(proxyURLs) > 0 {
		rotator, err := newProxyRotator(proxyURLs)
		if err != nil {
			return nil, fmt.Errorf("create proxy rotator: %w", err)
		}
		transport = &fingerprintTransport{rotator: rotator, inner: newBaseTransport()}
	} else {
		transport = newBaseTransport()
	}

	return &RetryableClient{
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
		maxRetries: maxRetries,
		userAgent:  userAgent,
	}, nil
}

func newBaseTransport() *http.Transport {
	return &http.Transport{
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
	}
}

// Do issues the request, retrying transport failures and 5xx responses with
// exponential backoff. The returned body is fully read and the response body
// is replaced with a re-readable copy.
func (c *RetryableClient) Do(req *http.Request) (*http.Response, []byte, error) {
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}

	var reqBody []byte
	if req.Body != nil {
		var err error
		reqBody, err = io.ReadAll(req.Body)
		req.Body.Close()
		if err != nil {
			return nil, nil, fmt.Errorf("reading request body: %w", err)
		}
	}

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			select {
			case <-req.Context().Done():
				return nil, nil, req.Context().Err()
			case <-time.After(backoff):
			}
		}

		if reqBody != nil {
			req.Body = io.NopCloser(bytes.NewReader(reqBody))
		}

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			continue
		}

		bodyBytes, err := readBody(resp)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("reading response body: %w", err)
			continue
		}

		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("server error: status %d", resp.StatusCode)
			continue
		}

		resp.Body = io.NopCloser(bytes.NewReader(bodyBytes))
		return resp, bodyBytes, nil
	}

	return nil, nil, fmt.Errorf("all %d attempts failed: %w", c.maxRetries, lastErr)
}

// Stream issues the request without retries or body buffering, for proxying
// large media responses through to a downstream writer.
func (c *RetryableClient) Stream(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	return c.client.Do(req)
}

func readBody(resp *http.Response) ([]byte, error) {
	var reader io.Reader = resp.Body
	if strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
		gr, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("gzip reader: %w", err)
		}
		defer gr.Close()
		reader = gr
	}
	return io.ReadAll(reader)
}

type proxyRotator struct {
	parsed     []*url.URL
	currentIdx uint32
}

func newProxyRotator(proxyURLs []string) (*proxyRotator, error) {
	r := &proxyRotator{}
	for _, raw := range proxyURLs {
		parsed, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("parse proxy URL %s: %w", MaskProxyURL(raw), err)
		}
		r.parsed = append(r.parsed, parsed)
	}
	return r, nil
}

func (r *proxyRotator) next() *url.URL {
	if len(r.parsed) == 0 {
		return nil
	}
	idx := atomic.AddUint32(&r.currentIdx, 1) % uint32(len(r.parsed))
	return r.parsed[idx]
}

// fingerprintTransport routes each request through the next proxy and, for
// https, performs the TLS handshake with a randomized browser ClientHello.
type fingerprintTransport struct {
	rotator *proxyRotator
	inner   *http.Transport
}

func (t *fingerprintTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	proxyURL := t.rotator.next()

	transport := t.inner.Clone()
	if proxyURL != nil {
		transport.Proxy = http.ProxyURL(proxyURL)
	}
	if req.URL.Scheme == "https" {
		helloID := clientHelloIDs[rand.Intn(len(clientHelloIDs))]
		transport.DialTLSContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			return dialTLS(ctx, network, addr, proxyURL, helloID)
		}
	}

	return transport.RoundTrip(req)
}

func dialTLS(ctx context.Context, network, addr string, proxyURL *url.URL, helloID utls.ClientHelloID) (net.Conn, error) {
	var conn net.Conn
	var err error

	if proxyURL == nil {
		var dialer net.Dialer
		conn, err = dialer.DialContext(ctx, network, addr)
	} else {
		conn, err = dialThroughProxy(ctx, network, addr, proxyURL)
	}
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}

	host := addr
	if h, _, splitErr := net.SplitHostPort(addr); splitErr == nil {
		host = h
	}

	uconn := utls.UClient(conn, &utls.Config{ServerName: host}, helloID)
	if err := uconn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("uTLS handshake: %w", err)
	}
	return uconn, nil
}

func dialThroughProxy(ctx context.Context, network, addr string, proxyURL *url.URL) (net.Conn, error) {
	switch proxyURL.Scheme {
	case "http", "https":
		transport := &http.Transport{Proxy: http.ProxyURL(proxyURL)}
		return transport.DialContext(ctx, network, addr)

	case "socks5":
		auth := &proxy.Auth{}
		if proxyURL.User != nil {
			auth.User = proxyURL.User.Username()
			if password, ok := proxyURL.User.Password(); ok {
				auth.Password = password
			}
		}
		dialer, err := proxy.SOCKS5("tcp", proxyURL.Host, auth, &net.Dialer{Timeout: 30 * time.Second})
		if err != nil {
			return nil, fmt.Errorf("create SOCKS5 dialer: %w", err)
		}
		if cd, ok := dialer.(proxy.ContextDialer); ok {
			return cd.DialContext(ctx, network, addr)
		}
		return dialer.Dial(network, addr)

	default:
		return nil, fmt.Errorf("unsupported proxy scheme: %s", proxyURL.Scheme)
	}
}

// MaskProxyURL hides credentials embedded in a proxy URL for logging.
func MaskProxyURL(proxyURL string) string {
	if !strings.Contains(proxyURL, "@") {
		return proxyURL
	}
	parsed, err := url.Parse(proxyURL)
	if err != nil || parsed.User == nil {
		return "[masked]"
	}
	return strings.Replace(proxyURL, parsed.User.String(), parsed.User.Username()+":****", 1)
}
