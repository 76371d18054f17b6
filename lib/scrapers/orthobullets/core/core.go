package core

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"mime"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"casefeed/lib/restyutil"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("casefeed.scrapers.orthobullets.core")

const (
	DefaultUserAgent = "Mozilla/5.0 (Orthobullets RSS Bot)"
	DefaultTimeout   = time.Second * 60
	maxRedirects     = 10
)

type Client struct {
	Http     *resty.Client
	email    string
	password string
}

type ClientOptions struct {
	Email     string
	Password  string
	UserAgent string
	// Timeout bounds every single request, defaults to DefaultTimeout.
	Timeout          time.Duration
	BypassCloudflare bool
	// DebugOutput receives full request/response dumps when debug
	// logging is on, it may be nil.
	DebugOutput restyutil.InstrumentOutput
}

// Page is a parsed html document along with the url it was finally
// served from.
type Page struct {
	URL *url.URL
	Doc *goquery.Document
}

func NewClient(opts ClientOptions) (*Client, error) {
	client := resty.New()
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	if opts.BypassCloudflare {
		client.SetTransport(cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport))
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	client.SetHeader("user-agent", userAgent)
	client.SetRedirectPolicy(resty.FlexibleRedirectPolicy(maxRedirects))
	client.SetTimeout(timeout)

	restyutil.InstrumentClient(client, otel.Tracer("casefeed.scrapers.orthobullets.http"), opts.DebugOutput)

	return &Client{
		Http:     client,
		email:    opts.Email,
		password: opts.Password,
	}, nil
}

// Close releases idle connections held by the session.
func (c *Client) Close() {
	c.Http.GetClient().CloseIdleConnections()
}

// IsLoginBoundary reports whether a request ended up on a sign in page.
func IsLoginBoundary(u *url.URL) bool {
	if u == nil {
		return false
	}
	return strings.Contains(strings.ToLower(u.Path), "login") ||
		strings.Contains(strings.ToLower(u.RawQuery), "login")
}

// Fetch retrieves target and parses it as html. When the site bounces
// the request to its sign in page, the login form is filled once and the
// target is requested again.
func (c *Client) Fetch(ctx context.Context, target string) (*Page, error) {
	ctx, span := tracer.Start(ctx, "client:Fetch")
	defer span.End()
	span.SetAttributes(attribute.String("url", target))

	page, err := c.get(ctx, target)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch")
		return nil, err
	}
	if !IsLoginBoundary(page.URL) {
		return page, nil
	}

	slog.InfoContext(ctx, "login required", "url", target, "login_url", page.URL.String())
	c.login(ctx, page)

	page, err = c.get(ctx, target)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch after login")
		return nil, err
	}
	if IsLoginBoundary(page.URL) {
		slog.WarnContext(ctx, "still on login page after signing in", "url", target)
	}
	return page, nil
}

func isHtml(contentType string) bool {
	if contentType == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return strings.Contains(mediaType, "html")
}

func (c *Client) get(ctx context.Context, target string) (*Page, error) {
	res, err := c.Http.R().
		SetContext(ctx).
		Get(target)
	if err != nil {
		return nil, &FetchError{URL: target, Err: err}
	}
	if res.IsError() || res.StatusCode() < 200 || res.StatusCode() > 299 {
		return nil, &FetchError{URL: target, Status: res.StatusCode(), Err: ErrStatus}
	}
	if !isHtml(res.Header().Get("content-type")) {
		return nil, &FetchError{
			URL:    target,
			Status: res.StatusCode(),
			Err:    fmt.Errorf("%w: %s", ErrNotHtml, res.Header().Get("content-type")),
		}
	}

	final, err := url.Parse(target)
	if err != nil {
		return nil, &FetchError{URL: target, Err: err}
	}
	if res.RawResponse != nil && res.RawResponse.Request != nil {
		final = res.RawResponse.Request.URL
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body()))
	if err != nil {
		return nil, &FetchError{URL: target, Status: res.StatusCode(), Err: err}
	}
	doc.Url = final

	return &Page{URL: final, Doc: doc}, nil
}
