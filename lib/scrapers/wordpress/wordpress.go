// Package wordpress is a session client for the wp-admin side of a
// WordPress site: form login, logged-in cookie detection and download
// of plugin CSV exports. It only does HTTP; anything that needs a
// real browser stays outside this repo and hands its files to the
// exportdir adapter instead.
package wordpress

import (
	"bytes"
	"context"
	"fmt"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"booksync-backend/lib/csvutil"
	"booksync-backend/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("scrapers/wordpress")

var LoginFailed = fmt.Errorf("Failed to log in to WordPress.")

// loginCookiePrefix marks an authenticated session; WordPress names
// the cookie wordpress_logged_in_<hash>.
const loginCookiePrefix = "wordpress_logged_in_"

type Client struct {
	BaseUrl *url.URL
	Http    *resty.Client
}

type ClientOptions struct {
	BaseUrl string
	// Timeout defaults to 30s; network fetches must not hang a job
	// past it.
	Timeout time.Duration
}

func NewClient(opts ClientOptions) (*Client, error) {
	baseUrl, err := url.Parse(strings.TrimSuffix(opts.BaseUrl, "/"))
	if err != nil {
		return nil, err
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = time.Second * 30
	}

	client := resty.New()
	client.SetBaseURL(baseUrl.String())
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)

	client.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	client.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(baseUrl.Hostname()))
	client.SetTimeout(timeout)

	telemetry.InstrumentResty(client, "scrapers/wordpress/http")

	return &Client{
		BaseUrl: baseUrl,
		Http:    client,
	}, nil
}

func (c *Client) IsLoggedIn() bool {
	for _, cookie := range c.Http.GetClient().Jar.Cookies(c.BaseUrl) {
		if strings.HasPrefix(cookie.Name, loginCookiePrefix) {
			return true
		}
	}
	return false
}

// Login authenticates against wp-login.php. Success is judged solely
// by the presence of the logged-in cookie; WordPress answers 200 on
// bad credentials too.
func (c *Client) Login(ctx context.Context, username, password string) error {
	ctx, span := tracer.Start(ctx, "client:Login")
	defer span.End()

	// prime cookies, WordPress refuses logins without its test cookie
	_, err := c.Http.R().
		SetContext(ctx).
		Get("/wp-login.php")
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch login page")
		return err
	}

	res, err := c.Http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"log":         username,
			"pwd":         password,
			"wp-submit":   "Log In",
			"redirect_to": c.BaseUrl.String() + "/wp-admin/",
			"testcookie":  "1",
		}).
		Post("/wp-login.php")
	if err != nil {
		span.SetStatus(codes.Error, "failed to post login form")
		return err
	}

	if c.IsLoggedIn() {
		return nil
	}

	span.SetStatus(codes.Error, "no login cookie present")
	if detail := loginErrorText(res.Body()); detail != "" {
		return fmt.Errorf("%w %s", LoginFailed, detail)
	}
	return LoginFailed
}

func loginErrorText(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(body))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Find("#login_error").Text())
}

func (c *Client) moduleUrl(module string, action string) string {
	query := url.Values{}
	query.Set("page", "booknetic")
	query.Set("module", module)
	if action != "" {
		query.Set("action", action)
	}
	return "/wp-admin/admin.php?" + query.Encode()
}

// ExportCSV downloads the CSV export of one plugin module
// (appointments, customers, payments) and returns its raw rows. An
// HTML answer means the session expired or the export endpoint moved;
// that is an error, not an empty result.
func (c *Client) ExportCSV(ctx context.Context, module string) ([]map[string]string, error) {
	ctx, span := tracer.Start(ctx, "client:ExportCSV")
	defer span.End()

	res, err := c.Http.R().
		SetContext(ctx).
		Get(c.moduleUrl(module, "export"))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch export")
		return nil, err
	}
	return decodeExport(span, module, res)
}

// ExportCSVFrom downloads an export from an explicitly discovered
// link instead of the canonical module url.
func (c *Client) ExportCSVFrom(ctx context.Context, module, link string) ([]map[string]string, error) {
	ctx, span := tracer.Start(ctx, "client:ExportCSVFrom")
	defer span.End()

	res, err := c.Http.R().
		SetContext(ctx).
		Get(link)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch export link")
		return nil, err
	}
	return decodeExport(span, module, res)
}

func decodeExport(span trace.Span, module string, res *resty.Response) ([]map[string]string, error) {
	if res.StatusCode() != 200 {
		err := fmt.Errorf("%s export: unexpected status %d", module, res.StatusCode())
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	body := res.Body()
	if looksLikeHTML(res.Header().Get("content-type"), body) {
		err := fmt.Errorf("%s export: got an HTML page instead of CSV", module)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return csvutil.Decode(bytes.NewReader(body))
}

func looksLikeHTML(contentType string, body []byte) bool {
	if strings.Contains(strings.ToLower(contentType), "text/html") {
		return true
	}
	trimmed := bytes.TrimLeft(body, " \t\r\n\ufeff")
	return bytes.HasPrefix(trimmed, []byte("<"))
}

// DiscoverExportLinks scans a module's admin page for anything that
// looks like an export control and returns candidate download urls.
// Plugin versions move the export button around; this keeps the HTTP
// strategy working without hardcoding every variant.
func (c *Client) DiscoverExportLinks(ctx context.Context, module string) ([]string, error) {
	ctx, span := tracer.Start(ctx, "client:DiscoverExportLinks")
	defer span.End()

	res, err := c.Http.R().
		SetContext(ctx).
		Get(c.moduleUrl(module, ""))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch module page")
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		span.SetStatus(codes.Error, "failed to parse module page")
		return nil, err
	}

	var links []string
	seen := map[string]bool{}
	doc.Find("a[href], button[data-action], [data-export-url]").Each(func(_ int, sel *goquery.Selection) {
		href := sel.AttrOr("href", sel.AttrOr("data-export-url", ""))
		if href == "" {
			return
		}
		text := strings.ToLower(sel.Text() + " " + sel.AttrOr("class", "") + " " + sel.AttrOr("data-action", ""))
		if !strings.Contains(text, "export") && !strings.Contains(text, "csv") && !strings.Contains(href, "export") {
			return
		}
		abs, err := c.BaseUrl.Parse(href)
		if err != nil {
			return
		}
		link := abs.String()
		if !seen[link] {
			seen[link] = true
			links = append(links, link)
		}
	})
	return links, nil
}
