// client.go contains the session handling for Arena: login and ASP.NET
// postbacks. Page specific scraping lives in classes.go and export.go.

package arena

import (
	"bytes"
	"context"
	"fmt"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"arena-sheets/lib/restyutil"
	"arena-sheets/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
)

var tracer = otel.Tracer("arena-sheets/internal/scrapers/arena")

var LoginFailed = fmt.Errorf("Failed to login to Arena.")

// Arena portal page ids
const (
	pageLogin       = "3062"
	pageClassList   = "3071"
	pageClassDetail = "3077"
)

const (
	loginUsernameField = "ctl08$ctl01$txtLoginId"
	loginPasswordField = "ctl08$ctl01$txtPassword"
	loginButton        = "ctl08$ctl01$btnSignin"
	loginSuccessMarker = "Welcome!"
)

type Client struct {
	BaseUrl *url.URL
	Http    *resty.Client
}

type ClientOptions struct {
	BaseUrl string
	// CloudflareBypass wraps the transport to get past cloudflare's bot check.
	CloudflareBypass bool
	// RequestsPerSecond bounds the request rate, 0 means 2 per second.
	RequestsPerSecond float64
	// Dump receives every http exchange, the password is redacted.
	Dump restyutil.Output
}

func NewClient(ctx context.Context, opts ClientOptions) (*Client, error) {
	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, err
	}

	client := resty.New()
	client.SetBaseURL(strings.TrimSuffix(opts.BaseUrl, "/"))
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	if opts.CloudflareBypass {
		client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	}

	client.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	client.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(baseUrl.Hostname()))
	// exports of large classes are slow to generate
	client.SetTimeout(time.Minute * 2)

	rps := opts.RequestsPerSecond
	if rps <= 0 {
		rps = 2
	}
	// max burst >= rps just means that no requests will be dropped
	limiter := rate.NewLimiter(rate.Limit(rps), int(rps)+1)
	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return limiter.Wait(req.Context())
	})

	telemetry.InstrumentResty(client, "scrapers/arena/http")
	restyutil.Dump(client, opts.Dump, loginPasswordField)

	return &Client{
		BaseUrl: baseUrl,
		Http:    client,
	}, nil
}

func pagePath(page string, params ...string) string {
	path := "/default.aspx?page=" + page
	for i := 0; i+1 < len(params); i += 2 {
		path += "&" + url.QueryEscape(params[i]) + "=" + url.QueryEscape(params[i+1])
	}
	return path
}

func (c *Client) getDocument(ctx context.Context, path string) (*goquery.Document, string, error) {
	res, err := c.Http.R().
		SetContext(ctx).
		Get(path)
	if err != nil {
		return nil, "", err
	}
	if res.IsError() {
		return nil, "", fmt.Errorf("GET %s: %s", path, res.Status())
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		return nil, "", err
	}
	return doc, res.RawResponse.Request.URL.String(), nil
}

// postback is an ASP.NET form submission replayed outside of a browser.
type postback struct {
	action string
	fields map[string]string
}

// newPostback collects the current values of the first form of a page, the
// way a browser would submit it. Buttons are left out, the caller adds the
// one being "clicked".
func newPostback(doc *goquery.Document, pageUrl string) (postback, error) {
	form := doc.Find("form").First()
	if form.Length() == 0 {
		return postback{}, fmt.Errorf("page has no form")
	}

	action := form.AttrOr("action", "")
	base, err := url.Parse(pageUrl)
	if err != nil {
		return postback{}, err
	}
	resolved, err := base.Parse(action)
	if err != nil {
		return postback{}, fmt.Errorf("resolve form action %q: %w", action, err)
	}

	fields := map[string]string{}
	form.Find("input").Each(func(_ int, input *goquery.Selection) {
		name, ok := input.Attr("name")
		if !ok || name == "" {
			return
		}
		switch strings.ToLower(input.AttrOr("type", "text")) {
		case "submit", "image", "button", "reset", "file":
			return
		case "checkbox", "radio":
			if _, checked := input.Attr("checked"); !checked {
				return
			}
			fields[name] = input.AttrOr("value", "on")
			return
		}
		fields[name] = input.AttrOr("value", "")
	})
	form.Find("select").Each(func(_ int, sel *goquery.Selection) {
		name, ok := sel.Attr("name")
		if !ok || name == "" {
			return
		}
		option := sel.Find("option[selected]").First()
		if option.Length() == 0 {
			option = sel.Find("option").First()
		}
		fields[name] = option.AttrOr("value", option.Text())
	})
	form.Find("textarea").Each(func(_ int, area *goquery.Selection) {
		name, ok := area.Attr("name")
		if !ok || name == "" {
			return
		}
		fields[name] = area.Text()
	})

	return postback{action: resolved.String(), fields: fields}, nil
}

func (c *Client) submit(ctx context.Context, pb postback) (*resty.Response, error) {
	res, err := c.Http.R().
		SetContext(ctx).
		SetFormData(pb.fields).
		Post(pb.action)
	if err != nil {
		return nil, err
	}
	if res.IsError() {
		return nil, fmt.Errorf("POST %s: %s", pb.action, res.Status())
	}
	return res, nil
}

func (c *Client) Login(ctx context.Context, username, password string) error {
	ctx, span := tracer.Start(ctx, "client:Login")
	defer span.End()

	doc, pageUrl, err := c.getDocument(ctx, pagePath(pageLogin))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch login page")
		return err
	}
	pb, err := newPostback(doc, pageUrl)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read login form")
		return err
	}
	pb.fields[loginUsernameField] = username
	pb.fields[loginPasswordField] = password
	pb.fields[loginButton] = doc.Find(fmt.Sprintf(`input[name="%s"]`, loginButton)).AttrOr("value", "Sign In")

	res, err := c.submit(ctx, pb)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to make login request")
		return err
	}
	if !strings.Contains(res.String(), loginSuccessMarker) {
		span.SetStatus(codes.Error, LoginFailed.Error())
		return LoginFailed
	}
	return nil
}
