package mypage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mypage-client/internal/assert"
	"mypage-client/lib/restyutil"
	"mypage-client/lib/sessionstore"
	"mypage-client/lib/telemetry"
	"net/http"
	"net/url"
	"strings"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	report_client_new          = "client.new"
	report_client_get_token    = "client.get-token"
	report_client_login        = "client.login"
	report_client_reauth       = "client.reauth"
	report_client_fetch_scores = "client.fetch-scores"
	report_client_save_session = "client.save-session"
)

var tracer = telemetry.Tracer("mypage-client/lib/scrapers/mypage")

const userAgent = "mypage-client"

// ErrNotLoggedIn is returned when the portal sends the score request back
// to the login page, there is no session to reauthenticate.
var ErrNotLoggedIn = errors.New("mypage: not logged in")

type Credentials struct {
	Username string
	Password string
}

type ClientOptions struct {
	Username string
	Password string

	// Store may be nil, the session then only lives as long as the client.
	Store sessionstore.Store

	// BaseUrl replaces the base url of the site resolved from the username.
	BaseUrl      string
	Markers      *Markers
	ScoreMarkers *ScoreMarkers

	// Timeout of 0 leaves the transport's default.
	Timeout          time.Duration
	CloudflareBypass bool
	// HttpOutput receives every request/response pair when not nil.
	HttpOutput restyutil.InstrumentOutput
}

// Client owns a single authenticated session with the portal. It is not
// safe for concurrent use, use one client (and one store) per account.
type Client struct {
	Site Site

	http         *resty.Client
	jar          *recordingJar
	baseUrl      string
	hostname     string
	creds        Credentials
	store        sessionstore.Store
	markers      Markers
	scoreMarkers ScoreMarkers
	tel          telemetry.API
}

// NewClient resolves the site from the username before anything touches the
// network and restores the stored session if there is one.
func NewClient(ctx context.Context, opts ClientOptions, tel telemetry.API) (*Client, error) {
	assert.NotNil(tel)
	tel = telemetry.NewScopedAPI("mypage", tel)

	username := strings.ToUpper(opts.Username)
	site, ok := ResolveSite(username)
	if !ok {
		return nil, fmt.Errorf("%w: '%s'", ErrUnknownSite, opts.Username)
	}

	baseUrl := site.BaseUrl()
	if opts.BaseUrl != "" {
		baseUrl = strings.TrimSuffix(opts.BaseUrl, "/")
	}
	parsedBaseUrl, err := url.Parse(baseUrl)
	if err != nil {
		return nil, err
	}

	jar, err := newRecordingJar()
	if err != nil {
		return nil, err
	}

	httpClient := resty.New()
	httpClient.SetCookieJar(jar)
	httpClient.SetHeader("user-agent", userAgent)
	httpClient.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(parsedBaseUrl.Hostname()))
	if opts.Timeout > 0 {
		httpClient.SetTimeout(opts.Timeout)
	}
	if opts.CloudflareBypass {
		httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
	}
	telemetry.InstrumentResty(httpClient, tel, "mypage-client/lib/scrapers/mypage/http")
	restyutil.AttachOutput(httpClient, opts.HttpOutput)

	markers := DefaultMarkers()
	if opts.Markers != nil {
		markers = *opts.Markers
	}
	scoreMarkers := DefaultScoreMarkers()
	if opts.ScoreMarkers != nil {
		scoreMarkers = *opts.ScoreMarkers
	}

	c := &Client{
		Site:     site,
		http:     httpClient,
		jar:      jar,
		baseUrl:  baseUrl,
		hostname: parsedBaseUrl.Hostname(),
		creds: Credentials{
			Username: username,
			Password: opts.Password,
		},
		store:        opts.Store,
		markers:      markers,
		scoreMarkers: scoreMarkers,
		tel:          tel,
	}

	if c.store == nil {
		return c, nil
	}
	session, found, err := c.store.Load(ctx)
	if err != nil {
		c.tel.ReportBroken(report_client_new, fmt.Errorf("load session: %w", err))
		return nil, err
	}
	if !found {
		c.tel.ReportDebug("no stored session")
		return c, nil
	}
	err = jar.Restore(session)
	if err != nil {
		c.tel.ReportBroken(report_client_new, fmt.Errorf("restore session: %w", err))
		return nil, fmt.Errorf("%w: restore session: %w", sessionstore.ErrStorage, err)
	}
	c.tel.ReportDebug("restored session", len(session.Cookies))
	return c, nil
}

func (c *Client) url(endpoint Endpoint) string {
	return c.baseUrl + endpoint.Path()
}

// PasswordResetUrl is where a student is sent to when the portal requires a new password.
func (c *Client) PasswordResetUrl() string {
	return c.url(ENDPOINT_PASSWORD_RESET)
}

// withoutRedirects runs fn with redirects turned off so that the outcome of
// a form post is read from its own body.
func (c *Client) withoutRedirects(fn func() error) error {
	c.http.SetRedirectPolicy(resty.RedirectPolicyFunc(func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}))
	defer c.http.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(c.hostname))
	return fn()
}

// outcomeOf maps an error from a login step to the outcome it is reported as.
func outcomeOf(err error) LoginOutcome {
	if errors.Is(err, ErrParse) {
		return LOGIN_PORTAL_UNAVAILABLE
	}
	return LOGIN_NETWORK_ERROR
}

// tokenFrom reads the value of the first element named _token, whatever its tag.
func tokenFrom(doc *goquery.Document) (string, bool) {
	return doc.Find(`[name="_token"]`).First().Attr("value")
}

// getToken reads the anti-forgery token off the form on the given page.
func (c *Client) getToken(ctx context.Context, endpoint Endpoint) (string, error) {
	target := c.url(endpoint)

	res, err := c.http.R().
		SetContext(ctx).
		Get(target)
	if err != nil {
		c.tel.ReportBroken(report_client_get_token, fmt.Errorf("fetch: %w", err), target)
		return "", fmt.Errorf("%w: fetch token page: %w", ErrNetwork, err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body()))
	if err != nil {
		c.tel.ReportBroken(report_client_get_token, fmt.Errorf("parse: %w", err), target)
		return "", fmt.Errorf("%w: parse token page: %w", ErrParse, err)
	}

	token, ok := tokenFrom(doc)
	if !ok || token == "" {
		err := fmt.Errorf("%w: could not find _token on %s", ErrParse, target)
		c.tel.ReportBroken(report_client_get_token, err, res.StatusCode())
		return "", err
	}
	return token, nil
}

func (c *Client) postForm(ctx context.Context, endpoint Endpoint, form map[string]string) (*resty.Response, error) {
	var res *resty.Response
	err := c.withoutRedirects(func() error {
		var err error
		res, err = c.http.R().
			SetContext(ctx).
			SetFormData(form).
			Post(c.url(endpoint))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: post %s: %w", ErrNetwork, endpoint.Path(), err)
	}
	return res, nil
}

// Login signs in with the username and password and, if the portal accepts
// them, saves the session to the store. Any other outcome leaves the store as is.
//
// When the session cannot be saved the returned outcome is still
// LOGIN_SUCCESS, the error wraps sessionstore.ErrStorage.
func (c *Client) Login(ctx context.Context) (LoginOutcome, error) {
	ctx, span := tracer.Start(ctx, "client:Login")
	defer span.End()

	token, err := c.getToken(ctx, ENDPOINT_TOKEN)
	if err != nil {
		span.SetStatus(codes.Error, "failed to get login token")
		return outcomeOf(err), err
	}

	res, err := c.postForm(ctx, ENDPOINT_LOGIN, map[string]string{
		"loginId":  c.creds.Username,
		"password": c.creds.Password,
		"url":      scoresRedirectTarget,
		"_token":   token,
	})
	if err != nil {
		c.tel.ReportBroken(report_client_login, err)
		span.SetStatus(codes.Error, "failed to post login request")
		return LOGIN_NETWORK_ERROR, err
	}

	outcome := Classify(res.String(), c.markers)
	span.SetAttributes(attribute.Int("mypage.login_outcome", int(outcome)))
	if outcome != LOGIN_SUCCESS {
		c.tel.ReportWarning(report_client_login, outcome.String(), c.creds.Username)
		return outcome, nil
	}

	err = c.saveSession(ctx)
	if err != nil {
		span.SetStatus(codes.Error, "failed to save session")
		return LOGIN_SUCCESS, err
	}
	return LOGIN_SUCCESS, nil
}

// Reauth confirms the password for a session the portal considers stale.
//
// The refreshed session is not written to the store, only Login does that.
func (c *Client) Reauth(ctx context.Context) (LoginOutcome, error) {
	ctx, span := tracer.Start(ctx, "client:Reauth")
	defer span.End()

	token, err := c.getToken(ctx, ENDPOINT_REAUTH_TOKEN)
	if err != nil {
		span.SetStatus(codes.Error, "failed to get reauth token")
		return outcomeOf(err), err
	}

	res, err := c.postForm(ctx, ENDPOINT_REAUTH, map[string]string{
		"url":      scoresRedirectTarget,
		"password": c.creds.Password,
		"_token":   token,
	})
	if err != nil {
		c.tel.ReportBroken(report_client_reauth, err)
		span.SetStatus(codes.Error, "failed to post reauth request")
		return LOGIN_NETWORK_ERROR, err
	}

	if c.markers.ReauthFailed != "" && strings.Contains(res.String(), c.markers.ReauthFailed) {
		c.tel.ReportWarning(report_client_reauth, LOGIN_REAUTH_FAILED.String(), c.creds.Username)
		span.SetStatus(codes.Error, "reauth rejected")
		return LOGIN_REAUTH_FAILED, nil
	}
	return LOGIN_SUCCESS, nil
}

func (c *Client) saveSession(ctx context.Context) error {
	if c.store == nil {
		return nil
	}
	session := c.jar.Snapshot()
	err := c.store.Save(ctx, session)
	if err != nil {
		c.tel.ReportBroken(report_client_save_session, err)
		return err
	}
	c.tel.ReportDebug("saved session", len(session.Cookies))
	return nil
}

// finalUrl is the url of the last request made after following redirects.
func finalUrl(res *resty.Response) *url.URL {
	if res.RawResponse == nil || res.RawResponse.Request == nil {
		return nil
	}
	return res.RawResponse.Request.URL
}

func (c *Client) onReauthPage(res *resty.Response) bool {
	u := finalUrl(res)
	return u != nil && c.markers.ReauthPage != "" && strings.Contains(u.String(), c.markers.ReauthPage)
}

func (c *Client) onLoginPage(res *resty.Response) bool {
	u := finalUrl(res)
	if u == nil {
		return false
	}
	return u.Path == ENDPOINT_TOKEN.Path() || u.Path == ENDPOINT_LOGIN.Path()
}

func (c *Client) getScorePage(ctx context.Context) (*resty.Response, error) {
	res, err := c.http.R().
		SetContext(ctx).
		Get(c.url(ENDPOINT_SCORES))
	if err != nil {
		c.tel.ReportBroken(report_client_fetch_scores, fmt.Errorf("fetch: %w", err))
		return nil, fmt.Errorf("%w: fetch score page: %w", ErrNetwork, err)
	}
	return res, nil
}

// FetchScorePage returns the raw html of the score list. If the portal asks
// for the password again it reauthenticates once and fetches the page one
// more time, there are no further retries.
func (c *Client) FetchScorePage(ctx context.Context) (string, error) {
	ctx, span := tracer.Start(ctx, "client:FetchScorePage")
	defer span.End()

	res, err := c.getScorePage(ctx)
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch score page")
		return "", err
	}

	if c.onReauthPage(res) {
		c.tel.ReportDebug("score page redirected to reauth", finalUrl(res).String())
		span.AddEvent("reauth")

		outcome, err := c.Reauth(ctx)
		if err != nil {
			span.SetStatus(codes.Error, "reauth failed")
			return "", err
		}
		if outcome != LOGIN_SUCCESS {
			span.SetStatus(codes.Error, "reauth rejected")
			return "", &OutcomeError{Outcome: outcome}
		}

		res, err = c.getScorePage(ctx)
		if err != nil {
			span.SetStatus(codes.Error, "failed to refetch score page")
			return "", err
		}
		if c.onReauthPage(res) {
			c.tel.ReportWarning(report_client_fetch_scores, "still on reauth page after reauth")
			span.SetStatus(codes.Error, "reauth did not stick")
			return "", &OutcomeError{Outcome: LOGIN_REAUTH_FAILED}
		}
	}

	if c.onLoginPage(res) {
		span.SetStatus(codes.Error, "not logged in")
		return "", ErrNotLoggedIn
	}

	return res.String(), nil
}

// FetchScores fetches and decodes the score list.
func (c *Client) FetchScores(ctx context.Context) ([]SubjectScore, error) {
	page, err := c.FetchScorePage(ctx)
	if err != nil {
		return nil, err
	}
	scores, err := DecodeScoresWith(strings.NewReader(page), c.scoreMarkers)
	if err != nil {
		c.tel.ReportBroken(report_client_fetch_scores, fmt.Errorf("decode: %w", err))
		return nil, err
	}
	c.tel.ReportCount("client.scores", int64(len(scores)))
	return scores, nil
}
