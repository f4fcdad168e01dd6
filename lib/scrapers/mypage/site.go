package mypage

import "strings"

// Site is one of the two portals a student can belong to.
type Site int

const (
	SITE_N Site = iota
	SITE_S
)

func (s Site) BaseUrl() string {
	switch s {
	case SITE_N:
		return "https://secure.nnn.ed.jp"
	case SITE_S:
		return "https://s-secure.nnn.ed.jp"
	}
	panic("unknown site")
}

func (s Site) String() string {
	switch s {
	case SITE_N:
		return "N"
	case SITE_S:
		return "S"
	}
	return "unknown"
}

// ResolveSite picks the portal from the student's username. "N" is checked
// before "S", so a username containing both resolves to SITE_N.
func ResolveSite(username string) (Site, bool) {
	switch {
	case strings.Contains(username, "N"):
		return SITE_N, true
	case strings.Contains(username, "S"):
		return SITE_S, true
	}
	return 0, false
}

// Endpoint is a page of the portal relative to the site's base url.
type Endpoint int

const (
	ENDPOINT_TOKEN Endpoint = iota
	ENDPOINT_LOGIN
	ENDPOINT_REAUTH_TOKEN
	ENDPOINT_REAUTH
	ENDPOINT_SCORES
	ENDPOINT_PASSWORD_RESET
)

// the page the portal sends the student to after a login or reauth
const scoresRedirectTarget = "/result/pc/list/index"

func (e Endpoint) Path() string {
	switch e {
	case ENDPOINT_TOKEN:
		return "/mypage/"
	case ENDPOINT_LOGIN:
		return "/mypage/login"
	case ENDPOINT_REAUTH_TOKEN:
		return "/mypage/reauth_login/index?url=" + scoresRedirectTarget
	case ENDPOINT_REAUTH:
		return "/mypage/reauth_login/login"
	case ENDPOINT_SCORES:
		return "/mypage" + scoresRedirectTarget
	case ENDPOINT_PASSWORD_RESET:
		return "/mypage/password_reminder/input"
	}
	panic("unknown endpoint")
}

// EndpointUrl joins the site's base url with the endpoint's path.
func EndpointUrl(site Site, endpoint Endpoint) string {
	return site.BaseUrl() + endpoint.Path()
}

// Markers are the literal strings the portal's pages are recognized by.
type Markers struct {
	WrongCredentials      string
	MissingFields         string
	PasswordResetRequired string
	PortalUnavailable     string
	ReauthFailed          string
	// ReauthPage is a substring of the url the portal redirects to when
	// the session needs to be confirmed with the password again.
	ReauthPage string
}

func DefaultMarkers() Markers {
	return Markers{
		WrongCredentials:      "学籍番号またはパスワードが違います",
		MissingFields:         "必須項目です",
		PasswordResetRequired: "パスワードのリセットを行ってください",
		PortalUnavailable:     "マイページを使用することはできません",
		ReauthFailed:          "認証に失敗",
		ReauthPage:            "reauth_login",
	}
}

// ScoreMarkers are the selectors of the four lists the score page is decoded from.
type ScoreMarkers struct {
	Subject      string
	ReportHeader string
	LimitDate    string
	Progress     string
}

func DefaultScoreMarkers() ScoreMarkers {
	return ScoreMarkers{
		Subject:      `[rowspan="3"]`,
		ReportHeader: ".header_report_number",
		LimitDate:    ".report_limit_date",
		Progress:     ".report_progress",
	}
}
