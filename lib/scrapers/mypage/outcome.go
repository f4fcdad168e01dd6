package mypage

import (
	"errors"
	"strings"
)

var (
	// ErrNetwork wraps transport failures reaching the portal.
	ErrNetwork = errors.New("mypage: network error")
	// ErrParse is returned when a page is missing the markup it is expected to have.
	ErrParse = errors.New("mypage: unexpected page structure")
	// ErrUnknownSite is returned before any request is made if the username
	// matches neither portal.
	ErrUnknownSite = errors.New("mypage: cannot determine site from username")
)

// LoginOutcome is the classification of a single login or reauth attempt.
type LoginOutcome int

const (
	LOGIN_SUCCESS LoginOutcome = iota
	LOGIN_WRONG_CREDENTIALS
	LOGIN_MISSING_FIELDS
	LOGIN_PASSWORD_RESET_REQUIRED
	LOGIN_REAUTH_FAILED
	LOGIN_NETWORK_ERROR
	LOGIN_PORTAL_UNAVAILABLE
)

// String returns the message shown to the student.
func (o LoginOutcome) String() string {
	switch o {
	case LOGIN_SUCCESS:
		return "成功"
	case LOGIN_WRONG_CREDENTIALS:
		return "学籍番号またはパスワードが違います"
	case LOGIN_MISSING_FIELDS:
		return "ログインIDまたはパスワードに未入力項目があります。"
	case LOGIN_PASSWORD_RESET_REQUIRED:
		return "パスワードのリセットを行ってください"
	case LOGIN_REAUTH_FAILED:
		return "再認証失敗"
	case LOGIN_NETWORK_ERROR:
		return "ネットワークエラー"
	case LOGIN_PORTAL_UNAVAILABLE:
		return "マイページを使用することはできません"
	}
	return "unknown login outcome"
}

// OutcomeError carries a non-successful LoginOutcome through an error return.
type OutcomeError struct {
	Outcome LoginOutcome
}

func (e *OutcomeError) Error() string {
	return "mypage: " + e.Outcome.String()
}

// Classify reads the outcome of a login or reauth off the response body.
// Order matters, the first marker found wins. Empty markers never match.
func Classify(body string, m Markers) LoginOutcome {
	ordered := []struct {
		marker  string
		outcome LoginOutcome
	}{
		{m.WrongCredentials, LOGIN_WRONG_CREDENTIALS},
		{m.MissingFields, LOGIN_MISSING_FIELDS},
		{m.PasswordResetRequired, LOGIN_PASSWORD_RESET_REQUIRED},
		{m.PortalUnavailable, LOGIN_PORTAL_UNAVAILABLE},
	}
	for _, o := range ordered {
		if o.marker != "" && strings.Contains(body, o.marker) {
			return o.outcome
		}
	}
	return LOGIN_SUCCESS
}
