package http

import (
	"errors"
	"math"
	"net/http"

	"github.com/tazhibayda/dailyjobs/internal/identity"
	"github.com/tazhibayda/dailyjobs/internal/page"
	"github.com/tazhibayda/dailyjobs/internal/prefs"
	"github.com/tazhibayda/dailyjobs/internal/verify"
)

var codeStatus = map[identity.Code]int{
	identity.CodeUserNotFound:        http.StatusUnauthorized,
	identity.CodeWrongPassword:       http.StatusUnauthorized,
	identity.CodeEmailInUse:          http.StatusConflict,
	identity.CodeInvalidEmail:        http.StatusBadRequest,
	identity.CodeWeakPassword:        http.StatusBadRequest,
	identity.CodeTooManyRequests:     http.StatusTooManyRequests,
	identity.CodeRequiresRecentLogin: http.StatusUnauthorized,
	identity.CodeInvalidContinueURI:  http.StatusBadRequest,
	identity.CodePopupClosed:         http.StatusBadRequest,
	identity.CodeOperationNotAllowed: http.StatusForbidden,
	identity.CodeInvalidActionCode:   http.StatusBadRequest,
	identity.CodeTokenExpired:        http.StatusUnauthorized,
}

func statusOf(err error) int {
	var (
		ce *verify.CooldownError
		me *verify.MaxRetriesError
		se *page.StoreError
	)
	switch {
	case errors.Is(err, prefs.ErrValidation):
		return http.StatusBadRequest
	case errors.As(err, &ce), errors.As(err, &me):
		return http.StatusTooManyRequests
	case errors.Is(err, page.ErrNotSignedIn):
		return http.StatusUnauthorized
	case errors.Is(err, page.ErrEditorHidden):
		return http.StatusForbidden
	case errors.Is(err, page.ErrUnknownPage):
		return http.StatusNotFound
	case errors.As(err, &se):
		return http.StatusInternalServerError
	}
	if s, ok := codeStatus[identity.CodeOf(err)]; ok {
		return s
	}
	return http.StatusInternalServerError
}

func errorBody(err error) map[string]any {
	body := map[string]any{"error": page.Message(err)}
	if code := identity.CodeOf(err); code != "" {
		body["code"] = code
	}
	var ce *verify.CooldownError
	if errors.As(err, &ce) {
		body["retryAfterSeconds"] = int(math.Ceil(ce.Remaining.Seconds()))
	}
	return body
}
