package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tazhibayda/dailyjobs/internal/identity"
	"github.com/tazhibayda/dailyjobs/internal/log"
	"github.com/tazhibayda/dailyjobs/internal/page"
	"github.com/tazhibayda/dailyjobs/internal/prefs"
	"github.com/tazhibayda/dailyjobs/internal/security"
)

// Pinger reports dependency health for /healthz.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	Pages    *page.Registry
	Provider identity.Provider
	Keys     *security.KeyManager
	Health   []Pinger
}

func NewHandler(pages *page.Registry, provider identity.Provider, keys *security.KeyManager, health ...Pinger) *Handler {
	return &Handler{Pages: pages, Provider: provider, Keys: keys, Health: health}
}

func (h *Handler) Healthz(c *gin.Context) {
	for _, p := range h.Health {
		if err := p.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) JWKS(c *gin.Context) {
	c.JSON(http.StatusOK, h.Keys.JWKS())
}

// controller resolves :id or answers 404.
func (h *Handler) controller(c *gin.Context) (*page.Controller, bool) {
	ctl, ok := h.Pages.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown page"})
		return nil, false
	}
	return ctl, true
}

// respond renders the page after an operation, with the error if it failed.
func respond(c *gin.Context, ctl *page.Controller, err error) {
	snap := ctl.Snapshot()
	if err != nil {
		body := errorBody(err)
		body["page"] = snap
		if statusOf(err) >= http.StatusInternalServerError {
			log.WithDD(c.Request.Context(), nil, zap.String("page", ctl.ID), zap.Error(err)).Error("page operation failed")
		}
		c.JSON(statusOf(err), body)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// CreatePage godoc
// @Summary Open a page
// @Tags pages
// @Produce json
// @Success 201 {object} page.Snapshot
// @Router /api/pages [post]
func (h *Handler) CreatePage(c *gin.Context) {
	ctl := h.Pages.Create()
	c.JSON(http.StatusCreated, ctl.Snapshot())
}

// GetPage godoc
// @Summary Render a page
// @Tags pages
// @Produce json
// @Param id path string true "page id"
// @Success 200 {object} page.Snapshot
// @Failure 404 {object} map[string]string
// @Router /api/pages/{id} [get]
func (h *Handler) GetPage(c *gin.Context) {
	ctl, ok := h.controller(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, ctl.Snapshot())
}

// SignUp godoc
// @Summary Sign up with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param id path string true "page id"
// @Param payload body prefs.SignUpForm true "sign-up form"
// @Success 200 {object} page.Snapshot
// @Failure 400 {object} map[string]any
// @Failure 409 {object} map[string]any
// @Router /api/pages/{id}/signup [post]
func (h *Handler) SignUp(c *gin.Context) {
	ctl, ok := h.controller(c)
	if !ok {
		return
	}
	var in prefs.SignUpForm
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	respond(c, ctl, ctl.SignUp(c.Request.Context(), in))
}

type signInReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignIn godoc
// @Summary Sign in with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param id path string true "page id"
// @Param payload body signInReq true "credentials"
// @Success 200 {object} page.Snapshot
// @Failure 401 {object} map[string]any
// @Router /api/pages/{id}/signin [post]
func (h *Handler) SignIn(c *gin.Context) {
	ctl, ok := h.controller(c)
	if !ok {
		return
	}
	var in signInReq
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	respond(c, ctl, ctl.SignIn(c.Request.Context(), in.Email, in.Password))
}

func (h *Handler) SignOut(c *gin.Context) {
	ctl, ok := h.controller(c)
	if !ok {
		return
	}
	respond(c, ctl, ctl.SignOut(c.Request.Context()))
}

// ResendVerification godoc
// @Summary Resend the verification email
// @Description Limited per page: 60s cooldown, 3 sends per hour.
// @Tags auth
// @Produce json
// @Param id path string true "page id"
// @Success 200 {object} page.Snapshot
// @Failure 429 {object} map[string]any
// @Router /api/pages/{id}/resend-verification [post]
func (h *Handler) ResendVerification(c *gin.Context) {
	ctl, ok := h.controller(c)
	if !ok {
		return
	}
	respond(c, ctl, ctl.ResendVerification(c.Request.Context()))
}

func (h *Handler) CheckVerified(c *gin.Context) {
	ctl, ok := h.controller(c)
	if !ok {
		return
	}
	respond(c, ctl, ctl.CheckVerified(c.Request.Context()))
}

type emailReq struct {
	Email string `json:"email"`
}

func (h *Handler) ResetPassword(c *gin.Context) {
	ctl, ok := h.controller(c)
	if !ok {
		return
	}
	var in emailReq
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	respond(c, ctl, ctl.ResetPassword(c.Request.Context(), in.Email))
}

type passwordReq struct {
	Password string `json:"password"`
}

// DeleteAccount godoc
// @Summary Delete the signed-in account
// @Description Reauthenticates with the password, deletes the preference record, then the identity.
// @Tags auth
// @Accept json
// @Produce json
// @Param id path string true "page id"
// @Param payload body passwordReq true "current password"
// @Success 200 {object} page.Snapshot
// @Failure 401 {object} map[string]any
// @Router /api/pages/{id}/account [delete]
func (h *Handler) DeleteAccount(c *gin.Context) {
	ctl, ok := h.controller(c)
	if !ok {
		return
	}
	var in passwordReq
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	respond(c, ctl, ctl.DeleteAccount(c.Request.Context(), in.Password))
}

// GoogleStart godoc
// @Summary Google consent URL for this page
// @Tags auth
// @Produce json
// @Param id path string true "page id"
// @Success 200 {object} map[string]string
// @Failure 403 {object} map[string]any
// @Router /api/pages/{id}/google [get]
func (h *Handler) GoogleStart(c *gin.Context) {
	ctl, ok := h.controller(c)
	if !ok {
		return
	}
	u, err := ctl.FederatedURL()
	if err != nil {
		respond(c, ctl, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": u})
}

func (h *Handler) GoogleCallback(c *gin.Context) {
	code := c.Query("code")
	if c.Query("error") != "" {
		code = ""
	}
	ctl, err := h.Pages.CompleteFederated(c.Request.Context(), c.Query("state"), code)
	if ctl == nil {
		c.JSON(statusOf(err), errorBody(err))
		return
	}
	respond(c, ctl, err)
}

// Verify godoc
// @Summary Confirm an emailed verification link
// @Tags auth
// @Param token query string true "token from the email"
// @Success 302
// @Failure 400 {object} map[string]any
// @Router /api/auth/verify [get]
func (h *Handler) Verify(c *gin.Context) {
	next, err := h.Provider.ConfirmVerification(c.Request.Context(), c.Query("token"))
	if err != nil {
		c.JSON(statusOf(err), errorBody(err))
		return
	}
	if next == "" {
		c.JSON(http.StatusOK, gin.H{"status": "verified"})
		return
	}
	c.Redirect(http.StatusFound, next)
}

type resetReq struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

func (h *Handler) ConfirmReset(c *gin.Context) {
	var in resetReq
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if in.Token == "" {
		in.Token = c.Query("token")
	}
	if err := h.Provider.ConfirmPasswordReset(c.Request.Context(), in.Token, in.Password); err != nil {
		c.JSON(statusOf(err), errorBody(err))
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) ToggleCompany(c *gin.Context) {
	ctl, ok := h.controller(c)
	if !ok {
		return
	}
	respond(c, ctl, ctl.Toggle(c.Param("company")))
}

func (h *Handler) SelectAll(c *gin.Context) {
	ctl, ok := h.controller(c)
	if !ok {
		return
	}
	respond(c, ctl, ctl.SelectAll())
}

func (h *Handler) ClearAll(c *gin.Context) {
	ctl, ok := h.controller(c)
	if !ok {
		return
	}
	respond(c, ctl, ctl.ClearAll())
}

type filterReq struct {
	Term string `json:"term"`
}

// Filter godoc
// @Summary Filter the Available companies
// @Description Debounced 300ms; poll the page to see the result.
// @Tags preferences
// @Accept json
// @Produce json
// @Param id path string true "page id"
// @Param payload body filterReq true "search term"
// @Success 202 {object} map[string]any
// @Failure 403 {object} map[string]any
// @Router /api/pages/{id}/filter [post]
func (h *Handler) Filter(c *gin.Context) {
	ctl, ok := h.controller(c)
	if !ok {
		return
	}
	var in filterReq
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	seq, err := ctl.Filter(in.Term)
	if err != nil {
		respond(c, ctl, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"seq": seq})
}

type checkReq struct {
	Checked *bool `json:"checked"`
}

func (h *Handler) check(fn func(*page.Controller, string, bool) error, param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctl, ok := h.controller(c)
		if !ok {
			return
		}
		var in checkReq
		if err := c.ShouldBindJSON(&in); err != nil || in.Checked == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "checked is required"})
			return
		}
		respond(c, ctl, fn(ctl, c.Param(param), *in.Checked))
	}
}

// Save godoc
// @Summary Save all preferences
// @Description Writes companies, job types, experience levels and locations in one update. Last write wins.
// @Tags preferences
// @Produce json
// @Param id path string true "page id"
// @Success 200 {object} page.Snapshot
// @Failure 403 {object} map[string]any
// @Failure 500 {object} map[string]any
// @Router /api/pages/{id}/save [post]
func (h *Handler) Save(c *gin.Context) {
	ctl, ok := h.controller(c)
	if !ok {
		return
	}
	respond(c, ctl, ctl.Save(c.Request.Context()))
}
