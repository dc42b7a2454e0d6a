package controllers

import (
	"errors"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vnkhanh/studyflash-backend/middleware"
	"github.com/vnkhanh/studyflash-backend/services"
)

// AuthController nhận mọi request dưới /api/auth/* và chuyển cho AuthService.
type AuthController struct {
	auth         *services.AuthService
	secureCookie bool
}

func NewAuthController(auth *services.AuthService, secureCookie bool) *AuthController {
	return &AuthController{auth: auth, secureCookie: secureCookie}
}

// Handle điều phối theo method + đường dẫn con (c.Param("path")).
func (ac *AuthController) Handle(c *gin.Context) {
	path := strings.Trim(c.Param("path"), "/")
	method := c.Request.Method

	switch {
	case path == "ok" && method == http.MethodGet:
		c.JSON(http.StatusOK, gin.H{"ok": true})
	case path == "sign-in/social" && method == http.MethodPost:
		ac.signInSocial(c)
	case strings.HasPrefix(path, "callback/"):
		ac.callback(c, strings.TrimPrefix(path, "callback/"))
	case path == "get-session" && method == http.MethodGet:
		ac.getSession(c)
	case path == "sign-out" && method == http.MethodPost:
		ac.signOut(c)
	case path == "list-sessions" && method == http.MethodGet:
		ac.withSession(c, ac.listSessions)
	case path == "revoke-session" && method == http.MethodPost:
		ac.withSession(c, ac.revokeSession)
	case path == "revoke-other-sessions" && method == http.MethodPost:
		ac.withSession(c, ac.revokeOtherSessions)
	case path == "error" && method == http.MethodGet:
		c.JSON(http.StatusOK, gin.H{"error": c.DefaultQuery("error", "unknown")})
	default:
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	}
}

// withSession chỉ gọi next khi request đã có session hợp lệ.
func (ac *AuthController) withSession(c *gin.Context, next gin.HandlerFunc) {
	if _, ok := middleware.CurrentSession(c); !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	next(c)
}

func (ac *AuthController) signInSocial(c *gin.Context) {
	var input services.SocialSignInInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	authURL, err := ac.auth.BeginSocialSignIn(c.Request.Context(), input)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUnsupportedProvider), errors.Is(err, services.ErrInvalidCallbackURL):
			c.JSON(http.StatusBadRequest, gin.H{"error": services.ErrorCode(err), "message": err.Error()})
		default:
			log.Printf("Lỗi khi bắt đầu đăng nhập %s: %v", input.Provider, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_server_error"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": authURL, "redirect": !input.DisableRedirect})
}

// callback nhận cả GET (query) và POST (form_post) từ nhà cung cấp.
func (ac *AuthController) callback(c *gin.Context, provider string) {
	code := c.Query("code")
	state := c.Query("state")
	providerErr := c.Query("error")
	if c.Request.Method == http.MethodPost {
		code = firstNonEmpty(c.PostForm("code"), code)
		state = firstNonEmpty(c.PostForm("state"), state)
		providerErr = firstNonEmpty(c.PostForm("error"), providerErr)
	}

	if providerErr != "" {
		errorURL := ac.auth.AbandonSocialSignIn(c.Request.Context(), provider, state)
		c.Redirect(http.StatusFound, ac.errorRedirect(errorURL, providerErr))
		return
	}
	if state == "" {
		c.Redirect(http.StatusFound, ac.errorRedirect("", "state_not_found"))
		return
	}

	result, err := ac.auth.CompleteSocialSignIn(c.Request.Context(), provider, state, code, services.ClientInfo{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		errorURL := ""
		var cbErr *services.CallbackError
		if errors.As(err, &cbErr) {
			errorURL = cbErr.ErrorURL
		}
		log.Printf("Callback %s thất bại: %v", provider, err)
		c.Redirect(http.StatusFound, ac.errorRedirect(errorURL, services.ErrorCode(err)))
		return
	}

	ac.setSessionCookie(c, result.Session.Token)
	c.Redirect(http.StatusFound, ac.auth.ResolveRedirect(result.RedirectURL))
}

func (ac *AuthController) getSession(c *gin.Context) {
	session, ok := middleware.CurrentSession(c)
	if !ok {
		c.JSON(http.StatusOK, nil)
		return
	}
	// Session vừa được gia hạn thì cấp lại cookie với Max-Age mới.
	if session.Refreshed {
		ac.setSessionCookie(c, session.Session.Token)
	}
	c.JSON(http.StatusOK, session)
}

func (ac *AuthController) signOut(c *gin.Context) {
	token := middleware.SessionToken(c)
	if err := ac.auth.SignOut(c.Request.Context(), token); err != nil {
		log.Printf("Lỗi khi đăng xuất: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_server_error"})
		return
	}
	ac.clearSessionCookie(c)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (ac *AuthController) listSessions(c *gin.Context) {
	sessions, err := ac.auth.ListSessions(c.Request.Context(), c.GetString(middleware.ContextUserID))
	if err != nil {
		log.Printf("Lỗi khi lấy danh sách session: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_server_error"})
		return
	}
	c.JSON(http.StatusOK, sessions)
}

type revokeSessionInput struct {
	Token string `json:"token" binding:"required"`
}

func (ac *AuthController) revokeSession(c *gin.Context) {
	var input revokeSessionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token is required"})
		return
	}

	err := ac.auth.RevokeSession(c.Request.Context(), c.GetString(middleware.ContextUserID), input.Token)
	if errors.Is(err, services.ErrSessionNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": services.ErrorCode(err)})
		return
	}
	if err != nil {
		log.Printf("Lỗi khi thu hồi session: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_server_error"})
		return
	}
	if input.Token == c.GetString(middleware.ContextToken) {
		ac.clearSessionCookie(c)
	}
	c.JSON(http.StatusOK, gin.H{"status": true})
}

func (ac *AuthController) revokeOtherSessions(c *gin.Context) {
	_, err := ac.auth.RevokeOtherSessions(c.Request.Context(), c.GetString(middleware.ContextUserID), c.GetString(middleware.ContextToken))
	if err != nil {
		log.Printf("Lỗi khi thu hồi các session khác: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_server_error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": true})
}

func (ac *AuthController) setSessionCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookieName, token, int(ac.auth.SessionTTL().Seconds()), "/", "", ac.secureCookie, true)
}

func (ac *AuthController) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookieName, "", -1, "/", "", ac.secureCookie, true)
}

// errorRedirect dựng URL lỗi: errorCallbackURL nếu có, ngược lại /api/auth/error.
func (ac *AuthController) errorRedirect(errorURL, code string) string {
	target := errorURL
	if target == "" {
		target = "/api/auth/error"
	}
	u, err := url.Parse(ac.auth.ResolveRedirect(target))
	if err != nil {
		return ac.auth.ResolveRedirect("/api/auth/error?error=" + url.QueryEscape(code))
	}
	q := u.Query()
	q.Set("error", code)
	u.RawQuery = q.Encode()
	return u.String()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
