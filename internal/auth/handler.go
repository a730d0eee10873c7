package auth

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/todo-api/internal/config"
	"github.com/yourusername/todo-api/internal/logging"
	"github.com/yourusername/todo-api/internal/metrics"
	"github.com/yourusername/todo-api/internal/users"
	"github.com/yourusername/todo-api/internal/validation"
)

// TokenCookieName はセッショントークンを入れるクッキー名です。
const TokenCookieName = "token"

// ContextIdentityKey は、ハンドラー間で検証済みの Identity を共有するためのキーです。
const ContextIdentityKey = "auth.identity"

// Handler は /auth/* の HTTP ハンドラーとミドルウェアをまとめた構造体です。
type Handler struct {
	cfg     *config.Config
	service *Service
	limiter LoginLimiter
	logger  logrus.FieldLogger
	metrics *metrics.Metrics
}

// NewHandler は Handler を作成します。limiter が nil の場合は試行回数制限を行いません。
func NewHandler(cfg *config.Config, service *Service, limiter LoginLimiter, logger logrus.FieldLogger, m *metrics.Metrics) *Handler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Handler{
		cfg:     cfg,
		service: service,
		limiter: limiter,
		logger:  logger,
		metrics: m,
	}
}

type signupRequest struct {
	Firstname string       `json:"firstname" binding:"required"`
	Lastname  string       `json:"lastname" binding:"required"`
	Email     string       `json:"email" binding:"required,email"`
	Password  string       `json:"password" binding:"required,min=8"`
	Gender    users.Gender `json:"gender" binding:"required,oneof=MEN WOMEN OTHER"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Signup は POST /auth/signup のハンドラーです。
// 登録に成功したらそのままログイン状態にします。
func (h *Handler) Signup(c *gin.Context) {
	var req signupRequest
	if !validation.BindJSON(c, &req) {
		return
	}

	// 登録後にトークンを発行できないと、ユーザーだけが残ってしまう
	if err := h.service.TokenReady(); err != nil {
		h.metrics.AuthEvent("signup", "error")
		h.respondServerError(c, "signup refused", err)
		return
	}

	user, err := h.service.Signup(c.Request.Context(), SignupInput{
		Firstname: req.Firstname,
		Lastname:  req.Lastname,
		Email:     req.Email,
		Password:  req.Password,
		Gender:    req.Gender,
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			h.metrics.AuthEvent("signup", "duplicate")
			c.JSON(http.StatusConflict, gin.H{"message": "Email already in use"})
			return
		}
		h.metrics.AuthEvent("signup", "error")
		h.respondServerError(c, "signup failed", err)
		return
	}

	token, err := h.service.IssueToken(user)
	if err != nil {
		h.metrics.AuthEvent("signup", "error")
		h.respondServerError(c, "token issuance after signup failed", err)
		return
	}

	h.metrics.AuthEvent("signup", "success")
	h.respondWithToken(c, http.StatusCreated, user, token)
}

// Login は POST /auth/login のハンドラーです。
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if !validation.BindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	ip := c.ClientIP()
	if h.limiter != nil {
		retryAfter, err := h.limiter.Check(ctx, ip)
		if err != nil {
			// 制限の状態が読めなくてもログイン自体は継続する
			logging.LogError(logging.FromContext(c, h.logger), "login limiter check failed", err)
		}
		if retryAfter > 0 {
			h.metrics.AuthEvent("login", "locked")
			// Retry-After は秒数で返す（端数は切り上げ）
			c.Header("Retry-After", strconv.FormatInt(int64(math.Ceil(retryAfter.Seconds())), 10))
			c.JSON(http.StatusTooManyRequests, gin.H{"message": "Too many login attempts"})
			return
		}
	}

	user, token, err := h.service.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			h.metrics.AuthEvent("login", "invalid_credentials")
			if h.limiter != nil {
				if lerr := h.limiter.RecordFailure(ctx, ip); lerr != nil {
					logging.LogError(logging.FromContext(c, h.logger), "login limiter record failed", lerr)
				}
			}
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid credentials"})
			return
		}
		h.metrics.AuthEvent("login", "error")
		h.respondServerError(c, "login failed", err)
		return
	}

	if h.limiter != nil {
		if err := h.limiter.Reset(ctx, ip); err != nil {
			logging.LogError(logging.FromContext(c, h.logger), "login limiter reset failed", err)
		}
	}

	h.metrics.AuthEvent("login", "success")
	h.respondWithToken(c, http.StatusOK, user, token)
}

// Me は GET /auth/me のハンドラーです。RequireAuth の後ろで使います。
func (h *Handler) Me(c *gin.Context) {
	identity, ok := IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "No token provided"})
		return
	}

	user, err := h.service.GetByID(c.Request.Context(), identity.SubjectID)
	if err != nil {
		h.respondServerError(c, "session lookup failed", err)
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "User not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

// Logout は POST /auth/logout のハンドラーです。
// サーバー側に失効リストはないため、クッキーを消すだけです。
func (h *Handler) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(TokenCookieName, "", -1, "/", "", h.cfg.IsRelease(), true)
	h.metrics.AuthEvent("logout", "success")
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

// RequireAuth はトークンを検証するミドルウェアを返します。
// token クッキーと Authorization: Bearer ヘッダーのどちらかが有効であれば通します。
func (h *Handler) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokens := extractTokens(c)
		if len(tokens) == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "No token provided"})
			return
		}

		// 古いクッキーが残っていても、有効な Bearer ヘッダーがあればそちらで認証する
		var (
			identity Identity
			err      error
		)
		for _, token := range tokens {
			identity, err = h.service.VerifyToken(token)
			if err == nil || errors.Is(err, ErrConfiguration) {
				break
			}
		}
		if err != nil {
			if errors.Is(err, ErrConfiguration) {
				h.logConfigurationError(c, err)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Server configuration error"})
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid token"})
			return
		}

		c.Set(ContextIdentityKey, identity)
		c.Next()
	}
}

// IdentityFrom は RequireAuth が保存した Identity を取り出します。
func IdentityFrom(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(ContextIdentityKey)
	if !ok {
		return Identity{}, false
	}
	identity, ok := v.(Identity)
	return identity, ok
}

func (h *Handler) respondWithToken(c *gin.Context, status int, user *users.User, token string) {
	body := gin.H{"user": user}
	if h.cfg.TokenTransport == config.TransportBearer {
		body["token"] = token
	} else {
		c.SetSameSite(http.SameSiteStrictMode)
		c.SetCookie(TokenCookieName, token, h.service.TokenMaxAgeSeconds(), "/", "", h.cfg.IsRelease(), true)
	}
	c.JSON(status, body)
}

func (h *Handler) respondServerError(c *gin.Context, msg string, err error) {
	if errors.Is(err, ErrConfiguration) {
		h.logConfigurationError(c, err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server configuration error"})
		return
	}
	logging.LogError(logging.FromContext(c, h.logger), msg, err)
	c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
}

func (h *Handler) logConfigurationError(c *gin.Context, err error) {
	logging.FromContext(c, h.logger).WithError(err).Error("server misconfiguration: token signing secret is missing")
}

// extractTokens は token クッキーと Bearer ヘッダーの順に候補を返します。
func extractTokens(c *gin.Context) []string {
	var tokens []string
	if cookie, err := c.Cookie(TokenCookieName); err == nil && cookie != "" {
		tokens = append(tokens, cookie)
	}
	if token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer "); ok {
		if token = strings.TrimSpace(token); token != "" {
			tokens = append(tokens, token)
		}
	}
	return tokens
}
