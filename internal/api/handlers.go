package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"socialmedia/internal/metrics"
	"socialmedia/internal/models"
	"socialmedia/internal/service/account"
	"socialmedia/internal/service/message"
)

// Pinger reports store liveness for /healthz.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Handler wires HTTP routes to the account and message services.
type Handler struct {
	accounts *account.Service
	messages *message.Service
	db       Pinger
	log      logrus.FieldLogger
}

// NewHandler constructs a Handler instance.
func NewHandler(accounts *account.Service, messages *message.Service, db Pinger, log logrus.FieldLogger) *Handler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Handler{
		accounts: accounts,
		messages: messages,
		db:       db,
		log:      log,
	}
}

// RegisterRoutes attaches all HTTP routes to the router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.POST("/register", h.registerAccount)
	router.POST("/login", h.login)

	router.POST("/messages", h.createMessage)
	router.GET("/messages", h.listMessages)
	router.GET("/messages/:id", h.getMessage)
	router.DELETE("/messages/:id", h.deleteMessage)
	router.PATCH("/messages/:id", h.updateMessage)

	router.GET("/accounts/:id/messages", h.listAccountMessages)

	router.GET("/healthz", h.health)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) registerAccount(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		metrics.RecordRegistration(metrics.ResultInvalid)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	ctx := c.Request.Context()

	// Conflict is decided before validation; the pair is not atomic.
	if err := h.ensureUsernameAvailable(ctx, req.Username); err != nil {
		metrics.RecordRegistration(resultFromError(err))
		h.fail(c, err)
		return
	}
	acct, err := h.accounts.Register(ctx, models.Account{Username: req.Username, Password: req.Password})
	if err != nil {
		metrics.RecordRegistration(resultFromError(err))
		h.fail(c, err)
		return
	}
	metrics.RecordRegistration(metrics.ResultOK)
	c.JSON(http.StatusOK, acct)
}

func (h *Handler) ensureUsernameAvailable(ctx context.Context, username string) error {
	_, err := h.accounts.FindByUsername(ctx, username)
	switch {
	case err == nil:
		return account.ErrUsernameTaken
	case errors.Is(err, account.ErrAccountNotFound):
		return nil
	default:
		return err
	}
}

func (h *Handler) login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	acct, err := h.accounts.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, acct)
}

func (h *Handler) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := h.db.PingContext(ctx); err != nil {
		h.log.WithError(err).Error("health check failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// statusFromError maps service errors onto HTTP status codes.
// A missing message only reaches here from PATCH, where it is a client error.
func statusFromError(err error) int {
	switch {
	case errors.Is(err, account.ErrInvalidAccount),
		errors.Is(err, message.ErrInvalidMessage),
		errors.Is(err, message.ErrUnknownAuthor),
		errors.Is(err, message.ErrMessageNotFound):
		return http.StatusBadRequest
	case errors.Is(err, account.ErrUsernameTaken):
		return http.StatusConflict
	case errors.Is(err, account.ErrInvalidCredentials):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func resultFromError(err error) string {
	switch {
	case err == nil:
		return metrics.ResultOK
	case errors.Is(err, account.ErrUsernameTaken):
		return metrics.ResultConflict
	case errors.Is(err, message.ErrMessageNotFound):
		return metrics.ResultNotFound
	case statusFromError(err) == http.StatusInternalServerError:
		return metrics.ResultError
	default:
		return metrics.ResultInvalid
	}
}

func (h *Handler) fail(c *gin.Context, err error) {
	status := statusFromError(err)
	_ = c.Error(err)
	if status == http.StatusInternalServerError {
		h.log.WithError(err).WithField("path", c.FullPath()).Error("request failed")
		c.AbortWithStatusJSON(status, gin.H{"error": "internal server error"})
		return
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}
