package todos

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/todo-api/internal/logging"
	"github.com/yourusername/todo-api/internal/validation"
)

// Handler は /todos の HTTP ハンドラーです。
type Handler struct {
	repo   Repository
	logger logrus.FieldLogger
}

// NewHandler は Handler を作成します。
func NewHandler(repo Repository, logger logrus.FieldLogger) *Handler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Handler{repo: repo, logger: logger}
}

type createRequest struct {
	Title       string `json:"title" binding:"required,min=1"`
	IsCompleted bool   `json:"isCompleted"`
}

type updateRequest struct {
	Title       *string `json:"title" binding:"omitnil,min=1"`
	IsCompleted *bool   `json:"isCompleted"`
}

// Register はルートを登録します。
func (h *Handler) Register(group *gin.RouterGroup) {
	group.GET("", h.List)
	group.GET("/:id", h.Get)
	group.POST("", h.Create)
	group.PATCH("/:id", h.Update)
	group.DELETE("/:id", h.Delete)
}

// List は GET /todos のハンドラーです。
func (h *Handler) List(c *gin.Context) {
	todos, err := h.repo.List(c.Request.Context())
	if err != nil {
		h.fail(c, "Failed to fetch todos", err)
		return
	}
	c.JSON(http.StatusOK, todos)
}

// Get は GET /todos/:id のハンドラーです。
func (h *Handler) Get(c *gin.Context) {
	todo, err := h.repo.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "Failed to fetch todo", err)
		return
	}
	if todo == nil {
		notFound(c)
		return
	}
	c.JSON(http.StatusOK, todo)
}

// Create は POST /todos のハンドラーです。
func (h *Handler) Create(c *gin.Context) {
	var req createRequest
	if !validation.BindJSON(c, &req) {
		return
	}

	todo, err := h.repo.Create(c.Request.Context(), &Todo{
		Title:       req.Title,
		IsCompleted: req.IsCompleted,
	})
	if err != nil {
		h.fail(c, "Failed to create todo", err)
		return
	}
	c.JSON(http.StatusCreated, todo)
}

// Update は PATCH /todos/:id のハンドラーです。
func (h *Handler) Update(c *gin.Context) {
	var req updateRequest
	if !validation.BindJSON(c, &req) {
		return
	}

	todo, err := h.repo.Update(c.Request.Context(), c.Param("id"), Patch{
		Title:       req.Title,
		IsCompleted: req.IsCompleted,
	})
	if err != nil {
		h.fail(c, "Failed to update todo", err)
		return
	}
	if todo == nil {
		notFound(c)
		return
	}
	c.JSON(http.StatusOK, todo)
}

// Delete は DELETE /todos/:id のハンドラーです。
func (h *Handler) Delete(c *gin.Context) {
	todo, err := h.repo.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "Failed to delete todo", err)
		return
	}
	if todo == nil {
		notFound(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Todo deleted successfully"})
}

func (h *Handler) fail(c *gin.Context, message string, err error) {
	logging.LogError(logging.FromContext(c, h.logger), message, err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": message})
}

func notFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "Todo not found"})
}
