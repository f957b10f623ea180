package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"socialmedia/internal/metrics"
	"socialmedia/internal/models"
	"socialmedia/internal/service/message"
)

type messageRequest struct {
	PostedBy    int64  `json:"postedBy"`
	MessageText string `json:"messageText"`
	TimePosted  int64  `json:"timePosted"`
}

type updateMessageRequest struct {
	MessageText string `json:"messageText"`
}

func (h *Handler) createMessage(c *gin.Context) {
	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		metrics.RecordMessageOperation("create", metrics.ResultInvalid)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	msg, err := h.messages.Add(c.Request.Context(), models.Message{
		PostedBy:    req.PostedBy,
		MessageText: req.MessageText,
		TimePosted:  req.TimePosted,
	})
	metrics.RecordMessageOperation("create", resultFromError(err))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, msg)
}

func (h *Handler) listMessages(c *gin.Context) {
	messages, err := h.messages.GetAll(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, messages)
}

// getMessage answers 200 with an empty body when the id is unknown.
func (h *Handler) getMessage(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	msg, err := h.messages.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, message.ErrMessageNotFound) {
			emptyOK(c)
			return
		}
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, msg)
}

// deleteMessage answers 200 with the count, or an empty body when nothing was deleted.
func (h *Handler) deleteMessage(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	n, err := h.messages.DeleteByID(c.Request.Context(), id)
	if err != nil {
		metrics.RecordMessageOperation("delete", metrics.ResultError)
		h.fail(c, err)
		return
	}
	if n == 0 {
		metrics.RecordMessageOperation("delete", metrics.ResultNotFound)
		emptyOK(c)
		return
	}
	metrics.RecordMessageOperation("delete", metrics.ResultOK)
	c.JSON(http.StatusOK, n)
}

// updateMessage treats an unknown id as a bad request, unlike get and delete.
func (h *Handler) updateMessage(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req updateMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		metrics.RecordMessageOperation("update", metrics.ResultInvalid)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	n, err := h.messages.UpdateTextByID(c.Request.Context(), id, req.MessageText)
	metrics.RecordMessageOperation("update", resultFromError(err))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, n)
}

func (h *Handler) listAccountMessages(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	messages, err := h.messages.GetAllByAccount(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, messages)
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func emptyOK(c *gin.Context) {
	c.Status(http.StatusOK)
	c.Writer.WriteHeaderNow()
}
