package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Idosegev23/homeruncms-sub000/internal/queue"
	"github.com/Idosegev23/homeruncms-sub000/internal/services"
	"github.com/Idosegev23/homeruncms-sub000/internal/stats"
	"github.com/Idosegev23/homeruncms-sub000/internal/whatsapp"
)

// RestMessageHandler handles WhatsApp messaging requests: direct sends, the
// outbound queue, send statistics and chat utilities.
type RestMessageHandler struct {
	gateway      whatsapp.IClient
	messageQueue *queue.Queue
	tracker      *stats.Tracker
	inboxService services.IInboxService
}

// NewRestMessageHandler creates a new RestMessageHandler.
func NewRestMessageHandler(gateway whatsapp.IClient, messageQueue *queue.Queue, tracker *stats.Tracker, inboxService services.IInboxService) *RestMessageHandler {
	return &RestMessageHandler{
		gateway:      gateway,
		messageQueue: messageQueue,
		tracker:      tracker,
		inboxService: inboxService,
	}
}

// softLimitWarning returns a warning string when today's sends have reached
// the daily soft limit, empty otherwise. Sends are never blocked.
func (h *RestMessageHandler) softLimitWarning(c *gin.Context) string {
	over, err := h.tracker.OverSoftLimit(c.Request.Context())
	if err != nil {
		log.Printf("Failed to check send soft limit: %v", err)
		return ""
	}
	if over {
		return "חריגה ממכסת ההודעות היומית"
	}
	return ""
}

type sendMessageRequest struct {
	ChatID          string `json:"chat_id" binding:"required"`
	Message         string `json:"message" binding:"required"`
	QuotedMessageID string `json:"quoted_message_id"`
}

// SendMessage handles POST /v1/message/send — an immediate, non-queued send.
func (h *RestMessageHandler) SendMessage(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	warning := h.softLimitWarning(c)

	var res *whatsapp.SendResult
	var err error
	if req.QuotedMessageID != "" {
		res, err = h.gateway.SendQuoted(c.Request.Context(), req.ChatID, req.Message, req.QuotedMessageID)
	} else {
		res, err = h.gateway.SendMessage(c.Request.Context(), req.ChatID, req.Message)
	}
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to send message"})
		return
	}

	resp := gin.H{"id_message": res.IDMessage}
	if warning != "" {
		resp["warning"] = warning
	}
	c.JSON(http.StatusOK, resp)
}

// SendFile handles POST /v1/message/send-file — a multipart upload sent
// straight to the gateway.
func (h *RestMessageHandler) SendFile(c *gin.Context) {
	chatID := c.PostForm("chat_id")
	if chatID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "chat_id is required"})
		return
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read uploaded file"})
		return
	}
	defer file.Close()

	warning := h.softLimitWarning(c)

	res, err := h.gateway.SendFile(c.Request.Context(), chatID, fileHeader.Filename, file, c.PostForm("caption"))
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to send file"})
		return
	}

	resp := gin.H{"id_message": res.IDMessage}
	if warning != "" {
		resp["warning"] = warning
	}
	c.JSON(http.StatusOK, resp)
}

type enqueueMessageRequest struct {
	ChatID          string `json:"chat_id" binding:"required"`
	Type            string `json:"type"`
	Message         string `json:"message"`
	FileURL         string `json:"file_url"`
	FileName        string `json:"file_name"`
	Caption         string `json:"caption"`
	QuotedMessageID string `json:"quoted_message_id"`
}

// EnqueueMessage handles POST /v1/message/queue — adds a message to the
// outbound queue and kicks off a background drain.
func (h *RestMessageHandler) EnqueueMessage(c *gin.Context) {
	var req enqueueMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	warning := h.softLimitWarning(c)

	entry, err := h.messageQueue.Enqueue(c.Request.Context(), queue.Entry{
		ChatID:          req.ChatID,
		Type:            req.Type,
		Message:         req.Message,
		FileURL:         req.FileURL,
		FileName:        req.FileName,
		Caption:         req.Caption,
		QuotedMessageID: req.QuotedMessageID,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	// The drain outlives this request, so it must not use the request context.
	h.messageQueue.DrainAsync(context.Background())

	resp := gin.H{"entry": entry}
	if warning != "" {
		resp["warning"] = warning
	}
	c.JSON(http.StatusAccepted, resp)
}

// ListQueue handles GET /v1/message/queue
func (h *RestMessageHandler) ListQueue(c *gin.Context) {
	entries, err := h.messageQueue.Entries(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read queue"})
		return
	}
	c.JSON(http.StatusOK, entries)
}

// RemoveFromQueue handles DELETE /v1/message/queue/:id
func (h *RestMessageHandler) RemoveFromQueue(c *gin.Context) {
	if err := h.messageQueue.Remove(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, queue.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Queue entry not found"})
		} else {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove queue entry"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// DrainQueue handles POST /v1/message/queue/drain
func (h *RestMessageHandler) DrainQueue(c *gin.Context) {
	h.messageQueue.DrainAsync(context.Background())
	c.JSON(http.StatusAccepted, gin.H{"success": true})
}

// ListDeadLetters handles GET /v1/message/queue/dead
func (h *RestMessageHandler) ListDeadLetters(c *gin.Context) {
	entries, err := h.messageQueue.DeadLetters(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read dead letters"})
		return
	}
	c.JSON(http.StatusOK, entries)
}

// RequeueDeadLetter handles POST /v1/message/queue/dead/:id/requeue
func (h *RestMessageHandler) RequeueDeadLetter(c *gin.Context) {
	entry, err := h.messageQueue.RequeueDead(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, queue.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Dead-letter entry not found"})
		} else {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to requeue entry"})
		}
		return
	}
	h.messageQueue.DrainAsync(context.Background())
	c.JSON(http.StatusOK, gin.H{"entry": entry})
}

// GetStats handles GET /v1/message/stats
func (h *RestMessageHandler) GetStats(c *gin.Context) {
	snap, err := h.tracker.Read(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read statistics"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"daily_count": snap.DailyCount,
		"total_count": snap.TotalCount,
		"last_reset":  snap.LastReset,
		"soft_limit":  h.tracker.SoftLimit(),
	})
}

// GetChatHistory handles GET /v1/message/history/:chat_id
func (h *RestMessageHandler) GetChatHistory(c *gin.Context) {
	count, _ := strconv.Atoi(c.DefaultQuery("count", "100"))
	msgs, err := h.gateway.GetChatHistory(c.Request.Context(), c.Param("chat_id"), count)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to fetch chat history"})
		return
	}
	c.JSON(http.StatusOK, msgs)
}

// LastIncoming handles GET /v1/message/last-incoming
func (h *RestMessageHandler) LastIncoming(c *gin.Context) {
	minutes, _ := strconv.Atoi(c.DefaultQuery("minutes", "60"))
	msgs, err := h.gateway.LastIncomingMessages(c.Request.Context(), minutes)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to fetch incoming messages"})
		return
	}
	c.JSON(http.StatusOK, msgs)
}

// LastOutgoing handles GET /v1/message/last-outgoing
func (h *RestMessageHandler) LastOutgoing(c *gin.Context) {
	minutes, _ := strconv.Atoi(c.DefaultQuery("minutes", "60"))
	msgs, err := h.gateway.LastOutgoingMessages(c.Request.Context(), minutes)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to fetch outgoing messages"})
		return
	}
	c.JSON(http.StatusOK, msgs)
}

// ReadChat handles POST /v1/message/read/:chat_id
func (h *RestMessageHandler) ReadChat(c *gin.Context) {
	if err := h.gateway.ReadChat(c.Request.Context(), c.Param("chat_id")); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to mark chat as read"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// CheckWhatsApp handles GET /v1/message/check/:phone
func (h *RestMessageHandler) CheckWhatsApp(c *gin.Context) {
	exists := h.gateway.CheckWhatsApp(c.Request.Context(), c.Param("phone"))
	c.JSON(http.StatusOK, gin.H{"exists": exists})
}

// GetAvatar handles GET /v1/message/avatar/:chat_id
func (h *RestMessageHandler) GetAvatar(c *gin.Context) {
	avatar, err := h.gateway.GetAvatar(c.Request.Context(), c.Param("chat_id"))
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to fetch avatar"})
		return
	}
	if avatar == nil {
		c.JSON(http.StatusOK, gin.H{"available": false})
		return
	}
	c.JSON(http.StatusOK, avatar)
}

// ListInbox handles GET /v1/message/inbox
func (h *RestMessageHandler) ListInbox(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	msgs, err := h.inboxService.ListInbound(c.Request.Context(), limit)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list inbox"})
		return
	}
	c.JSON(http.StatusOK, msgs)
}

// ListCustomerInbox handles GET /v1/customer/:id/inbox
func (h *RestMessageHandler) ListCustomerInbox(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	msgs, err := h.inboxService.ListInboundForCustomer(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list customer inbox"})
		return
	}
	c.JSON(http.StatusOK, msgs)
}
