// Package handler holds the HTTP handlers of the push API.
package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	logdomain "push-delivery-plane/internal/deliverylog/domain"
	"push-delivery-plane/internal/dispatch"
	notifdomain "push-delivery-plane/internal/notification/domain"
)

// Sender fans one notification out to an organization's subscribers.
type Sender interface {
	Send(ctx context.Context, req *dispatch.FanoutRequest) (*dispatch.FanoutResult, error)
}

// HistoryReader lists past fan-out aggregates for an organization.
type HistoryReader interface {
	ListByOrg(ctx context.Context, orgID string, limit, offset int32) ([]*logdomain.Entry, error)
}

// PushHandler exposes fan-out dispatch and delivery history over HTTP.
type PushHandler struct {
	sender  Sender
	history HistoryReader
}

// NewPushHandler returns a handler dispatching through sender. history may
// be nil, in which case the history endpoint reports an empty list.
func NewPushHandler(sender Sender, history HistoryReader) *PushHandler {
	return &PushHandler{sender: sender, history: history}
}

// SendRequest is the body of POST /v1/push/send.
type SendRequest struct {
	OrgID            string               `json:"organization_id"`
	UserID           string               `json:"user_id"`
	Notification     *notifdomain.Payload `json:"notification"`
	PreferenceFilter map[string]bool      `json:"preferences_filter"`
}

// SendResponse reports the aggregate of one fan-out call. Success is true
// only when no attempted delivery failed.
type SendResponse struct {
	Success bool                          `json:"success"`
	Sent    int                           `json:"sent"`
	Failed  int                           `json:"failed"`
	Deleted int                           `json:"deleted"`
	Total   int                           `json:"total"`
	Results []dispatch.SubscriptionResult `json:"results"`
}

// Send handles POST /v1/push/send.
func (h *PushHandler) Send(c *gin.Context) {
	var req SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	res, err := h.sender.Send(c.Request.Context(), &dispatch.FanoutRequest{
		OrgID:            req.OrgID,
		UserID:           req.UserID,
		Notification:     req.Notification,
		PreferenceFilter: req.PreferenceFilter,
	})
	if err != nil {
		switch {
		case errors.Is(err, dispatch.ErrMissingOrg),
			errors.Is(err, notifdomain.ErrMissingTitle),
			errors.Is(err, notifdomain.ErrMissingBody):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, dispatch.ErrNotConfigured):
			c.JSON(http.StatusInternalServerError, gin.H{"error": "push delivery is not configured"})
		case errors.Is(err, dispatch.ErrDirectory):
			log.Printf("handler: subscription directory: %v", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "subscription directory unavailable"})
		default:
			log.Printf("handler: fan-out failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to dispatch notification"})
		}
		return
	}

	c.JSON(http.StatusOK, SendResponse{
		Success: res.Failed == 0,
		Sent:    res.Sent,
		Failed:  res.Failed,
		Deleted: res.Deleted,
		Total:   res.Total,
		Results: res.Results,
	})
}

// HistoryEntry is one row of GET /v1/push/log.
type HistoryEntry struct {
	ID        string `json:"id"`
	OrgID     string `json:"organization_id"`
	UserID    string `json:"user_id,omitempty"`
	Title     string `json:"title"`
	Sent      int    `json:"sent"`
	Failed    int    `json:"failed"`
	Deleted   int    `json:"deleted"`
	Total     int    `json:"total"`
	CreatedAt string `json:"created_at"`
}

// History handles GET /v1/push/log.
func (h *PushHandler) History(c *gin.Context) {
	orgID := c.Query("organization_id")
	if orgID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "organization_id is required"})
		return
	}

	limit := int32(20)
	offset := int32(0)
	if s := c.Query("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 && v <= 100 {
			limit = int32(v)
		}
	}
	if s := c.Query("offset"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			offset = int32(v)
		}
	}

	entries := make([]HistoryEntry, 0)
	if h.history != nil {
		rows, err := h.history.ListByOrg(c.Request.Context(), orgID, limit, offset)
		if err != nil {
			log.Printf("handler: list delivery log: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch delivery log"})
			return
		}
		for _, e := range rows {
			entries = append(entries, HistoryEntry{
				ID:        e.ID,
				OrgID:     e.OrgID,
				UserID:    e.UserID,
				Title:     e.Title,
				Sent:      e.Sent,
				Failed:    e.Failed,
				Deleted:   e.Deleted,
				Total:     e.Total,
				CreatedAt: e.CreatedAt.UTC().Format(time.RFC3339),
			})
		}
	}

	c.JSON(http.StatusOK, gin.H{"entries": entries, "count": len(entries), "offset": offset})
}
