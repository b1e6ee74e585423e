package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/uchef/uchef-backend/internal/realtime"
	"github.com/uchef/uchef-backend/internal/services"
	"gorm.io/gorm"
)

// NotificationController handles HTTP requests for in-app notifications
type NotificationController interface {
	GetAll(c *gin.Context)
	GetUnread(c *gin.Context)
	MarkAsRead(c *gin.Context)
	MarkAllAsRead(c *gin.Context)
	// Stream upgrades the connection to a websocket that receives the
	// caller's notifications as they are created
	Stream(c *gin.Context)
}

type notificationController struct {
	service services.NotificationService
	hub     *realtime.Hub
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browser clients are authenticated by the bearer token, not origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// NewNotificationController creates a new instance of NotificationController
func NewNotificationController(service services.NotificationService, hub *realtime.Hub) *notificationController {
	return &notificationController{service: service, hub: hub}
}

// GetAll godoc
// @Summary List notifications
// @Description List the caller's notifications, newest first
// @Tags notifications
// @Produce json
// @Success 200 {array} models.Notification
// @Security BearerAuth
// @Router /api/v1/notifications [get]
func (c *notificationController) GetAll(ctx *gin.Context) {
	actor, ok := actorFromContext(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	notifications, err := c.service.ListForUser(actor.UserID)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve notifications"})
		return
	}
	ctx.JSON(http.StatusOK, notifications)
}

// GetUnread godoc
// @Summary List unread notifications
// @Tags notifications
// @Produce json
// @Success 200 {array} models.Notification
// @Security BearerAuth
// @Router /api/v1/notifications/unread [get]
func (c *notificationController) GetUnread(ctx *gin.Context) {
	actor, ok := actorFromContext(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	notifications, err := c.service.Unread(actor.UserID)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve notifications"})
		return
	}
	ctx.JSON(http.StatusOK, notifications)
}

// MarkAsRead godoc
// @Summary Mark a notification as read
// @Tags notifications
// @Produce json
// @Param id path int true "Notification ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /api/v1/notifications/{id}/read [post]
func (c *notificationController) MarkAsRead(ctx *gin.Context) {
	actor, ok := actorFromContext(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid notification ID format"})
		return
	}

	if err := c.service.MarkAsRead(actor.UserID, uint(id)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mark notification as read"})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "read"})
}

// MarkAllAsRead godoc
// @Summary Mark all notifications as read
// @Tags notifications
// @Produce json
// @Success 200 {object} map[string]string
// @Security BearerAuth
// @Router /api/v1/notifications/read-all [post]
func (c *notificationController) MarkAllAsRead(ctx *gin.Context) {
	actor, ok := actorFromContext(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	if err := c.service.MarkAllAsRead(actor.UserID); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mark notifications as read"})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "read"})
}

// Stream upgrades to a websocket and registers the connection with the hub.
// The connection is read until the client closes it; server-side writes
// happen from the hub when notifications are created.
func (c *notificationController) Stream(ctx *gin.Context) {
	actor, ok := actorFromContext(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	conn, err := wsUpgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		return
	}

	client := &realtime.Client{UserID: actor.UserID, Conn: conn}
	c.hub.Register(client)
	defer c.hub.Unregister(client)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
