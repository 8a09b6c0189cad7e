package bridge

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tyrion/nucleus-sms-bridge/internal/ack"
	domain "github.com/tyrion/nucleus-sms-bridge/internal/domain/alarm"
	"github.com/tyrion/nucleus-sms-bridge/internal/logger"
	"github.com/tyrion/nucleus-sms-bridge/internal/version"
)

// notifyContact mirrors one contact directory entry on the wire.
type notifyContact struct {
	Type  string `json:"type" binding:"required"`
	Value string `json:"value" binding:"required"`
}

// notifyUser identifies the recipient of a notification request.
type notifyUser struct {
	Name     string          `json:"name" binding:"required"`
	Contacts []notifyContact `json:"contacts"`
}

// notifyEvent is one alarm event included in a notification request.
type notifyEvent struct {
	ID          uuid.UUID `json:"id" binding:"required"`
	Source      string    `json:"source"`
	DisplayPath string    `json:"displayPath"`
	Acked       bool      `json:"acked"`
}

// notifyRequest is the body of POST /notify. Message is optional; when absent
// the profile renders its configured template for the batch.
type notifyRequest struct {
	User    notifyUser    `json:"user" binding:"required"`
	Events  []notifyEvent `json:"events" binding:"required,min=1"`
	Message string        `json:"message"`
}

// handler serves the bridge HTTP API for one profile instance.
type handler struct {
	// service is the outbound dispatcher.
	service *Service
	// registry is consulted for the pending count on the status endpoint.
	registry *ack.Registry
	// profileName identifies the profile in status responses.
	profileName string
}

// newRouter builds the gin engine serving the notify and status endpoints.
func newRouter(service *Service, registry *ack.Registry, profileName string) *gin.Engine {
	h := &handler{
		service:     service,
		registry:    registry,
		profileName: profileName,
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	engine.POST("/notify", h.notify)
	engine.GET("/status", h.status)

	return engine
}

// notify triggers one synchronous notification send. Concurrent requests are
// expected; the registry serializes the shared state underneath.
func (h *handler) notify(c *gin.Context) {
	var request notifyRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	user := toDomainUser(&request.User)
	events := toDomainEvents(request.Events)

	message := request.Message
	if message == "" {
		rendered, err := h.service.RenderMessage(events)
		if err != nil {
			logger.ErrorKV(c.Request.Context(), "Unable to render notification message", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

			return
		}

		message = rendered
	}

	if err := h.service.SendNotification(c.Request.Context(), user, events, message); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})

		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "sent",
		"test_mode": h.service.TestMode(),
	})
}

// status reports the profile's health surface.
func (h *handler) status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"profile": h.profileName,
		"pending": h.registry.Len(),
		"version": version.Short(),
	})
}

// toDomainUser converts the wire recipient into the domain model.
func toDomainUser(u *notifyUser) *domain.User {
	contacts := make([]domain.ContactInfo, 0, len(u.Contacts))

	for _, contact := range u.Contacts {
		contacts = append(contacts, domain.ContactInfo{
			Type:  domain.ContactType(contact.Type),
			Value: contact.Value,
		})
	}

	return &domain.User{
		Name:     u.Name,
		Contacts: contacts,
	}
}

// toDomainEvents converts the wire batch into the domain model.
func toDomainEvents(events []notifyEvent) []domain.Event {
	converted := make([]domain.Event, 0, len(events))

	for _, event := range events {
		converted = append(converted, domain.Event{
			ID:          event.ID,
			Source:      event.Source,
			DisplayPath: event.DisplayPath,
			Acked:       event.Acked,
		})
	}

	return converted
}
