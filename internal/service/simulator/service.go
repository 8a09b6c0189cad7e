package simulator

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tyrion/nucleus-sms-bridge/internal/gateway"
	"github.com/tyrion/nucleus-sms-bridge/internal/logger"
)

// gatewayRequest is the union of both payload shapes arriving at the gateway
// endpoint. The real gateway dispatches on shape; cmd="read" drains the
// inbound buffer, anything else is a send.
type gatewayRequest struct {
	Cmd     string   `json:"cmd"`
	Message string   `json:"message"`
	Numbers []string `json:"numbers"`
	AckCode string   `json:"ackCode"`
}

// inboundRequest is the body of POST /inbound, a simulated device reply.
type inboundRequest struct {
	Number  string `json:"number" binding:"required"`
	Message string `json:"message" binding:"required"`
}

// Service holds the simulator's in-memory state.
type Service struct {
	// mu protects inbox and outbox.
	mu sync.Mutex
	// inbox buffers injected device replies until the next read command.
	inbox []gateway.InboundMessage
	// outbox records every SMS the bridge sent, oldest first.
	outbox []gateway.SendRequest
}

// NewService creates an empty simulator.
func NewService() *Service {
	return &Service{}
}

// Router builds the gin engine serving the simulated gateway.
func (s *Service) Router() *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())

	engine.POST("/", s.handleGateway)
	engine.POST("/inbound", s.handleInbound)
	engine.GET("/outbox", s.handleOutbox)

	return engine
}

// Inject buffers a device reply stamped with the current time.
func (s *Service) Inject(number, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.inbox = append(s.inbox, gateway.InboundMessage{
		Number:    number,
		Message:   message,
		Timestamp: time.Now().UnixMilli(),
	})
}

// Sent returns a copy of every recorded send.
func (s *Service) Sent() []gateway.SendRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	sent := make([]gateway.SendRequest, len(s.outbox))
	copy(sent, s.outbox)

	return sent
}

// handleGateway serves the single gateway URL, dispatching on payload shape.
func (s *Service) handleGateway(c *gin.Context) {
	var request gatewayRequest
	if err := json.NewDecoder(c.Request.Body).Decode(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	if request.Cmd == "read" {
		c.JSON(http.StatusOK, gateway.ReadResponse{Messages: s.drain()})

		return
	}

	s.record(&request)

	logger.InfoKV(c.Request.Context(), "Simulated SMS sent",
		"numbers", request.Numbers, "ack_code", request.AckCode, "message", request.Message)

	c.JSON(http.StatusOK, gateway.SendResponse{Success: true})
}

// handleInbound buffers a simulated device reply.
func (s *Service) handleInbound(c *gin.Context) {
	var request inboundRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	s.Inject(request.Number, request.Message)

	c.JSON(http.StatusOK, gin.H{"status": "buffered"})
}

// handleOutbox lists every SMS the simulator accepted.
func (s *Service) handleOutbox(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"sent": s.Sent()})
}

// drain returns and clears the inbound buffer.
func (s *Service) drain() []gateway.InboundMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	drained := s.inbox
	s.inbox = nil

	return drained
}

// record appends a send to the outbox.
func (s *Service) record(request *gatewayRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.outbox = append(s.outbox, gateway.SendRequest{
		Message: request.Message,
		Numbers: request.Numbers,
		AckCode: request.AckCode,
	})
}
