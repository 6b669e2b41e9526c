package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/muurk/adax/internal/adax"
	"github.com/muurk/adax/internal/logging"
	"github.com/muurk/adax/internal/version"
)

// targetRequest is the body of POST /api/v1/rooms/:id/target.
// Body example: {"temperature":21.5,"heatingEnabled":true}
type targetRequest struct {
	Temperature    *float64 `json:"temperature" binding:"required"`
	HeatingEnabled *bool    `json:"heatingEnabled"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// initRoutes builds the Gin router with all routes registered.
func (s *Server) initRoutes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger())

	router.GET("/health", s.health)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))
	router.GET("/ws", s.wsRooms)

	api := router.Group("/api/v1")
	{
		api.GET("/homes", s.getHomes)
		api.GET("/rooms", s.getRooms)
		api.GET("/rooms/:id", s.getRoom)
		api.GET("/devices", s.getDevices)
		api.GET("/energy", s.getEnergy)
		api.POST("/rooms/:id/target", s.setTarget)
	}

	return router
}

// requestLogger logs every request through zap and counts it
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		s.metrics.requests.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		logging.LogHTTPRequest(c.ClientIP(), c.Request.Method, route, status, time.Since(start))
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":       "ok",
		"version":      version.Version,
		"writePending": s.backend.WritePending(),
	})
}

func (s *Server) getHomes(c *gin.Context) {
	c.JSON(http.StatusOK, s.backend.GetHomes(c.Request.Context()))
}

func (s *Server) getRooms(c *gin.Context) {
	c.JSON(http.StatusOK, s.backend.GetRooms(c.Request.Context()))
}

func (s *Server) getRoom(c *gin.Context) {
	id, ok := roomID(c)
	if !ok {
		return
	}
	for _, room := range s.backend.GetRooms(c.Request.Context()) {
		if room.ID == id {
			c.JSON(http.StatusOK, room)
			return
		}
	}
	c.JSON(http.StatusNotFound, errorResponse{Error: "room not found"})
}

func (s *Server) getDevices(c *gin.Context) {
	c.JSON(http.StatusOK, s.backend.GetDevices(c.Request.Context()))
}

func (s *Server) getEnergy(c *gin.Context) {
	c.JSON(http.StatusOK, s.backend.GetEnergy(c.Request.Context()))
}

// setTarget queues a setpoint and answers once the flush carrying it completes
func (s *Server) setTarget(c *gin.Context) {
	id, ok := roomID(c)
	if !ok {
		return
	}

	var req targetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	update := adax.RoomUpdate{
		ID:                id,
		TargetTemperature: *req.Temperature,
		HeatingEnabled:    req.HeatingEnabled,
	}
	if err := s.backend.SetRoom(c.Request.Context(), update); err != nil {
		logging.Warn("Setpoint request failed",
			zap.Int("room_id", id),
			zap.Float64("temperature", *req.Temperature),
			zap.Error(err),
		)
		c.JSON(statusFor(err), errorResponse{Error: adax.ShortMessage(err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":                id,
		"targetTemperature": *req.Temperature,
		"heatingEnabled":    req.HeatingEnabled,
	})
}

func roomID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid room id"})
		return 0, false
	}
	return id, true
}

// statusFor maps an upstream failure onto the bridge's answer
func statusFor(err error) int {
	switch {
	case adax.IsRateLimited(err):
		return http.StatusTooManyRequests
	case adax.IsHard(err):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}
