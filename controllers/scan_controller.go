package controllers

import (
	"errors"
	"log"
	"net/http"
	"time"

	"go_scanner_project/models"
	"go_scanner_project/services/scanner"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// StreamInterval is how often the progress stream pushes a status snapshot.
const StreamInterval = 1 * time.Second

// ScanController handles scan job submission, polling and streaming
type ScanController struct {
	scanner  *scanner.Service
	upgrader websocket.Upgrader
}

// NewScanController creates a new scan controller
func NewScanController(svc *scanner.Service) *ScanController {
	return &ScanController{
		scanner: svc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Submit accepts a scan request and returns the new job id
// POST /api/v1/scans
func (sc *ScanController) Submit(c *gin.Context) {
	var req scanner.ScanRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id, err := sc.scanner.Submit(req)
	if err != nil {
		if errors.Is(err, scanner.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"scan_id": id,
		"state":   models.ScanPending,
	})
}

// GetStatus returns the current snapshot of one scan
// GET /api/v1/scans/:id
func (sc *ScanController) GetStatus(c *gin.Context) {
	status, err := sc.scanner.Status(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, status)
}

// GetResults returns the ordered match set of a finished scan
// GET /api/v1/scans/:id/results
func (sc *ScanController) GetResults(c *gin.Context) {
	results, err := sc.scanner.Results(c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, scanner.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, scanner.ErrNotFinished):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  results,
		"total": len(results),
	})
}

// Cancel requests cooperative cancellation of a running scan
// POST /api/v1/scans/:id/cancel
func (sc *ScanController) Cancel(c *gin.Context) {
	id := c.Param("id")

	if err := sc.scanner.Cancel(id); err != nil {
		switch {
		case errors.Is(err, scanner.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, scanner.ErrAlreadyTerminal):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"scan_id": id,
		"state":   models.ScanCancelled,
	})
}

// List returns snapshots of every known scan, newest first
// GET /api/v1/scans
func (sc *ScanController) List(c *gin.Context) {
	statuses := sc.scanner.List()
	c.JSON(http.StatusOK, gin.H{
		"data":  statuses,
		"total": len(statuses),
	})
}

// Stream pushes status snapshots over a WebSocket once per second until the
// scan reaches a terminal state, then sends the final snapshot and closes
// GET /api/v1/scans/:id/stream
func (sc *ScanController) Stream(c *gin.Context) {
	id := c.Param("id")

	enabled, err := sc.scanner.ProgressEnabled(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if !enabled {
		c.JSON(http.StatusConflict, gin.H{"error": "scan was not submitted with enable_progress"})
		return
	}

	conn, err := sc.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Failed to upgrade stream for scan %s: %v", id, err)
		return
	}
	defer conn.Close()

	// Drain reads so close frames from the client end the stream.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(StreamInterval)
	defer ticker.Stop()

	for {
		status, err := sc.scanner.Status(id)
		if err != nil {
			// Job evicted mid-stream.
			return
		}

		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteJSON(status); err != nil {
			return
		}
		if status.State.Terminal() {
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, string(status.State)))
			return
		}

		select {
		case <-ticker.C:
		case <-done:
			return
		}
	}
}
