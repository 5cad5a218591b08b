package main

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ComposeRequest carries the personalization inputs for a greeting fragment.
type ComposeRequest struct {
	Description  string `json:"description" binding:"required"`
	Relationship string `json:"relationship"`
}

// ComposeResponse returns the composed fragment.
type ComposeResponse struct {
	Text        string    `json:"text"`
	ComposerID  string    `json:"composer_id"`
	ProcessedAt time.Time `json:"processed_at"`
}

// HealthResponse represents health check response
type HealthResponse struct {
	Status     string    `json:"status"`
	ComposerID string    `json:"composer_id"`
	Timestamp  time.Time `json:"timestamp"`
}

// MockComposer simulates a text generation service
type MockComposer struct {
	failureRate float64
	minDelay    time.Duration
	maxDelay    time.Duration
	composerID  string
	rng         *rand.Rand
}

// NewMockComposer creates a new mock composer instance
func NewMockComposer(failureRate float64, minDelay, maxDelay time.Duration) *MockComposer {
	return &MockComposer{
		failureRate: failureRate,
		minDelay:    minDelay,
		maxDelay:    maxDelay,
		composerID:  "MOCK_COMPOSER_" + uuid.New().String()[:8],
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

var openings = []string{
	"Every single day, I find myself thinking about %s.",
	"If I had to pick one thing, it would be %s.",
	"There are a thousand reasons, but above all it is %s.",
	"What stays with me, always, is %s.",
}

var closingsByRelationship = map[string][]string{
	"spouse": {
		"Growing old with you is the best plan I ever made.",
		"Home is wherever you are.",
	},
	"girlfriend": {
		"You make ordinary days feel like celebrations.",
		"I fall for you a little more every day.",
	},
	"boyfriend": {
		"You make everything lighter just by being there.",
		"I am so lucky it is you.",
	},
	"crush": {
		"I hope this makes you smile the way you make me smile.",
		"Maybe one day I will say this in person.",
	},
	"friend": {
		"Friends like you do not come around twice.",
		"Here is to many more years of this.",
	},
	"colleague": {
		"It is a genuine pleasure working alongside you.",
		"Thanks for making the office a better place.",
	},
	"boss": {
		"Thank you for the guidance and the trust.",
		"It is a privilege to learn from you.",
	},
}

// compose builds a short personalized fragment from the request.
func (m *MockComposer) compose(req *ComposeRequest) string {
	opening := fmt.Sprintf(openings[m.rng.Intn(len(openings))], strings.TrimSpace(req.Description))

	closings, ok := closingsByRelationship[req.Relationship]
	if !ok {
		closings = closingsByRelationship["friend"]
	}
	closing := closings[m.rng.Intn(len(closings))]

	return opening + " " + closing
}

func (m *MockComposer) randomDelay() time.Duration {
	delta := m.maxDelay - m.minDelay
	if delta <= 0 {
		return m.minDelay
	}
	return m.minDelay + time.Duration(m.rng.Int63n(int64(delta)))
}

func (m *MockComposer) shouldFail() bool {
	return m.rng.Float64() < m.failureRate
}

// Handler struct holds the mock composer and routes
type Handler struct {
	composer *MockComposer
}

func NewHandler(composer *MockComposer) *Handler {
	return &Handler{composer: composer}
}

// Compose handles compose requests
func (h *Handler) Compose(c *gin.Context) {
	var req ComposeRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	log.Info().
		Str("relationship", req.Relationship).
		Str("description", req.Description).
		Msg("Received compose request")

	// Simulate generation latency
	time.Sleep(h.composer.randomDelay())

	if h.composer.shouldFail() {
		log.Warn().Str("relationship", req.Relationship).Msg("Compose failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Composer temporarily unavailable",
		})
		return
	}

	c.JSON(http.StatusOK, ComposeResponse{
		Text:        h.composer.compose(&req),
		ComposerID:  h.composer.composerID,
		ProcessedAt: time.Now(),
	})
}

// HealthCheck handles health check requests
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:     "healthy",
		ComposerID: h.composer.composerID,
		Timestamp:  time.Now(),
	})
}

// SetupRouter configures all routes
func SetupRouter(handler *Handler) *gin.Engine {
	router := gin.Default()

	// Add request logging middleware
	router.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)

		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", duration).
			Msg("Request processed")
	})

	// API routes
	v1 := router.Group("/api/v1")
	{
		v1.POST("/compose", handler.Compose)
		v1.GET("/health", handler.HealthCheck)
	}

	// Root health check
	router.GET("/health", handler.HealthCheck)

	return router
}

func main() {
	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Get configuration from environment
	port := getEnv("PORT", "8082")
	failureRate := getEnvFloat("FAILURE_RATE", 0)
	minDelay := getEnvDuration("MIN_DELAY", 100*time.Millisecond)
	maxDelay := getEnvDuration("MAX_DELAY", 1*time.Second)

	log.Info().
		Str("port", port).
		Float64("failure_rate", failureRate).
		Dur("min_delay", minDelay).
		Dur("max_delay", maxDelay).
		Msg("Starting Mock Greeting Composer")

	// Create mock composer
	composer := NewMockComposer(failureRate, minDelay, maxDelay)
	handler := NewHandler(composer)
	router := SetupRouter(handler)

	// Setup HTTP server
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		var f float64
		if _, err := fmt.Sscanf(value, "%f", &f); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
