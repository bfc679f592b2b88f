package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"bitbucket.org/mmdatafocus/stock_backend/config"
	"bitbucket.org/mmdatafocus/stock_backend/models"
	"bitbucket.org/mmdatafocus/stock_backend/store"
	"bitbucket.org/mmdatafocus/stock_backend/utils"
	"bitbucket.org/mmdatafocus/stock_backend/workflow"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const defaultPort = "8080"

const (
	actionGetInventory = "getInventory"
	actionTestTelegram = "testTelegram"
)

// Define a struct to represent the rate limiter.
type RateLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
}

type PubSubMessage struct {
	Message struct {
		Data []byte `json:"data,omitempty"`
		ID   string `json:"id"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

// server holds the service once the store is open; until then app endpoints answer 503.
type server struct {
	service atomic.Pointer[workflow.Service]
	logger  *logrus.Logger
}

func newServer(logger *logrus.Logger) *server {
	if logger == nil {
		logger = config.GetLogger()
	}
	return &server{logger: logger}
}

func (s *server) svc() *workflow.Service {
	return s.service.Load()
}

func getRedisClient(redisAddress string) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: redisAddress,
	})
	return client
}

func (s *server) router() *gin.Engine {
	r := gin.New()
	// Correlation IDs: generate once per request and attach to context.
	r.Use(func(c *gin.Context) {
		cid := c.GetHeader("x-correlation-id")
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Header("x-correlation-id", cid)
		ctx := utils.SetCorrelationIdInContext(c.Request.Context(), cid)
		ctx = utils.SetSourceInContext(ctx, "http")
		if op := strings.TrimSpace(c.GetHeader("x-operator")); op != "" {
			ctx = utils.SetOperatorInContext(ctx, op)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})
	r.Use(func(c *gin.Context) {
		switch c.Request.URL.Path {
		case "/healthz", "/metrics":
			c.Next()
			return
		}
		// Gate app endpoints on the store being open.
		if s.svc() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	corsConfig := cors.DefaultConfig()
	// Production-safe CORS:
	// - In production, require explicit allowlist via CORS_ALLOWED_ORIGINS (comma-separated).
	// - In non-production, allow all (developer convenience).
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if config.IsProduction() {
		if allowedOrigins == "" {
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "OPTIONS")
	corsConfig.AddAllowHeaders("Origin", "Content-Type", "x-correlation-id", "x-operator")
	corsConfig.AddExposeHeaders("Content-Length", "Content-Disposition")
	if !corsConfig.AllowAllOrigins {
		corsConfig.AllowCredentials = true
	}
	r.Use(cors.New(corsConfig))

	// Optional rate limiting (recommended for production).
	// Env:
	// - RATE_LIMIT_ENABLED=true
	// - RATE_LIMIT_WINDOW_SECONDS=60
	// - RATE_LIMIT_MAX_REQUESTS=600
	if strings.EqualFold(strings.TrimSpace(os.Getenv("RATE_LIMIT_ENABLED")), "true") {
		client := getRedisClient(os.Getenv("REDIS_ADDRESS"))
		limit := int64(600)
		if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_MAX_REQUESTS")); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
				limit = n
			}
		}
		windowSec := int64(60)
		if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_WINDOW_SECONDS")); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
				windowSec = n
			}
		}
		rateLimiter := NewRateLimiter(client, limit, time.Duration(windowSec)*time.Second)
		r.Use(rateLimiter.RateLimitMiddleware)
	}

	r.Use(customErrorLogger(s.logger))
	r.Use(gin.Recovery())

	r.GET("/", s.getHandler)
	r.POST("/", s.transactionHandler)
	r.POST("/products", s.createProductHandler)
	r.GET("/analytics", s.analyticsHandler)
	r.GET("/export.xlsx", s.exportHandler)
	r.POST("/pubsub/alerts", s.alertPubSubHandler)
	r.NoRoute(customNotFoundHandler)
	return r
}

// getHandler serves the dashboard reads: ?action=getInventory (default) and ?action=testTelegram.
func (s *server) getHandler(c *gin.Context) {
	svc := s.svc()
	ctx := c.Request.Context()
	action := c.Query("action")
	if action == "" {
		action = actionGetInventory
	}

	switch action {
	case actionGetInventory:
		snapshot, err := svc.Reader.GetInventory(ctx)
		if err != nil {
			config.LogError(s.logger, "server.go", "getHandler", "GetInventory", nil, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, snapshot)
	case actionTestTelegram:
		c.JSON(http.StatusOK, svc.Notifications.Test(ctx))
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown action " + strconv.Quote(action)})
	}
}

// transactionHandler answers 400 only when the body is not JSON; every other
// outcome is a {success, message} result.
func (s *server) transactionHandler(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		config.LogError(s.logger, "server.go", "transactionHandler", "io.ReadAll", nil, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read request body"})
		return
	}
	if !json.Valid(body) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "request body is not valid JSON"})
		return
	}

	var input models.NewTransaction
	if err := json.Unmarshal(body, &input); err != nil {
		config.LogWarn(s.logger, "server.go", "transactionHandler", "decode transaction: "+err.Error(), string(body))
		c.JSON(http.StatusOK, models.ProcessResult{
			Success: false,
			Message: fmt.Sprintf("%s: %s", models.ErrValidation, err),
		})
		return
	}
	c.JSON(http.StatusOK, s.svc().Processor.Process(c.Request.Context(), &input))
}

func (s *server) createProductHandler(c *gin.Context) {
	var input models.NewProduct
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	row, err := s.svc().CreateProduct(c.Request.Context(), &input)
	switch {
	case err == nil:
		c.JSON(http.StatusCreated, gin.H{
			"name":         row.Name,
			"unit":         row.Unit,
			"currentStock": models.NewQuantity(row.CurrentStock),
		})
	case errors.Is(err, models.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrProductExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		config.LogError(s.logger, "server.go", "createProductHandler", "CreateProduct", input, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func (s *server) analyticsHandler(c *gin.Context) {
	period, err := models.ParseAnalyticsPeriod(c.Query("period"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	report, err := s.svc().Analytics(c.Request.Context(), period)
	if err != nil {
		config.LogError(s.logger, "server.go", "analyticsHandler", "Analytics", period, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *server) exportHandler(c *gin.Context) {
	svc := s.svc()
	filename := fmt.Sprintf("stock-%s.xlsx", time.Now().In(svc.Location).Format("2006-01-02"))
	// Built in memory so a failure can still answer 500.
	var buf bytes.Buffer
	if err := svc.ExportWorkbook(c.Request.Context(), &buf); err != nil {
		config.LogError(s.logger, "server.go", "exportHandler", "ExportWorkbook", nil, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, utils.ContentTypeXLSX, buf.Bytes())
}

// alertPubSubHandler is the push endpoint for ALERT_PUBSUB_TOPIC. Malformed
// messages are acked; failed sends return 500 so Pub/Sub retries.
func (s *server) alertPubSubHandler(c *gin.Context) {
	var msg PubSubMessage

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		config.LogError(s.logger, "server.go", "alertPubSubHandler", "io.ReadAll", nil, err)
		c.Status(http.StatusNoContent)
		return
	}
	// byte slice unmarshalling handles base64 decoding.
	if err := json.Unmarshal(body, &msg); err != nil {
		config.LogError(s.logger, "server.go", "alertPubSubHandler", "Unmarshal body", string(body), err)
		c.Status(http.StatusNoContent)
		return
	}
	var ev models.AlertEvent
	if err := json.Unmarshal(msg.Message.Data, &ev); err != nil || strings.TrimSpace(ev.ProductName) == "" {
		if err == nil {
			err = errors.New("product_name required")
		}
		config.LogError(s.logger, "server.go", "alertPubSubHandler", "Unmarshal alert event", string(msg.Message.Data), err)
		c.Status(http.StatusNoContent)
		return
	}

	correlationID := ev.CorrelationId
	if correlationID == "" {
		correlationID = msg.Message.ID
	}
	ctx := utils.SetCorrelationIdInContext(c.Request.Context(), correlationID)
	ctx = utils.SetSourceInContext(ctx, "pubsub")
	fields := logrus.Fields{
		"field":          "alertPubSubHandler",
		"product":        ev.ProductName,
		"message_id":     msg.Message.ID,
		"correlation_id": correlationID,
	}
	err = s.svc().Dispatcher.Deliver(ctx, ev)
	switch {
	case err == nil:
		s.logger.WithFields(fields).Info("low-stock alert sent")
	case errors.Is(err, models.ErrNotificationSkipped):
		s.logger.WithFields(fields).Warn("low-stock alert skipped: telegram is not configured")
	default:
		s.logger.WithFields(fields).Error("low-stock alert failed: " + err.Error())
		// Non-2xx tells Pub/Sub to retry.
		c.Status(http.StatusInternalServerError)
		return
	}
	c.Status(http.StatusNoContent)
}

func customNotFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
}

func main() {
	port := os.Getenv("API_PORT")
	if port == "" {
		// Cloud Run standard env var.
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	// Cloud Run sends SIGTERM on revision shutdown; handle it for graceful drain.
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	app := newServer(logger)

	// Start listening immediately; app endpoints return 503 until the store is open.
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: app.router(),
	}
	serverErrCh := make(chan error, 1)
	go func() {
		// ListenAndServe returns http.ErrServerClosed on graceful shutdown.
		serverErrCh <- srv.ListenAndServe()
	}()

	// Redis is optional: it adds the snapshot cache and cross-replica product locks.
	if config.RedisEnabled() {
		config.ConnectRedisWithRetry()
	}
	st, err := store.Open(sigCtx, config.StoreDriver())
	if err != nil {
		logger.WithFields(logrus.Fields{
			"field":  "store",
			"driver": config.StoreDriver(),
		}).Fatal(err.Error())
	}
	if db := config.GetDB(); db != nil {
		if sqlDB, derr := db.DB(); derr == nil {
			defer sqlDB.Close()
		}
	}

	svc := workflow.NewService(st, workflow.ServiceOptionsFromEnv())
	dispatcherCtx, cancelDispatcher := context.WithCancel(context.Background())
	defer cancelDispatcher()
	svc.Dispatcher.Start(dispatcherCtx)
	app.service.Store(svc)

	logger.WithFields(logrus.Fields{
		"info":   "Connection Established",
		"driver": config.StoreDriver(),
	}).Info("stock backend listening on :", port)
	log.Println("Server started successfully")

	// Block until shutdown or server error.
	select {
	case <-sigCtx.Done():
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	// Drain HTTP requests first so their alerts still reach the queue.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}

	cancelDispatcher()
	svc.Dispatcher.Wait()

	// Close Redis (best-effort).
	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
}

// customErrorLogger is a custom Gin middleware that logs only errors
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Only log when there are errors
		if len(c.Errors) > 0 {
			logger.Error(c.Errors.String())
		}
	}
}

// Initialize a new RateLimiter instance.
func NewRateLimiter(client *redis.Client, limit int64, window time.Duration) *RateLimiter {
	return &RateLimiter{
		client: client,
		limit:  limit,
		window: window,
	}
}

// Middleware function to check rate limits.
func (rl *RateLimiter) RateLimitMiddleware(c *gin.Context) {
	key := "ratelimit:" + c.ClientIP()

	count, err := rl.client.Incr(c.Request.Context(), key).Result()
	if err != nil {
		// Limiter errors let the request through.
		c.Next()
		return
	}
	if count == 1 {
		rl.client.Expire(c.Request.Context(), key, rl.window)
	}

	if count > rl.limit {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error": fmt.Sprintf("Rate limit exceeded. Try again in %d seconds", int(rl.window.Seconds())),
		})
		return
	}

	c.Next()
}

func splitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
