package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"foodbridge/internal/attendance"
	"foodbridge/internal/auth"
	"foodbridge/internal/capacity"
	"foodbridge/internal/config"
	"foodbridge/internal/forecast"
	"foodbridge/internal/httpmiddleware"
	"foodbridge/internal/metrics"
	"foodbridge/internal/pickup"
	"foodbridge/internal/proofstore"
	"foodbridge/internal/queue"
	"foodbridge/internal/receipt"
	"foodbridge/internal/reliability"
	"foodbridge/internal/store"
	"foodbridge/internal/surplus"
	"foodbridge/internal/votes"
)

func main() {
	cfg := config.Load()

	// Set Gin mode based on environment
	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

// engine bundles the decision-engine services the handlers call into.
type engine struct {
	attendance *attendance.Service
	votes      *votes.Service
	listings   *surplus.Service
	ledger     *capacity.Ledger
	pickups    *pickup.Service
	receipts   *receipt.Issuer
	tracker    *reliability.Tracker
}

// buildEngine wires the services over Postgres when reachable, or the
// in-memory stores for local development.
func buildEngine(cfg config.App, db *store.DB, redisClient *store.Redis) *engine {
	var (
		attStore  attendance.Store
		voteStore votes.Store
		listStore surplus.Store
		capStore  capacity.Store
		pickStore pickup.Store
		rcptStore receipt.Store
	)
	if db != nil && db.Client != nil {
		attStore = attendance.NewRepository(db.Client)
		voteStore = votes.NewRepository(db.Client)
		listStore = surplus.NewRepository(db.Client)
		capStore = capacity.NewRepository(db.Client)
		pickStore = pickup.NewRepository(db.Client)
		rcptStore = receipt.NewRepository(db.Client)
	} else {
		log.Println("db unavailable, using in-memory stores (state is not persisted)")
		attStore = attendance.NewMemoryStore()
		voteStore = votes.NewMemoryStore()
		listStore = surplus.NewMemoryStore()
		capStore = capacity.NewMemoryStore()
		pickStore = pickup.NewMemoryStore()
		rcptStore = receipt.NewMemoryStore()
	}

	listings := surplus.NewService(listStore)
	ledger := capacity.NewLedger(capStore, cfg.DefaultCapacity, cfg.DefaultVolunteers)
	issuer := receipt.NewIssuer(rcptStore)
	pickups := pickup.NewService(pickStore, listings, ledger, issuer, cfg.AbandonAfterProof)
	return &engine{
		attendance: attendance.NewService(attStore),
		votes:      votes.NewService(voteStore, redisClient.Client),
		listings:   listings,
		ledger:     ledger,
		pickups:    pickups,
		receipts:   issuer,
		tracker:    reliability.NewTracker(pickups),
	}
}

func runHTTP(cfg config.App) error {
	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Printf("warning: db not reachable: %v", err)
		db = nil
	}
	defer func() {
		if db != nil {
			_ = db.Close()
		}
	}()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "foodbridge:events")
	}

	eng := buildEngine(cfg, db, redisClient)

	// Proof image storage (nil when not configured)
	var proofClient *proofstore.Client
	if cfg.CloudinaryCloudName != "" && cfg.CloudinaryAPIKey != "" && cfg.CloudinaryAPISecret != "" {
		proofClient = proofstore.New(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
		log.Println("proof storage configured:", cfg.CloudinaryCloudName)
	} else {
		log.Println("proof storage not configured (CLOUDINARY_CLOUD_NAME / API_KEY / API_SECRET not set)")
	}

	r := gin.New()

	// Recovery middleware
	r.Use(gin.Recovery())

	// Custom logger
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))

	// CORS middleware
	r.Use(corsMiddleware())

	// Security headers
	r.Use(securityHeaders())

	// Rate limiting
	r.Use(httpmiddleware.NewSimpleTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin).GinMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/healthz", func(c *gin.Context) {
		redisHealthy := redisClient.Healthy(c.Request.Context())
		dbHealthy := db != nil && db.Client.PingContext(c.Request.Context()) == nil
		status := http.StatusOK
		if !redisHealthy || !dbHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "redis": redisHealthy, "db": dbHealthy})
	})

	// Session issuance for a pre-authenticated identity. Real credential
	// checks live outside the engine; this endpoint only mints tokens.
	r.POST("/v1/sessions", func(c *gin.Context) {
		var req struct {
			UserID string `json:"user_id" binding:"required"`
			Role   string `json:"role" binding:"required"`
			Name   string `json:"name"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if !auth.ValidRole(req.Role) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "role must be ADMIN, NGO or STUDENT"})
			return
		}
		tokens, err := auth.Issue(req.UserID, req.Role, req.Name, cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL, cfg.RefreshTTL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"access_token":  tokens.AccessToken,
			"refresh_token": tokens.RefreshToken,
			"expires_at":    tokens.AccessExp.Unix(),
		})
	})

	authGroup := r.Group("/v1", auth.UserAuth(cfg.JWTSigningKey, cfg.JWTIssuer))
	adminGroup := authGroup.Group("", auth.RequireRole(auth.RoleAdmin))
	ngoGroup := authGroup.Group("", auth.RequireRole(auth.RoleNGO))
	studentGroup := authGroup.Group("", auth.RequireRole(auth.RoleStudent))

	// --- Provider (hostel/canteen admin) endpoints ---

	adminGroup.POST("/food", func(c *gin.Context) {
		var req struct {
			FoodName    string `json:"food_name" binding:"required"`
			Quantity    int    `json:"quantity" binding:"required"`
			Location    string `json:"location"`
			ExpiryHours int    `json:"expiry_hours" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		claims := auth.ClaimsFrom(c)
		l, err := eng.listings.Create(c.Request.Context(), claims.Subject, req.FoodName, req.Quantity, req.Location, req.ExpiryHours)
		if err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		metrics.ListingsCreated.Inc()
		c.JSON(http.StatusCreated, l)
	})

	adminGroup.GET("/food/mine", func(c *gin.Context) {
		claims := auth.ClaimsFrom(c)
		listings, err := eng.listings.ListByProvider(c.Request.Context(), claims.Subject)
		if err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"listings": listings})
	})

	adminGroup.POST("/attendance", func(c *gin.Context) {
		var req struct {
			Date     string `json:"date" binding:"required"`
			Expected int    `json:"expected_count"`
			Actual   int    `json:"actual_count"`
			Close    bool   `json:"close"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		claims := auth.ClaimsFrom(c)
		rec, err := eng.attendance.Record(c.Request.Context(), claims.Subject, req.Date, req.Expected, req.Actual)
		if err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		if req.Close {
			if err := eng.attendance.CloseDay(c.Request.Context(), claims.Subject, req.Date); err != nil {
				c.JSON(statusFor(err), gin.H{"error": err.Error()})
				return
			}
			rec.Closed = true
		}
		c.JSON(http.StatusCreated, rec)
	})

	adminGroup.GET("/attendance/history", func(c *gin.Context) {
		claims := auth.ClaimsFrom(c)
		before := c.DefaultQuery("before", capacity.Day(time.Now()))
		history, err := eng.attendance.History(c.Request.Context(), claims.Subject, before, 7)
		if err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"history": history})
	})

	adminGroup.POST("/predict", func(c *gin.Context) {
		var req struct {
			Date         string `json:"date" binding:"required"`
			Mode         string `json:"mode"`
			SpecialEvent bool   `json:"is_special_event"`
			UseVotes     bool   `json:"use_votes"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		claims := auth.ClaimsFrom(c)
		result, err := runForecast(c.Request.Context(), eng, cfg, claims.Subject, req.Date, req.Mode, req.SpecialEvent, req.UseVotes)
		if err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		metrics.ForecastRuns.WithLabelValues(string(result.Mode)).Inc()
		c.JSON(http.StatusOK, result)
	})

	// --- NGO endpoints ---

	ngoGroup.GET("/food/available", func(c *gin.Context) {
		listings, err := eng.listings.ListAvailable(c.Request.Context())
		if err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		now := time.Now().UTC()
		type feedItem struct {
			surplus.Listing
			TimeRemaining string `json:"time_remaining"`
			Urgent        bool   `json:"urgent"`
		}
		feed := make([]feedItem, 0, len(listings))
		for _, l := range listings {
			feed = append(feed, feedItem{
				Listing:       l,
				TimeRemaining: surplus.FormatRemaining(now, l.ExpiryTime),
				Urgent:        surplus.IsUrgent(now, l.ExpiryTime),
			})
		}
		c.JSON(http.StatusOK, gin.H{"listings": feed})
	})

	ngoGroup.POST("/food/:id/accept", func(c *gin.Context) {
		claims := auth.ClaimsFrom(c)
		p, err := eng.pickups.Accept(c.Request.Context(), c.Param("id"), claims.Subject)
		if err != nil {
			switch {
			case errors.Is(err, surplus.ErrAlreadyAccepted):
				metrics.AcceptConflicts.WithLabelValues("already_accepted").Inc()
			case errors.Is(err, capacity.ErrCapacityExceeded):
				metrics.AcceptConflicts.WithLabelValues("capacity_exceeded").Inc()
			case errors.Is(err, surplus.ErrExpired):
				metrics.AcceptConflicts.WithLabelValues("expired").Inc()
			}
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		metrics.PickupsAccepted.Inc()
		if err := q.Publish(c.Request.Context(), queue.Message{Type: queue.TypePickupAccepted, Body: []byte(p.ID)}); err != nil {
			log.Printf("queue publish failed: %v", err)
		}
		c.JSON(http.StatusCreated, p)
	})

	ngoGroup.POST("/food/:id/decline", func(c *gin.Context) {
		var req struct {
			Reason string `json:"reason" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		claims := auth.ClaimsFrom(c)
		ev, err := eng.pickups.Decline(c.Request.Context(), c.Param("id"), claims.Subject, pickup.DeclineReason(req.Reason))
		if err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		metrics.Declines.WithLabelValues(req.Reason).Inc()
		c.JSON(http.StatusCreated, ev)
	})

	ngoGroup.GET("/pickups", func(c *gin.Context) {
		claims := auth.ClaimsFrom(c)
		pickups, err := eng.pickups.ListByOrganization(c.Request.Context(), claims.Subject)
		if err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"pickups": pickups})
	})

	// Uploads a proof image and attaches the hosted URL to the pickup in one
	// step; accepts multipart or a base64 JSON body like the teacher app.
	ngoGroup.POST("/pickups/:id/proof", func(c *gin.Context) {
		pickupID := c.Param("id")
		proofRef := ""

		contentType := c.ContentType()
		switch {
		case strings.Contains(contentType, "multipart/form-data"):
			if proofClient == nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"error": "proof image storage not configured"})
				return
			}
			file, header, ferr := c.Request.FormFile("file")
			if ferr != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "file field required"})
				return
			}
			defer file.Close()
			data, ferr := io.ReadAll(file)
			if ferr != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "read file failed"})
				return
			}
			result, uerr := proofClient.UploadBytes(data, header.Filename)
			if uerr != nil {
				log.Printf("proof upload failed: %v", uerr)
				c.JSON(http.StatusBadGateway, gin.H{"error": "proof upload failed"})
				return
			}
			proofRef = result.SecureURL
		default:
			var body struct {
				Data string `json:"data"`
				Ref  string `json:"proof_blob_ref"`
			}
			if berr := c.ShouldBindJSON(&body); berr != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "provide a file, base64 data, or proof_blob_ref"})
				return
			}
			switch {
			case body.Ref != "":
				proofRef = body.Ref
			case body.Data != "":
				if proofClient == nil {
					c.JSON(http.StatusServiceUnavailable, gin.H{"error": "proof image storage not configured"})
					return
				}
				result, uerr := proofClient.UploadBase64(body.Data)
				if uerr != nil {
					log.Printf("proof upload failed: %v", uerr)
					c.JSON(http.StatusBadGateway, gin.H{"error": "proof upload failed"})
					return
				}
				proofRef = result.SecureURL
			default:
				c.JSON(http.StatusBadRequest, gin.H{"error": "provide a file, base64 data, or proof_blob_ref"})
				return
			}
		}

		p, err := eng.pickups.SubmitProof(c.Request.Context(), pickupID, proofRef)
		if err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		metrics.ProofUploads.Inc()
		if err := q.Publish(c.Request.Context(), queue.Message{Type: queue.TypeProofUploaded, Body: []byte(p.ID)}); err != nil {
			log.Printf("queue publish failed: %v", err)
		}
		c.JSON(http.StatusOK, p)
	})

	ngoGroup.POST("/pickups/:id/verify", func(c *gin.Context) {
		claims := auth.ClaimsFrom(c)
		p, rc, err := eng.pickups.Verify(c.Request.Context(), c.Param("id"), orgDisplayName(claims))
		if err != nil {
			if errors.Is(err, receipt.ErrDuplicateReceipt) {
				c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "pickup": p, "receipt": rc})
				return
			}
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		metrics.ReceiptsIssued.Inc()
		c.JSON(http.StatusOK, gin.H{"pickup": p, "receipt": rc})
	})

	ngoGroup.POST("/pickups/:id/abandon", func(c *gin.Context) {
		p, err := eng.pickups.Abandon(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, p)
	})

	ngoGroup.GET("/receipts", func(c *gin.Context) {
		claims := auth.ClaimsFrom(c)
		receipts, err := eng.receipts.ListByOrganization(c.Request.Context(), claims.Subject)
		if err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"receipts": receipts})
	})

	ngoGroup.GET("/stats", func(c *gin.Context) {
		claims := auth.ClaimsFrom(c)
		ctx := c.Request.Context()
		stats, err := eng.pickups.StatsByOrganization(ctx, claims.Subject)
		if err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		entry, err := eng.ledger.Get(ctx, claims.Subject, capacity.Day(time.Now()))
		if err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		score := reliability.Compute(stats)
		c.JSON(http.StatusOK, gin.H{
			"total_collected": stats.PlatesCollected,
			"people_fed":      stats.PlatesCollected,
			"capacity":        entry,
			"reliability":     score,
		})
	})

	ngoGroup.GET("/reliability", func(c *gin.Context) {
		claims := auth.ClaimsFrom(c)
		score, err := eng.tracker.Score(c.Request.Context(), claims.Subject)
		if err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, score)
	})

	ngoGroup.GET("/declines", func(c *gin.Context) {
		claims := auth.ClaimsFrom(c)
		declines, err := eng.pickups.ListDeclines(c.Request.Context(), claims.Subject)
		if err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"declines": declines})
	})

	ngoGroup.GET("/capacity", func(c *gin.Context) {
		claims := auth.ClaimsFrom(c)
		day := c.DefaultQuery("date", capacity.Day(time.Now()))
		entry, err := eng.ledger.Get(c.Request.Context(), claims.Subject, day)
		if err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, entry)
	})

	ngoGroup.PUT("/capacity", func(c *gin.Context) {
		var req struct {
			MaxCapacity int `json:"max_capacity" binding:"required"`
			Volunteers  int `json:"volunteers_available"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		claims := auth.ClaimsFrom(c)
		entry, err := eng.ledger.UpdateLimits(c.Request.Context(), claims.Subject, capacity.Day(time.Now()), req.MaxCapacity, req.Volunteers)
		if err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, entry)
	})

	// --- Student endpoints ---

	studentGroup.POST("/votes", func(c *gin.Context) {
		var req struct {
			Date   string `json:"date"`
			Option string `json:"option" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if req.Date == "" {
			req.Date = capacity.Day(time.Now())
		}
		claims := auth.ClaimsFrom(c)
		v, err := eng.votes.Cast(c.Request.Context(), claims.Subject, req.Date, votes.Option(req.Option))
		if err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, v)
	})

	authGroup.GET("/votes/tally", func(c *gin.Context) {
		day := c.DefaultQuery("date", capacity.Day(time.Now()))
		t, err := eng.votes.Tally(c.Request.Context(), day)
		if err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, t)
	})

	// Graceful shutdown
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}

// runForecast assembles the engine request from stored history and votes.
func runForecast(ctx context.Context, eng *engine, cfg config.App, providerID, date, mode string, specialEvent, useVotes bool) (forecast.Result, error) {
	target, err := time.Parse("2006-01-02", date)
	if err != nil {
		return forecast.Result{}, attendance.ErrInvalidDay
	}
	history, err := eng.attendance.History(ctx, providerID, date, 7)
	if err != nil {
		return forecast.Result{}, err
	}
	records := make([]forecast.DayRecord, 0, len(history))
	for _, rec := range history {
		d, perr := time.Parse("2006-01-02", rec.Day)
		if perr != nil {
			continue
		}
		records = append(records, forecast.DayRecord{Date: d, Actual: rec.Actual})
	}

	req := forecast.Request{
		History:      records,
		TargetDate:   target,
		Mode:         forecast.Mode(strings.ToUpper(mode)),
		SpecialEvent: specialEvent,
		SafetyMargin: cfg.SafetyMargin,
		EventUplift:  cfg.SpecialEventUplift,
	}
	if req.Mode == "" {
		req.Mode = forecast.ModeBasic
	}
	if useVotes {
		if t, terr := eng.votes.Tally(ctx, date); terr == nil && t.Total > 0 {
			req.Votes = &forecast.VoteTally{Yes: t.Yes, No: t.No, Maybe: t.Maybe}
		}
	}

	result, err := forecast.Run(req)
	if errors.Is(err, forecast.ErrInsufficientHistory) {
		// Degrade to a documented default instead of failing the request.
		return forecast.Result{
			Confidence: forecast.ConfidenceLow,
			LogicUsed:  "No attendance history in window; defaulting to zero prediction.",
			Mode:       req.Mode,
		}, nil
	}
	return result, err
}

// orgDisplayName prefers the human name from the token, falling back to the
// subject id so receipt short codes stay stable.
func orgDisplayName(claims auth.Claims) string {
	if claims.Name != "" {
		return claims.Name
	}
	return claims.Subject
}

// statusFor maps engine sentinel errors onto HTTP statuses: validation to
// 400, lost races to 409, unknown ids to 404.
func statusFor(err error) int {
	switch {
	case errors.Is(err, surplus.ErrNotFound),
		errors.Is(err, pickup.ErrNotFound),
		errors.Is(err, receipt.ErrNotFound),
		errors.Is(err, capacity.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, surplus.ErrAlreadyAccepted),
		errors.Is(err, surplus.ErrExpired),
		errors.Is(err, capacity.ErrCapacityExceeded),
		errors.Is(err, pickup.ErrNotPending),
		errors.Is(err, pickup.ErrNotPicked),
		errors.Is(err, pickup.ErrAbandonNotAllowed),
		errors.Is(err, pickup.ErrAbandoned),
		errors.Is(err, receipt.ErrDuplicateReceipt),
		errors.Is(err, attendance.ErrDayClosed):
		return http.StatusConflict
	case errors.Is(err, surplus.ErrInvalidQuantity),
		errors.Is(err, surplus.ErrInvalidExpiryWindow),
		errors.Is(err, capacity.ErrInvalidCapacity),
		errors.Is(err, pickup.ErrInvalidReason),
		errors.Is(err, votes.ErrInvalidOption),
		errors.Is(err, attendance.ErrInvalidDay),
		errors.Is(err, attendance.ErrInvalidCount):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// CORS middleware for browser requests
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		// Only add HSTS in production
		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
