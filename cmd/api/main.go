package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	qrcode "github.com/skip2/go-qrcode"

	"presence/internal/attendance"
	"presence/internal/auth"
	"presence/internal/config"
	"presence/internal/geo"
	"presence/internal/httpmiddleware"
	"presence/internal/queue"
	"presence/internal/roster"
	"presence/internal/session"
	"presence/internal/store"
	"presence/internal/submission"
	"presence/internal/token"
)

var (
	submissionsAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "presence_submissions_accepted_total",
		Help: "Attendance submissions recorded.",
	})
	submissionsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "presence_submissions_rejected_total",
		Help: "Attendance submissions rejected, by reason.",
	}, []string{"reason"})
)

// sessions tracks one live issuer per teacher. Sessions are process-local;
// a restart always means fresh sessions.
type sessions struct {
	mu      sync.Mutex
	byOwner map[string]*session.Issuer
}

func newSessions() *sessions {
	return &sessions{byOwner: make(map[string]*session.Issuer)}
}

func (s *sessions) get(owner string) (*session.Issuer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	iss, ok := s.byOwner[owner]
	return iss, ok
}

func (s *sessions) getOrCreate(owner string, rotation time.Duration) *session.Issuer {
	s.mu.Lock()
	defer s.mu.Unlock()
	if iss, ok := s.byOwner[owner]; ok {
		return iss
	}
	iss := session.NewIssuer(rotation)
	s.byOwner[owner] = iss
	return iss
}

// announcementFor finds the announcement of the live session that issued a
// token for this subject and session code. Codes are teacher-chosen and can
// collide across teachers, so the subject disambiguates. A closed session
// yields nothing; only the token's own freshness then gates the submission.
func (s *sessions) announcementFor(subjectID, code string) session.Announcement {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, iss := range s.byOwner {
		cur, _, err := iss.Current()
		if err == nil && cur.SessionCode == code && cur.SubjectID == subjectID {
			if ann, err := iss.Announcement(); err == nil {
				return ann
			}
		}
	}
	return session.Announcement{}
}

func main() {
	cfg := config.Load()

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		// A ping failure still yields a usable pool that may recover; a nil
		// DB means the connection string itself did not parse.
		if db == nil {
			return fmt.Errorf("db open failed: %w", err)
		}
		log.Printf("warning: db not reachable: %v", err)
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "presence:events")
	}

	repo := attendance.NewRepository(db.Client)
	svc := attendance.NewService(repo, cfg.DedupWindow)
	live := newSessions()
	ctx := context.Background()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(corsMiddleware())
	r.Use(securityHeaders())
	r.Use(httpmiddleware.NewSimpleTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin).GinMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/healthz", func(c *gin.Context) {
		redisHealthy := redisClient.Healthy(c.Request.Context())
		dbHealthy := db.Healthy(c.Request.Context())
		status := http.StatusOK
		if !redisHealthy || !dbHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "redis": redisHealthy, "db": dbHealthy})
	})

	r.POST("/v1/auth/token", func(c *gin.Context) {
		var req struct {
			UserID string `json:"user_id" binding:"required"`
			Role   string `json:"role" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if req.Role != auth.RoleTeacher && req.Role != auth.RoleStudent {
			c.JSON(http.StatusBadRequest, gin.H{"error": "role must be teacher or student"})
			return
		}
		tokens, err := auth.Issue(req.UserID, req.Role, cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL, cfg.RefreshTTL)
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

	teacherGroup := r.Group("/v1", auth.Require(cfg.JWTSigningKey, cfg.JWTIssuer, auth.RoleTeacher))

	teacherGroup.POST("/sessions", func(c *gin.Context) {
		var req struct {
			SubjectID   string   `json:"subject_id" binding:"required"`
			SubjectName string   `json:"subject_name"`
			SessionCode string   `json:"session_code" binding:"required"`
			TeacherLat  *float64 `json:"teacher_lat"`
			TeacherLng  *float64 `json:"teacher_lng"`
			RadiusM     float64  `json:"radius_m"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		ann := session.Announcement{RadiusM: req.RadiusM}
		if ann.RadiusM <= 0 {
			ann.RadiusM = cfg.GeofenceRadiusM
		}
		if req.TeacherLat != nil && req.TeacherLng != nil {
			ann.TeacherLoc = &geo.Coordinate{Lat: *req.TeacherLat, Lng: *req.TeacherLng}
		} else {
			log.Printf("session %s opened without a teacher location; geofence disabled", req.SessionCode)
		}

		iss := live.getOrCreate(ownerID(c), cfg.RotationPeriod)
		tok, transport, err := iss.Start(req.SubjectID, req.SubjectName, req.SessionCode, ann)
		if errors.Is(err, session.ErrSessionActive) {
			c.JSON(http.StatusConflict, gin.H{"error": "close the current session first"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, sessionTokenBody(tok, transport, ann))
	})

	teacherGroup.GET("/sessions/current", func(c *gin.Context) {
		iss, ok := live.get(ownerID(c))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "no active session"})
			return
		}
		tok, transport, err := iss.Current()
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "no active session"})
			return
		}
		ann, _ := iss.Announcement()
		c.JSON(http.StatusOK, sessionTokenBody(tok, transport, ann))
	})

	teacherGroup.GET("/sessions/current/qr", func(c *gin.Context) {
		iss, ok := live.get(ownerID(c))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "no active session"})
			return
		}
		_, transport, err := iss.Current()
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "no active session"})
			return
		}
		png, err := qrcode.Encode(transport, qrcode.Medium, 512)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "qr encode failed"})
			return
		}
		c.Data(http.StatusOK, "image/png", png)
	})

	teacherGroup.DELETE("/sessions", func(c *gin.Context) {
		if iss, ok := live.get(ownerID(c)); ok {
			iss.Close()
		}
		c.JSON(http.StatusOK, gin.H{"status": "closed"})
	})

	teacherGroup.GET("/subjects", func(c *gin.Context) {
		subjects, err := svc.Subjects(c.Request.Context(), ownerID(c))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"subjects": subjects})
	})

	teacherGroup.PUT("/subjects/:id/status", func(c *gin.Context) {
		var req struct {
			Status string `json:"status" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := svc.SetSubjectStatus(c.Request.Context(), c.Param("id"), attendance.SubjectStatus(req.Status)); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": req.Status})
	})

	teacherGroup.GET("/subjects/:id/attendance", func(c *gin.Context) {
		subjectID := c.Param("id")
		events, err := svc.Events(c.Request.Context(), subjectID, c.Query("date"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		if term := c.Query("q"); term != "" {
			events = roster.FilterRecords(events, c.Query("subject_title"), term)
		}
		if key := c.Query("sort"); key != "" {
			asc := c.DefaultQuery("dir", "asc") != "desc"
			events = roster.SortRecords(events, roster.SortKey(key), asc)
		}

		pageSize := intQuery(c, "page_size", cfg.PageSize)
		pageNumber := intQuery(c, "page", 1)
		c.JSON(http.StatusOK, roster.Paginate(events, pageSize, pageNumber))
	})

	teacherGroup.DELETE("/events/:id", func(c *gin.Context) {
		id := c.Param("id")
		if err := svc.Delete(c.Request.Context(), id); err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, attendance.ErrEventNotFound) {
				status = http.StatusNotFound
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}
		if err := q.Publish(ctx, queue.EventDeleted(id)); err != nil {
			log.Printf("queue publish failed: %v", err)
		}
		c.JSON(http.StatusOK, gin.H{"status": "deleted"})
	})

	teacherGroup.PUT("/events/:id", func(c *gin.Context) {
		var req struct {
			StudentName string `json:"student_name" binding:"required"`
			RollNo      string `json:"roll_no" binding:"required"`
			Time        string `json:"time"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		evt, err := svc.Correct(c.Request.Context(), c.Param("id"), req.StudentName, req.RollNo, req.Time)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, attendance.ErrEventNotFound) {
				status = http.StatusNotFound
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}
		if err := q.Publish(ctx, queue.EventCorrected(evt)); err != nil {
			log.Printf("queue publish failed: %v", err)
		}
		c.JSON(http.StatusOK, gin.H{"event": evt})
	})

	studentGroup := r.Group("/v1", auth.Require(cfg.JWTSigningKey, cfg.JWTIssuer, auth.RoleStudent, auth.RoleTeacher))

	studentGroup.POST("/submissions", func(c *gin.Context) {
		var req struct {
			Transport         string   `json:"transport" binding:"required"`
			StudentName       string   `json:"student_name" binding:"required"`
			RollNo            string   `json:"roll_no" binding:"required"`
			Lat               *float64 `json:"lat"`
			Lng               *float64 `json:"lng"`
			AccuracyM         float64  `json:"accuracy_m"`
			DeviceFingerprint string   `json:"device_fingerprint" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		// The scanning device acquired (or failed to acquire) coordinates
		// through its platform location service; absent coordinates are an
		// acquisition failure from the protocol's point of view.
		var provider submission.LocationProvider
		if req.Lat != nil && req.Lng != nil {
			provider = submission.StaticLocation(geo.Coordinate{Lat: *req.Lat, Lng: *req.Lng, AccuracyM: req.AccuracyM})
		} else {
			provider = submission.ProviderFunc(func(context.Context) (geo.Coordinate, error) {
				return geo.Coordinate{}, &submission.LocationError{Reason: submission.Unavailable}
			})
		}

		fp := req.DeviceFingerprint
		sub := submission.NewSubmitter(provider, staticFingerprint(fp), recorderFunc(func(ctx context.Context, evt attendance.Event) (attendance.Event, error) {
			recorded, err := svc.Record(ctx, evt)
			if err != nil {
				return attendance.Event{}, err
			}
			if err := q.Publish(ctx, queue.EventCreated(recorded)); err != nil {
				log.Printf("queue publish failed: %v", err)
			}
			return recorded, nil
		}), cfg.LocationTimeout)

		decoded := token.DecodeAny(req.Transport)
		ann := session.Announcement{}
		if decoded.Kind == token.Attendance {
			ann = live.announcementFor(decoded.Token.SubjectID, decoded.Token.SessionCode)
		}

		res, err := sub.Submit(c.Request.Context(), submission.Request{
			Transport:    req.Transport,
			StudentName:  req.StudentName,
			RollNo:       req.RollNo,
			Announcement: ann,
		})
		if err != nil {
			writeSubmissionError(c, err)
			return
		}

		submissionsAccepted.Inc()
		body := gin.H{
			"event":            res.Event,
			"location_checked": res.LocationChecked,
		}
		if res.LocationChecked {
			body["distance_meters"] = res.Verification.DistanceMeters
		} else {
			body["notice"] = "location not required for this session"
		}
		c.JSON(http.StatusCreated, body)
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}

// ownerID pulls the authenticated subject out of the request claims.
func ownerID(c *gin.Context) string {
	claimsAny, _ := c.Get("claims")
	claims, _ := claimsAny.(auth.Claims)
	return claims.Subject
}

func sessionTokenBody(tok token.Token, transport string, ann session.Announcement) gin.H {
	body := gin.H{
		"session_code": tok.SessionCode,
		"subject_id":   tok.SubjectID,
		"transport":    transport,
		"issued_at":    tok.IssuedAt.UnixMilli(),
		"expires_at":   tok.ExpiresAt.UnixMilli(),
		"radius_m":     ann.RadiusM,
	}
	if ann.TeacherLoc != nil {
		body["teacher_loc"] = ann.TeacherLoc
	}
	return body
}

// writeSubmissionError maps the submission taxonomy onto HTTP responses; the
// message field is always present so the student sees an actionable step.
func writeSubmissionError(c *gin.Context, err error) {
	msg := submission.UserMessage(err)
	var fenceErr *submission.OutsideGeofenceError
	var locErr *submission.LocationError
	switch {
	case errors.Is(err, token.ErrMalformedToken):
		submissionsRejected.WithLabelValues("malformed_token").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed_token", "message": msg})
	case errors.Is(err, submission.ErrExpiredToken):
		submissionsRejected.WithLabelValues("expired_token").Inc()
		c.JSON(http.StatusGone, gin.H{"error": "expired_token", "message": msg})
	case errors.As(err, &locErr):
		submissionsRejected.WithLabelValues("location_" + locErr.Reason.String()).Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "location_error", "reason": locErr.Reason.String(), "message": msg})
	case errors.As(err, &fenceErr):
		submissionsRejected.WithLabelValues("outside_geofence").Inc()
		c.JSON(http.StatusForbidden, gin.H{
			"error":             "outside_geofence",
			"message":           msg,
			"distance_meters":   fenceErr.DistanceMeters,
			"required_radius_m": fenceErr.RequiredRadiusMeters,
		})
	default:
		submissionsRejected.WithLabelValues("backend").Inc()
		c.JSON(http.StatusBadGateway, gin.H{"error": "submission_failed", "message": msg})
	}
}

// staticFingerprint satisfies submission.Fingerprinter with the id the
// scanning device derived locally. Fingerprinting happens on the device;
// the server never substitutes its own, since one server-derived id would
// collide every fingerprint-less device into the same dedup key.
type staticFingerprint string

func (s staticFingerprint) GetOrCreate() string {
	return string(s)
}

type recorderFunc func(ctx context.Context, evt attendance.Event) (attendance.Event, error)

func (f recorderFunc) Record(ctx context.Context, evt attendance.Event) (attendance.Event, error) {
	return f(ctx, evt)
}

func intQuery(c *gin.Context, key string, fallback int) int {
	if v := c.Query(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
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

		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
