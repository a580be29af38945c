package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"absensi/internal/attendance"
	"absensi/internal/auth"
	"absensi/internal/config"
	"absensi/internal/handler"
	"absensi/internal/httpmiddleware"
	"absensi/internal/password"
	"absensi/internal/queue"
	"absensi/internal/rollup"
	"absensi/internal/sheets"
	"absensi/internal/store"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	ctx := context.Background()
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return err
	}
	window, err := attendance.NewWindow(cfg.WorkStart, cfg.WorkEnd)
	if err != nil {
		return err
	}

	kv := store.NewRedis(store.RedisOptions{
		Addr:     cfg.RedisAddr,
		Username: cfg.RedisUsername,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer kv.Close()
	if !kv.Healthy(ctx) {
		log.Printf("warning: redis not reachable at %s", cfg.RedisAddr)
	}

	rcfg := rollupConfig(cfg)
	rows, err := sheets.Open(ctx, sheets.OpenOptions{
		Backend:     cfg.SheetBackend,
		DatabaseURL: cfg.DatabaseURL,
		SQLitePath:  cfg.SQLitePath,
		XLSXPath:    cfg.XLSXPath,
	}, rcfg.Specs()...)
	if err != nil {
		return err
	}
	defer rows.Close()
	agg := rollup.NewAggregator(rows, rcfg)

	// With the memory queue there is no worker process, so summaries are
	// refreshed inline.
	var refresher attendance.Refresher = agg
	if cfg.QueueBackend == "redis" {
		refresher = rollup.NewEnqueuer(queue.NewRedisQueue(kv.Client, queue.DefaultKey))
	}

	repo := attendance.NewRepository(kv)
	svc := attendance.NewService(repo, password.New(password.DefaultParams()), agg, refresher, attendance.Options{
		Location:      loc,
		DefaultWindow: window,
	})
	authority := auth.NewAuthority(kv, repo, auth.AuthorityConfig{
		TokenLength: cfg.AuthTokenLength,
		AuthTTL:     cfg.AuthTokenTTL,
		SessionTTL:  cfg.SessionTTL,
	})

	h := handler.New(handler.Deps{
		Service:   svc,
		Authority: authority,
		Cookie: auth.CookiePolicy{
			Domain:   cfg.CookieDomain,
			SameSite: auth.ParseSameSite(cfg.CookieSameSite),
			Secure:   cfg.CookieSecure,
			MaxAge:   cfg.SessionTTL,
		},
		Summaries: agg,
		Health:    map[string]handler.Pinger{"redis": kv, "sheets": rows},
	})

	var limiter httpmiddleware.Limiter = httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin)
	if cfg.RateLimitBackend == "redis" {
		limiter = httpmiddleware.NewRedisWindow(kv.Client, cfg.RateLimitPerMin)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.RequestID())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.FrontendURL,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", auth.TokenHeader, httpmiddleware.RequestIDHeader},
		ExposeHeaders:    []string{httpmiddleware.RequestIDHeader, "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(securityHeaders())
	r.Use(httpmiddleware.RateLimit(limiter))
	h.Register(r)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("starting server on :%s (sheets=%s queue=%s)", cfg.HTTPPort, cfg.SheetBackend, cfg.QueueBackend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server forced shutdown: %v", err)
	}

	log.Println("server exited")
	return nil
}

func rollupConfig(cfg config.App) rollup.Config {
	return rollup.Config{
		DailySheet:   cfg.SheetDaily,
		WeeklySheet:  cfg.SheetWeekly,
		MonthlySheet: cfg.SheetMonthly,
		WeeklyDays:   cfg.WeeklyWorkingDays,
		MonthlyDays:  cfg.MonthlyWorkingDays,
	}
}

func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		c.Next()
	}
}
