package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"absensi/internal/config"
	"absensi/internal/queue"
	"absensi/internal/rollup"
	"absensi/internal/sheets"
	"absensi/internal/store"
)

// Worker consumes rollup jobs and refreshes the weekly and monthly summaries.
func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.QueueBackend != "redis" {
		log.Fatalf("worker needs QUEUE_BACKEND=redis, got %q", cfg.QueueBackend)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	kv := store.NewRedis(store.RedisOptions{
		Addr:     cfg.RedisAddr,
		Username: cfg.RedisUsername,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer kv.Close()

	rcfg := rollup.Config{
		DailySheet:   cfg.SheetDaily,
		WeeklySheet:  cfg.SheetWeekly,
		MonthlySheet: cfg.SheetMonthly,
		WeeklyDays:   cfg.WeeklyWorkingDays,
		MonthlyDays:  cfg.MonthlyWorkingDays,
	}
	rows, err := sheets.Open(ctx, sheets.OpenOptions{
		Backend:     cfg.SheetBackend,
		DatabaseURL: cfg.DatabaseURL,
		SQLitePath:  cfg.SQLitePath,
		XLSXPath:    cfg.XLSXPath,
	}, rcfg.Specs()...)
	if err != nil {
		log.Fatalf("sheets: %v", err)
	}
	defer rows.Close()
	agg := rollup.NewAggregator(rows, rcfg)

	messages, err := queue.NewRedisQueue(kv.Client, queue.DefaultKey).Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("worker started, waiting for rollup jobs...")
	for msg := range messages {
		day, err := rollup.DecodeJob(msg)
		if err != nil {
			log.Printf("skipping message: %v", err)
			continue
		}
		start := time.Now()
		if err := agg.Refresh(ctx, day); err != nil {
			log.Printf("rollup for %s failed: %v", day.Format("2006-01-02"), err)
			continue
		}
		log.Printf("rollup for %s done in %s", day.Format("2006-01-02"), time.Since(start).Round(time.Millisecond))
	}

	log.Println("worker stopped")
}
