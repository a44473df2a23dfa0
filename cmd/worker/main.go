package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"presence/internal/attendance"
	"presence/internal/config"
	"presence/internal/queue"
	"presence/internal/roster"
	"presence/internal/store"
)

// Worker consumes attendance event notifications and folds them into the
// roster projection the teacher views read from.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
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
	agg := roster.New()

	// Seed the projection from persisted state; from here on the stream
	// keeps it current. The projection is rebuildable at any time.
	subjects, err := repo.AllSubjects(ctx)
	if err != nil {
		log.Printf("subject bootstrap failed: %v", err)
	}
	for _, s := range subjects {
		if notice := agg.UpsertSubject(s); notice != "" {
			log.Println(notice)
		}
		events, err := repo.ListBySubject(ctx, s.ID, "")
		if err != nil {
			log.Printf("event bootstrap for %s failed: %v", s.ID, err)
			continue
		}
		for _, evt := range events {
			agg.Apply(evt)
		}
		log.Printf("seeded %s with %d events across %d days", s.Title, len(events), len(agg.Dates(s.ID)))
	}

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("roster worker started, waiting for events...")
	for msg := range messages {
		switch msg.Kind {
		case queue.KindEventCreated, queue.KindEventCorrected:
			evt, err := msg.Event()
			if err != nil {
				log.Printf("bad event payload: %v", err)
				continue
			}
			agg.Apply(evt)
			log.Printf("folded %s for %s on %s (%d on that day)",
				msg.Kind, evt.SubjectID, evt.Date, len(agg.RecordsFor(evt.SubjectID, evt.Date)))
		case queue.KindEventDeleted:
			id := string(msg.Body)
			if agg.Delete(id) {
				log.Printf("removed event %s from projection", id)
			}
		default:
			log.Printf("ignoring message kind %q", msg.Kind)
		}
	}

	log.Println("roster worker stopped")
}
