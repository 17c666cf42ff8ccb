package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"foodbridge/internal/config"
	"foodbridge/internal/metrics"
	"foodbridge/internal/pickup"
	"foodbridge/internal/queue"
	"foodbridge/internal/store"
	"foodbridge/internal/surplus"
)

// Worker sweeps lapsed listings on a timer and consumes pickup lifecycle
// events off the queue.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown
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
		q = queue.NewRedisQueue(redisClient.Client, "foodbridge:events")
	}

	listings := surplus.NewService(surplus.NewRepository(db.Client))
	pickups := pickup.NewRepository(db.Client)

	// Expiry sweep. Readers already expire lazily; the sweep keeps the feed
	// clean when nobody is browsing.
	go func() {
		ticker := time.NewTicker(cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := listings.ExpireLapsed(ctx)
				if err != nil {
					log.Printf("expiry sweep failed: %v", err)
					continue
				}
				if n > 0 {
					metrics.ListingsExpired.Add(float64(n))
					log.Printf("expiry sweep: %d listing(s) lapsed", n)
				}
			}
		}
	}()

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("worker started, waiting for messages...")
	for msg := range messages {
		id := string(msg.Body)
		switch msg.Type {
		case queue.TypePickupAccepted:
			p, err := pickups.Get(ctx, id)
			if err != nil {
				log.Printf("fetch pickup %s failed: %v", id, err)
				continue
			}
			log.Printf("pickup %s accepted by %s for %d plates", p.ID, p.OrganizationID, p.Quantity)
		case queue.TypeProofUploaded:
			p, err := pickups.Get(ctx, id)
			if err != nil {
				log.Printf("fetch pickup %s failed: %v", id, err)
				continue
			}
			log.Printf("pickup %s proof received: %s", p.ID, p.ProofBlobRef)
		default:
			continue
		}

		time.Sleep(10 * time.Millisecond) // Small delay between processing
	}

	log.Println("worker stopped")
}
