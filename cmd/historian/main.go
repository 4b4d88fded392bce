// cmd/historian/main.go is an asynchronous historian service that pops
// match facts from a Redis queue and persists them to a PostgreSQL
// database.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	_ "github.com/joho/godotenv/autoload"
	"github.com/redis/go-redis/v9"

	"fortyone/internal/cache"
	"fortyone/internal/database"
)

// HistorianService drains the match fact queue into Postgres in
// batches and marks matches abandoned after a period of silence.
type HistorianService struct {
	batchSize    int
	flushDelay   time.Duration
	inactivity   time.Duration // duration until a silent match is marked "abandoned"
	lastActivity sync.Map      // map[uuid.UUID]time.Time for tracking last fact per match

	batchMu sync.Mutex
	batch   []cache.MatchFactRecord

	ctx      context.Context
	cancelFn context.CancelFunc
}

// NewHistorianService constructs a HistorianService instance from environment variables or defaults.
func NewHistorianService() *HistorianService {
	batchSize := getEnvInt("HISTORIAN_BATCH_SIZE", 20)
	flushMs := getEnvInt("HISTORIAN_FLUSH_MS", 500)
	inactivitySec := getEnvInt("MATCH_INACTIVITY_TIMEOUT_SEC", 1800) // default 30 min

	ctx, cancel := context.WithCancel(context.Background())
	return &HistorianService{
		batchSize:  batchSize,
		flushDelay: time.Duration(flushMs) * time.Millisecond,
		inactivity: time.Duration(inactivitySec) * time.Second,
		batch:      make([]cache.MatchFactRecord, 0, batchSize),
		ctx:        ctx,
		cancelFn:   cancel,
	}
}

// Run starts the two main loops:
//  1. A loop that reads from the Redis queue, accumulates facts in a batch, and flushes them to the DB.
//  2. A periodic check that marks silent matches as abandoned.
func (hs *HistorianService) Run() {
	database.ConnectDB()
	if err := cache.ConnectRedis(); err != nil {
		log.Fatalf("historian requires Redis: %v", err)
	}

	go hs.readRedisLoop()
	go hs.inactivityLoop()

	log.Println("fortyone-historian service started.")
	<-hs.ctx.Done()
	hs.flushBatchToDB() // drain whatever is still buffered
	log.Println("fortyone-historian shutting down.")
}

// readRedisLoop continuously uses BLPop to retrieve facts from the Redis queue.
func (hs *HistorianService) readRedisLoop() {
	ticker := time.NewTicker(hs.flushDelay)
	defer ticker.Stop()

	queueName := cache.QueueName()

	for {
		select {
		case <-hs.ctx.Done():
			return

		case <-ticker.C:
			hs.flushBatchToDB()

		default:
			// Use BLPop with a 3-second timeout so that context cancellation is handled.
			res, err := cache.Rdb.BLPop(hs.ctx, 3*time.Second, queueName).Result()
			if err != nil && !errors.Is(err, redis.Nil) {
				if hs.ctx.Err() != nil {
					return
				}
				log.Printf("[ERROR] BLPop: %v\n", err)
				continue
			}
			if len(res) < 2 {
				// No fact popped.
				continue
			}

			// res[0] is the queue name and res[1] the payload.
			var record cache.MatchFactRecord
			if err := json.Unmarshal([]byte(res[1]), &record); err != nil {
				log.Printf("invalid match fact: %v\n", err)
				continue
			}
			matchID, err := uuid.Parse(record.MatchID)
			if err != nil {
				log.Printf("match fact with bad id %q: %v\n", record.MatchID, err)
				continue
			}

			hs.lastActivity.Store(matchID, time.Now())
			hs.appendToBatch(record)
		}
	}
}

// appendToBatch adds a fact to the in-memory batch and flushes if the threshold is reached.
func (hs *HistorianService) appendToBatch(record cache.MatchFactRecord) {
	hs.batchMu.Lock()
	defer hs.batchMu.Unlock()

	hs.batch = append(hs.batch, record)
	if len(hs.batch) >= hs.batchSize {
		hs.flushLocked()
	}
}

// flushBatchToDB flushes the current batch to the database in a single transaction.
func (hs *HistorianService) flushBatchToDB() {
	hs.batchMu.Lock()
	defer hs.batchMu.Unlock()
	hs.flushLocked()
}

func (hs *HistorianService) flushLocked() {
	if len(hs.batch) == 0 {
		return
	}
	batchCopy := make([]cache.MatchFactRecord, len(hs.batch))
	copy(batchCopy, hs.batch)
	hs.batch = hs.batch[:0]

	ctx := context.Background()
	err := pgx.BeginTxFunc(ctx, database.DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, rec := range batchCopy {
			if err := persistFactTx(ctx, tx, rec); err != nil {
				return fmt.Errorf("persist fact %s/%s: %w", rec.MatchID, rec.Kind, err)
			}
		}
		return nil
	})
	if err != nil {
		log.Printf("[ERROR] flushBatchToDB: %v\n", err)
	} else {
		log.Printf("Flushed %d facts to DB.\n", len(batchCopy))
	}
}

// persistFactTx routes one fact to its upsert inside the batch transaction.
func persistFactTx(ctx context.Context, tx pgx.Tx, rec cache.MatchFactRecord) error {
	matchID, err := uuid.Parse(rec.MatchID)
	if err != nil {
		return err
	}
	switch rec.Kind {
	case cache.FactRoundResult:
		return database.UpsertRoundResultTx(ctx, tx, matchID, rec.Round, rec.Payload)
	case cache.FactMatchResult:
		var res database.MatchResultRow
		if err := json.Unmarshal(rec.Payload, &res); err != nil {
			return err
		}
		return database.UpsertMatchResultTx(ctx, tx, matchID, res)
	default:
		log.Printf("skipping unknown fact kind %q for match %s\n", rec.Kind, rec.MatchID)
		return nil
	}
}

// inactivityLoop periodically checks whether any match has gone silent
// beyond the configured threshold and marks such matches as abandoned.
func (hs *HistorianService) inactivityLoop() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-hs.ctx.Done():
			return

		case <-ticker.C:
			now := time.Now()
			hs.lastActivity.Range(func(key, val interface{}) bool {
				matchID, ok1 := key.(uuid.UUID)
				last, ok2 := val.(time.Time)
				if ok1 && ok2 && now.Sub(last) > hs.inactivity {
					if err := database.MarkMatchAbandoned(context.Background(), matchID); err != nil {
						log.Printf("failed to mark match %v abandoned: %v", matchID, err)
					} else {
						log.Printf("Marked match %v as 'abandoned' due to inactivity.", matchID)
					}
					hs.lastActivity.Delete(matchID)
				}
				return true
			})
		}
	}
}

// Stop gracefully stops the historian service.
func (hs *HistorianService) Stop() {
	hs.cancelFn()
}

// main is the entrypoint.
func main() {
	hs := NewHistorianService()
	go hs.Run()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	hs.Stop()
	database.CloseDB()
	log.Println("Historian shutdown complete.")
}

// getEnvInt retrieves an integer value from an environment variable or returns a default value.
func getEnvInt(key string, defVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defVal
	}
	return i
}
