package votes

import (
	"context"
	"errors"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Option is a student's meal intent for a day.
type Option string

const (
	OptionYes   Option = "YES"
	OptionNo    Option = "NO"
	OptionMaybe Option = "MAYBE"
)

// Vote is one student's intent for one day. Unique per (student, day);
// a later vote for the same day overwrites the earlier one.
type Vote struct {
	StudentID string    `json:"student_id"`
	Day       string    `json:"date"`
	Option    Option    `json:"option"`
	VotedAt   time.Time `json:"voted_at"`
}

// Tally is the day's aggregate, the live signal the forecast blends in.
type Tally struct {
	Yes   int `json:"yes"`
	No    int `json:"no"`
	Maybe int `json:"maybe"`
	Total int `json:"total"`
}

// ErrInvalidOption rejects options outside YES/NO/MAYBE.
var ErrInvalidOption = errors.New("votes: invalid vote option")

// Store persists votes. Cast must be last-write-wins per (student, day) and
// report the option it replaced so caches can be adjusted.
type Store interface {
	Cast(ctx context.Context, v Vote) (previous Option, replaced bool, err error)
	Tally(ctx context.Context, day string) (Tally, error)
}

// Service records votes with an optional Redis write-through tally cache so
// dashboards can poll the live count without hitting the store.
type Service struct {
	store Store
	cache *redis.Client
	now   func() time.Time
}

// NewService creates the vote service; cache may be nil.
func NewService(store Store, cache *redis.Client) *Service {
	return &Service{store: store, cache: cache, now: func() time.Time { return time.Now().UTC() }}
}

// Cast records a student's vote for a day, replacing any earlier vote.
func (s *Service) Cast(ctx context.Context, studentID, day string, opt Option) (Vote, error) {
	switch opt {
	case OptionYes, OptionNo, OptionMaybe:
	default:
		return Vote{}, ErrInvalidOption
	}
	v := Vote{StudentID: studentID, Day: day, Option: opt, VotedAt: s.now()}
	previous, replaced, err := s.store.Cast(ctx, v)
	if err != nil {
		return Vote{}, err
	}
	s.adjustCache(ctx, day, opt, previous, replaced)
	return v, nil
}

// Tally returns the day's aggregate, preferring the cache.
func (s *Service) Tally(ctx context.Context, day string) (Tally, error) {
	if s.cache != nil {
		if t, ok := s.cachedTally(ctx, day); ok {
			return t, nil
		}
	}
	t, err := s.store.Tally(ctx, day)
	if err != nil {
		return Tally{}, err
	}
	s.populateCache(ctx, day, t)
	return t, nil
}

func tallyKey(day string) string { return "foodbridge:votes:" + day }

func (s *Service) adjustCache(ctx context.Context, day string, opt, previous Option, replaced bool) {
	if s.cache == nil {
		return
	}
	key := tallyKey(day)
	// Only adjust a cache that exists; a missing key repopulates on read.
	exists, err := s.cache.Exists(ctx, key).Result()
	if err != nil || exists == 0 {
		return
	}
	pipe := s.cache.Pipeline()
	pipe.HIncrBy(ctx, key, string(opt), 1)
	if replaced {
		pipe.HIncrBy(ctx, key, string(previous), -1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("votes: tally cache adjust failed: %v", err)
	}
}

func (s *Service) cachedTally(ctx context.Context, day string) (Tally, bool) {
	fields, err := s.cache.HGetAll(ctx, tallyKey(day)).Result()
	if err != nil || len(fields) == 0 {
		return Tally{}, false
	}
	var t Tally
	t.Yes, _ = strconv.Atoi(fields[string(OptionYes)])
	t.No, _ = strconv.Atoi(fields[string(OptionNo)])
	t.Maybe, _ = strconv.Atoi(fields[string(OptionMaybe)])
	t.Total = t.Yes + t.No + t.Maybe
	return t, true
}

func (s *Service) populateCache(ctx context.Context, day string, t Tally) {
	if s.cache == nil {
		return
	}
	key := tallyKey(day)
	pipe := s.cache.Pipeline()
	pipe.HSet(ctx, key,
		string(OptionYes), t.Yes,
		string(OptionNo), t.No,
		string(OptionMaybe), t.Maybe,
	)
	pipe.Expire(ctx, key, 48*time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("votes: tally cache populate failed: %v", err)
	}
}
