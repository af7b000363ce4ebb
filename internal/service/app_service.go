package service

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// HealthCheck reports whether a backing store answers.
type HealthCheck func(ctx context.Context) error

// Status is the liveness of the backing stores.
type Status struct {
	Redis bool `json:"redis"`
	DB    bool `json:"db"`
}

// Healthy reports whether every store is alive.
func (s Status) Healthy() bool {
	return s.Redis && s.DB
}

// Stats counts the stored records.
type Stats struct {
	Users int64 `json:"users"`
	Files int64 `json:"files"`
}

// AppService reports on the service as a whole.
type AppService interface {
	Status(ctx context.Context) Status
	Stats(ctx context.Context) (Stats, error)
}

type appService struct {
	redis HealthCheck
	db    HealthCheck
	users UserService
	files FileService
}

// NewAppService creates the status and stats service.
func NewAppService(redis, db HealthCheck, users UserService, files FileService) AppService {
	return &appService{redis: redis, db: db, users: users, files: files}
}

func (s *appService) Status(ctx context.Context) Status {
	var st Status
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		st.Redis = s.redis(gctx) == nil
		return nil
	})
	g.Go(func() error {
		st.DB = s.db(gctx) == nil
		return nil
	})
	_ = g.Wait()
	return st
}

func (s *appService) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.users.Count(gctx)
		if err != nil {
			return fmt.Errorf("count users: %w", err)
		}
		st.Users = n
		return nil
	})
	g.Go(func() error {
		n, err := s.files.Count(gctx)
		if err != nil {
			return fmt.Errorf("count files: %w", err)
		}
		st.Files = n
		return nil
	})
	if err := g.Wait(); err != nil {
		return Stats{}, err
	}
	return st, nil
}
