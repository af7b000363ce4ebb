package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"filemanager/internal/model"
	"filemanager/internal/queue"
	"filemanager/internal/repository"
)

// WelcomeProcessor greets newly registered users.
type WelcomeProcessor struct {
	users  repository.UserRepository
	logger *slog.Logger
}

// NewWelcomeProcessor creates a welcome processor.
func NewWelcomeProcessor(users repository.UserRepository, logger *slog.Logger) *WelcomeProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &WelcomeProcessor{users: users, logger: logger}
}

// Handle decodes a delivery and processes it.
func (p *WelcomeProcessor) Handle(ctx context.Context, d *queue.Delivery) error {
	var job model.WelcomeJob
	if err := d.Decode(&job); err != nil {
		return err
	}
	return p.Process(ctx, job)
}

// Process logs the welcome message of the job's user.
func (p *WelcomeProcessor) Process(ctx context.Context, job model.WelcomeJob) error {
	if job.UserID == 0 {
		return queue.Permanent(errors.New("Missing userId"))
	}
	user, err := p.users.FindByID(ctx, job.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return queue.Permanent(errors.New("User not found"))
		}
		return fmt.Errorf("find user: %w", err)
	}
	p.logger.Info(fmt.Sprintf("Welcome %s!", user.Email), "user_id", user.ID)
	return nil
}
