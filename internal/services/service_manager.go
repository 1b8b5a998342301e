package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/eduhub/course-service/internal/access"
	"github.com/eduhub/course-service/internal/events"
	"github.com/eduhub/course-service/internal/notify"
	"github.com/eduhub/course-service/internal/payment"
	"github.com/eduhub/course-service/internal/repositories"
	"github.com/eduhub/course-service/internal/validator"
)

// Dependencies are the collaborators shared by all services
type Dependencies struct {
	Repo      repositories.Repository
	Logger    *slog.Logger
	Validator *validator.Validator

	Publisher events.Publisher
	Mailer    notify.Sender
	Gateway   payment.Gateway // nil disables payments
	Denylist  TokenRevoker
	Resets    ResetCodes

	Tokens  TokenConfig
	Pricing Pricing
}

// serviceManager implements ServiceManager interface
type serviceManager struct {
	deps Dependencies

	// Service instances
	authService         AuthService
	userService         UserService
	courseService       CourseService
	discussionService   DiscussionService
	quizService         QuizService
	progressService     ProgressService
	paymentService      PaymentService
	notificationService NotificationService
	evaluator           *access.Evaluator

	// Lifecycle management
	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

// NewServiceManager creates a new service manager with all dependencies
func NewServiceManager(deps Dependencies) ServiceManager {
	return &serviceManager{deps: deps}
}

// Initialize sets up all services and their dependencies
func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	if err := sm.deps.validate(); err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	d := sm.deps
	d.Logger.Info("Initializing service manager")

	sm.authService = NewAuthService(d.Repo, d.Logger, d.Validator, d.Publisher, d.Mailer, d.Denylist, d.Resets, d.Tokens)
	sm.userService = NewUserService(d.Repo, d.Logger, d.Validator)
	sm.courseService = NewCourseService(d.Repo, d.Logger, d.Validator)
	sm.discussionService = NewDiscussionService(d.Repo, d.Logger, d.Validator)
	sm.quizService = NewQuizService(d.Repo, d.Logger, d.Validator)
	sm.progressService = NewProgressService(d.Repo, d.Logger)
	sm.paymentService = NewPaymentService(d.Repo, d.Logger, d.Validator, d.Gateway, d.Publisher, d.Pricing)
	sm.notificationService = NewNotificationService(d.Mailer, d.Logger)
	sm.evaluator = access.NewEvaluator(access.NewRepositoryStore(d.Repo), d.Logger)

	if d.Gateway == nil {
		d.Logger.Warn("Payment gateway not configured, payments disabled")
	}

	sm.initialized = true
	d.Logger.Info("Service manager initialized successfully")
	return nil
}

func (d Dependencies) validate() error {
	switch {
	case d.Repo == nil:
		return fmt.Errorf("repository is required")
	case d.Logger == nil:
		return fmt.Errorf("logger is required")
	case d.Validator == nil:
		return fmt.Errorf("validator is required")
	case d.Publisher == nil:
		return fmt.Errorf("event publisher is required")
	case d.Mailer == nil:
		return fmt.Errorf("mail sender is required")
	case d.Denylist == nil || d.Resets == nil:
		return fmt.Errorf("token stores are required")
	case len(d.Tokens.Secret) == 0:
		return fmt.Errorf("token secret is required")
	}
	return nil
}

// Service getters

func (sm *serviceManager) mustBeReady() {
	if !sm.initialized {
		panic("service manager not initialized")
	}
}

func (sm *serviceManager) Auth() AuthService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeReady()
	return sm.authService
}

func (sm *serviceManager) User() UserService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeReady()
	return sm.userService
}

func (sm *serviceManager) Course() CourseService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeReady()
	return sm.courseService
}

func (sm *serviceManager) Discussion() DiscussionService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeReady()
	return sm.discussionService
}

func (sm *serviceManager) Quiz() QuizService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeReady()
	return sm.quizService
}

func (sm *serviceManager) Progress() ProgressService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeReady()
	return sm.progressService
}

func (sm *serviceManager) Payment() PaymentService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeReady()
	return sm.paymentService
}

func (sm *serviceManager) Notification() NotificationService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeReady()
	return sm.notificationService
}

func (sm *serviceManager) Evaluator() *access.Evaluator {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeReady()
	return sm.evaluator
}

// Health and lifecycle
func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		return fmt.Errorf("service manager not initialized")
	}

	if sm.shutdown {
		return fmt.Errorf("service manager is shut down")
	}

	if err := sm.deps.Repo.Ping(ctx); err != nil {
		return fmt.Errorf("repository health check failed: %w", err)
	}

	return nil
}

func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown {
		return nil
	}

	sm.deps.Logger.Info("Shutting down service manager")

	if err := sm.deps.Repo.Close(); err != nil {
		sm.deps.Logger.Error("Failed to close repository", "error", err)
	}

	sm.shutdown = true
	sm.deps.Logger.Info("Service manager shut down completed")

	return nil
}
