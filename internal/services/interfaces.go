package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/eduhub/course-service/internal/access"
	"github.com/eduhub/course-service/internal/events"
	"github.com/eduhub/course-service/internal/models"
	"github.com/eduhub/course-service/internal/repositories"
	"github.com/eduhub/course-service/internal/validator"
)

// ===== REQUEST/RESPONSE DTOs =====

// Request types live with the validator so their rules sit next to the custom tags
type (
	SignupRequest           = validator.SignupRequest
	LoginRequest            = validator.LoginRequest
	ForgotPasswordRequest   = validator.ForgotPasswordRequest
	ResetPasswordRequest    = validator.ResetPasswordRequest
	UpdatePasswordRequest   = validator.UpdatePasswordRequest
	UpdateUserRequest       = validator.UpdateUserRequest
	CreateCourseRequest     = validator.CreateCourseRequest
	UpdateCourseRequest     = validator.UpdateCourseRequest
	CreateModuleRequest     = validator.CreateModuleRequest
	UpdateModuleRequest     = validator.UpdateModuleRequest
	CreateLessonRequest     = validator.CreateLessonRequest
	UpdateLessonRequest     = validator.UpdateLessonRequest
	CreateDiscussionRequest = validator.CreateDiscussionRequest
	ReplyRequest            = validator.ReplyRequest
	CreateQuizRequest       = validator.CreateQuizRequest
	UpdateQuizRequest       = validator.UpdateQuizRequest
	SubmitQuizRequest       = validator.SubmitQuizRequest
	InitiatePaymentRequest  = validator.InitiatePaymentRequest
)

// Session is a freshly issued login token.
type Session struct {
	User      *models.User `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// TokenClaims are the verified contents of a session token.
type TokenClaims struct {
	TokenID   string
	UserID    uuid.UUID
	Role      models.UserRole
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type UserListResponse struct {
	Users []*models.User `json:"users"`
	Total int64          `json:"total"`
}

type CourseListResponse struct {
	Courses []*models.Course `json:"courses"`
	Total   int64            `json:"total"`
}

type DiscussionListResponse struct {
	Discussions []*models.Discussion `json:"discussions"`
	Total       int64                `json:"total"`
}

// LikeResult is the state of a discussion's likes after a toggle.
type LikeResult struct {
	Liked   bool        `json:"liked"`
	Likes   int         `json:"likes"`
	LikedBy []uuid.UUID `json:"liked_by"`
}

// QuizView is a quiz as shown to a caller. Correct options are only present
// for the course owner and admins.
type QuizView struct {
	ID          uuid.UUID      `json:"id"`
	Title       string         `json:"title"`
	Description *string        `json:"description,omitempty"`
	CourseID    *uuid.UUID     `json:"course_id,omitempty"`
	ModuleID    *uuid.UUID     `json:"module_id,omitempty"`
	Questions   []QuestionView `json:"questions"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

type QuestionView struct {
	QuestionText  string   `json:"question_text"`
	Options       []string `json:"options"`
	CorrectOption *int     `json:"correct_option,omitempty"`
}

type SubmissionResult struct {
	QuizID   uuid.UUID         `json:"quiz_id"`
	Grade    *models.QuizGrade `json:"grade"`
	Progress *models.Progress  `json:"progress,omitempty"`
}

// ProgressExport is a rendered spreadsheet.
type ProgressExport struct {
	FileName string
	Content  []byte
}

type PaymentListResponse struct {
	Payments []*models.Payment `json:"payments"`
	Total    int64             `json:"total"`
}

type PaymentCheckout struct {
	Payment      *models.Payment `json:"payment"`
	ClientSecret string          `json:"client_secret"`
}

// ===== SERVICE INTERFACES =====

type AuthService interface {
	Signup(ctx context.Context, req *SignupRequest) (*Session, error)
	Login(ctx context.Context, req *LoginRequest) (*Session, error)
	Logout(ctx context.Context, claims *TokenClaims) error
	// Authenticate verifies a session token and loads its user.
	Authenticate(ctx context.Context, token string) (*models.User, *TokenClaims, error)
	// UserByEmail resolves an externally authenticated identity to a local account.
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	ForgotPassword(ctx context.Context, req *ForgotPasswordRequest) error
	ResetPassword(ctx context.Context, req *ResetPasswordRequest) (*Session, error)
	UpdatePassword(ctx context.Context, userID uuid.UUID, req *UpdatePasswordRequest) (*Session, error)
}

type UserService interface {
	Get(ctx context.Context, id uuid.UUID) (*models.User, error)
	List(ctx context.Context, filters repositories.UserFilters) (*UserListResponse, error)
	Update(ctx context.Context, id uuid.UUID, req *UpdateUserRequest) (*models.User, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Courses(ctx context.Context, userID uuid.UUID) ([]*models.Course, error)
}

// CourseService mutates courses already resolved and authorized by the evaluator.
type CourseService interface {
	List(ctx context.Context, filters repositories.CourseFilters) (*CourseListResponse, error)
	Create(ctx context.Context, p *access.Principal, req *CreateCourseRequest) (*models.Course, error)
	Update(ctx context.Context, course *models.Course, req *UpdateCourseRequest) (*models.Course, error)
	Delete(ctx context.Context, course *models.Course) error

	AddModule(ctx context.Context, course *models.Course, req *CreateModuleRequest) (*models.Module, error)
	UpdateModule(ctx context.Context, course *models.Course, moduleID uuid.UUID, req *UpdateModuleRequest) (*models.Module, error)
	DeleteModule(ctx context.Context, course *models.Course, moduleID uuid.UUID) error

	GetLesson(ctx context.Context, course *models.Course, moduleID, lessonID uuid.UUID) (*models.Lesson, error)
	AddLesson(ctx context.Context, course *models.Course, moduleID uuid.UUID, req *CreateLessonRequest) (*models.Lesson, error)
	UpdateLesson(ctx context.Context, course *models.Course, moduleID, lessonID uuid.UUID, req *UpdateLessonRequest) (*models.Lesson, error)
	DeleteLesson(ctx context.Context, course *models.Course, moduleID, lessonID uuid.UUID) error
}

type DiscussionService interface {
	Create(ctx context.Context, course *models.Course, lessonID, authorID uuid.UUID, req *CreateDiscussionRequest) (*models.Discussion, error)
	ListByLesson(ctx context.Context, course *models.Course, lessonID uuid.UUID) ([]*models.Discussion, error)
	List(ctx context.Context, filters repositories.DiscussionFilters) (*DiscussionListResponse, error)
	Reply(ctx context.Context, discussion *models.Discussion, userID uuid.UUID, req *ReplyRequest) (*models.Discussion, error)
	ToggleLike(ctx context.Context, discussion *models.Discussion, userID uuid.UUID) (*LikeResult, error)
	Delete(ctx context.Context, discussionID uuid.UUID) error
}

type QuizService interface {
	Create(ctx context.Context, course *models.Course, moduleID *uuid.UUID, req *CreateQuizRequest) (*models.Quiz, error)
	Update(ctx context.Context, quiz *models.Quiz, req *UpdateQuizRequest) (*models.Quiz, error)
	Delete(ctx context.Context, quiz *models.Quiz) error
	List(ctx context.Context, p *access.Principal, course *models.Course, scope repositories.QuizScope) ([]*QuizView, error)
	Get(ctx context.Context, p *access.Principal, course *models.Course, quiz *models.Quiz) *QuizView
	Submit(ctx context.Context, p *access.Principal, course *models.Course, quiz *models.Quiz, req *SubmitQuizRequest) (*SubmissionResult, error)
}

type ProgressService interface {
	Get(ctx context.Context, studentID uuid.UUID, course *models.Course) (*models.Progress, error)
	Export(ctx context.Context, course *models.Course) (*ProgressExport, error)
}

type PaymentService interface {
	Initiate(ctx context.Context, p *access.Principal, req *InitiatePaymentRequest) (*PaymentCheckout, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
	List(ctx context.Context, p *access.Principal, filters repositories.PaymentFilters) (*PaymentListResponse, error)
	Get(ctx context.Context, p *access.Principal, paymentID uuid.UUID) (*models.Payment, error)
	Refund(ctx context.Context, paymentID uuid.UUID) (*models.Payment, error)
}

// EventRouter is the part of the event bus that dispatches to handlers.
type EventRouter interface {
	Handle(name, topic string, fn events.HandlerFunc)
}

// NotificationService turns domain events into email.
type NotificationService interface {
	Register(router EventRouter)
}

// TokenRevoker remembers logged-out tokens.
type TokenRevoker interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// ResetCodes stores single-use password reset codes.
type ResetCodes interface {
	Save(ctx context.Context, email, code string) error
	Consume(ctx context.Context, email, code string) error
	TTL() time.Duration
	Available() bool
}

// ===== SERVICE MANAGER =====

type ServiceManager interface {
	Auth() AuthService
	User() UserService
	Course() CourseService
	Discussion() DiscussionService
	Quiz() QuizService
	Progress() ProgressService
	Payment() PaymentService
	Notification() NotificationService
	Evaluator() *access.Evaluator

	// Health and lifecycle
	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
