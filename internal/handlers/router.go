package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/eduhub/course-service/internal/models"
	"github.com/eduhub/course-service/internal/services"
	"github.com/eduhub/course-service/internal/utils"
)

type HandlerManager struct {
	authHandler       *AuthHandler
	userHandler       *UserHandler
	courseHandler     *CourseHandler
	discussionHandler *DiscussionHandler
	quizHandler       *QuizHandler
	progressHandler   *ProgressHandler
	paymentHandler    *PaymentHandler
	healthHandler     *HealthHandler
	authMiddleware    *AuthMiddleware
	guard             *AccessGuard
}

// NewHandlerManager wires handlers to an initialized service manager. sso may
// be nil.
func NewHandlerManager(
	serviceManager services.ServiceManager,
	logger utils.Logger,
	sso SSOVerifier,
	cookie CookieConfig,
	healthChecks map[string]HealthChecker,
) *HandlerManager {
	return &HandlerManager{
		authHandler:       NewAuthHandler(serviceManager.Auth(), cookie, logger),
		userHandler:       NewUserHandler(serviceManager.User(), logger),
		courseHandler:     NewCourseHandler(serviceManager.Course(), logger),
		discussionHandler: NewDiscussionHandler(serviceManager.Discussion(), logger),
		quizHandler:       NewQuizHandler(serviceManager.Quiz(), logger),
		progressHandler:   NewProgressHandler(serviceManager.Progress(), logger),
		paymentHandler:    NewPaymentHandler(serviceManager.Payment(), logger),
		healthHandler:     NewHealthHandler(logger, healthChecks),
		authMiddleware:    NewAuthMiddleware(serviceManager.Auth(), sso, logger),
		guard:             NewAccessGuard(serviceManager.Evaluator(), logger),
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", hm.healthHandler.Health)

	v1 := router.Group("/api/v1")

	// Public routes
	v1.POST("/users/signup", hm.authHandler.Signup)
	v1.POST("/users/login", hm.authHandler.Login)
	v1.POST("/users/forgot-password", hm.authHandler.ForgotPassword)
	v1.POST("/users/reset-password", hm.authHandler.ResetPassword)
	v1.POST("/payments/webhook", hm.paymentHandler.Webhook)
	v1.GET("/courses", hm.courseHandler.ListCourses)

	authed := v1.Group("")
	authed.Use(hm.authMiddleware.Authenticate())

	adminOnly := hm.guard.RequireRole(models.RoleAdmin)
	staff := hm.guard.RequireRole(models.RoleAdmin, models.RoleInstructor)

	users := authed.Group("/users")
	{
		users.POST("/logout", hm.authHandler.Logout)
		users.PATCH("/me/password", hm.authHandler.UpdatePassword)
		users.GET("/me", hm.userHandler.Me)
		users.GET("/:id/courses", hm.userHandler.UserCourses)

		users.GET("", adminOnly, hm.userHandler.ListUsers)
		users.GET("/:id", adminOnly, hm.userHandler.GetUser)
		users.PATCH("/:id", adminOnly, hm.userHandler.UpdateUser)
		users.DELETE("/:id", adminOnly, hm.userHandler.DeleteUser)
	}

	courses := authed.Group("/courses")
	{
		modify := hm.guard.ModifyCourse()

		courses.POST("", staff, hm.courseHandler.CreateCourse)
		courses.PATCH("/:courseId", modify, hm.courseHandler.UpdateCourse)
		courses.DELETE("/:courseId", modify, hm.courseHandler.DeleteCourse)

		courses.POST("/:courseId/modules", modify, hm.courseHandler.AddModule)
		courses.PATCH("/:courseId/modules/:moduleId", modify, hm.courseHandler.UpdateModule)
		courses.DELETE("/:courseId/modules/:moduleId", modify, hm.courseHandler.DeleteModule)

		courses.POST("/:courseId/modules/:moduleId/lessons", modify, hm.courseHandler.AddLesson)
		courses.GET("/:courseId/modules/:moduleId/lessons/:lessonId", hm.guard.AccessLessons(), hm.courseHandler.GetLesson)
		courses.PATCH("/:courseId/modules/:moduleId/lessons/:lessonId", modify, hm.courseHandler.UpdateLesson)
		courses.DELETE("/:courseId/modules/:moduleId/lessons/:lessonId", modify, hm.courseHandler.DeleteLesson)

		courses.GET("/:courseId/progress/export", modify, hm.progressHandler.ExportProgress)
	}

	discussions := authed.Group("/discussions")
	{
		post := hm.guard.PostDiscussion()
		interact := hm.guard.InteractDiscussion()

		discussions.GET("", adminOnly, hm.discussionHandler.ListDiscussions)
		discussions.POST("/lessons/:lessonId", post, hm.discussionHandler.CreateDiscussion)
		discussions.GET("/lessons/:lessonId", post, hm.discussionHandler.ListLessonDiscussions)
		discussions.POST("/:discussionId/replies", interact, hm.discussionHandler.Reply)
		discussions.POST("/:discussionId/like", interact, hm.discussionHandler.ToggleLike)
		discussions.DELETE("/:discussionId", staff, hm.discussionHandler.DeleteDiscussion)
	}

	quizzes := authed.Group("/quizzes")
	{
		create := hm.guard.CreateQuiz()
		take := hm.guard.TakeQuiz()
		manage := hm.guard.ManageQuiz()

		quizzes.POST("/courses/:courseId", create, hm.quizHandler.CreateQuiz)
		quizzes.POST("/courses/:courseId/modules/:moduleId", create, hm.quizHandler.CreateQuiz)
		quizzes.GET("", hm.guard.ListQuizzes(), hm.quizHandler.ListQuizzes)
		quizzes.GET("/:quizId", take, hm.quizHandler.GetQuiz)
		quizzes.POST("/:quizId/submit", take, hm.quizHandler.SubmitQuiz)
		quizzes.PATCH("/:quizId", manage, hm.quizHandler.UpdateQuiz)
		quizzes.DELETE("/:quizId", manage, hm.quizHandler.DeleteQuiz)
	}

	authed.GET("/progress/courses/:courseId", hm.guard.AccessLessons(), hm.progressHandler.GetProgress)

	payments := authed.Group("/payments")
	{
		payments.POST("", hm.paymentHandler.InitiatePayment)
		payments.GET("", hm.paymentHandler.ListPayments)
		payments.GET("/:paymentId", hm.paymentHandler.GetPayment)
		payments.POST("/:paymentId/refund", adminOnly, hm.paymentHandler.RefundPayment)
	}
}
