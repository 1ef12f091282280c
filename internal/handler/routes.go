package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/word-sanctuary/appraisal-api/internal/middleware"
	"github.com/word-sanctuary/appraisal-api/internal/models"
	"github.com/word-sanctuary/appraisal-api/internal/service"
)

// Handlers bundles everything RegisterRoutes needs.
type Handlers struct {
	Auth        *AuthHandler
	Trainees    *TraineeHandler
	Appraisals  *AppraisalHandler
	Assessments *AssessmentHandler
	Users       *UserHandler
	Dashboard   *DashboardHandler
	Reports     *ReportHandler
	Metrics     *MetricsHandler

	AuthService *service.AuthService
}

// RegisterRoutes mounts the API route table on the engine. Static and
// parameter segments never share a position; gin's tree rejects that.
func RegisterRoutes(r *gin.Engine, prefix string, h Handlers) {
	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Health)
	r.GET("/metrics", h.Metrics.Prometheus)

	// Download links are pre-signed; the token is the credential.
	r.GET("/reports/download", h.Reports.Download)

	jwt := middleware.JWT(h.AuthService)
	anyRole := middleware.RequireRoles(models.RoleLeadership, models.RoleAdmin, models.RoleSuperAdmin)
	adminUp := middleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin)
	superOnly := middleware.RequireRoles(models.RoleSuperAdmin)

	api := r.Group(prefix)

	auth := api.Group("/auth")
	auth.POST("/login", h.Auth.Login)
	auth.POST("/verify", h.Auth.Verify)
	auth.POST("/select-role", jwt, h.Auth.SelectRole)
	auth.POST("/logout", jwt, h.Auth.Logout)
	auth.GET("/me", jwt, h.Auth.Me)

	trainees := api.Group("/trainees", jwt)
	trainees.GET("", anyRole, h.Trainees.List)
	trainees.POST("", adminUp, h.Trainees.Create)
	trainees.GET("/:id", anyRole, h.Trainees.Get)
	trainees.PUT("/:id", adminUp, h.Trainees.Update)
	trainees.PUT("/:id/review", superOnly, h.Trainees.Review)
	trainees.GET("/:id/recommendation", adminUp, h.Trainees.GetRecommendation)
	trainees.PUT("/:id/recommendation", superOnly, h.Trainees.SaveRecommendation)

	api.GET("/summary/trainees", jwt, anyRole, h.Trainees.Summary)
	api.GET("/exports/trainees", jwt, adminUp, h.Trainees.Export)

	appraisals := api.Group("/appraisals", jwt, middleware.RequireFormAccess())
	appraisals.GET("/:formType", h.Appraisals.List)
	appraisals.GET("/:formType/:submissionId", h.Appraisals.GetSubmission)
	appraisals.GET("/:formType/:submissionId/status", h.Appraisals.GetStatus)
	appraisals.PUT("/:formType/:submissionId", h.Appraisals.Submit)

	assessments := api.Group("/assessments", jwt)
	assessments.GET("", anyRole, h.Assessments.List)
	assessments.POST("", adminUp, h.Assessments.Create)
	assessments.GET("/:id", anyRole, h.Assessments.Get)
	assessments.DELETE("/:id", adminUp, h.Assessments.Delete)
	assessments.POST("/:id/questions", adminUp, h.Assessments.UploadQuestions)
	assessments.POST("/:id/attempts", anyRole, h.Assessments.StartAttempt)
	assessments.GET("/:id/attempts", adminUp, h.Assessments.ListAttempts)
	assessments.GET("/:id/results", adminUp, h.Assessments.Results)

	attempts := api.Group("/attempts", jwt)
	attempts.PUT("/:attemptId/answer", anyRole, h.Assessments.SubmitAnswer)
	attempts.POST("/:attemptId/violations", anyRole, h.Assessments.RecordViolation)
	attempts.PUT("/:attemptId/score", adminUp, h.Assessments.Score)

	profile := api.Group("/profile", jwt, anyRole)
	profile.GET("", h.Users.Me)
	profile.PUT("", h.Users.UpdateProfile)
	profile.GET("/settings", h.Users.Settings)
	profile.PUT("/settings", h.Users.UpdateSettings)
	profile.PUT("/password", h.Users.ChangePassword)

	users := api.Group("/users", jwt, superOnly)
	users.GET("", h.Users.List)
	users.PUT("/:id/role", h.Users.AssignRole)

	api.GET("/dashboard", jwt, anyRole, h.Dashboard.Summary)

	reports := api.Group("/reports", jwt, adminUp)
	reports.POST("", h.Reports.Enqueue)
	reports.GET("/:id", h.Reports.Status)
}
