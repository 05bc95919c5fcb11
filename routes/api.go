package routes

import (
	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/selimacar/crm-notifier/environments"
	"github.com/selimacar/crm-notifier/handlers"
	"github.com/selimacar/crm-notifier/internal/middlewares"
)

// RegisterRoutes registers all API routes with middleware
func RegisterRoutes(
	e *echo.Echo,
	healthHandler *handlers.HealthHandler,
	whatsappHandler *handlers.WhatsAppHandler,
	reminderHandler *handlers.ReminderHandler,
	templateHandler *handlers.TemplateHandler,
	schedulerHandler *handlers.SchedulerHandler,
	cfg *environments.Config,
) {
	e.GET("/health", healthHandler.Health)
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// Gateway webhook endpoints: the gateway authenticates via the verify
	// token handshake, not the API key.
	e.GET("/webhook", whatsappHandler.VerifyWebhook)
	e.POST("/webhook", whatsappHandler.ReceiveWebhook)

	// API v1 base group
	v1 := e.Group("/api/v1")

	// Chat routes (outbound sends and the message/contact log)
	chat := v1.Group("/chat", middlewares.APIKeyAuth(cfg.Auth.APIKey))

	chat.POST("/send", whatsappHandler.SendMessage)
	chat.POST("/send-bulk", whatsappHandler.SendBulk)
	chat.GET("/messages", whatsappHandler.GetMessages)
	chat.GET("/messages/stats", whatsappHandler.GetMessageStats)
	chat.GET("/messages/cached", whatsappHandler.GetCachedStatuses)
	chat.GET("/contacts", whatsappHandler.GetContacts)

	// Reminder routes
	reminders := v1.Group("/reminders", middlewares.APIKeyAuth(cfg.Auth.APIKey))

	reminders.POST("", reminderHandler.CreateReminder)
	reminders.GET("", reminderHandler.GetAllReminders)
	reminders.GET("/stats", reminderHandler.GetStats)
	reminders.GET("/:id", reminderHandler.GetReminder)
	reminders.POST("/:id/cancel", reminderHandler.CancelReminder)

	// Template routes
	templates := v1.Group("/templates", middlewares.APIKeyAuth(cfg.Auth.APIKey))

	templates.POST("", templateHandler.CreateTemplate)
	templates.GET("", templateHandler.GetAllTemplates)
	templates.POST("/sync", templateHandler.SyncTemplates)
	templates.GET("/:id", templateHandler.GetTemplate)
	templates.PUT("/:id", templateHandler.UpdateTemplate)
	templates.DELETE("/:id", templateHandler.DeleteTemplate)

	// Scheduler routes with their own API key
	schedulerGroup := v1.Group("/scheduler", middlewares.APIKeyAuth(cfg.Auth.SchedulerAPIKey))

	schedulerGroup.POST("/start", schedulerHandler.StartScheduler)
	schedulerGroup.POST("/stop", schedulerHandler.StopScheduler)
	schedulerGroup.GET("/status", schedulerHandler.GetSchedulerStatus)
}
