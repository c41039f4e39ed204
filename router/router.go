package router

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yeremiapane/shortage-app/controllers"
	"github.com/yeremiapane/shortage-app/middlewares"
	"github.com/yeremiapane/shortage-app/models"
	"github.com/yeremiapane/shortage-app/services"
	"github.com/yeremiapane/shortage-app/workflow"
)

// Deps membungkus kolaborator yang dirakit di main (atau diganti fake di test).
type Deps struct {
	DB       *gorm.DB
	Provider services.OrderProvider
	Store    services.HistoryStore
	Outbox   services.Outbox
	Registry *services.SessionRegistry
	Policy   workflow.ReopenPolicy
}

func SetupRouter(deps Deps) *gin.Engine {
	r := gin.Default()

	// Apply security middlewares
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares())
	r.Use(middlewares.LoggerMiddleware())

	// Inisialisasi controller
	userCtrl := controllers.NewUserController(deps.DB)
	sessionCtrl := controllers.NewSessionController(deps.Provider, deps.Store, deps.Outbox, deps.Registry, deps.Policy)
	orderCtrl := controllers.NewOrderController(deps.Registry)
	workflowCtrl := controllers.NewWorkflowController(deps.Registry)
	snapshotCtrl := controllers.NewSnapshotController(deps.Registry, deps.DB)

	// ----------------------------------------------------------------
	//                      PUBLIC ROUTES
	// ----------------------------------------------------------------
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	// Rate limiter untuk login/register
	public := r.Group("/")
	public.Use(middlewares.NewStrictRateLimiter())
	{
		public.POST("/register", userCtrl.Register)
		public.POST("/login", userCtrl.Login)
	}

	// Sesi dibuka dari link embed: param konteks (customerId, recordId,
	// role/department, historyValue) datang lewat query string, bukan JWT.
	r.POST("/sessions", sessionCtrl.CreateSession)

	// ----------------------------------------------------------------
	//                      SESSION-SCOPED ROUTES
	// ----------------------------------------------------------------
	sessions := r.Group("/sessions/:session_id")
	{
		sessions.GET("", sessionCtrl.GetSession)
		sessions.DELETE("", sessionCtrl.CloseSession)

		sessions.GET("/orders", orderCtrl.ListOrders)
		sessions.POST("/orders/:order_id/select", orderCtrl.SelectOrder)
		sessions.GET("/items", orderCtrl.GetItems)
		sessions.GET("/items/:item_id", orderCtrl.GetItem)

		// Aksi workflow; role gating dilakukan state machine per sesi,
		// bukan middleware, karena role menempel di sesi embed.
		sessions.PATCH("/items/:item_id/available", workflowCtrl.SetAvailable)
		sessions.POST("/items/:item_id/notify", workflowCtrl.SendNotice)
		sessions.POST("/items/:item_id/decision", workflowCtrl.Decide)
		sessions.POST("/items/:item_id/source-plan", workflowCtrl.ConfirmPlan)

		sessions.GET("/snapshot", snapshotCtrl.GetSnapshot)
		sessions.POST("/snapshot", snapshotCtrl.SaveSnapshot)
	}

	// ----------------------------------------------------------------
	//                      AUTHENTICATED ROUTES
	// ----------------------------------------------------------------
	auth := r.Group("/admin")
	auth.Use(middlewares.EnhancedAuthMiddleware())

	auth.GET("/profile", userCtrl.GetProfile)
	auth.POST("/logout", userCtrl.Logout)

	adminOnly := auth.Group("/")
	adminOnly.Use(middlewares.RoleCheck(models.RoleAdmin))
	{
		adminOnly.GET("/users", userCtrl.GetAllUsers)
		adminOnly.GET("/outbox", snapshotCtrl.ListOutbox)
	}

	// WebSocket endpoint dengan middleware khusus
	wsGroup := r.Group("/ws")
	wsGroup.Use(middlewares.WebSocketAuthMiddleware())
	{
		wsGroup.GET("", controllers.WorkflowSocketHandler)
	}

	return r
}
