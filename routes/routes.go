package routes

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"unidos-api/controllers"
	"unidos-api/middleware"
	"unidos-api/models"
)

// Controllers bundles the handler sets wired in main.
type Controllers struct {
	Auth       *controllers.AuthController
	Events     *controllers.EventController
	MegaEvents *controllers.MegaEventController
	Companies  *controllers.CompanyController
}

// SetupRoutes registers the public and protected route groups.
func SetupRoutes(r *gin.Engine, ctrl Controllers, jwtSecret string) {
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.RequestLogger())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	v1 := r.Group("/api/v1")
	v1.Use(middleware.RateLimiter(rate.Limit(20), 40))

	// Public surface
	v1.POST("/auth/register", ctrl.Auth.Register)
	v1.POST("/auth/login", ctrl.Auth.Login)
	v1.GET("/events", ctrl.Events.List)
	v1.GET("/events/:id", ctrl.Events.Get)
	v1.GET("/events/:id/history", ctrl.Events.History)
	v1.GET("/events/:id/transitions", ctrl.Events.Transitions)
	v1.GET("/events/:id/participants", ctrl.Events.Participants)
	v1.GET("/events/:id/stats", ctrl.Events.Stats)
	v1.GET("/mega-events", ctrl.MegaEvents.List)
	v1.GET("/mega-events/:id", ctrl.MegaEvents.Get)
	v1.GET("/mega-events/:id/history", ctrl.MegaEvents.History)
	v1.GET("/mega-events/:id/transitions", ctrl.MegaEvents.Transitions)
	v1.GET("/mega-events/:id/participants", ctrl.MegaEvents.Participants)
	v1.GET("/mega-events/:id/stats", ctrl.MegaEvents.Stats)
	v1.GET("/companies", ctrl.Companies.List)
	v1.GET("/ngos", ctrl.Companies.ListNGOs)

	protected := v1.Group("")
	protected.Use(middleware.AuthMiddleware(jwtSecret))

	protected.GET("/auth/me", ctrl.Auth.Me)

	organizers := protected.Group("")
	organizers.Use(middleware.RequireRoles(models.RoleNGO, models.RoleSuperAdmin))

	// Events
	organizers.POST("/events", ctrl.Events.Create)
	organizers.GET("/events/mine", ctrl.Events.ListMine)
	organizers.GET("/events/mine/stats", ctrl.Events.MineStats)
	organizers.PUT("/events/:id", ctrl.Events.Update)
	organizers.DELETE("/events/:id", ctrl.Events.Delete)
	organizers.PATCH("/events/:id/status", ctrl.Events.ChangeStatus)
	organizers.POST("/events/:id/approve", ctrl.Events.Approve)
	organizers.POST("/events/:id/attendance", ctrl.Events.MarkAttendance)
	organizers.POST("/events/:id/images", ctrl.Events.UploadImages)
	organizers.DELETE("/events/:id/images/:index", ctrl.Events.RemoveImage)
	organizers.POST("/events/:id/backers", ctrl.Events.AddBacker)
	organizers.DELETE("/events/:id/backers", ctrl.Events.RemoveBacker)

	protected.POST("/events/:id/register", ctrl.Events.Register)
	protected.DELETE("/events/:id/register", ctrl.Events.CancelRegistration)
	protected.POST("/events/:id/sponsors",
		middleware.RequireRoles(models.RoleCompany), ctrl.Events.AddSponsor)
	protected.DELETE("/events/:id/sponsors",
		middleware.RequireRoles(models.RoleCompany), ctrl.Events.RemoveSponsor)

	// Mega-events
	organizers.POST("/mega-events", ctrl.MegaEvents.Create)
	organizers.GET("/mega-events/mine", ctrl.MegaEvents.ListMine)
	organizers.PUT("/mega-events/:id", ctrl.MegaEvents.Update)
	organizers.DELETE("/mega-events/:id", ctrl.MegaEvents.Delete)
	organizers.PATCH("/mega-events/:id/status", ctrl.MegaEvents.ChangeStatus)
	organizers.POST("/mega-events/:id/approve", ctrl.MegaEvents.Approve)
	organizers.POST("/mega-events/:id/attendance", ctrl.MegaEvents.MarkAttendance)
	organizers.POST("/mega-events/:id/organizers", ctrl.MegaEvents.AddOrganizer)
	organizers.DELETE("/mega-events/:id/organizers/:ngoId", ctrl.MegaEvents.RemoveOrganizer)
	organizers.PATCH("/mega-events/:id/pledges", ctrl.MegaEvents.SetPledgeState)
	organizers.POST("/mega-events/:id/images", ctrl.MegaEvents.UploadImages)
	organizers.DELETE("/mega-events/:id/images/:index", ctrl.MegaEvents.RemoveImage)

	protected.POST("/mega-events/:id/register", ctrl.MegaEvents.Register)
	protected.DELETE("/mega-events/:id/register", ctrl.MegaEvents.CancelRegistration)
	protected.POST("/mega-events/:id/pledges",
		middleware.RequireRoles(models.RoleCompany), ctrl.MegaEvents.AddPledge)
}
