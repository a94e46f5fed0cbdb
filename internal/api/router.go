package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"organizer/internal/auth"
	"organizer/internal/config"
	"organizer/internal/handlers"
	"organizer/internal/metrics"
	"organizer/internal/models"
	"organizer/internal/service"
	"organizer/internal/store"
)

// Services bundles everything the routes call into.
type Services struct {
	Profiles     *service.Profiles
	Restaurants  *service.Restaurants
	Recipes      *service.Recipes
	Lists        *service.Lists
	Memories     *service.Memories
	Expenses     *service.Expenses
	DatePlans    *service.DatePlans
	Reminders    *service.Reminders
	Drinks       *service.Resource[models.Drink, *models.Drink]
	Habits       *service.Resource[models.Habit, *models.Habit]
	HabitEntries *service.Resource[models.HabitEntry, *models.HabitEntry]
	Moods        *service.Resource[models.MoodEntry, *models.MoodEntry]
	Jobs         *service.Resource[models.JobApplication, *models.JobApplication]
	CuratedLists *service.Resource[models.CuratedList, *models.CuratedList]
}

type Dependencies struct {
	Config   *config.Config
	JWT      *auth.JWTManager
	Auth     handlers.AuthProvider
	Services Services
	Hub      handlers.RealtimeHub
	Metrics  *metrics.Collector
	Logger   *zap.Logger

	// LocalBlobs, when set, is served under /blobs for development.
	LocalBlobs *store.MemoryBlobs
}

func SetupRouter(deps Dependencies) *gin.Engine {
	if !deps.Config.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(deps.Logger))
	router.Use(deps.Metrics.Middleware())
	router.Use(corsMiddleware(deps.Config.CORS.AllowedOrigins))

	svc := deps.Services

	authHandler := handlers.NewAuthHandler(deps.Auth, svc.Profiles, deps.Logger)
	userHandler := handlers.NewUserHandler(svc.Profiles)
	sharingHandler := handlers.NewSharingHandler(svc.Profiles)
	restaurantHandler := handlers.NewRestaurantHandler(svc.Profiles, svc.Restaurants)
	recipeHandler := handlers.NewRecipeHandler(svc.Profiles, svc.Recipes)
	listHandler := handlers.NewListHandler(svc.Profiles, svc.Lists)
	itemHandler := handlers.NewItemHandler(svc.Profiles, svc.Lists)
	memoryHandler := handlers.NewMemoryHandler(svc.Profiles, svc.Memories)
	planningHandler := handlers.NewPlanningHandler(svc.Profiles, svc.DatePlans, svc.Expenses)
	notificationHandler := handlers.NewNotificationHandler(svc.Profiles, svc.Reminders)
	wsHandler := handlers.NewWebSocketHandler(deps.Hub, svc.Profiles)

	router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	if deps.LocalBlobs != nil {
		router.GET("/blobs/:bucket/*path", serveBlob(deps.LocalBlobs))
	}

	// Public routes
	api := router.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})
		api.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))

		authRoutes := api.Group("/auth")
		{
			authRoutes.POST("/signup", authHandler.Signup)
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/refresh", authHandler.Refresh)
		}
	}

	// Protected routes
	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(deps.JWT))
	{
		protected.GET("/profile", userHandler.GetCurrentUser)
		protected.PUT("/profile", userHandler.UpdateCurrentUser)

		couple := protected.Group("/couple")
		{
			couple.POST("/invite", sharingHandler.Invite)
			couple.POST("/join", sharingHandler.Join)
			couple.GET("/members", sharingHandler.Members)
		}

		restaurants := protected.Group("/restaurants")
		{
			restaurants.GET("", restaurantHandler.List)
			restaurants.POST("", restaurantHandler.Create)
			restaurants.POST("/discover", restaurantHandler.Discover)
			restaurants.POST("/enrich", restaurantHandler.Enrich)
			restaurants.GET("/:id", restaurantHandler.Get)
			restaurants.PUT("/:id", restaurantHandler.Update)
			restaurants.DELETE("/:id", restaurantHandler.Delete)
			restaurants.PUT("/:id/reviews", restaurantHandler.UpsertReview)
			restaurants.DELETE("/:id/reviews", restaurantHandler.RemoveReview)
			restaurants.POST("/:id/favorite", restaurantHandler.ToggleFavorite)
			restaurants.POST("/:id/image", restaurantHandler.UploadImage)
			restaurants.POST("/:id/geocode", restaurantHandler.Geocode)
		}

		recipes := protected.Group("/recipes")
		{
			recipes.POST("/import", recipeHandler.Import)
			recipes.POST("/discover", recipeHandler.Discover)
			recipes.POST("/ingredients", recipeHandler.Ingredients)
			handlers.NewResourceHandler[models.Recipe](svc.Profiles, svc.Recipes).Register(recipes)
			recipes.POST("/:id/image", recipeHandler.UploadImage)
			recipes.POST("/:id/nutrition", recipeHandler.EstimateNutrition)
			recipes.POST("/:id/to-list", recipeHandler.ToList)
		}

		lists := protected.Group("/lists")
		{
			lists.GET("", listHandler.GetLists)
			lists.POST("", listHandler.CreateList)
			lists.GET("/suggestions", listHandler.Suggestions)
			lists.GET("/:id", listHandler.GetList)
			lists.PUT("/:id", listHandler.UpdateList)
			lists.DELETE("/:id", listHandler.DeleteList)
			lists.POST("/:id/clear-completed", listHandler.ClearCompleted)
		}

		items := protected.Group("/lists/:id/items")
		{
			items.POST("", itemHandler.CreateItem)
			items.PUT("/:itemId", itemHandler.UpdateItem)
			items.DELETE("/:itemId", itemHandler.DeleteItem)
		}

		memories := protected.Group("/memories")
		{
			handlers.NewResourceHandler[models.Memory](svc.Profiles, svc.Memories).Register(memories)
			memories.POST("/:id/image", memoryHandler.AddImage)
		}

		expenses := protected.Group("/expenses")
		{
			expenses.GET("/balance", planningHandler.Balance)
			handlers.NewResourceHandler[models.Expense](svc.Profiles, svc.Expenses).Register(expenses)
		}

		datePlans := protected.Group("/date-plans")
		{
			datePlans.POST("/suggest", planningHandler.SuggestDatePlan)
			handlers.NewResourceHandler[models.DatePlan](svc.Profiles, svc.DatePlans).Register(datePlans)
		}

		reminders := protected.Group("/reminders")
		{
			reminders.GET("/due", notificationHandler.GetDue)
			handlers.NewResourceHandler[models.Reminder](svc.Profiles, svc.Reminders).Register(reminders)
			reminders.POST("/:id/complete", notificationHandler.Complete)
		}

		handlers.NewResourceHandler[models.Drink](svc.Profiles, svc.Drinks).Register(protected.Group("/drinks"))
		handlers.NewResourceHandler[models.Habit](svc.Profiles, svc.Habits).Register(protected.Group("/habits"))
		handlers.NewResourceHandler[models.HabitEntry](svc.Profiles, svc.HabitEntries).Register(protected.Group("/habit-entries"))
		handlers.NewResourceHandler[models.MoodEntry](svc.Profiles, svc.Moods).Register(protected.Group("/moods"))
		handlers.NewResourceHandler[models.JobApplication](svc.Profiles, svc.Jobs).Register(protected.Group("/jobs"))
		handlers.NewResourceHandler[models.CuratedList](svc.Profiles, svc.CuratedLists).Register(protected.Group("/curated-lists"))

		realtime := protected.Group("/realtime")
		{
			realtime.GET("/ws", wsHandler.HandleWebSocket)
			realtime.GET("/online", wsHandler.GetOnlineUsers)
		}
	}

	return router
}

func serveBlob(blobs *store.MemoryBlobs) gin.HandlerFunc {
	return func(c *gin.Context) {
		data, ok := blobs.Object(c.Param("bucket"), strings.TrimPrefix(c.Param("path"), "/"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "Object not found"})
			return
		}
		c.Data(http.StatusOK, http.DetectContentType(data), data)
	}
}
