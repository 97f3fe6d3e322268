package app

import (
	"social_chat_backend/docs"
	"social_chat_backend/internal/config"
	"social_chat_backend/internal/middleware"
	"social_chat_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 公共路由(无需登录)
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
	}

	// 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg), middleware.ActivityMiddleware(repos.user))
	{
		// 用户
		authGroup.GET("/profile", c.auth.GetProfile)
		authGroup.PUT("/user/profile", c.user.UpdateProfile)
		authGroup.POST("/user/avatar/upload", c.user.UploadAvatar)
		authGroup.PUT("/user/status", c.user.UpdateStatus)
		authGroup.GET("/users/search", c.user.SearchUsers)

		// 好友
		authGroup.GET("/friends", c.friend.ListFriends)
		authGroup.GET("/friend-requests", c.friend.ListRequests)
		authGroup.POST("/friend-requests", c.friend.SendRequest)
		authGroup.PUT("/friend-requests/:id", c.friend.RespondRequest)

		// 群组
		authGroup.GET("/groups", c.group.ListGroups)
		authGroup.POST("/groups", c.group.CreateGroup)
		authGroup.POST("/groups/:id/join", c.group.JoinGroup)
		authGroup.POST("/groups/:id/leave", c.group.LeaveGroup)
		authGroup.GET("/groups/:id/members", c.group.GetMembers)
		authGroup.POST("/groups/:id/members", c.group.AddMembers)

		// 消息
		authGroup.GET("/messages", c.message.ListMessages)
		authGroup.POST("/messages", c.message.SendMessage)

		// 投票
		authGroup.POST("/polls/webhook", c.poll.CreateFromWebhook)
		authGroup.GET("/polls/:id", c.poll.GetPoll)
		authGroup.POST("/polls/:id/respond", c.poll.Respond)
		authGroup.POST("/polls/:id/finalize", c.poll.Finalize)

		// 实时
		authGroup.GET("/chat/ws", c.chat.HandleWebSocket)
		authGroup.GET("/chat/online", c.chat.OnlineStatus)
	}
}
