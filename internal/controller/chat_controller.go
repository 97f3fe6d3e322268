package controller

import (
	"social_chat_backend/internal/service"
	"social_chat_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ChatController struct {
	Hub *service.ChatHub
}

func NewChatController(hub *service.ChatHub) *ChatController {
	return &ChatController{Hub: hub}
}

// HandleWebSocket godoc
// @Summary WebSocket 连接
// @Description 升级为 WebSocket 连接，token 通过查询参数传递。上行事件：join:room / leave:room / message:send / poll:respond / user:status
// @Tags 实时
// @Security ApiKeyAuth
// @Param   token query string true "JWT令牌"
// @Success 101 "Switching Protocols"
// @Failure 401 {object} util.Response "Unauthorized"
// @Router /api/chat/ws [get]
func (c *ChatController) HandleWebSocket(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	service.ServeWs(c.Hub, ctx.Writer, ctx.Request, claims.UserID)
}

// OnlineStatus godoc
// @Summary 查询用户在线状态
// @Description 查询指定用户当前是否在线（先查本实例，再查 Redis）
// @Tags 实时
// @Produce  json
// @Security ApiKeyAuth
// @Param   userId query int true "用户ID"
// @Success 200 {object} util.Response{data=object} "Success"
// @Router /api/chat/online [get]
func (c *ChatController) OnlineStatus(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var query struct {
		UserID uint `form:"userId" binding:"required"`
	}
	if err := ctx.ShouldBindQuery(&query); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	util.Success(ctx, gin.H{
		"userId": query.UserID,
		"online": c.Hub.IsUserOnline(query.UserID),
	})
}
