package controller

import (
	"strconv"

	"social_chat_backend/internal/service"
	"social_chat_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type MessageController struct {
	MessageService *service.MessageService
	Hub            *service.ChatHub
}

func NewMessageController(messageService *service.MessageService, hub *service.ChatHub) *MessageController {
	return &MessageController{
		MessageService: messageService,
		Hub:            hub,
	}
}

// SendMessageRequest 发消息请求体，groupId 与 receiverId 二选一
type SendMessageRequest struct {
	Content    string  `json:"content" binding:"required"`
	GroupID    *string `json:"groupId"`
	ReceiverID *uint   `json:"receiverId"`
}

// SendMessage godoc
// @Summary 发送消息
// @Description 发送群聊或私聊文本消息，落库后向对应房间实时推送
// @Tags 消息
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body SendMessageRequest true "消息内容与目标"
// @Success 201 {object} util.Response{data=model.Message} "创建成功"
// @Failure 400 {object} util.Response "目标缺失或同时指定了两种目标"
// @Failure 403 {object} util.Response "无权向该目标发送"
// @Router /api/messages [post]
func (c *MessageController) SendMessage(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req SendMessageRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	msg, err := c.MessageService.SendMessage(claims.UserID, req.Content, req.GroupID, req.ReceiverID)
	if err != nil {
		util.FailWith(ctx, err)
		return
	}

	c.Hub.BroadcastMessage(service.EventMessageNew, msg)
	util.Created(ctx, msg)
}

// ListMessages godoc
// @Summary 历史消息
// @Description 按时间升序返回最近一页消息，投票消息附带完整投票数据
// @Tags 消息
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   groupId query string false "群组ID（与 userId 二选一）"
// @Param   userId query int false "私聊对方用户ID（与 groupId 二选一）"
// @Param   limit query int false "数量，默认50"
// @Param   offset query int false "偏移量，默认0"
// @Success 200 {object} util.Response{data=[]model.Message} "Success"
// @Failure 403 {object} util.Response "只有群成员可以查看"
// @Router /api/messages [get]
func (c *MessageController) ListMessages(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var groupID *string
	var otherID *uint
	if g := ctx.Query("groupId"); g != "" {
		groupID = &g
	}
	if u := ctx.Query("userId"); u != "" {
		id, err := strconv.ParseUint(u, 10, 32)
		if err != nil {
			util.BadRequest(ctx, "userId 必须是数字")
			return
		}
		uid := uint(id)
		otherID = &uid
	}
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(ctx.DefaultQuery("offset", "0"))

	msgs, err := c.MessageService.ListMessages(claims.UserID, groupID, otherID, limit, offset)
	if err != nil {
		util.FailWith(ctx, err)
		return
	}
	util.Success(ctx, msgs)
}
