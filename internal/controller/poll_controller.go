package controller

import (
	"social_chat_backend/internal/service"
	"social_chat_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type PollController struct {
	PollService *service.PollService
	Hub         *service.ChatHub
}

func NewPollController(pollService *service.PollService, hub *service.ChatHub) *PollController {
	return &PollController{
		PollService: pollService,
		Hub:         hub,
	}
}

// PollWebhookRequest 投票创建请求体
// content 形如 "周末去哪玩? A) 爬山 B) 看电影 C) 在家躺着"
type PollWebhookRequest struct {
	GroupID string `json:"groupId" binding:"required"`
	Content string `json:"content" binding:"required"`
}

// CreateFromWebhook godoc
// @Summary 从文本创建投票
// @Description 解析 "问题? A) 选项 B) 选项" 格式的文本，生成投票消息并推送到群
// @Tags 投票
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body PollWebhookRequest true "群组与投票文本"
// @Success 201 {object} util.Response{data=model.Message} "创建成功"
// @Failure 400 {object} util.Response "解析失败或选项不足"
// @Router /api/polls/webhook [post]
func (c *PollController) CreateFromWebhook(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req PollWebhookRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	msg, err := c.PollService.CreateFromWebhook(claims.UserID, req.GroupID, req.Content)
	if err != nil {
		util.FailWith(ctx, err)
		return
	}

	c.Hub.BroadcastMessage(service.EventPollNew, msg)
	util.Created(ctx, msg)
}

// PollRespondRequest 投票选择请求体
type PollRespondRequest struct {
	OptionID string `json:"optionId" binding:"required"`
}

// Respond godoc
// @Summary 投票
// @Description 为进行中的投票选择一个选项，重复投票覆盖之前的选择
// @Tags 投票
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "投票ID"
// @Param   body body PollRespondRequest true "选项"
// @Success 200 {object} util.Response{data=model.Poll} "Success"
// @Failure 400 {object} util.Response "无效的选项"
// @Failure 403 {object} util.Response "不是该群成员"
// @Failure 404 {object} util.Response "投票不存在或已结束"
// @Router /api/polls/{id}/respond [post]
func (c *PollController) Respond(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req PollRespondRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	poll, err := c.PollService.RecordResponse(ctx.Param("id"), claims.UserID, req.OptionID)
	if err != nil {
		util.FailWith(ctx, err)
		return
	}

	c.Hub.BroadcastPoll(service.EventPollResponse, poll)
	util.Success(ctx, poll)
}

// Finalize godoc
// @Summary 结算投票
// @Description 群管理员可随时结算；全员已投票时任意群成员可结算。生成结果总结并由机器人播报
// @Tags 投票
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "投票ID"
// @Success 200 {object} util.Response{data=model.Poll} "Success"
// @Failure 403 {object} util.Response "无结算权限"
// @Failure 404 {object} util.Response "投票不存在"
// @Router /api/polls/{id}/finalize [post]
func (c *PollController) Finalize(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	poll, botMsg, err := c.PollService.Finalize(ctx.Request.Context(), ctx.Param("id"), claims.UserID)
	if err != nil {
		util.FailWith(ctx, err)
		return
	}

	c.Hub.BroadcastPoll(service.EventPollUpdate, poll)
	if botMsg != nil {
		c.Hub.BroadcastMessage(service.EventMessageNew, botMsg)
	}
	util.Success(ctx, poll)
}

// GetPoll godoc
// @Summary 投票详情
// @Description 获取投票的完整数据（选项、响应、结果总结），仅群成员可见
// @Tags 投票
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "投票ID"
// @Success 200 {object} util.Response{data=model.Poll} "Success"
// @Failure 403 {object} util.Response "不是该群成员"
// @Router /api/polls/{id} [get]
func (c *PollController) GetPoll(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	poll, err := c.PollService.GetPoll(ctx.Param("id"), claims.UserID)
	if err != nil {
		util.FailWith(ctx, err)
		return
	}
	util.Success(ctx, poll)
}
