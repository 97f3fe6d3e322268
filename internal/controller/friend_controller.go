package controller

import (
	"strconv"

	"social_chat_backend/internal/service"
	"social_chat_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type FriendController struct {
	FriendshipService *service.FriendshipService
	Hub               *service.ChatHub
}

func NewFriendController(friendshipService *service.FriendshipService, hub *service.ChatHub) *FriendController {
	return &FriendController{
		FriendshipService: friendshipService,
		Hub:               hub,
	}
}

// ListFriends godoc
// @Summary 好友列表
// @Description 获取当前用户的全部好友
// @Tags 好友
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]service.FriendEntry} "Success"
// @Failure 401 {object} util.Response "Unauthorized"
// @Router /api/friends [get]
func (c *FriendController) ListFriends(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	friends, err := c.FriendshipService.ListFriends(claims.UserID)
	if err != nil {
		util.FailWith(ctx, err)
		return
	}
	util.Success(ctx, friends)
}

// ListRequests godoc
// @Summary 好友申请列表
// @Description 分页获取与当前用户相关的好友申请（收到的和发出的）
// @Tags 好友
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   page query int false "页码，默认1"
// @Param   limit query int false "每页数量，默认20"
// @Success 200 {object} util.Response{data=util.PageResponse} "Success"
// @Failure 401 {object} util.Response "Unauthorized"
// @Router /api/friend-requests [get]
func (c *FriendController) ListRequests(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	requests, total, err := c.FriendshipService.ListRequests(claims.UserID, limit, (page-1)*limit)
	if err != nil {
		util.FailWith(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{
		List:  requests,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}

// SendRequestRequest 好友申请请求体
type SendRequestRequest struct {
	ReceiverID uint `json:"receiverId" binding:"required"`
}

// SendRequest godoc
// @Summary 发起好友申请
// @Description 向指定用户发送好友申请，对方在线时收到实时通知
// @Tags 好友
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body SendRequestRequest true "接收人"
// @Success 201 {object} util.Response{data=model.FriendRequest} "创建成功"
// @Failure 400 {object} util.Response "已是好友或已有待处理申请"
// @Router /api/friend-requests [post]
func (c *FriendController) SendRequest(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req SendRequestRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	request, err := c.FriendshipService.SubmitRequest(claims.UserID, req.ReceiverID)
	if err != nil {
		util.FailWith(ctx, err)
		return
	}

	c.Hub.PushToUsers([]uint{req.ReceiverID}, service.WSMessage{
		Type: service.EventFriendRequest,
		Data: request,
	})
	util.Created(ctx, request)
}

// RespondRequestRequest 处理好友申请请求体
type RespondRequestRequest struct {
	Action string `json:"action" binding:"required,oneof=accept reject"`
}

// RespondRequest godoc
// @Summary 处理好友申请
// @Description 接受或拒绝一条发给自己的待处理申请；接受后双方建立好友关系
// @Tags 好友
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "申请ID"
// @Param   body body RespondRequestRequest true "处理动作"
// @Success 200 {object} util.Response{data=object} "Success"
// @Failure 404 {object} util.Response "申请不存在或无权处理"
// @Router /api/friend-requests/{id} [put]
func (c *FriendController) RespondRequest(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req RespondRequestRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	accept := req.Action == "accept"
	request, friendship, err := c.FriendshipService.RespondToRequest(ctx.Param("id"), claims.UserID, accept)
	if err != nil {
		util.FailWith(ctx, err)
		return
	}

	if accept {
		c.Hub.PushToUsers([]uint{request.SenderID}, service.WSMessage{
			Type: service.EventFriendAccepted,
			Data: gin.H{"request": request, "friendship": friendship},
		})
	}
	util.Success(ctx, gin.H{"request": request, "friendship": friendship})
}
