package controller

import (
	"social_chat_backend/internal/service"
	"social_chat_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type GroupController struct {
	GroupService *service.GroupService
	Hub          *service.ChatHub
}

func NewGroupController(groupService *service.GroupService, hub *service.ChatHub) *GroupController {
	return &GroupController{
		GroupService: groupService,
		Hub:          hub,
	}
}

// ListGroups godoc
// @Summary 我的群组
// @Description 获取当前用户加入的全部群组
// @Tags 群组
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.Group} "Success"
// @Failure 401 {object} util.Response "Unauthorized"
// @Router /api/groups [get]
func (c *GroupController) ListGroups(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	groups, err := c.GroupService.ListGroups(claims.UserID)
	if err != nil {
		util.FailWith(ctx, err)
		return
	}
	util.Success(ctx, groups)
}

// CreateGroupRequest 建群请求体
type CreateGroupRequest struct {
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description"`
	IsPublic    bool   `json:"isPublic"`
}

// CreateGroup godoc
// @Summary 创建群组
// @Description 创建群组，创建者自动成为管理员
// @Tags 群组
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body CreateGroupRequest true "群组信息"
// @Success 201 {object} util.Response{data=model.Group} "创建成功"
// @Failure 400 {object} util.Response "请求参数错误"
// @Router /api/groups [post]
func (c *GroupController) CreateGroup(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req CreateGroupRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	group, err := c.GroupService.CreateGroup(claims.UserID, req.Name, req.Description, req.IsPublic)
	if err != nil {
		util.FailWith(ctx, err)
		return
	}
	util.Created(ctx, group)
}

// JoinGroup godoc
// @Summary 加入群组
// @Description 自助加入公开群组，私有群组只能由成员邀请
// @Tags 群组
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "群组ID"
// @Success 200 {object} util.Response{data=model.Group} "Success"
// @Failure 400 {object} util.Response "已是群成员"
// @Failure 403 {object} util.Response "非公开群组"
// @Router /api/groups/{id}/join [post]
func (c *GroupController) JoinGroup(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	group, err := c.GroupService.JoinGroup(ctx.Param("id"), claims.UserID)
	if err != nil {
		util.FailWith(ctx, err)
		return
	}
	util.Success(ctx, group)
}

// LeaveGroup godoc
// @Summary 退出群组
// @Description 退出群组；管理员退出时最早加入的成员接任，最后一人退出则删除群组
// @Tags 群组
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "群组ID"
// @Success 200 {object} util.Response{data=service.LeaveResult} "Success"
// @Failure 400 {object} util.Response "不是该群成员"
// @Router /api/groups/{id}/leave [post]
func (c *GroupController) LeaveGroup(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	result, err := c.GroupService.LeaveGroup(ctx.Param("id"), claims.UserID)
	if err != nil {
		util.FailWith(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// GetMembers godoc
// @Summary 群成员列表
// @Description 按加入时间升序返回成员，仅群成员可见
// @Tags 群组
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "群组ID"
// @Success 200 {object} util.Response{data=[]model.GroupMember} "Success"
// @Failure 403 {object} util.Response "只有群成员可以查看"
// @Router /api/groups/{id}/members [get]
func (c *GroupController) GetMembers(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	members, err := c.GroupService.GetMembers(ctx.Param("id"), claims.UserID)
	if err != nil {
		util.FailWith(ctx, err)
		return
	}
	util.Success(ctx, members)
}

// AddMembersRequest 批量拉人请求体
type AddMembersRequest struct {
	UserIDs []uint `json:"userIds" binding:"required,min=1"`
}

// AddMembers godoc
// @Summary 邀请成员入群
// @Description 群管理员批量邀请好友入群；名单中存在非好友则整体失败并列出，已在群内的用户跳过上报
// @Tags 群组
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "群组ID"
// @Param   body body AddMembersRequest true "用户ID列表"
// @Success 200 {object} util.Response{data=service.AddMembersResult} "Success"
// @Failure 400 {object} util.Response "名单中存在非好友用户"
// @Failure 403 {object} util.Response "只有群管理员可以执行此操作"
// @Router /api/groups/{id}/members [post]
func (c *GroupController) AddMembers(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req AddMembersRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.GroupService.AddMembers(ctx.Param("id"), claims.UserID, req.UserIDs)
	if err != nil {
		util.FailWith(ctx, err)
		return
	}
	util.Success(ctx, result)
}
