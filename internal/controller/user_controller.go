package controller

import (
	"social_chat_backend/internal/model"
	"social_chat_backend/internal/service"
	"social_chat_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type UserController struct {
	UserService       *service.UserService
	FriendshipService *service.FriendshipService
	Hub               *service.ChatHub
}

func NewUserController(userService *service.UserService, friendshipService *service.FriendshipService, hub *service.ChatHub) *UserController {
	return &UserController{
		UserService:       userService,
		FriendshipService: friendshipService,
		Hub:               hub,
	}
}

// UpdateProfileRequest 资料更新请求
type UpdateProfileRequest struct {
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl"`
}

// UpdateProfile godoc
// @Summary 更新个人资料
// @Description 更新昵称或头像链接，未提供的字段保持不变
// @Tags 用户
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body UpdateProfileRequest true "资料字段"
// @Success 200 {object} util.Response{data=model.User} "Success"
// @Failure 401 {object} util.Response "Unauthorized"
// @Router /api/user/profile [put]
func (c *UserController) UpdateProfile(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req UpdateProfileRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	user, err := c.UserService.UpdateProfile(claims.UserID, req.DisplayName, req.AvatarURL)
	if err != nil {
		util.FailWith(ctx, err)
		return
	}
	util.Success(ctx, user)
}

// UploadAvatar godoc
// @Summary 上传头像
// @Description 上传图片文件作为头像，返回可访问的 URL
// @Tags 用户
// @Accept  multipart/form-data
// @Produce  json
// @Security ApiKeyAuth
// @Param   file formData file true "头像图片"
// @Success 200 {object} util.Response{data=object} "Success"
// @Failure 400 {object} util.Response "文件格式不支持"
// @Router /api/user/avatar/upload [post]
func (c *UserController) UploadAvatar(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "缺少上传文件")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	defer file.Close()

	url, err := c.UserService.UploadAvatar(
		ctx.Request.Context(),
		claims.UserID,
		fileHeader.Filename,
		file,
		fileHeader.Size,
		fileHeader.Header.Get("Content-Type"),
	)
	if err != nil {
		util.FailWith(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"avatarUrl": url})
}

// SearchUsers godoc
// @Summary 搜索用户
// @Description 按用户名或昵称模糊搜索，结果附带与当前用户的关系状态
// @Tags 用户
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   q query string true "搜索关键词"
// @Success 200 {object} util.Response{data=[]service.UserWithRelation} "Success"
// @Failure 401 {object} util.Response "Unauthorized"
// @Router /api/users/search [get]
func (c *UserController) SearchUsers(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	result, err := c.FriendshipService.SearchUsers(claims.UserID, ctx.Query("q"))
	if err != nil {
		util.FailWith(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// UpdateStatusRequest 在线状态更新请求
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=online offline away"`
}

// UpdateStatus godoc
// @Summary 更新在线状态
// @Description 手动设置 online/offline/away
// @Tags 用户
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body UpdateStatusRequest true "状态"
// @Success 200 {object} util.Response "Success"
// @Failure 400 {object} util.Response "无效的状态值"
// @Router /api/user/status [put]
func (c *UserController) UpdateStatus(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req UpdateStatusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.UserService.UpdateStatus(claims.UserID, model.UserStatus(req.Status)); err != nil {
		util.FailWith(ctx, err)
		return
	}

	// 与 WS 上行 user:status 一致，状态变更后广播上下线事件
	c.Hub.NotifyStatus(claims.UserID, req.Status)
	util.Success(ctx, gin.H{"status": req.Status})
}
