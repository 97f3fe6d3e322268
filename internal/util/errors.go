package util

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind 业务错误分类，决定 HTTP 状态码
type ErrorKind int

const (
	KindValidation ErrorKind = iota
	KindAuthentication
	KindAuthorization
	KindNotFound
	KindConflict
	KindInternal
)

// AppError 应用错误类型
// 用于统一管理业务错误，携带分类和用户可见消息
type AppError struct {
	Kind    ErrorKind
	Message string
	Err     error // 原始错误（可选，用于调试）
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewError(kind ErrorKind, message string) *AppError {
	return &AppError{Kind: kind, Message: message}
}

// Wrap 携带原始错误返回同类错误
func (e *AppError) Wrap(err error) *AppError {
	return &AppError{Kind: e.Kind, Message: e.Message, Err: err}
}

// StatusOf 按错误分类映射 HTTP 状态码；冲突与参数错误同为 400
func StatusOf(err error) int {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError
	}
	switch appErr.Kind {
	case KindValidation, KindConflict:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// MessageOf 获取用户可见消息，非 AppError 不外泄内部细节
func MessageOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "服务器内部错误"
}

// 好友相关
var (
	ErrCannotAddSelf     = NewError(KindValidation, "不能添加自己为好友")
	ErrReceiverNotFound  = NewError(KindValidation, "接收人不存在")
	ErrRequestExists     = NewError(KindConflict, "已有待处理的好友申请")
	ErrAlreadyFriends    = NewError(KindConflict, "已经是好友了")
	ErrRequestNotFound   = NewError(KindNotFound, "好友申请不存在")
	ErrNotFriends        = NewError(KindAuthorization, "只能给好友发送私聊消息")
	ErrFriendRequired    = NewError(KindConflict, "只能邀请好友加入群组")
)

// 群组相关
var (
	ErrGroupNotFound   = NewError(KindNotFound, "群组不存在")
	ErrGroupPrivate    = NewError(KindAuthorization, "该群组不是公开群组")
	ErrAlreadyMember   = NewError(KindConflict, "已经是群成员了")
	ErrNotGroupMember  = NewError(KindConflict, "不是该群成员")
	ErrNotGroupAdmin   = NewError(KindAuthorization, "只有群管理员可以执行此操作")
	ErrMemberOnly      = NewError(KindAuthorization, "只有群成员可以查看")
	ErrGroupNameNeeded = NewError(KindValidation, "群组名称不能为空")
)

// 消息相关
var (
	ErrEmptyContent    = NewError(KindValidation, "消息内容不能为空")
	ErrTargetRequired  = NewError(KindValidation, "必须且只能指定 groupId 或 receiverId 之一")
	ErrNotGroupSender  = NewError(KindAuthorization, "不是该群成员，无法发送消息")
)

// 投票相关
var (
	ErrPollNotFound     = NewError(KindNotFound, "投票不存在或已结束")
	ErrInvalidOption    = NewError(KindValidation, "无效的投票选项")
	ErrNotPollMember    = NewError(KindAuthorization, "不是该群成员，无法参与投票")
	ErrFinalizeDenied   = NewError(KindAuthorization, "只有管理员或全员投票后才可结算")
	ErrPollParseFailed  = NewError(KindValidation, "无法从内容中解析出投票")
	ErrOptionsTooFew    = NewError(KindValidation, "投票至少需要两个选项")
)

// 用户/认证相关
var (
	ErrUserNotFound       = NewError(KindNotFound, "用户不存在")
	ErrEmailRegistered    = NewError(KindConflict, "该邮箱已被注册")
	ErrUsernameRegistered = NewError(KindConflict, "该用户名已被占用")
	ErrInvalidCredentials = NewError(KindAuthentication, "邮箱或密码错误")
)
