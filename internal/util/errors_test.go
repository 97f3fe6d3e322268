package util

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatusOf(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{ErrCannotAddSelf, http.StatusBadRequest},
		{ErrRequestExists, http.StatusBadRequest},
		{ErrAlreadyFriends, http.StatusBadRequest},
		{ErrInvalidCredentials, http.StatusUnauthorized},
		{ErrNotFriends, http.StatusForbidden},
		{ErrNotGroupAdmin, http.StatusForbidden},
		{ErrGroupNotFound, http.StatusNotFound},
		{ErrPollNotFound, http.StatusNotFound},
		{errors.New("plain error"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		if got := StatusOf(c.err); got != c.want {
			t.Errorf("StatusOf(%v) = %d, want %d", c.err, got, c.want)
		}
	}
}

func TestStatusOfWrapped(t *testing.T) {
	wrapped := ErrRequestExists.Wrap(errors.New("Error 1062: Duplicate entry"))
	if got := StatusOf(wrapped); got != http.StatusBadRequest {
		t.Errorf("StatusOf(wrapped) = %d", got)
	}
	// fmt.Errorf 包装后仍可解出分类
	deep := fmt.Errorf("resolve request: %w", wrapped)
	if got := StatusOf(deep); got != http.StatusBadRequest {
		t.Errorf("StatusOf(deep) = %d", got)
	}
}

func TestMessageOf(t *testing.T) {
	if got := MessageOf(ErrAlreadyFriends); got != "已经是好友了" {
		t.Errorf("MessageOf = %q", got)
	}
	// 非业务错误不外泄内部细节
	if got := MessageOf(errors.New("dial tcp: connection refused")); got != "服务器内部错误" {
		t.Errorf("MessageOf(plain) = %q", got)
	}
}

func TestWrapKeepsUnwrapChain(t *testing.T) {
	inner := errors.New("boom")
	wrapped := ErrGroupNotFound.Wrap(inner)
	if !errors.Is(wrapped, inner) {
		t.Error("wrapped error lost the inner error")
	}
}
