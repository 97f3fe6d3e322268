package service

import (
	"testing"

	"social_chat_backend/internal/model"
)

func TestClassifyFriends(t *testing.T) {
	friendships := []model.Friendship{{User1ID: 1, User2ID: 5}}
	// 好友关系优先于遗留的申请记录
	requests := []model.FriendRequest{{SenderID: 1, ReceiverID: 5, Status: model.RequestPending}}

	if got := Classify(requests, friendships, 1, 5); got != model.RelationFriends {
		t.Errorf("Classify = %v, want friends", got)
	}
	if got := Classify(requests, friendships, 5, 1); got != model.RelationFriends {
		t.Errorf("Classify reversed = %v, want friends", got)
	}
}

func TestClassifyRequestDirections(t *testing.T) {
	requests := []model.FriendRequest{{SenderID: 2, ReceiverID: 7, Status: model.RequestPending}}

	if got := Classify(requests, nil, 2, 7); got != model.RelationRequestSent {
		t.Errorf("sender side = %v, want request_sent", got)
	}
	if got := Classify(requests, nil, 7, 2); got != model.RelationRequestReceived {
		t.Errorf("receiver side = %v, want request_received", got)
	}
}

func TestClassifyIgnoresResolvedRequests(t *testing.T) {
	requests := []model.FriendRequest{
		{SenderID: 2, ReceiverID: 7, Status: model.RequestRejected},
		{SenderID: 7, ReceiverID: 2, Status: model.RequestAccepted},
	}

	if got := Classify(requests, nil, 2, 7); got != model.RelationNone {
		t.Errorf("Classify = %v, want none", got)
	}
}

func TestClassifyNone(t *testing.T) {
	if got := Classify(nil, nil, 1, 2); got != model.RelationNone {
		t.Errorf("Classify = %v, want none", got)
	}
}
