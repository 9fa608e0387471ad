package services

import "errors"

var (
	ErrUserAlreadyExists  = errors.New("用户名或邮箱已存在")
	ErrInvalidCredentials = errors.New("无效的用户名或密码")
	ErrUserNotFound       = errors.New("用户未找到")
	ErrInvalidInput       = errors.New("invalid input")

	ErrSongNotFound       = errors.New("song not found")
	ErrSwipeNotFound      = errors.New("swipe not found")
	ErrInvalidSwipeAction = errors.New("invalid swipe action")
	ErrNothingToUndo      = errors.New("nothing to undo")

	ErrDiscussionNotFound = errors.New("discussion not found")
	ErrSelfDiscussion     = errors.New("cannot start a discussion with yourself")
	ErrNotParticipant     = errors.New("user is not a participant of this discussion")
	ErrEmptyMessage       = errors.New("message text is empty")

	ErrPurchaseNotFound  = errors.New("purchase not found")
	ErrInvalidTransition = errors.New("invalid purchase state transition")
)

// UnknownUsername 是创建者或参与者记录缺失时显示的名字。
const UnknownUsername = "Unknown User"
