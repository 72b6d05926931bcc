package domain

// Store roots.
const (
	NotificationsRoot  = "notifications"
	PushTokensRoot     = "fcmTokens"
	ClassChatsRoot     = "chats"
	DirectMessagesRoot = "directMessages"
	FeedPostsRoot      = "efeedPosts"
	ClassesRoot        = "classes"
)

func NotificationsPath(userID string) string {
	return NotificationsRoot + "/" + userID
}

func NotificationPath(userID, notificationID string) string {
	return NotificationsPath(userID) + "/" + notificationID
}

func PushTokenPath(userID string) string {
	return PushTokensRoot + "/" + userID
}

// ClassMessagesPath is chats/{classId}/messages.
func ClassMessagesPath(classID string) string {
	return ClassChatsRoot + "/" + classID + "/messages"
}

func DirectMessagesPath(chatRoomID string) string {
	return DirectMessagesRoot + "/" + chatRoomID
}
