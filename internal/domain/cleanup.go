package domain

// CleanupStats summarises one retention pass. Error is set when at least one
// sweep failed; that sweep reports 0.
type CleanupStats struct {
	RunID                 string `json:"runId,omitempty"`
	MessagesDeleted       int    `json:"messagesDeleted"`
	DirectMessagesDeleted int    `json:"directMessagesDeleted"`
	PostsDeleted          int    `json:"postsDeleted"`
	NotificationsDeleted  int    `json:"notificationsDeleted"`
	Timestamp             int64  `json:"timestamp"`
	Error                 string `json:"error,omitempty"`
}

// Total is the number of records deleted across every family.
func (s CleanupStats) Total() int {
	return s.MessagesDeleted + s.DirectMessagesDeleted + s.PostsDeleted + s.NotificationsDeleted
}
