package domain

// NotificationType classifies what triggered a notification.
type NotificationType string

const (
	NotificationTypeMessage    NotificationType = "message"
	NotificationTypeFeedPost   NotificationType = "feed_post"
	NotificationTypeGrade      NotificationType = "grade"
	NotificationTypeAssignment NotificationType = "assignment"
	NotificationTypeGeneral    NotificationType = "general"
)

// Valid reports whether t is one of the known notification types.
func (t NotificationType) Valid() bool {
	switch t {
	case NotificationTypeMessage, NotificationTypeFeedPost, NotificationTypeGrade,
		NotificationTypeAssignment, NotificationTypeGeneral:
		return true
	}
	return false
}

type NotificationData struct {
	ChatID      string `json:"chatId,omitempty"`
	PostID      string `json:"postId,omitempty"`
	SenderID    string `json:"senderId,omitempty"`
	SenderName  string `json:"senderName,omitempty"`
	SenderPhoto string `json:"senderPhoto,omitempty"`
}

// Notification is stored at notifications/{userId}/{id}. ID is the store key
// and is only populated on read.
type Notification struct {
	ID        string            `json:"id,omitempty"`
	UserID    string            `json:"userId"`
	Type      NotificationType  `json:"type"`
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	Read      bool              `json:"read"`
	Timestamp int64             `json:"timestamp"`
	Data      *NotificationData `json:"data,omitempty"`
	Deleted   bool              `json:"deleted,omitempty"`
}

// NotificationState is the position of a record in the two-tier deletion policy.
//
//	active --SoftDelete--> soft_deleted --retention--> purged
//	active ---------------retention-----------------> purged
type NotificationState string

const (
	NotificationActive      NotificationState = "active"
	NotificationSoftDeleted NotificationState = "soft_deleted"
)

func (n Notification) State() NotificationState {
	if n.Deleted {
		return NotificationSoftDeleted
	}
	return NotificationActive
}

// NotificationInput is the caller-supplied part of a notification.
type NotificationInput struct {
	Type    NotificationType  `json:"type" validate:"required,oneof=message feed_post grade assignment general"`
	Title   string            `json:"title" validate:"required"`
	Message string            `json:"message" validate:"required"`
	Data    *NotificationData `json:"data"`
}

// CreateNotificationsRequest is the fan-out request body.
type CreateNotificationsRequest struct {
	UserIDs []string `json:"user_ids" validate:"required,min=1,dive,required"`
	NotificationInput
}
