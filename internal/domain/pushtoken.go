package domain

// PushToken is stored at fcmTokens/{userId}; one record per user.
type PushToken struct {
	Token     string `json:"token"`
	UpdatedAt int64  `json:"updatedAt"`
}

// PushRegistration is what a client reports about its delivery channel.
type PushRegistration struct {
	DeviceToken string `json:"device_token"`
	Permission  string `json:"permission" validate:"required,oneof=granted denied default"`
}

const PermissionGranted = "granted"

// Toast is an in-app notice shown to a connected user.
type Toast struct {
	NotificationID string           `json:"notificationId,omitempty"`
	Type           NotificationType `json:"type,omitempty"`
	Title          string           `json:"title"`
	Body           string           `json:"body"`
}
