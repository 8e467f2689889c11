package domain

// NotificationType is the severity of a user-facing notification.
type NotificationType string

const (
	NotificationError   NotificationType = "error"
	NotificationSuccess NotificationType = "success"
)

// Notification is a fire-and-forget user-facing message.
type Notification struct {
	Type        NotificationType `json:"type"`
	Message     string           `json:"message"`
	Description string           `json:"description,omitempty"`
}
