package enums

// NotificationType classifies admin dashboard notifications.
type NotificationType string

const (
	NotificationTypeNewOrder        NotificationType = "new_order"
	NotificationTypeOrderStatus     NotificationType = "order_status"
	NotificationTypeLowStock        NotificationType = "low_stock"
	NotificationTypeReturnRequested NotificationType = "return_requested"
	NotificationTypeSystem          NotificationType = "system"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeNewOrder,
	NotificationTypeOrderStatus,
	NotificationTypeLowStock,
	NotificationTypeReturnRequested,
	NotificationTypeSystem,
}

// IsValid checks whether the given type matches the canonical enum.
func (n NotificationType) IsValid() bool {
	return member(n, validNotificationTypes)
}

// ParseNotificationType converts raw strings into NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	return parseMember("notification type", value, validNotificationTypes)
}
