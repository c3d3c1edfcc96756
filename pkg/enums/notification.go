package enums

// NotificationType labels what a notification row is about.
type NotificationType string

const (
	NotificationTypeOrder   NotificationType = "order"
	NotificationTypePayment NotificationType = "payment"
)

// String implements fmt.Stringer.
func (t NotificationType) String() string {
	return string(t)
}
