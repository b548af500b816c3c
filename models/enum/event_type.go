package enum

// EventType 表示 storefront 發布的領域事件類型
type EventType string

const (
	EventTypeIdentityChanged EventType = "identity.changed"
	EventTypeCartUpdated     EventType = "cart.updated"
	EventTypeProfileUpdated  EventType = "profile.updated"
)
