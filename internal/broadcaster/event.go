package broadcaster

import "time"

const (
	EventMembershipUpdated = "membershipUpdated"
	EventThreadDelivered   = "threadDelivered"
	EventMessageDelivered  = "messageDelivered"
	EventNewMessageAlert   = "newMessageAlert"
)

type Event struct {
	Method     string    `json:"method"`
	CreateTime time.Time `json:"createTime"`
	Payload    any       `json:"payload"`
}

func NewEvent(method string, payload any) Event {
	return Event{
		Method:     method,
		CreateTime: time.Now(),
		Payload:    payload,
	}
}
