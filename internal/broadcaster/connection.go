package broadcaster

// Connection is the outbound side of one session. The transport drains Send;
// the registry closes it on Unregister.
type Connection struct {
	Id       string
	Username string
	Send     chan Event
}

func NewConnection(id string, username string, queueSize int) *Connection {
	return &Connection{
		Id:       id,
		Username: username,
		Send:     make(chan Event, queueSize),
	}
}
