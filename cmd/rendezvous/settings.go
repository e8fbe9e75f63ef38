package main

import "time"

const (
	// A rune sent as an escaped surrogate pair takes 12 bytes of JSON.
	maxEncodedRuneSize = 12
	envelopeHeadroom   = 1024
)

type Settings struct {
	Port        int    `env:"PORT,default=8000"`
	BasePath    string `env:"BASE_PATH,default=/rendezvous"`
	LogEncoding string `env:"LOG_ENCODING,default=console"`
	LogLevel    string `env:"LOG_LEVEL,default=debug"`

	JWTSecret      string        `env:"JWT_SECRET,required=true"`
	TokenTTL       time.Duration `env:"TOKEN_TTL,default=24h"`
	AllowedOrigins string        `env:"ALLOWED_ORIGINS"`

	// mongodb or memory
	Storage         string `env:"STORAGE,default=mongodb"`
	MongoDBURI      string `env:"MONGODB_URI,default=mongodb://localhost:27017"`
	MongoDBDatabase string `env:"MONGODB_DATABASE,default=rendezvous"`

	MaxContentLength     int  `env:"MAX_CONTENT_LENGTH,default=2000"`
	MarkThreadReadOnJoin bool `env:"MARK_THREAD_READ_ON_JOIN,default=true"`

	QueueSize         int           `env:"CONNECTION_QUEUE_SIZE,default=64"`
	// Bytes, raised to fit a MAX_CONTENT_LENGTH message, see websocketReadLimit.
	ReadLimit         int64         `env:"WEBSOCKET_READ_LIMIT,default=8192"`
	WriteTimeout      time.Duration `env:"WEBSOCKET_WRITE_TIMEOUT,default=10s"`
	PongTimeout       time.Duration `env:"WEBSOCKET_PONG_TIMEOUT,default=60s"`
	PingInterval      time.Duration `env:"WEBSOCKET_PING_INTERVAL,default=30s"`
	DisconnectTimeout time.Duration `env:"DISCONNECT_TIMEOUT,default=10s"`
	SendRate          float64       `env:"SEND_RATE_PER_SECOND,default=5"`
	SendBurst         int           `env:"SEND_BURST,default=10"`
}

// websocketReadLimit returns the configured read limit, raised when it could
// not hold a maximum length message.
func (s Settings) websocketReadLimit() int64 {
	required := int64(maxEncodedRuneSize*s.MaxContentLength + envelopeHeadroom)

	return max(s.ReadLimit, required)
}
