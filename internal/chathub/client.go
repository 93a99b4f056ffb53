package chathub

// Client is one live connection of an authenticated user. The manager pushes
// frames to it and never blocks on a slow client.
type Client interface {
	GetUserID() string
	// Deliver queues a frame and reports false when the client is full or gone.
	Deliver(frame ServerFrame) bool
	Run()
	Close()
}
