package notifyhub

import "hostelgrievance/backend/internal/models"

// Client is one live connection of a user. A user may hold several at once
// (several browser tabs, for example).
type Client interface {
	// GetUserID returns the user the connection belongs to.
	GetUserID() string
	// GetSendChannel returns the channel the hub pushes notifications into.
	GetSendChannel() chan<- models.Notification
	// Run starts the connection's pumps.
	Run()
	// Close stops the write pump, which closes the connection.
	Close()
}
