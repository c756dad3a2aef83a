package notifyhub_test

import (
	"sync"

	"hostelgrievance/backend/internal/models"
)

type MockClient struct {
	userID      string
	RecvChannel chan models.Notification

	mu     sync.Mutex
	closed bool
}

func newMockClient(userID string, buffer int) *MockClient {
	return &MockClient{userID: userID, RecvChannel: make(chan models.Notification, buffer)}
}

func (c *MockClient) GetUserID() string                          { return c.userID }
func (c *MockClient) GetSendChannel() chan<- models.Notification { return c.RecvChannel }
func (c *MockClient) Run()                                       {}

func (c *MockClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *MockClient) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
