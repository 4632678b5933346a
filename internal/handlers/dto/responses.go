package dto

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status      string `json:"status"`
	Rooms       int    `json:"rooms"`
	Connections int    `json:"connections"`
}

// RoomInfo is the body of GET /api/rooms/:id.
type RoomInfo struct {
	ID           string `json:"id"`
	Participants int    `json:"participants"`
	Messages     int    `json:"messages"`
	CreatedAt    int64  `json:"createdAt"`
	LastActivity int64  `json:"lastActivity"`
}
