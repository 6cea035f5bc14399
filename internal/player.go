package internal

import (
	"time"
)

type Player struct {
	Id          string    `json:"id"`
	DisplayName string    `json:"displayName"`
	IsHost      bool      `json:"isHost"`
	IsReady     bool      `json:"isReady"`
	IsConnected bool      `json:"isConnected"`
	JoinedAt    time.Time `json:"joinedAt"`
	LastSeenAt  time.Time `json:"lastSeenAt"`
}

func NewPlayer(id, displayName string, isHost bool) *Player {
	now := time.Now().UTC()
	return &Player{
		Id:          id,
		DisplayName: displayName,
		IsHost:      isHost,
		IsReady:     false,
		IsConnected: true,
		JoinedAt:    now,
		LastSeenAt:  now,
	}
}
