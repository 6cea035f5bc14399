package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/promptguessr/backend/internal"
)

const (
	opTimeout = 10 * time.Second

	pongWait     = 60 * time.Second
	pingInterval = 30 * time.Second
)

// HandleWebSocket upgrades the connection and runs its session. The first
// frame must be room:join carrying the ids handed out by the HTTP surface;
// everything after that is command dispatch until the socket closes.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debugw("upgrade failed", "err", err)
		return
	}

	client, err := h.handshake(conn)
	if err != nil {
		h.log.Debugw("handshake failed", "err", err)
		_ = conn.Close()
		return
	}
	defer h.disconnect(client)

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	stopPing := make(chan struct{})
	defer close(stopPing)
	go h.keepAlive(client, stopPing)

	for {
		var msg internal.Message[json.RawMessage]
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debugw("read failed", "player", client.PlayerId, "err", err)
			}
			return
		}
		h.dispatch(client, msg)
	}
}

// keepAlive pings the peer on an interval; a dead peer stops answering
// pongs and the read loop times out.
func (h *Hub) keepAlive(c *Client, stop <-chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := c.Ping(time.Now().Add(opTimeout)); err != nil {
				return
			}
		}
	}
}

// handshake reads the room:join frame, validates the seat and announces the
// arrival to the room.
func (h *Hub) handshake(conn *websocket.Conn) (*Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var msg internal.Message[internal.JoinRoomData]
	if err := conn.ReadJSON(&msg); err != nil {
		return nil, err
	}
	if msg.Type != internal.CmdJoinRoom {
		return nil, errors.New("first frame must be " + internal.CmdJoinRoom)
	}

	room, err := h.svc.GetRoom(ctx, msg.Data.RoomId)
	if err != nil {
		return nil, err
	}
	player := room.Player(msg.Data.PlayerId)
	if player == nil {
		return nil, internal.ErrPlayerNotInRoom
	}

	client := newClient(conn, room.Id, player.Id)
	h.register(client)

	room, err = h.svc.UpdateConnection(ctx, room.Id, player.Id, true)
	if err != nil {
		h.unregister(client)
		return nil, err
	}

	h.broadcast(room.Id, internal.Message[internal.PlayerJoinedData]{
		Type: internal.EvtPlayerJoined,
		Data: internal.PlayerJoinedData{Player: room.Player(player.Id), PlayerCount: room.PlayerCount()},
	})
	h.broadcastRoomUpdate(room)
	h.log.Infow("player connected", "room", room.Id, "player", player.Id)
	return client, nil
}

// disconnect tears a session down. In the lobby the seat is released and
// the host migrates if needed; mid-game the seat is kept so the player can
// reconnect.
func (h *Hub) disconnect(c *Client) {
	h.unregister(c)
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	room, err := h.svc.GetRoom(ctx, c.RoomId)
	if err != nil {
		return
	}
	player := room.Player(c.PlayerId)
	if player == nil {
		return
	}
	displayName := player.DisplayName

	if room.Status == internal.RoomLobby {
		room, newHostId, err := h.svc.RemovePlayer(ctx, c.RoomId, c.PlayerId)
		if err != nil {
			h.log.Errorw("remove on disconnect failed", "room", c.RoomId, "player", c.PlayerId, "err", err)
			return
		}
		if room == nil {
			return // last player out, room deleted
		}
		h.broadcast(room.Id, internal.Message[internal.PlayerLeftData]{
			Type: internal.EvtPlayerLeft,
			Data: internal.PlayerLeftData{
				PlayerId:    c.PlayerId,
				DisplayName: displayName,
				Reason:      internal.LeftDisconnect,
				NewHostId:   newHostId,
			},
		})
		h.broadcastRoomUpdate(room)
		return
	}

	room, err = h.svc.UpdateConnection(ctx, c.RoomId, c.PlayerId, false)
	if err != nil {
		h.log.Errorw("mark disconnected failed", "room", c.RoomId, "player", c.PlayerId, "err", err)
		return
	}
	h.broadcast(room.Id, internal.Message[internal.PlayerLeftData]{
		Type: internal.EvtPlayerLeft,
		Data: internal.PlayerLeftData{
			PlayerId:    c.PlayerId,
			DisplayName: displayName,
			Reason:      internal.LeftDisconnect,
		},
	})
	h.broadcastRoomUpdate(room)
}
