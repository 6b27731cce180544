package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"gridarena.ai/internal/protocol"
	"gridarena.ai/internal/sim/world"
)

// Server is the player stream: every connection gets the current STATE, then
// a STATE after every world change, and may send START, RESET and CMD.
type Server struct {
	world *world.World
	log   *log.Logger

	upgrader websocket.Upgrader
}

func NewServer(w *world.World, logger *log.Logger) *Server {
	s := &Server{
		world: w,
		log:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
	return s
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// Subscribe before reading the initial state so no update falls in between.
		feed := s.world.Subscribe(0)
		defer s.world.Unsubscribe(feed.ID)

		if err := writeJSON(conn, s.world.ReadSnapshot().StateMsg()); err != nil {
			return
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		replies := make(chan any, 16)
		writerDone := make(chan struct{})
		go func() {
			defer close(writerDone)
			defer cancel()
			for {
				select {
				case <-ctx.Done():
					return
				case snap, ok := <-feed.C:
					if !ok {
						if s.log != nil {
							s.log.Printf("ws: dropping slow client %s", r.RemoteAddr)
						}
						_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "feed closed"), time.Now().Add(time.Second))
						_ = conn.Close()
						return
					}
					if err := writeJSON(conn, snap.StateMsg()); err != nil {
						_ = conn.Close()
						return
					}
				case v := <-replies:
					if err := writeJSON(conn, v); err != nil {
						_ = conn.Close()
						return
					}
				}
			}
		}()

		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			reply := s.handle(msg)
			select {
			case replies <- reply:
			case <-ctx.Done():
			}
			if ctx.Err() != nil {
				break
			}
		}
		cancel()
		<-writerDone
	}
}

// handle applies one client frame and returns the ACK or ERROR to send back.
func (s *Server) handle(msg []byte) any {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		return errorMsg("", protocol.ErrProtoBadRequest, "malformed frame")
	}
	if base.ProtocolVersion != "" && base.ProtocolVersion != protocol.Version {
		return errorMsg(base.Type, protocol.ErrProtoBadRequest, "unsupported protocol_version "+base.ProtocolVersion)
	}

	switch base.Type {
	case protocol.TypeStart, protocol.TypeStartLegacy:
		snap := s.world.Start()
		return protocol.AckMsg{Type: protocol.TypeAck, Ref: protocol.TypeStart, Tick: snap.Tick}

	case protocol.TypeReset, protocol.TypeResetLegacy:
		snap := s.world.Reset()
		return protocol.AckMsg{Type: protocol.TypeAck, Ref: protocol.TypeReset, Tick: snap.Tick}

	case protocol.TypeCmd:
		var cmd protocol.CmdMsg
		if err := json.Unmarshal(msg, &cmd); err != nil {
			return errorMsg(protocol.TypeCmd, protocol.ErrProtoBadRequest, "malformed CMD")
		}
		id, err := s.world.SubmitIntentAs(world.Identity{Robot: cmd.Robot, Code: cmd.Code}, cmd.Move)
		if err != nil {
			return errorMsg(protocol.TypeCmd, world.ErrorCode(err), err.Error())
		}
		return protocol.AckMsg{Type: protocol.TypeAck, Ref: protocol.TypeCmd, Tick: s.world.CurrentTick(), RobotID: &id}
	}
	return errorMsg(base.Type, protocol.ErrProtoBadRequest, "unknown message type "+base.Type)
}

func errorMsg(ref, code, message string) protocol.ErrorMsg {
	return protocol.ErrorMsg{Type: protocol.TypeError, Ref: ref, Code: code, Message: message}
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
