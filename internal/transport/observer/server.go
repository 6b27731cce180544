package observer

import (
	"context"
	"encoding/json"
	"log"
	"net"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"gridarena.ai/internal/observerproto"
	"gridarena.ai/internal/protocol"
	"gridarena.ai/internal/sim/world"
)

// Server is the read-only spectator stream. It never submits commands.
type Server struct {
	world *world.World
	log   *log.Logger

	upgrader websocket.Upgrader
}

func NewServer(w *world.World, logger *log.Logger) *Server {
	return &Server{
		world: w,
		log:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) BootstrapHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !IsLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		cfg := s.world.Config()
		snap := s.world.ReadSnapshot()
		resp := observerproto.BootstrapResponse{
			ProtocolVersion: observerproto.Version,
			WorldID:         cfg.ID,
			Tick:            snap.Tick,
			Generation:      snap.Generation,
			Running:         snap.Running,
			WorldParams: observerproto.WorldParams{
				Width:        cfg.Width,
				Height:       cfg.Height,
				Robots:       cfg.Robots,
				Prizes:       cfg.Prizes,
				TickMs:       cfg.TickDuration.Milliseconds(),
				Seed:         cfg.Seed,
				IntentPolicy: string(cfg.IntentPolicy),
				IdentityMode: string(cfg.IdentityMode),
			},
			Obstacles: obstacleViews(snap),
		}

		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(resp)
	}
}

func (s *Server) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !IsLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// Handshake: must send SUBSCRIBE first.
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var sub observerproto.SubscribeMsg
		if err := json.Unmarshal(msg, &sub); err != nil {
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad subscribe"), time.Now().Add(time.Second))
			return
		}
		if sub.Type != "SUBSCRIBE" || sub.ProtocolVersion != observerproto.Version {
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected SUBSCRIBE"), time.Now().Add(time.Second))
			return
		}
		normalizeSubscribe(&sub)

		feed := s.world.Subscribe(0)
		defer s.world.Unsubscribe(feed.ID)

		settings := make(chan observerproto.SubscribeMsg, 1)
		settings <- sub

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Writer goroutine.
		writeErr := make(chan error, 1)
		go func() {
			writeErr <- s.writeLoop(ctx, conn, feed.C, settings)
		}()

		// Reader loop: allow SUBSCRIBE updates.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			var sub observerproto.SubscribeMsg
			if err := json.Unmarshal(msg, &sub); err != nil {
				continue
			}
			if sub.Type != "SUBSCRIBE" || sub.ProtocolVersion != observerproto.Version {
				continue
			}
			normalizeSubscribe(&sub)
			// Keep only the newest settings.
			select {
			case <-settings:
			default:
			}
			settings <- sub
		}

		cancel()
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))

		// Best-effort wait for the writer to stop so it doesn't outlive conn.
		select {
		case <-writeErr:
		case <-time.After(500 * time.Millisecond):
		}
	}
}

func (s *Server) writeLoop(ctx context.Context, conn *websocket.Conn, feed <-chan world.Snapshot, settings <-chan observerproto.SubscribeMsg) error {
	sub := <-settings
	var lastGen uint64
	var lastSent uint64
	send := func(snap world.Snapshot) error {
		msg := tickMsg(snap, sub.Top, snap.Generation != lastGen)
		lastGen = snap.Generation
		lastSent = snap.Tick
		_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		return conn.WriteJSON(msg)
	}

	if err := send(s.world.ReadSnapshot()); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case next := <-settings:
			sub = next
		case snap, ok := <-feed:
			if !ok {
				// Dropped as a slow subscriber.
				if s.log != nil {
					s.log.Printf("observer: feed closed")
				}
				_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "feed closed"), time.Now().Add(time.Second))
				return nil
			}
			// Thinning never hides a reset, a start/stop or the first tick of a generation.
			thin := snap.Generation == lastGen && snap.Tick > lastSent && snap.Tick-lastSent < uint64(sub.EveryNTicks)
			if thin && snap.Running {
				continue
			}
			if err := send(snap); err != nil {
				return err
			}
		}
	}
}

func tickMsg(snap world.Snapshot, top int, withObstacles bool) observerproto.TickMsg {
	state := snap.StateMsg()
	msg := observerproto.TickMsg{
		Type:            "TICK",
		ProtocolVersion: observerproto.Version,
		Tick:            snap.Tick,
		Generation:      snap.Generation,
		Running:         snap.Running,
		Robots:          state.Robots,
		Prizes:          state.Prizes,
		PrizesLeft:      len(snap.Prizes),
		Leaderboard:     leaderboard(snap.Robots, top),
	}
	if withObstacles {
		msg.Obstacles = state.Obstacles
	}
	return msg
}

func leaderboard(robots []world.Robot, top int) []observerproto.ScoreEntry {
	out := make([]observerproto.ScoreEntry, 0, len(robots))
	for _, r := range robots {
		out = append(out, observerproto.ScoreEntry{RobotID: r.ID, Score: r.Score})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if top > 0 && len(out) > top {
		out = out[:top]
	}
	return out
}

func obstacleViews(snap world.Snapshot) []protocol.CellView {
	out := make([]protocol.CellView, 0, len(snap.Obstacles))
	for _, c := range snap.Obstacles {
		out = append(out, protocol.CellView{X: c.X, Y: c.Y})
	}
	return out
}

func normalizeSubscribe(sub *observerproto.SubscribeMsg) {
	if sub.EveryNTicks <= 0 {
		sub.EveryNTicks = 1
	}
	if sub.EveryNTicks > 1000 {
		sub.EveryNTicks = 1000
	}
	if sub.Top <= 0 {
		sub.Top = 10
	}
	if sub.Top > 1000 {
		sub.Top = 1000
	}
}

// IsLoopbackRemote reports whether remoteAddr is a loopback address.
func IsLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
