package main

import (
	"encoding/json"
	"flag"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"

	"gridarena.ai/internal/protocol"
)

var moves = []string{"RIGHT", "LEFT", "UP", "DOWN", "STAY"}

func main() {
	var (
		url   = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		robot = flag.Int("robot", 0, "robot id (ignored when -code is set)")
		code  = flag.String("code", "", "access code")
		start = flag.Bool("start", true, "send START after connecting")
		limit = flag.Int("moves", 0, "stop after this many commands (0: run forever)")
		seed  = flag.Int64("seed", 0, "move generator seed (0: time based)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	r := rand.New(rand.NewSource(*seed))

	if *start {
		if err := conn.WriteJSON(protocol.BaseMessage{Type: protocol.TypeStart, ProtocolVersion: protocol.Version}); err != nil {
			logger.Fatalf("send START: %v", err)
		}
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	go func() {
		<-stop
		_ = conn.Close()
	}()

	var (
		lastTick uint64
		sent     int
		score    int
	)
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			logger.Printf("read: %v (sent=%d score=%d)", err, sent, score)
			return
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypeState:
			var st protocol.StateMsg
			if err := json.Unmarshal(msg, &st); err != nil {
				continue
			}
			if s, ok := robotScore(st, *robot); ok && *code == "" && s != score {
				logger.Printf("tick=%d score %d -> %d", st.Tick, score, s)
				score = s
			}
			// One command per tick.
			if !st.Running || (sent > 0 && st.Tick == lastTick) {
				continue
			}
			lastTick = st.Tick
			cmd := protocol.CmdMsg{
				Type:            protocol.TypeCmd,
				ProtocolVersion: protocol.Version,
				Move:            moves[r.Intn(len(moves))],
			}
			if *code != "" {
				cmd.Code = *code
			} else {
				id := *robot
				cmd.Robot = &id
			}
			if err := conn.WriteJSON(cmd); err != nil {
				logger.Printf("send CMD: %v", err)
				return
			}
			sent++
			if *limit > 0 && sent >= *limit {
				logger.Printf("done: sent=%d score=%d", sent, score)
				return
			}

		case protocol.TypeAck:
			var ack protocol.AckMsg
			if err := json.Unmarshal(msg, &ack); err == nil && ack.Ref != protocol.TypeCmd {
				logger.Printf("ACK %s tick=%d", ack.Ref, ack.Tick)
			}

		case protocol.TypeError:
			var e protocol.ErrorMsg
			if err := json.Unmarshal(msg, &e); err == nil {
				logger.Printf("ERROR %s: %s", e.Code, e.Message)
			}
		}
	}
}

func robotScore(st protocol.StateMsg, id int) (int, bool) {
	for _, r := range st.Robots {
		if r.ID == id {
			return r.Score, true
		}
	}
	return 0, false
}
