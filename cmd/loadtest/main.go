// Command loadtest drives the game server with simulated players. Each
// player dials the WebSocket, starts a game, and mashes arrow keys while
// counting the frames streamed back. The final report shows connection
// success, frame throughput, and error counts, which is enough to tell
// whether a deployment keeps up with its tick rate under load.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	gorillaws "github.com/gorilla/websocket"

	"github.com/arcadelab/fruitbot-server/transport/websocket"
)

var (
	serverURL       = flag.String("url", "ws://localhost:8002/ws", "WebSocket URL of the game server")
	numPlayers      = flag.Int("players", 5, "Number of concurrent simulated players")
	duration        = flag.Duration("duration", 30*time.Second, "How long to run the test")
	connectionDelay = flag.Duration("connection-delay", 200*time.Millisecond, "Stagger between player connections")
	actionInterval  = flag.Duration("action-interval", 500*time.Millisecond, "Pause between key events per player")
)

var keys = []string{"ArrowLeft", "ArrowRight", "ArrowUp", "ArrowDown"}

// testStats is shared across all players, so every field is atomic.
type testStats struct {
	connected int64
	frames    int64
	finished  int64
	actions   int64
	errors    int64
}

func main() {
	flag.Parse()

	log.Printf("Starting load test: %d players against %s for %s", *numPlayers, *serverURL, *duration)

	stats := &testStats{}
	deadline := time.Now().Add(*duration)

	var wg sync.WaitGroup
	for i := 0; i < *numPlayers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			runPlayer(id, stats, deadline)
		}(i + 1)
		time.Sleep(*connectionDelay)
	}

	// Progress line every 5 seconds until the deadline
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	start := time.Now()
	for {
		select {
		case <-ticker.C:
			printStats(stats, time.Since(start))
		case <-done:
			printStats(stats, time.Since(start))
			log.Printf("Load test finished")
			return
		}
	}
}

func printStats(s *testStats, elapsed time.Duration) {
	frames := atomic.LoadInt64(&s.frames)
	rate := float64(frames) / elapsed.Seconds()
	log.Printf("connected=%d frames=%d (%.1f/s) episodes_finished=%d actions=%d errors=%d",
		atomic.LoadInt64(&s.connected), frames, rate,
		atomic.LoadInt64(&s.finished), atomic.LoadInt64(&s.actions),
		atomic.LoadInt64(&s.errors))
}

// runPlayer simulates one player until the deadline passes.
func runPlayer(id int, stats *testStats, deadline time.Time) {
	conn, _, err := gorillaws.DefaultDialer.Dial(*serverURL, nil)
	if err != nil {
		log.Printf("player %d: connect failed: %v", id, err)
		atomic.AddInt64(&stats.errors, 1)
		return
	}
	defer conn.Close()
	atomic.AddInt64(&stats.connected, 1)

	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(id)))

	// The reader owns the connection's read side and reacts to terminal
	// frames by requesting the next episode.
	finished := make(chan struct{}, 1)
	go func() {
		for {
			conn.SetReadDeadline(deadline.Add(2 * time.Second))
			_, raw, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var msg websocket.OutboundMessage
			if err := json.Unmarshal(raw, &msg); err != nil {
				atomic.AddInt64(&stats.errors, 1)
				continue
			}
			switch msg.Event {
			case websocket.EventFrame, websocket.EventGameUpdate:
				atomic.AddInt64(&stats.frames, 1)
			case websocket.EventEpisodeFinished:
				atomic.AddInt64(&stats.frames, 1)
				atomic.AddInt64(&stats.finished, 1)
				select {
				case finished <- struct{}{}:
				default:
				}
			case websocket.EventError:
				atomic.AddInt64(&stats.errors, 1)
			}
		}
	}()

	if err := sendEvent(conn, websocket.EventStartGame, map[string]string{
		"playerName": fmt.Sprintf("loadtest-%d", id),
	}); err != nil {
		atomic.AddInt64(&stats.errors, 1)
		return
	}

	held := ""
	for time.Now().Before(deadline) {
		select {
		case <-finished:
			if err := sendEvent(conn, websocket.EventNextEpisode, nil); err != nil {
				atomic.AddInt64(&stats.errors, 1)
				return
			}
			atomic.AddInt64(&stats.actions, 1)
		default:
		}

		if held != "" {
			if err := sendEvent(conn, websocket.EventKeyUp, map[string]string{"key": held}); err != nil {
				atomic.AddInt64(&stats.errors, 1)
				return
			}
			atomic.AddInt64(&stats.actions, 1)
		}

		held = keys[rng.Intn(len(keys))]
		if err := sendEvent(conn, websocket.EventKeyDown, map[string]string{"key": held}); err != nil {
			atomic.AddInt64(&stats.errors, 1)
			return
		}
		atomic.AddInt64(&stats.actions, 1)

		time.Sleep(*actionInterval)
	}

	conn.WriteMessage(gorillaws.CloseMessage,
		gorillaws.FormatCloseMessage(gorillaws.CloseNormalClosure, ""))
}

func sendEvent(conn *gorillaws.Conn, event string, data interface{}) error {
	msg := map[string]interface{}{"event": event}
	if data != nil {
		msg["data"] = data
	}
	return conn.WriteJSON(msg)
}
