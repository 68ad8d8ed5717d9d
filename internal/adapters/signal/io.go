package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Relay/internal/core"
)

func (ctl *ChatWSController) writePump(ctx context.Context, c *WsChatConn) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Msg("writePump ctx done")
			return
		case data, ok := <-c.send:
			if !ok {
				log.Warn().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

func (ctl *ChatWSController) readPump(ctx context.Context, cancel context.CancelFunc, sid core.SessionID, c *WsChatConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump closing")
		ctl.Orch.Disconnect(sid)
		ctl.limiter.Forget(sid)
		cancel()
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump ctx done")
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				log.Debug().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("readPump read error")
				return
			}
			ctl.handleFrame(sid, data)
		}
	}
}

// handleFrame dispatches one inbound frame. Anything that does not
// parse as a recognized structured event is relayed as raw chat text,
// behind the same identity gate.
func (ctl *ChatWSController) handleFrame(sid core.SessionID, data []byte) {
	if !ctl.limiter.Allow(sid) {
		log.Warn().Str("module", "signal").Str("sid", string(sid)).Msg("rate limit exceeded, frame dropped")
		return
	}

	var env struct {
		Type    string `json:"type"`
		Name    string `json:"name"`
		Room    string `json:"roomId"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		ctl.Orch.Chat(sid, string(data))
		return
	}

	switch env.Type {
	case "identify":
		ctl.Orch.Identify(sid, env.Name)
	case "join":
		ctl.Orch.Join(sid, env.Room)
	case "chat":
		ctl.Orch.Chat(sid, env.Message)
	case "whoami":
		ctl.Orch.WhoAmI(sid)
	default:
		ctl.Orch.Chat(sid, string(data))
	}
}
