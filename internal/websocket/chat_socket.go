package websocket

import (
	"context"
	"encoding/json"
	"time"

	"bank-support-be/internal/dto"
	"bank-support-be/internal/pkg/logger"
	"bank-support-be/internal/pkg/serverutils"
	"bank-support-be/internal/service"

	"github.com/gofiber/websocket/v2"
)

const chatReadLimit = 8 * 1024

// ServeChat answers `{sessionId, message}` frames with `{reply,
// suggestHandover}` or `{error}` until the peer disconnects.
func ServeChat(conn *websocket.Conn, chat service.IChatService, log logger.ILogger) {
	defer conn.Close()
	conn.SetReadLimit(chatReadLimit)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("CHAT_WS", "Chat socket closed unexpectedly", map[string]interface{}{"error": err.Error()})
			}
			return
		}

		out := handleChatFrame(context.Background(), chat, raw)
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(out); err != nil {
			return
		}
	}
}

func handleChatFrame(ctx context.Context, chat service.IChatService, raw []byte) dto.ChatFrame {
	var in dto.ChatFrame
	if err := json.Unmarshal(raw, &in); err != nil {
		return dto.ChatFrame{Error: "Invalid JSON frame"}
	}

	req := &dto.ChatRequest{SessionId: in.SessionId, Message: in.Message}
	if err := serverutils.ValidateRequest(req); err != nil {
		_, msg := serverutils.StatusFor(err)
		return dto.ChatFrame{SessionId: in.SessionId, Error: msg}
	}

	res, err := chat.SendMessage(ctx, req)
	if err != nil {
		_, msg := serverutils.StatusFor(err)
		return dto.ChatFrame{SessionId: in.SessionId, Error: msg}
	}
	return dto.ChatFrame{
		SessionId:       in.SessionId,
		Reply:           res.Reply,
		SuggestHandover: res.SuggestHandover,
	}
}
