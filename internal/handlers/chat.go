package handlers

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/Aerovity/riglii-backend/internal/models"
	"github.com/Aerovity/riglii-backend/internal/realtime"
	"github.com/Aerovity/riglii-backend/internal/services/lifecycle"
	"github.com/Aerovity/riglii-backend/internal/storage"
)

const maxAttachmentSize = 25 * 1024 * 1024

type ChatHandler struct {
	Service *lifecycle.Service
	Store   *storage.Storage
	Hub     *realtime.Hub
}

func NewChatHandler(svc *lifecycle.Service, store *storage.Storage, hub *realtime.Hub) *ChatHandler {
	return &ChatHandler{Service: svc, Store: store, Hub: hub}
}

// MessageOut decorates a message with the dereferenceable attachment URL.
type MessageOut struct {
	models.Message
	AttachmentURL string `json:"attachment_url,omitempty"`
}

func (h *ChatHandler) messageOut(msg models.Message) MessageOut {
	out := MessageOut{Message: msg}
	if msg.AttachmentPath != "" {
		out.AttachmentURL = h.Store.PublicURL(msg.AttachmentPath)
	}
	return out
}

// CreateOrGetConversation resolves the conversation with the counterpart,
// creating it lazily on first contact.
func (h *ChatHandler) CreateOrGetConversation(c *fiber.Ctx) error {
	userUUID, err := getUserUUID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"success": false, "message": "Unauthorized"})
	}

	var req struct {
		UserID *string `json:"user_id"`
	}
	if err := c.BodyParser(&req); err != nil || req.UserID == nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "user_id is required",
		})
	}

	otherUUID, err := uuid.Parse(*req.UserID)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Invalid user ID",
		})
	}

	conv, created, err := h.Service.StartConversation(userUUID, otherUUID)
	if err != nil {
		return respondErr(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"created": created,
		"data":    conv,
	})
}

// GetConversations returns the user's conversation directory.
func (h *ChatHandler) GetConversations(c *fiber.Ctx) error {
	userUUID, err := getUserUUID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"success": false, "message": "Unauthorized"})
	}

	summaries, err := h.Service.ListConversations(userUUID)
	if err != nil {
		return respondErr(c, err)
	}

	out := make([]fiber.Map, 0, len(summaries))
	for _, s := range summaries {
		entry := fiber.Map{
			"id":            s.Conversation.ID,
			"client_id":     s.Conversation.ClientID,
			"freelancer_id": s.Conversation.FreelancerID,
			"updated_at":    s.Conversation.LastMessageAt,
			"unread_count":  s.UnreadCount,
			"gate":          s.Gate,
		}
		if s.Other != nil {
			other := fiber.Map{
				"id":            s.Other.ID,
				"name":          s.Other.Name,
				"is_freelancer": s.Other.IsFreelancer(),
			}
			if s.Other.FreelancerProfile != nil {
				other["display_name"] = s.Other.FreelancerProfile.DisplayName
				other["photo_url"] = s.Other.FreelancerProfile.PhotoURL
			}
			entry["other"] = other
		}
		if s.LastMessage != nil {
			entry["last_message"] = h.messageOut(*s.LastMessage)
		}
		if s.LatestForm != nil {
			entry["latest_form_status"] = s.LatestForm.Status
		}
		out = append(out, entry)
	}

	return c.JSON(fiber.Map{"success": true, "data": out})
}

// GetUnreadTotal returns the unread count across all conversations.
func (h *ChatHandler) GetUnreadTotal(c *fiber.Ctx) error {
	userUUID, err := getUserUUID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"success": false, "message": "Unauthorized"})
	}

	count, err := h.Service.UnreadTotal(userUUID)
	if err != nil {
		return respondErr(c, err)
	}

	return c.JSON(fiber.Map{"success": true, "data": count})
}

// GetMessages returns the conversation timeline and flips the read flag
// on messages addressed to the caller.
func (h *ChatHandler) GetMessages(c *fiber.Ctx) error {
	userUUID, err := getUserUUID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"success": false, "message": "Unauthorized"})
	}

	convUUID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Invalid conversation ID",
		})
	}

	messages, err := h.Service.ListMessages(convUUID, userUUID)
	if err != nil {
		return respondErr(c, err)
	}

	if err := h.Service.MarkRead(convUUID, userUUID); err != nil {
		// don't fail the read path over the flag update
		log.Println("Error marking messages as read:", err)
	}

	out := make([]MessageOut, 0, len(messages))
	for _, msg := range messages {
		out = append(out, h.messageOut(msg))
	}

	return c.JSON(fiber.Map{"success": true, "data": out})
}

// MarkAsRead bulk-flips the read flag. Idempotent.
func (h *ChatHandler) MarkAsRead(c *fiber.Ctx) error {
	userUUID, err := getUserUUID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"success": false, "message": "Unauthorized"})
	}

	convUUID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Invalid conversation ID",
		})
	}

	if err := h.Service.MarkRead(convUUID, userUUID); err != nil {
		return respondErr(c, err)
	}

	return c.JSON(fiber.Map{"success": true})
}

// SendMessage appends a message; multipart requests may carry one
// attachment which is stored first and referenced by path.
func (h *ChatHandler) SendMessage(c *fiber.Ctx) error {
	userUUID, err := getUserUUID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"success": false, "message": "Unauthorized"})
	}

	convUUID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Invalid conversation ID",
		})
	}

	text := ""
	attachmentPath := ""
	var attachmentKind models.AttachmentKind

	if fh, ferr := c.FormFile("attachment"); ferr == nil && fh != nil {
		if fh.Size <= 0 || fh.Size > maxAttachmentSize {
			return c.Status(400).JSON(fiber.Map{
				"success": false,
				"message": "Attachment exceeds the 25MB limit",
			})
		}

		path, serr := h.Store.SaveUpload("attachments", fh)
		if serr != nil {
			log.Println("Error saving attachment:", serr)
			return c.Status(502).JSON(fiber.Map{
				"success": false,
				"message": "Failed to store attachment",
			})
		}
		attachmentPath = path
		attachmentKind = models.AttachmentFile
		if strings.HasPrefix(fh.Header.Get("Content-Type"), "image/") {
			attachmentKind = models.AttachmentImage
		}
		text = c.FormValue("text")
	} else {
		var req struct {
			Text string `json:"text"`
		}
		if err := c.BodyParser(&req); err == nil {
			text = req.Text
		}
		if text == "" {
			text = c.FormValue("text")
		}
	}

	msg, err := h.Service.SendMessage(convUUID, userUUID, text, attachmentPath, attachmentKind)
	if err != nil {
		return respondErr(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    h.messageOut(*msg),
	})
}

// WebSocketHandler attaches a connection to the hub.
func (h *ChatHandler) WebSocketHandler(c *websocket.Conn) {
	userID := c.Query("user_id")
	if userID == "" {
		log.Println("WebSocket: user_id parameter missing")
		c.Close()
		return
	}

	userUUID, err := uuid.Parse(userID)
	if err != nil {
		log.Println("WebSocket: invalid user_id:", userID, "error:", err)
		c.Close()
		return
	}

	log.Printf("WebSocket: user %s connected\n", userID)

	client := &realtime.Client{
		ID:     uuid.New().String(),
		UserID: userUUID,
		Conn:   realtime.NewWebSocketConn(c),
		Send:   make(chan []byte, 256),
	}

	h.Hub.RegisterClient(client)
	defer func() {
		h.Hub.UnregisterClient(client)
		log.Printf("WebSocket: user %s disconnected\n", userID)
	}()

	go func() {
		for msg := range client.Send {
			if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Println("WebSocket write error:", err)
				return
			}
		}
	}()

	for {
		var payload map[string]interface{}
		if err := c.ReadJSON(&payload); err != nil {
			log.Printf("WebSocket read error for user %s: %v\n", userID, err)
			break
		}

		if msgType, ok := payload["type"].(string); ok && msgType == "pong" {
			continue
		}
	}
}
