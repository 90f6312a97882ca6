package app

import (
	"strconv"

	"campus_chat_service/internal/chat/domain"
	"campus_chat_service/pkg/logger"
	"campus_chat_service/pkg/middlewares"

	errprocess "campus_chat_service/pkg/err"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ChatHTTPHandler REST fallback for clients without a live websocket.
// Everything here is the synchronous path: no provisional echo, the caller
// only sees durable state.
type ChatHTTPHandler struct {
	directory *RoomDirectoryUseCase
	messageUC *MessageUseCase
}

// NewChatHTTPHandler create ChatHTTPHandler
func NewChatHTTPHandler(directory *RoomDirectoryUseCase, messageUC *MessageUseCase) *ChatHTTPHandler {
	return &ChatHTTPHandler{
		directory: directory,
		messageUC: messageUC,
	}
}

func identityFromCtx(c *fiber.Ctx) domain.Identity {
	id := domain.Identity{}
	if v, ok := c.Locals(middlewares.TokenUserID).(string); ok {
		id.UserID = v
	}
	if v, ok := c.Locals(middlewares.TokenRole).(string); ok {
		id.Role = domain.Role(v)
	}
	if v, ok := c.Locals(middlewares.TokenDepartment).(string); ok {
		id.Department = v
	}
	if v, ok := c.Locals(middlewares.TokenYear).(int); ok {
		id.Year = v
	}
	if v, ok := c.Locals(middlewares.TokenBatch).(string); ok {
		id.Batch = v
	}
	return id
}

func statusFor(err error) int {
	switch errprocess.KindOf(err) {
	case errprocess.KindValidation:
		return fiber.StatusBadRequest
	case errprocess.KindAuthorization:
		return fiber.StatusForbidden
	case errprocess.KindNotFound:
		return fiber.StatusNotFound
	case errprocess.KindTransientStore:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

func fail(c *fiber.Ctx, err error) error {
	return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
}

// CreateRoom POST /rooms
func (h *ChatHTTPHandler) CreateRoom(c *fiber.Ctx) error {
	var spec CreateRoomSpec
	if err := c.BodyParser(&spec); err != nil {
		return fail(c, errprocess.Validation("malformed body"))
	}

	identity := identityFromCtx(c)
	room, err := h.directory.CreateRoom(c.Context(), identity, spec)
	if err != nil {
		logger.Log.Error("create room err",
			zap.String("UserID", identity.UserID),
			zap.String("err", err.Error()))
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"room": room})
}

// ListRooms GET /rooms
func (h *ChatHTTPHandler) ListRooms(c *fiber.Ctx) error {
	identity := identityFromCtx(c)
	rooms, err := h.directory.RoomsFor(c.Context(), identity)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"rooms": rooms})
}

// GetRoom GET /rooms/:id
func (h *ChatHTTPHandler) GetRoom(c *fiber.Ctx) error {
	room, err := h.directory.GetRoom(c.Context(), identityFromCtx(c), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"room": room})
}

// CloseRoom DELETE /rooms/:id
func (h *ChatHTTPHandler) CloseRoom(c *fiber.Ctx) error {
	if err := h.directory.CloseRoom(c.Context(), identityFromCtx(c), c.Params("id")); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

// ListMessages GET /rooms/:id/messages?page=&page_size=
func (h *ChatHTTPHandler) ListMessages(c *fiber.Ctx) error {
	page, err := strconv.ParseInt(c.Query("page", "1"), 10, 64)
	if err != nil || page < 1 {
		return fail(c, errprocess.Validation("page must be a positive integer"))
	}
	pageSize, err := strconv.ParseInt(c.Query("page_size", "50"), 10, 64)
	if err != nil || pageSize < 1 || pageSize > 200 {
		return fail(c, errprocess.Validation("page_size must be between 1 and 200"))
	}

	msgs, err := h.messageUC.ListMessages(c.Context(), identityFromCtx(c), c.Params("id"), page, pageSize)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{
		"messages":  msgs,
		"page":      page,
		"page_size": pageSize,
	})
}

type postMessageBody struct {
	Content     string   `json:"content"`
	Type        string   `json:"type"`
	Attachments []string `json:"attachments"`
}

// PostMessage POST /rooms/:id/messages
func (h *ChatHTTPHandler) PostMessage(c *fiber.Ctx) error {
	var body postMessageBody
	if err := c.BodyParser(&body); err != nil {
		return fail(c, errprocess.Validation("malformed body"))
	}

	identity := identityFromCtx(c)
	msg, err := h.messageUC.Post(c.Context(), identity, c.Params("id"), body.Content, domain.MessageType(body.Type), body.Attachments)
	if err != nil {
		logger.Log.Error("post message err",
			zap.String("UserID", identity.UserID),
			zap.String("RoomID", c.Params("id")),
			zap.String("err", err.Error()))
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": msg})
}

type markReadBody struct {
	MessageIDs []string `json:"message_ids"`
}

// MarkRead POST /rooms/:id/read
func (h *ChatHTTPHandler) MarkRead(c *fiber.Ctx) error {
	var body markReadBody
	if err := c.BodyParser(&body); err != nil {
		return fail(c, errprocess.Validation("malformed body"))
	}

	if err := h.messageUC.MarkRead(c.Context(), identityFromCtx(c), c.Params("id"), body.MessageIDs); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

// DeleteMessage DELETE /messages/:id
func (h *ChatHTTPHandler) DeleteMessage(c *fiber.Ctx) error {
	if err := h.messageUC.Delete(c.Context(), identityFromCtx(c), c.Params("id")); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}
