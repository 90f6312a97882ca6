package router

import (
	"context"

	"campus_chat_service/internal/chat/app"
	"campus_chat_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// RegisterRoutes register the websocket entry point and the REST fallback
func RegisterRoutes(r *fiber.App, chatWebsocket *app.ChatWebsocketHandler, chatHTTP *app.ChatHTTPHandler) {
	r.Use(middlewares.JWTMiddleware())

	r.Get("/ws", websocket.New(func(c *websocket.Conn) {
		chatWebsocket.HandleConnection(context.Background(), c)
	}))

	// REST fallback, synchronous path only
	r.Post("/rooms", chatHTTP.CreateRoom)
	r.Get("/rooms", chatHTTP.ListRooms)
	r.Get("/rooms/:id", chatHTTP.GetRoom)
	r.Delete("/rooms/:id", chatHTTP.CloseRoom)
	r.Get("/rooms/:id/messages", chatHTTP.ListMessages)
	r.Post("/rooms/:id/messages", chatHTTP.PostMessage)
	r.Post("/rooms/:id/read", chatHTTP.MarkRead)
	r.Delete("/messages/:id", chatHTTP.DeleteMessage)
}
