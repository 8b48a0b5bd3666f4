package router

import (
	"github.com/wb-go/wbf/ginext"

	"github.com/vitacall/notifier/internal/api/handlers/notification"
)

func New(handler *notification.Handler) *ginext.Engine {
	e := ginext.New()
	e.Use(ginext.Logger())
	e.Use(ginext.Recovery())

	api := e.Group("/api")

	api.POST("/notifications", handler.Enqueue)
	api.GET("/notifications/:id", handler.Get)
	api.GET("/notifications/:id/status", handler.GetStatus)
	api.POST("/appointments/:id/reminders", handler.ScheduleReminders)
	api.GET("/users/:id/notifications", handler.ListByUser)

	return e
}
