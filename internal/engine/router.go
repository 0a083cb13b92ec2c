package engine

import "github.com/gofiber/fiber/v2"

// RegisterTableRoutes mounts the table browser on a group that is already
// behind the auth middleware.
func RegisterTableRoutes(r fiber.Router, h *Handler) {
	r.Get("/tables", h.ListTables)
	r.Get("/tables/:name/structure", h.Structure)
	r.Get("/tables/:name/data", h.List)
	r.Get("/tables/:name/data/:id", h.GetByID)
	r.Post("/tables/:name/data", h.Create)
	r.Put("/tables/:name/data/:id", h.Update)
	r.Delete("/tables/:name/data/:id", h.Delete)
	r.Post("/query", h.Query)
}
