package engine

import (
	"github.com/gofiber/fiber/v2"
)

type Handler struct {
	engine *Engine
}

func NewHandler(e *Engine) *Handler {
	return &Handler{engine: e}
}

// ListTables handles GET /tables
func (h *Handler) ListTables(c *fiber.Ctx) error {
	tables, err := h.engine.ListTables(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "tables": tables})
}

// Structure handles GET /tables/:name/structure
func (h *Handler) Structure(c *fiber.Ctx) error {
	structure, err := h.engine.Structure(c.UserContext(), c.Params("name"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "structure": structure})
}

// List handles GET /tables/:name/data?page&limit&search&searchColumn
func (h *Handler) List(c *fiber.Ctx) error {
	params := ListParams{
		Page:         c.QueryInt("page", 1),
		Limit:        c.QueryInt("limit", 0),
		Search:       c.Query("search"),
		SearchColumn: c.Query("searchColumn"),
	}
	result, err := h.engine.List(c.UserContext(), c.Params("name"), params)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success":    true,
		"data":       result.Data,
		"pagination": result.Pagination,
	})
}

// GetByID handles GET /tables/:name/data/:id
func (h *Handler) GetByID(c *fiber.Ctx) error {
	row, err := h.engine.Get(c.UserContext(), c.Params("name"), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": row})
}

// Create handles POST /tables/:name/data
func (h *Handler) Create(c *fiber.Ctx) error {
	rec, err := DecodeRecord(c.Body())
	if err != nil {
		return BadRequestError("INVALID_PAYLOAD", "Invalid JSON body")
	}
	row, err := h.engine.Create(c.UserContext(), c.Params("name"), rec)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Record created successfully",
		"data":    row,
	})
}

// Update handles PUT /tables/:name/data/:id
func (h *Handler) Update(c *fiber.Ctx) error {
	rec, err := DecodeRecord(c.Body())
	if err != nil {
		return BadRequestError("INVALID_PAYLOAD", "Invalid JSON body")
	}
	row, err := h.engine.Update(c.UserContext(), c.Params("name"), c.Params("id"), rec)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Record updated successfully",
		"data":    row,
	})
}

// Delete handles DELETE /tables/:name/data/:id
func (h *Handler) Delete(c *fiber.Ctx) error {
	row, err := h.engine.Delete(c.UserContext(), c.Params("name"), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Record deleted successfully",
		"data":    row,
	})
}

// Query handles POST /query
func (h *Handler) Query(c *fiber.Ctx) error {
	var body struct {
		Query string `json:"query"`
	}
	if err := c.BodyParser(&body); err != nil {
		return BadRequestError("INVALID_PAYLOAD", "Invalid JSON body")
	}
	result, err := h.engine.RawQuery(c.UserContext(), body.Query)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success":  true,
		"data":     result.Data,
		"rowCount": result.RowCount,
	})
}
