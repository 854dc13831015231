package handler

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/product-api/internal/logging"
	"github.com/iliyamo/product-api/internal/middleware"
	"github.com/iliyamo/product-api/internal/model"
	"github.com/iliyamo/product-api/internal/queue"
	"github.com/iliyamo/product-api/internal/repository"
)

// ProductStore is implemented by *repository.ProductRepo.
type ProductStore interface {
	Create(ctx context.Context, p *model.Product) error
	GetByID(ctx context.Context, id uint64) (*model.Product, error)
	List(ctx context.Context) ([]*model.Product, error)
	Update(ctx context.Context, p *model.Product) error
	Delete(ctx context.Context, id uint64) error
}

type EventPublisher interface {
	Publish(ctx context.Context, ev queue.Event) error
}

type ProductHandler struct {
	Products ProductStore
	Events   EventPublisher
	Log      logging.Logger
	now      func() time.Time
}

func NewProductHandler(products ProductStore, events EventPublisher, log logging.Logger) *ProductHandler {
	if events == nil {
		events = queue.Noop{}
	}
	return &ProductHandler{Products: products, Events: events, Log: log, now: time.Now}
}

type createProductReq struct {
	Name        string  `json:"name" validate:"required,max=100"`
	Description string  `json:"description" validate:"required,max=500"`
	Price       float64 `json:"price" validate:"gte=0,lte=500"`
}

// updateProductReq: blank strings and a missing price leave the stored
// value as is.
type updateProductReq struct {
	Name        string   `json:"name" validate:"omitempty,max=100"`
	Description string   `json:"description" validate:"omitempty,max=500"`
	Price       *float64 `json:"price" validate:"omitempty,gte=0,lte=500"`
}

func (r *createProductReq) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Description = strings.TrimSpace(r.Description)
}

func (r *updateProductReq) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Description = strings.TrimSpace(r.Description)
}

type productResp struct {
	ID          uint64    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	CreatedAt   time.Time `json:"createdAt"`
}

func toProductResp(p *model.Product) productResp {
	return productResp{ID: p.ID, Name: p.Name, Description: p.Description, Price: p.Price, CreatedAt: p.CreatedAt}
}

// roundPrice keeps two decimal places, matching the DECIMAL(10,2) column.
func roundPrice(p float64) float64 {
	return math.Round(p*100) / 100
}

// List returns every product ordered by id. An empty table yields an empty
// JSON array rather than null so the front-end can render it directly.
func (h *ProductHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	items, err := h.Products.List(ctx)
	if err != nil {
		return internalError(c, h.Log, "list products", err)
	}
	// Map the models into response DTOs so internal fields never leak.
	out := make([]productResp, 0, len(items))
	for _, p := range items {
		out = append(out, toProductResp(p))
	}
	return c.JSON(http.StatusOK, out)
}

// Get returns a single product by its numeric id, or 404 when it does not
// exist.
func (h *ProductHandler) Get(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	p, err := h.Products.GetByID(ctx, id)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return notFound(c, "Product not found")
	case err != nil:
		return internalError(c, h.Log, "get product", err)
	}
	return c.JSON(http.StatusOK, toProductResp(p))
}

// Create validates the body, stores a new product and answers 201 with the
// stored record. The Location header points at the new resource.
func (h *ProductHandler) Create(c echo.Context) error {
	// Name and description are trimmed before validation, so a
	// whitespace-only value fails "required".
	var req createProductReq
	if msg, ok := bindAndValidate(c, &req); !ok {
		return badRequest(c, msg)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	p := &model.Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       roundPrice(req.Price),
		CreatedAt:   h.now().UTC(),
	}
	if err := h.Products.Create(ctx, p); err != nil {
		return internalError(c, h.Log, "create product", err)
	}
	h.publish(c, queue.ProductCreated, p.ID)
	// Reverse resolves the named route registered by the router; it is
	// empty when the handler runs outside of it (unit tests).
	if loc := c.Echo().Reverse("products.get", p.ID); loc != "" {
		c.Response().Header().Set(echo.HeaderLocation, loc)
	}
	return c.JSON(http.StatusCreated, toProductResp(p))
}

// Update applies a partial update and answers 204. Blank name or
// description and a missing price keep the stored values.
func (h *ProductHandler) Update(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return badRequest(c, "invalid id")
	}
	var req updateProductReq
	if msg, ok := bindAndValidate(c, &req); !ok {
		return badRequest(c, msg)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	// Load the current record first; the update statement writes every
	// column, so omitted fields must be filled from it.
	p, err := h.Products.GetByID(ctx, id)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return notFound(c, "Product not found")
	case err != nil:
		return internalError(c, h.Log, "get product", err)
	}
	if req.Name != "" {
		p.Name = req.Name
	}
	if req.Description != "" {
		p.Description = req.Description
	}
	if req.Price != nil {
		p.Price = roundPrice(*req.Price)
	}

	// The row can disappear between the read and the write; report that
	// as not found too.
	err = h.Products.Update(ctx, p)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return notFound(c, "Product not found")
	case err != nil:
		return internalError(c, h.Log, "update product", err)
	}
	h.publish(c, queue.ProductUpdated, p.ID)
	return c.NoContent(http.StatusNoContent)
}

// Delete removes a product permanently. A second delete of the same id
// answers 404.
func (h *ProductHandler) Delete(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	err := h.Products.Delete(ctx, id)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return notFound(c, "Product not found")
	case err != nil:
		return internalError(c, h.Log, "delete product", err)
	}
	h.publish(c, queue.ProductDeleted, id)
	return c.NoContent(http.StatusNoContent)
}

// publish sends a product event tagged with the calling user. The request
// context may be cancelled once the response is written, so the publish runs
// on a detached copy. Failures are logged and otherwise ignored.
func (h *ProductHandler) publish(c echo.Context, name string, productID uint64) {
	ev := queue.Event{Name: name, ProductID: productID}
	if id, ok := middleware.IdentityFrom(c); ok {
		ev.ActorID = id.UserID
	}
	ctx := context.WithoutCancel(c.Request().Context())
	if err := h.Events.Publish(ctx, ev); err != nil {
		h.Log.Warn(ctx, "publish event failed", "event", name, "err", err)
	}
}
