package handler

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/product-api/internal/logging"
	"github.com/iliyamo/product-api/internal/model"
	"github.com/iliyamo/product-api/internal/queue"
)

type brokenStore struct{}

var errDB = errors.New("connection refused")

func (brokenStore) Create(context.Context, *model.Product) error { return errDB }
func (brokenStore) GetByID(context.Context, uint64) (*model.Product, error) {
	return nil, errDB
}
func (brokenStore) List(context.Context) ([]*model.Product, error) { return nil, errDB }
func (brokenStore) Update(context.Context, *model.Product) error   { return errDB }
func (brokenStore) Delete(context.Context, uint64) error           { return errDB }

type okStore struct {
	brokenStore
	created *model.Product
}

func (s *okStore) Create(_ context.Context, p *model.Product) error {
	p.ID = 11
	s.created = p
	return nil
}

type capturePublisher struct{ events []queue.Event }

func (p *capturePublisher) Publish(_ context.Context, ev queue.Event) error {
	p.events = append(p.events, ev)
	return nil
}

func newContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestProductHandler_InternalErrorsAreHidden(t *testing.T) {
	var logs bytes.Buffer
	h := NewProductHandler(brokenStore{}, nil, logging.New(&logs, "text", "debug"))

	c, rec := newContext(http.MethodGet, "/api/products", "")
	require.NoError(t, h.List(c))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal error"}`, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "connection refused")
	assert.Contains(t, logs.String(), "connection refused")
}

func TestProductHandler_BadID(t *testing.T) {
	h := NewProductHandler(brokenStore{}, nil, logging.Nop())
	for _, id := range []string{"abc", "0", "-1"} {
		c, rec := newContext(http.MethodGet, "/api/products/"+id, "")
		c.SetParamNames("id")
		c.SetParamValues(id)
		require.NoError(t, h.Get(c))
		assert.Equal(t, http.StatusBadRequest, rec.Code, id)
	}
}

func TestProductHandler_CreatePublishes(t *testing.T) {
	store := &okStore{}
	events := &capturePublisher{}
	h := NewProductHandler(store, events, logging.Nop())

	c, rec := newContext(http.MethodPost, "/api/products", `{"name":" Lamp ","description":"Desk lamp","price":12.5}`)
	require.NoError(t, h.Create(c))

	assert.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, store.created)
	assert.Equal(t, "Lamp", store.created.Name)
	assert.False(t, store.created.CreatedAt.IsZero())
	require.Len(t, events.events, 1)
	assert.Equal(t, queue.ProductCreated, events.events[0].Name)
	assert.Equal(t, uint64(11), events.events[0].ProductID)
}

func TestValidationMessage_NonValidatorError(t *testing.T) {
	assert.Equal(t, "invalid body", validationMessage(errors.New("x")))
}
