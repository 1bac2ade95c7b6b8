package customer

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type fakeQuerier struct {
	customers map[uuid.UUID]Customer
	lastList  ListFilter
}

func newFakeQuerier() *fakeQuerier {
	return &fakeQuerier{customers: map[uuid.UUID]Customer{}}
}

func (f *fakeQuerier) Create(_ context.Context, shopID uuid.UUID, in CreateInput) (Customer, error) {
	for _, c := range f.customers {
		if c.ShopID == shopID && c.Phone != nil && in.Phone != nil && *c.Phone == *in.Phone {
			return Customer{}, ErrDuplicatePhone
		}
	}
	c := Customer{ID: uuid.New(), ShopID: shopID, Name: in.Name, Phone: in.Phone, Email: in.Email}
	f.customers[c.ID] = c
	return c, nil
}

func (f *fakeQuerier) GetByID(_ context.Context, id uuid.UUID) (Customer, error) {
	c, ok := f.customers[id]
	if !ok {
		return Customer{}, ErrNotFound
	}
	return c, nil
}

func (f *fakeQuerier) List(_ context.Context, filter ListFilter) ([]Customer, int, error) {
	f.lastList = filter
	out := make([]Customer, 0, len(f.customers))
	for _, c := range f.customers {
		out = append(out, c)
	}
	return out, len(out), nil
}

func (f *fakeQuerier) Update(_ context.Context, id uuid.UUID, in UpdateInput) (Customer, error) {
	c, ok := f.customers[id]
	if !ok {
		return Customer{}, ErrNotFound
	}
	if in.Name != nil {
		c.Name = *in.Name
	}
	f.customers[id] = c
	return c, nil
}

func (f *fakeQuerier) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := f.customers[id]; !ok {
		return ErrNotFound
	}
	delete(f.customers, id)
	return nil
}

func newTestRouter(q Querier) http.Handler {
	h := &Handler{
		Svc:            &Service{Q: q, Logger: zerolog.Nop()},
		DefaultPerPage: 20,
		MaxPerPage:     100,
	}
	r := chi.NewRouter()
	r.Route("/customers", h.Routes)
	return r
}

func TestCreateCustomer(t *testing.T) {
	q := newFakeQuerier()
	router := newTestRouter(q)

	body, _ := json.Marshal(CreateInput{ShopID: uuid.NewString(), Name: "Asha Traders"})
	req := httptest.NewRequest(http.MethodPost, "/customers", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp struct {
		Data Customer `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "Asha Traders", resp.Data.Name)
	require.NotEqual(t, uuid.Nil, resp.Data.ID)
}

func TestCreateCustomerValidation(t *testing.T) {
	router := newTestRouter(newFakeQuerier())

	body, _ := json.Marshal(CreateInput{ShopID: "not-a-uuid", Name: ""})
	req := httptest.NewRequest(http.MethodPost, "/customers", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
}

func TestCreateCustomerDuplicatePhone(t *testing.T) {
	q := newFakeQuerier()
	router := newTestRouter(q)
	shopID := uuid.NewString()
	phone := "9876543210"

	body, _ := json.Marshal(CreateInput{ShopID: shopID, Name: "First", Phone: &phone})
	req := httptest.NewRequest(http.MethodPost, "/customers", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	body, _ = json.Marshal(CreateInput{ShopID: shopID, Name: "Second", Phone: &phone})
	req = httptest.NewRequest(http.MethodPost, "/customers", bytes.NewReader(body))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestGetCustomerNotFound(t *testing.T) {
	router := newTestRouter(newFakeQuerier())

	req := httptest.NewRequest(http.MethodGet, "/customers/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListCustomersPagination(t *testing.T) {
	q := newFakeQuerier()
	shopID := uuid.New()
	for i := 0; i < 3; i++ {
		q.customers[uuid.New()] = Customer{ID: uuid.New(), ShopID: shopID, Name: "C"}
	}
	router := newTestRouter(q)

	req := httptest.NewRequest(http.MethodGet, "/customers?page=2&limit=10&sort=name&order=asc&search=tra", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "3", rec.Header().Get("X-Total-Count"))
	require.Equal(t, 10, q.lastList.Limit)
	require.Equal(t, 10, q.lastList.Offset)
	require.Equal(t, "name", q.lastList.Sort)
	require.Equal(t, "tra", q.lastList.Search)
}

func TestListCustomersLimitClamped(t *testing.T) {
	q := newFakeQuerier()
	router := newTestRouter(q)

	req := httptest.NewRequest(http.MethodGet, "/customers?limit=5000", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 100, q.lastList.Limit)
}

func TestDeleteCustomer(t *testing.T) {
	q := newFakeQuerier()
	id := uuid.New()
	q.customers[id] = Customer{ID: id, Name: "Gone"}
	router := newTestRouter(q)

	req := httptest.NewRequest(http.MethodDelete, "/customers/"+id.String(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Empty(t, q.customers)
}
