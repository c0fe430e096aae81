package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"car-showcase/internal/carapi"
	"car-showcase/internal/identity"
	"car-showcase/internal/session"
	mdw "car-showcase/internal/transport/http/middleware"
	"car-showcase/internal/transport/http/view"
)

// fakeInventory 同时实现 Inventory 和 adminform.API
type fakeInventory struct {
	cars      map[int64]*carapi.Car
	nextID    int64
	listErr   error
	uploadURL string
	uploadErr error
	listCalls int
	creates   int
	updates   int
	deletes   int
}

func newFakeInventory(cars ...carapi.Car) *fakeInventory {
	f := &fakeInventory{cars: map[int64]*carapi.Car{}, nextID: 100, uploadURL: "/uploads/x.jpg"}
	for i := range cars {
		c := cars[i]
		f.cars[c.ID] = &c
	}
	return f
}

func (f *fakeInventory) GetAllCars(context.Context) ([]carapi.Car, error) {
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]carapi.Car, 0, len(f.cars))
	for _, c := range f.cars {
		out = append(out, *c)
	}
	return out, nil
}

func (f *fakeInventory) GetCarByID(_ context.Context, id int64) (*carapi.Car, error) {
	c, ok := f.cars[id]
	if !ok {
		return nil, errors.New("not found")
	}
	cp := *c
	return &cp, nil
}

func (f *fakeInventory) CreateCar(_ context.Context, car *carapi.Car) (*carapi.Car, error) {
	f.creates++
	cp := *car
	cp.ID = f.nextID
	f.nextID++
	f.cars[cp.ID] = &cp
	return &cp, nil
}

func (f *fakeInventory) UpdateCar(_ context.Context, id int64, car *carapi.Car) (*carapi.Car, error) {
	f.updates++
	cp := *car
	cp.ID = id
	f.cars[id] = &cp
	return &cp, nil
}

func (f *fakeInventory) DeleteCar(_ context.Context, id int64) error {
	f.deletes++
	delete(f.cars, id)
	return nil
}

func (f *fakeInventory) UploadImage(context.Context, string, io.Reader) (string, error) {
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	return f.uploadURL, nil
}

func carCivic() carapi.Car {
	return carapi.Car{ID: 9, Name: "Civic", Brand: "Honda", Model: "Civic", Year: 2020, Price: 25000, Status: carapi.StatusAvailable}
}

func adminSession() *identity.Session {
	return &identity.Session{
		AccessToken: "tok",
		User:        &identity.User{ID: "u1", Email: "admin@b.c", UserMetadata: map[string]any{"user_role": "admin"}},
	}
}

func userSession() *identity.Session {
	return &identity.Session{
		AccessToken: "tok",
		User:        &identity.User{ID: "u2", Email: "user@b.c", UserMetadata: map[string]any{"user_role": "user"}},
	}
}

// stubSession 替代 SessionLoader：固定 sid，可选会话
func stubSession(sid string, sess *identity.Session) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(mdw.KeySID, sid)
		if sess != nil {
			c.Set(mdw.KeySession, sess)
			c.Request = c.Request.WithContext(session.WithSession(c.Request.Context(), sess))
		}
	}
}

func newEngine(sid string, sess *identity.Session) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.SetHTMLTemplate(view.Templates("http://api.local"))
	r.Use(stubSession(sid, sess))
	return r
}

func get(t *testing.T, r *gin.Engine, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	r.ServeHTTP(w, req)
	return w
}

func postForm(t *testing.T, r *gin.Engine, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r.ServeHTTP(w, req)
	return w
}

func flashValue(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	for _, ck := range w.Result().Cookies() {
		if ck.Name == "flash" && ck.MaxAge >= 0 {
			v, err := url.QueryUnescape(ck.Value)
			if err != nil {
				t.Fatalf("bad flash cookie: %v", err)
			}
			return v
		}
	}
	return ""
}

func nopLogger() *zap.Logger { return zap.NewNop() }

func TestHomeLockedWhenAnonymous(t *testing.T) {
	inv := newFakeInventory(carapi.Car{ID: 1, Name: "Model S"})
	r := newEngine("sid", nil)
	NewPages(inv, nopLogger()).Mount(r)

	w := get(t, r, "/")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Sign In to View Our Collection") {
		t.Fatal("locked section not rendered")
	}
	if strings.Contains(w.Body.String(), "Model S") {
		t.Fatal("inventory leaked to anonymous visitor")
	}
	if inv.listCalls != 0 {
		t.Fatalf("anonymous visit must not hit the inventory API, got %d calls", inv.listCalls)
	}
}

func TestHomeShowsCarsWhenSignedIn(t *testing.T) {
	inv := newFakeInventory(carapi.Car{ID: 1, Name: "Model S", Brand: "Tesla", Model: "S", Year: 2023, Price: 89990, Status: carapi.StatusAvailable})
	r := newEngine("sid", userSession())
	NewPages(inv, nopLogger()).Mount(r)

	w := get(t, r, "/")
	body := w.Body.String()
	if !strings.Contains(body, "Model S") {
		t.Fatal("car not rendered")
	}
	if !strings.Contains(body, "$89,990") {
		t.Fatal("price not formatted")
	}
	if !strings.Contains(body, "user@b.c") {
		t.Fatal("user email not shown")
	}
	if strings.Contains(body, "Admin Dashboard") {
		t.Fatal("non-admin must not see the dashboard link")
	}
	if inv.listCalls != 1 {
		t.Fatalf("expected one inventory call, got %d", inv.listCalls)
	}
}

func TestHomeShowsDashboardLinkForAdmin(t *testing.T) {
	inv := newFakeInventory()
	r := newEngine("sid", adminSession())
	NewPages(inv, nopLogger()).Mount(r)

	body := get(t, r, "/").Body.String()
	if !strings.Contains(body, "Admin Dashboard") {
		t.Fatal("admin must see the dashboard link")
	}
	if !strings.Contains(body, "No cars available at the moment") {
		t.Fatal("empty inventory message missing")
	}
}

func TestHomeFetchFailureShowsError(t *testing.T) {
	inv := newFakeInventory()
	inv.listErr = errors.New("boom")
	r := newEngine("sid", userSession())
	NewPages(inv, nopLogger()).Mount(r)

	w := get(t, r, "/")
	if w.Code != http.StatusOK {
		t.Fatalf("fetch failure must still render, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Failed to fetch cars") {
		t.Fatal("error notice missing")
	}
}

// 图片相对路径要拼上库存 API 的源
func TestHomeResolvesRelativeImageURL(t *testing.T) {
	inv := newFakeInventory(carapi.Car{ID: 1, Name: "Model S", Brand: "Tesla", Model: "S", Year: 2023, Price: 89990, ImageURL: "/uploads/s.jpg"})
	r := newEngine("sid", userSession())
	NewPages(inv, nopLogger()).Mount(r)

	if !strings.Contains(get(t, r, "/").Body.String(), "http://api.local/uploads/s.jpg") {
		t.Fatal("relative image url not resolved against the API origin")
	}
}
