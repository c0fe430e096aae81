package adminform

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"go.uber.org/zap"

	"car-showcase/internal/carapi"
)

// fakeAPI 可编程的库存 API 假实现
type fakeAPI struct {
	cars      map[int64]*carapi.Car
	nextID    int64
	uploadURL string
	uploadErr error
	creates   int
	updates   int
	uploads   int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{cars: map[int64]*carapi.Car{}, nextID: 1, uploadURL: "/uploads/x.jpg"}
}

func (f *fakeAPI) GetCarByID(_ context.Context, id int64) (*carapi.Car, error) {
	c, ok := f.cars[id]
	if !ok {
		return nil, errors.New("not found")
	}
	cp := *c
	return &cp, nil
}

func (f *fakeAPI) CreateCar(_ context.Context, car *carapi.Car) (*carapi.Car, error) {
	f.creates++
	cp := *car
	cp.ID = f.nextID
	f.nextID++
	f.cars[cp.ID] = &cp
	return &cp, nil
}

func (f *fakeAPI) UpdateCar(_ context.Context, id int64, car *carapi.Car) (*carapi.Car, error) {
	f.updates++
	cp := *car
	cp.ID = id
	f.cars[id] = &cp
	return &cp, nil
}

func (f *fakeAPI) UploadImage(_ context.Context, _ string, _ io.Reader) (string, error) {
	f.uploads++
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	return f.uploadURL, nil
}

func newTestController(api API) *Controller {
	return NewController(api, zap.NewNop())
}

func TestDraftClosedByDefault(t *testing.T) {
	c := newTestController(newFakeAPI())
	d := c.Draft("sid")
	if d.State != StateClosed {
		t.Fatalf("expected closed state, got %s", d.State)
	}
}

func TestOpenSetsDefaults(t *testing.T) {
	c := newTestController(newFakeAPI())
	c.Open("sid")
	d := c.Draft("sid")
	if d.State != StateCreating {
		t.Fatalf("expected creating state, got %s", d.State)
	}
	if d.Car.Seats != 4 || d.Car.Status != carapi.StatusAvailable {
		t.Fatalf("defaults not applied: %+v", d.Car)
	}
	if d.Car.Year == 0 {
		t.Fatal("year default missing")
	}
	if d.Car.Features == nil || len(d.Car.Features) != 0 {
		t.Fatalf("features must start empty, got %v", d.Car.Features)
	}
}

func TestEditCopiesCar(t *testing.T) {
	api := newFakeAPI()
	api.cars[3] = &carapi.Car{ID: 3, Name: "Civic", Brand: "Honda", Model: "Civic", Year: 2020, Price: 25000, Features: []string{"ABS"}}
	c := newTestController(api)

	if err := c.Edit(context.Background(), "sid", 3); err != nil {
		t.Fatalf("edit: %v", err)
	}
	d := c.Draft("sid")
	if d.State != StateEditing || d.EditingID != 3 {
		t.Fatalf("unexpected draft: %+v", d)
	}
	if d.Car.Name != "Civic" {
		t.Fatalf("car not copied: %+v", d.Car)
	}

	// 草稿修改不能影响源对象
	c.AddFeature("sid", "Sunroof")
	if len(api.cars[3].Features) != 1 {
		t.Fatalf("draft mutation leaked into source: %v", api.cars[3].Features)
	}
}

func TestAddFeatureDedup(t *testing.T) {
	c := newTestController(newFakeAPI())
	c.Open("sid")

	c.AddFeature("sid", "Sunroof")
	c.AddFeature("sid", "Sunroof")
	c.AddFeature("sid", "")
	c.AddFeature("sid", "sunroof") // 大小写不同算新的

	got := c.Draft("sid").Car.Features
	if len(got) != 2 || got[0] != "Sunroof" || got[1] != "sunroof" {
		t.Fatalf("unexpected features: %v", got)
	}
}

func TestRemoveFeatureByIndex(t *testing.T) {
	c := newTestController(newFakeAPI())
	c.Open("sid")
	c.AddFeature("sid", "a")
	c.AddFeature("sid", "b")
	c.AddFeature("sid", "c")

	c.RemoveFeature("sid", 1)
	got := c.Draft("sid").Car.Features
	if len(got) != 2 || got[0] != "a" || got[1] != "c" {
		t.Fatalf("unexpected features: %v", got)
	}

	// 越界是 no-op
	c.RemoveFeature("sid", -1)
	c.RemoveFeature("sid", 5)
	if len(c.Draft("sid").Car.Features) != 2 {
		t.Fatal("out of range remove must not change features")
	}
}

func TestUploadSetsImageURL(t *testing.T) {
	api := newFakeAPI()
	c := newTestController(api)
	c.Open("sid")

	url, err := c.Upload(context.Background(), "sid", "car.jpg", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if url != "/uploads/x.jpg" {
		t.Fatalf("unexpected url %q", url)
	}
	d := c.Draft("sid")
	if d.Car.ImageURL != "/uploads/x.jpg" {
		t.Fatalf("imageUrl not set: %+v", d.Car)
	}
	if d.Uploading {
		t.Fatal("uploading flag must clear after completion")
	}
}

func TestUploadFailureKeepsImageURL(t *testing.T) {
	api := newFakeAPI()
	c := newTestController(api)
	c.Open("sid")
	_, _ = c.Upload(context.Background(), "sid", "a.jpg", strings.NewReader("x"))

	api.uploadErr = errors.New("boom")
	_, err := c.Upload(context.Background(), "sid", "b.jpg", strings.NewReader("y"))
	if err == nil {
		t.Fatal("expected upload error")
	}
	d := c.Draft("sid")
	if d.Car.ImageURL != "/uploads/x.jpg" {
		t.Fatalf("failed upload must not touch imageUrl, got %q", d.Car.ImageURL)
	}
	if d.Uploading {
		t.Fatal("uploading flag must clear after failure")
	}
}

func TestUploadWithoutForm(t *testing.T) {
	c := newTestController(newFakeAPI())
	_, err := c.Upload(context.Background(), "sid", "a.jpg", strings.NewReader("x"))
	if !errors.Is(err, ErrNoForm) {
		t.Fatalf("expected ErrNoForm, got %v", err)
	}
}

func TestUploadReentrancyGuard(t *testing.T) {
	api := newFakeAPI()
	started := make(chan struct{})
	release := make(chan struct{})
	slow := &slowUploadAPI{fakeAPI: api, started: started, release: release}
	c := newTestController(slow)
	c.Open("sid")

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = c.Upload(context.Background(), "sid", "a.jpg", strings.NewReader("x"))
	}()
	<-started

	_, err := c.Upload(context.Background(), "sid", "b.jpg", strings.NewReader("y"))
	if !errors.Is(err, ErrUploadInFlight) {
		t.Fatalf("expected ErrUploadInFlight, got %v", err)
	}
	close(release)
	<-done

	if api.uploads != 1 {
		t.Fatalf("second upload must not reach the API, got %d", api.uploads)
	}
}

// 上传途中取消表单：结果丢弃，不得污染后来打开的新表单
func TestUploadCancelledMidFlight(t *testing.T) {
	api := newFakeAPI()
	started := make(chan struct{})
	release := make(chan struct{})
	slow := &slowUploadAPI{fakeAPI: api, started: started, release: release}
	c := newTestController(slow)
	c.Open("sid")

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = c.Upload(context.Background(), "sid", "a.jpg", strings.NewReader("x"))
	}()
	<-started
	c.Close("sid")
	c.Open("sid") // 新表单
	close(release)
	<-done

	d := c.Draft("sid")
	if d.Car.ImageURL != "" {
		t.Fatalf("stale upload leaked into new form: %q", d.Car.ImageURL)
	}
	if d.Uploading {
		t.Fatal("new form must not inherit uploading flag")
	}
}

type slowUploadAPI struct {
	*fakeAPI
	started chan struct{}
	release chan struct{}
}

func (s *slowUploadAPI) UploadImage(ctx context.Context, name string, r io.Reader) (string, error) {
	close(s.started)
	<-s.release
	return s.fakeAPI.UploadImage(ctx, name, r)
}

func TestSubmitValidatesBeforeNetwork(t *testing.T) {
	api := newFakeAPI()
	c := newTestController(api)
	c.Open("sid")

	_, err := c.Submit(context.Background(), "sid", Fields{Name: "only name"})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if carapi.KindOf(err) != carapi.KindValidation {
		t.Fatalf("expected validation kind, got %s", carapi.KindOf(err))
	}
	if api.creates != 0 || api.updates != 0 {
		t.Fatal("invalid draft must not reach the API")
	}
	// 失败后草稿保留，可改了重试
	if c.Draft("sid").State != StateCreating {
		t.Fatal("draft must survive a failed submit")
	}
}

func TestSubmitCreate(t *testing.T) {
	api := newFakeAPI()
	c := newTestController(api)
	c.Open("sid")
	c.AddFeature("sid", "Sunroof")

	saved, err := c.Submit(context.Background(), "sid", Fields{
		Name: "Model S", Brand: "Tesla", Model: "S", Year: 2023, Price: 89990, Seats: 5,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if api.creates != 1 || api.updates != 0 {
		t.Fatalf("expected one create, got creates=%d updates=%d", api.creates, api.updates)
	}
	if !saved.Persisted() {
		t.Fatalf("expected persisted car, got %+v", saved)
	}
	if len(saved.Features) != 1 || saved.Features[0] != "Sunroof" {
		t.Fatalf("features not carried from draft: %v", saved.Features)
	}
	if c.Draft("sid").State != StateClosed {
		t.Fatal("form must close after successful submit")
	}
}

func TestSubmitUpdate(t *testing.T) {
	api := newFakeAPI()
	api.cars[9] = &carapi.Car{ID: 9, Name: "Civic", Brand: "Honda", Model: "Civic", Year: 2020, Price: 25000}
	c := newTestController(api)
	if err := c.Edit(context.Background(), "sid", 9); err != nil {
		t.Fatalf("edit: %v", err)
	}

	saved, err := c.Submit(context.Background(), "sid", Fields{
		Name: "Civic", Brand: "Honda", Model: "Civic", Year: 2020, Price: 23500,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if api.updates != 1 || api.creates != 0 {
		t.Fatalf("expected one update, got creates=%d updates=%d", api.creates, api.updates)
	}
	if saved.ID != 9 || saved.Price != 23500 {
		t.Fatalf("unexpected saved car: %+v", saved)
	}
}

func TestDraftsIsolatedBySID(t *testing.T) {
	c := newTestController(newFakeAPI())
	c.Open("alice")
	c.AddFeature("alice", "Sunroof")

	if c.Draft("bob").State != StateClosed {
		t.Fatal("other browsers must not see the draft")
	}
	c.Close("bob")
	if c.Draft("alice").State != StateCreating {
		t.Fatal("closing an absent form must not touch other drafts")
	}
}
