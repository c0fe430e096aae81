package adminform

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"car-showcase/internal/carapi"
)

type State string

const (
	StateClosed   State = "closed"
	StateCreating State = "creating"
	StateEditing  State = "editing"
)

var (
	ErrNoForm         = errors.New("adminform: no form open")
	ErrUploadInFlight = errors.New("adminform: upload already in flight")
)

// API 表单控制器需要的库存 API 子集（carapi.Client 实现）
type API interface {
	GetCarByID(ctx context.Context, id int64) (*carapi.Car, error)
	CreateCar(ctx context.Context, car *carapi.Car) (*carapi.Car, error)
	UpdateCar(ctx context.Context, id int64, car *carapi.Car) (*carapi.Car, error)
	UploadImage(ctx context.Context, filename string, r io.Reader) (string, error)
}

// Draft 单辆车的编辑草稿。一个表单同一时刻只持有一辆车，
// 切换编辑对象时整体替换工作副本。
type Draft struct {
	State     State
	Car       carapi.Car
	EditingID int64 // 0 = 新建
	Uploading bool
}

// Controller 按 sid 维护管理端表单状态机 {closed, creating, editing}。
// 所有修改只动本地草稿，提交时才走网络。
type Controller struct {
	api API
	log *zap.Logger

	mu     sync.Mutex
	drafts map[string]*Draft
}

func NewController(api API, log *zap.Logger) *Controller {
	return &Controller{api: api, log: log, drafts: map[string]*Draft{}}
}

// defaults 新建表单的初始值：当年、4 座、available、空特性列表
func defaults() carapi.Car {
	return carapi.Car{
		Year:     time.Now().Year(),
		Seats:    4,
		Status:   carapi.StatusAvailable,
		Features: []string{},
	}
}

// Draft 返回渲染用的草稿副本；没有打开的表单时为 closed 缺省值
func (c *Controller) Draft(sid string) Draft {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d, ok := c.drafts[sid]; ok {
		cp := *d
		cp.Car.Features = append([]string(nil), d.Car.Features...)
		return cp
	}
	return Draft{State: StateClosed}
}

// Open closed → creating，草稿重置为缺省值
func (c *Controller) Open(sid string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.drafts[sid] = &Draft{State: StateCreating, Car: defaults()}
}

// Edit 拉取现车并整体拷贝进草稿（closed → editing）
func (c *Controller) Edit(ctx context.Context, sid string, id int64) error {
	car, err := c.api.GetCarByID(ctx, id)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := *car
	cp.Features = append([]string(nil), car.Features...)
	c.drafts[sid] = &Draft{State: StateEditing, Car: cp, EditingID: car.ID}
	return nil
}

// Close 取消或提交成功后回到 closed，草稿丢弃
func (c *Controller) Close(sid string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.drafts, sid)
}

// Drop 登出时清理，同 Close
func (c *Controller) Drop(sid string) { c.Close(sid) }

// AddFeature 非空且不存在（大小写敏感全等）才追加；重复输入幂等
func (c *Controller) AddFeature(sid, text string) {
	if text == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.drafts[sid]
	if !ok {
		return
	}
	for _, f := range d.Car.Features {
		if f == text {
			return
		}
	}
	d.Car.Features = append(d.Car.Features, text)
}

// RemoveFeature 只删第 i 个；越界是 no-op
func (c *Controller) RemoveFeature(sid string, i int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.drafts[sid]
	if !ok {
		return
	}
	if i < 0 || i >= len(d.Car.Features) {
		return
	}
	d.Car.Features = append(d.Car.Features[:i], d.Car.Features[i+1:]...)
}

// Fields 提交时从表单 POST 过来的标量字段；
// features 和 imageUrl 以服务端持有的草稿为准
type Fields struct {
	Name           string
	Brand          string
	Model          string
	Year           int
	Description    string
	Price          float64
	Color          string
	FuelType       string
	Transmission   string
	Mileage        int64
	EngineCapacity string
	Seats          int
	Status         string
}

func (d *Draft) apply(f Fields) {
	d.Car.Name = f.Name
	d.Car.Brand = f.Brand
	d.Car.Model = f.Model
	d.Car.Year = f.Year
	d.Car.Description = f.Description
	d.Car.Price = f.Price
	d.Car.Color = f.Color
	d.Car.FuelType = f.FuelType
	d.Car.Transmission = f.Transmission
	d.Car.Mileage = f.Mileage
	d.Car.EngineCapacity = f.EngineCapacity
	d.Car.Seats = f.Seats
	if f.Status != "" {
		d.Car.Status = f.Status
	}
}

// Upload 文件选中即上传；同一表单同时只允许一个上传在途。
// 失败时 imageUrl 保持原样，控件恢复可用。
func (c *Controller) Upload(ctx context.Context, sid, filename string, r io.Reader) (string, error) {
	c.mu.Lock()
	d, ok := c.drafts[sid]
	if !ok {
		c.mu.Unlock()
		return "", ErrNoForm
	}
	if d.Uploading {
		c.mu.Unlock()
		return "", ErrUploadInFlight
	}
	d.Uploading = true
	c.mu.Unlock()

	url, err := c.api.UploadImage(ctx, filename, r)

	c.mu.Lock()
	defer c.mu.Unlock()
	// 上传期间表单可能已被取消
	if d2, ok := c.drafts[sid]; ok && d2 == d {
		d.Uploading = false
		if err == nil {
			d.Car.ImageURL = url
		}
	}
	if err != nil {
		return "", err
	}
	return url, nil
}

// Submit 合并标量字段后先做客户端校验，缺必填字段不出网。
// 编辑态走整体替换更新，否则新建。成功后表单关闭重置；
// 失败时草稿原样保留，用户可以改了重试。
func (c *Controller) Submit(ctx context.Context, sid string, f Fields) (*carapi.Car, error) {
	c.mu.Lock()
	d, ok := c.drafts[sid]
	if !ok {
		c.mu.Unlock()
		return nil, ErrNoForm
	}
	d.apply(f)
	car := d.Car
	car.Features = append([]string(nil), d.Car.Features...)
	editingID := d.EditingID
	c.mu.Unlock()

	if err := car.Validate(); err != nil {
		return nil, err
	}

	var (
		saved *carapi.Car
		err   error
	)
	if editingID != 0 {
		saved, err = c.api.UpdateCar(ctx, editingID, &car)
	} else {
		saved, err = c.api.CreateCar(ctx, &car)
	}
	if err != nil {
		return nil, err
	}
	c.Close(sid)
	return saved, nil
}
