package carapi

import "strings"

const (
	StatusAvailable = "available"
	StatusSold      = "sold"
	StatusReserved  = "reserved"
)

// Car 库存 API 的唯一领域实体。id 为 0 表示草稿（尚未持久化）。
type Car struct {
	ID               int64    `json:"id,omitempty"`
	Name             string   `json:"name"`
	Brand            string   `json:"brand"`
	Model            string   `json:"model"`
	Year             int      `json:"year"`
	Description      string   `json:"description,omitempty"`
	Price            float64  `json:"price"`
	ImageURL         string   `json:"imageUrl,omitempty"`
	AdditionalImages []string `json:"additionalImages,omitempty"`
	Color            string   `json:"color,omitempty"`
	FuelType         string   `json:"fuelType,omitempty"`
	Transmission     string   `json:"transmission,omitempty"`
	Mileage          int64    `json:"mileage,omitempty"`
	EngineCapacity   string   `json:"engineCapacity,omitempty"`
	Seats            int      `json:"seats,omitempty"`
	Features         []string `json:"features,omitempty"`
	Status           string   `json:"status,omitempty"`
}

func (c *Car) Persisted() bool { return c.ID != 0 }

// Validate 必填字段在发请求前检查，缺了就不出网
func (c *Car) Validate() error {
	var missing []string
	if strings.TrimSpace(c.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(c.Brand) == "" {
		missing = append(missing, "brand")
	}
	if strings.TrimSpace(c.Model) == "" {
		missing = append(missing, "model")
	}
	if c.Year == 0 {
		missing = append(missing, "year")
	}
	if c.Price <= 0 {
		missing = append(missing, "price")
	}
	if len(missing) > 0 {
		return validationErr("missing required fields: " + strings.Join(missing, ", "))
	}
	return nil
}
