package model

// Region is the location descriptor embedded in every stored row.
type Region struct {
	CountryCode string  `json:"country_code" gorm:"size:2;index"`
	CountryName string  `json:"country_name" gorm:"size:64"`
	City        string  `json:"city" gorm:"size:64;index"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
}

// RegionHint carries whatever location fields a beacon supplied.
type RegionHint struct {
	CountryCode string   `json:"country_code,omitempty"`
	City        string   `json:"city,omitempty"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
}

// IsZero reports whether the beacon carried no location at all.
func (h RegionHint) IsZero() bool {
	return h.CountryCode == "" && h.City == "" && h.Latitude == nil && h.Longitude == nil
}
