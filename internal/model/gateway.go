package model

import "time"

// EdgeGateway is a data-collection PC reachable at IPPort ("host:port").
type EdgeGateway struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	PCName    string    `gorm:"column:pc_name;size:128;not null" json:"pcName"`
	IPPort    string    `gorm:"column:ip_port;size:64;not null" json:"ipPort"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
