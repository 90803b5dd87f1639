package model

import "time"

// Factory is the root of the equipment hierarchy. CompanyID is the owning
// company and is carried verbatim from the source system.
type Factory struct {
	ID         int64      `gorm:"primaryKey;autoIncrement:false" json:"id"`
	CompanyID  int64      `gorm:"index;not null" json:"companyId"`
	Name       string     `gorm:"size:128;not null" json:"name"`
	Protection Protection `json:"protection"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// FacilityGroup groups facilities inside a factory.
type FacilityGroup struct {
	ID         int64      `gorm:"primaryKey;autoIncrement:false" json:"id"`
	FactoryID  int64      `gorm:"index;not null" json:"factoryId"`
	Name       string     `gorm:"size:128;not null" json:"name"`
	Protection Protection `json:"protection"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// Facility is a single piece of equipment.
type Facility struct {
	ID         int64      `gorm:"primaryKey;autoIncrement:false" json:"id"`
	GroupID    int64      `gorm:"index;not null" json:"groupId"`
	Name       string     `gorm:"size:128;not null" json:"name"`
	Protection Protection `json:"protection"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// Sensor is a measurement point attached to a facility.
type Sensor struct {
	ID         int64      `gorm:"primaryKey;autoIncrement:false" json:"id"`
	FacilityID int64      `gorm:"index;not null" json:"facilityId"`
	Name       string     `gorm:"size:128;not null" json:"name"`
	Protection Protection `json:"protection"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// Base is a named collection of sensors used to build export files.
type Base struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	FactoryID int64     `gorm:"index;not null" json:"factoryId"`
	Name      string    `gorm:"size:128;not null" json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BaseSensor is the membership of a sensor in a base.
type BaseSensor struct {
	BaseID   int64 `gorm:"primaryKey;autoIncrement:false"`
	SensorID int64 `gorm:"primaryKey;autoIncrement:false;index"`
}
