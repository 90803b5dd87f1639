package model

import "time"

// The legacy tables are the authoritative input of synchronization. They are
// written by the collection side and only read here.

type LegacyFactory struct {
	ID        int64  `gorm:"primaryKey;autoIncrement:false"`
	CompanyID int64  `gorm:"not null"`
	Name      string `gorm:"size:128;not null"`
}

type LegacyFacilityGroup struct {
	ID        int64  `gorm:"primaryKey;autoIncrement:false"`
	FactoryID int64  `gorm:"not null"`
	Name      string `gorm:"size:128;not null"`
}

type LegacyFacility struct {
	ID      int64  `gorm:"primaryKey;autoIncrement:false"`
	GroupID int64  `gorm:"not null"`
	Name    string `gorm:"size:128;not null"`
}

type LegacySensor struct {
	ID         int64  `gorm:"primaryKey;autoIncrement:false"`
	FacilityID int64  `gorm:"not null"`
	Name       string `gorm:"size:128;not null"`
}

type LegacyMeasurementMapping struct {
	ChannelID       int64  `gorm:"primaryKey;autoIncrement:false"`
	FactoryName     string `gorm:"size:128"`
	GroupName       string `gorm:"size:128"`
	FacilityName    string `gorm:"size:128"`
	SensorName      string `gorm:"size:128"`
	Unit            string `gorm:"size:32"`
	ScaleExpression string `gorm:"size:32"`
}

// LegacySensorReading is a raw collected value, before unit scaling.
type LegacySensorReading struct {
	ID         int64     `gorm:"primaryKey"`
	ChannelID  int64     `gorm:"index;not null"`
	RawValue   float64   `gorm:"not null"`
	RecordedAt time.Time `gorm:"index;not null"`
}
