package model

import "time"

// MeasurementMapping joins a collection channel to the hierarchy by name.
// Historical readings reference ChannelID directly.
type MeasurementMapping struct {
	ChannelID       int64     `gorm:"primaryKey;autoIncrement:false" json:"channelId"`
	FactoryName     string    `gorm:"size:128" json:"factoryName"`
	GroupName       string    `gorm:"size:128" json:"groupName"`
	FacilityName    string    `gorm:"size:128" json:"facilityName"`
	SensorName      string    `gorm:"size:128" json:"sensorName"`
	Unit            string    `gorm:"size:32" json:"unit"`
	ScaleExpression string    `gorm:"size:32" json:"scaleExpression"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// SameTarget reports whether both mappings point at the same sensor path.
func (m MeasurementMapping) SameTarget(o MeasurementMapping) bool {
	return m.FactoryName == o.FactoryName &&
		m.GroupName == o.GroupName &&
		m.FacilityName == o.FacilityName &&
		m.SensorName == o.SensorName
}

// SensorReading is a converted value stored under a mirror channel.
type SensorReading struct {
	ID         int64     `gorm:"primaryKey" json:"id"`
	ChannelID  int64     `gorm:"index;not null" json:"channelId"`
	Value      float64   `gorm:"not null" json:"value"`
	RecordedAt time.Time `gorm:"index;not null" json:"recordedAt"`
}
