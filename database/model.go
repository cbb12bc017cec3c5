package database

// Sample is one stored reading of a series. Timestamps are unix
// milliseconds; SeriesID is the hashed series name.
type Sample struct {
	ID        []byte `gorm:"primary_key"`
	Timestamp int64  `gorm:"index;not null"`
	Value     float64
	SeriesID  []byte `gorm:"index;not null"`
}

// Series names one recorded stream, e.g. national energy consumption
// in GWh.
type Series struct {
	ID   []byte `gorm:"primary_key"`
	Name string `gorm:"unique"`
	Unit string
}
