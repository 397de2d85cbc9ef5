package space

// StoreFileName is the file name of the relationship store. The store lives
// next to the design document it describes.
const StoreFileName = "SpatialData.db"

// Airflow holds the three design airflow values of a space, in volume-flow
// units.
type Airflow struct {
	Supply  float64 `json:"supply" yaml:"supply"`
	Return  float64 `json:"return" yaml:"return"`
	Exhaust float64 `json:"exhaust" yaml:"exhaust"`
}

// External is a space as supplied by the host application after a user
// selects it. The core never queries the host; it only receives these values.
type External struct {
	ID     string  `json:"id" yaml:"id"`
	Name   string  `json:"name" yaml:"name"`
	Number string  `json:"number" yaml:"number"`
	Design Airflow `json:"design" yaml:",inline"`
}

// Record is the persisted shape of a tracked space.
type Record struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Number       string   `json:"number"`
	GroupID      string   `json:"group_id"`      // Token of the connect that created the record
	ConnectedIDs []string `json:"connected_ids"` // Direct peers, sorted, never self
	Specified    Airflow  `json:"specified"`     // Last synchronized design values
}
