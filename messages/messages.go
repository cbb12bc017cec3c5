// Package messages defines the JSON frames sent to websocket clients.
package messages

// Row is one streamed point of a series. ZScore and Outlier are unset
// on history rows that predate the detector's decisions.
type Row struct {
	TimestampMs int64    `json:"t"`
	Value       float64  `json:"v"`
	ZScore      *float64 `json:"z,omitempty"`
	Outlier     *bool    `json:"outlier,omitempty"`
}

type Data struct {
	Series string `json:"series,omitempty"`
	Rows   []Row  `json:"rows,omitempty"`
	Error  string `json:"error,omitempty"`
}
