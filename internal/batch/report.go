package batch

import (
	"fmt"

	"fulfillment-api/internal/model"
)

// Report summarizes one processing pass.
type Report struct {
	Product    string            `json:"product"`
	Orders     int               `json:"orders"`
	Loaded     int               `json:"loaded"`
	Invalid    int               `json:"invalid"`
	Duplicates int               `json:"duplicates"`
	Delivered  int               `json:"delivered"`
	Leftover   int               `json:"leftover"`
	Stock      int               `json:"stock"`
	Failure    model.FailureKind `json:"failure,omitempty"`
}

func (r Report) String() string {
	s := fmt.Sprintf("orders=%d loaded=%d invalid=%d duplicates=%d delivered=%d leftover=%d stock=%d",
		r.Orders, r.Loaded, r.Invalid, r.Duplicates, r.Delivered, r.Leftover, r.Stock)
	if r.Failure != model.FailureNone {
		s += " failure=" + string(r.Failure)
	}
	return s
}
