package types

// Institution is one raw record from the data source. Metrics holds the
// quality indicators by canonical key; a missing key means the source did
// not report that indicator. Records are read-only once fetched.
type Institution struct {
	ID         int64              `json:"id"`
	Name       string             `json:"name"`
	State      string             `json:"state"`
	City       string             `json:"city,omitempty"`
	Enrollment int                `json:"enrollment"`
	Price      float64            `json:"price"`
	Currency   string             `json:"currency,omitempty"`
	Metrics    map[string]float64 `json:"metrics"`
}

// IndicatorCount reports how many quality indicators the record carries.
func (i Institution) IndicatorCount() int {
	return len(i.Metrics)
}
