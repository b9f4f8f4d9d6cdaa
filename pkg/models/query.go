package models

// QueryRequest is the uniform query boundary over all registered backends.
// Query carries raw backend-native text; when empty, the backend builds a
// query from Metric plus the aggregation/group-by/rate options.
type QueryRequest struct {
	Datasource  string   `json:"datasource"`
	Query       string   `json:"query,omitempty"`
	Metric      string   `json:"metric,omitempty"`
	From        string   `json:"from"`
	To          string   `json:"to"`
	Step        string   `json:"step,omitempty"`
	Aggregation string   `json:"aggregation,omitempty"`
	GroupBy     []string `json:"group_by,omitempty"`
	Rate        bool     `json:"rate,omitempty"`
}
