package health

import "time"

type healthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Failing   map[string]string `json:"failing,omitempty"`
}
