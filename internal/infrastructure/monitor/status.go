package monitor

import "time"

type Component struct {
	Online   bool   `json:"online"`
	Required bool   `json:"required"`
	Latency  string `json:"latency"`
	Error    string `json:"error,omitempty"`
}

type Status struct {
	Healthy    bool                 `json:"healthy"`
	Components map[string]Component `json:"components"`
	LastCheck  time.Time            `json:"last_check"`
}

func (s Status) clone() Status {
	out := s
	out.Components = make(map[string]Component, len(s.Components))
	for name, c := range s.Components {
		out.Components[name] = c
	}
	return out
}
