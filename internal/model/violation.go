package model

// ViolationEvent is an integrity breach reported during an active session.
type ViolationEvent struct {
	SessionKey string `json:"session_key"`
	Name       string `json:"name"`
	ClassName  string `json:"class_name"`
	Token      string `json:"token"`
	Kind       string `json:"kind"`
	Reason     string `json:"reason"`
	Timestamp  int64  `json:"timestamp"`
}
