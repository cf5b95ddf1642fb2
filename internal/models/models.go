package models

import (
	"encoding/json"
	"time"
)

// UserState is the per-user conversation kept between updates.
// Wizard holds the serialized booking wizard while one is running.
type UserState struct {
	UserID      int64                  `json:"user_id"`
	CurrentStep string                 `json:"current_step"`
	TempData    map[string]interface{} `json:"temp_data,omitempty"`
	Wizard      json.RawMessage        `json:"wizard,omitempty"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

func (s *UserState) GetInt64(key string) int64 {
	if s.TempData == nil {
		return 0
	}
	val, ok := s.TempData[key]
	if !ok {
		return 0
	}
	switch v := val.(type) {
	case int64:
		return v
	case float64:
		return int64(v)
	case int:
		return int64(v)
	default:
		return 0
	}
}

func (s *UserState) GetString(key string) string {
	if s.TempData == nil {
		return ""
	}
	if str, ok := s.TempData[key].(string); ok {
		return str
	}
	return ""
}

// GetStrings reads a string list that may have round-tripped through JSON.
func (s *UserState) GetStrings(key string) []string {
	if s.TempData == nil {
		return nil
	}
	switch v := s.TempData[key].(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	default:
		return nil
	}
}
