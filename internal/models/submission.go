package models

import (
	"encoding/json"
	"fmt"
)

// Public form identifiers accepted by POST /forms/submit.
const (
	FormContact      = "contact_form"
	FormEventBooking = "event_booking"
)

// Submission is a public form post. FormID selects the target table and
// Data holds every other field of the request body.
type Submission struct {
	FormID string         `json:"formId"`
	Data   map[string]any `json:"-"`
}

// Contact returns the e-mail address, or the phone number when no address
// was given, used to deduplicate submissions.
func (s *Submission) Contact() string {
	for _, key := range []string{"email", "telefone", "phone"} {
		if v, ok := s.Data[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// EventID returns the numeric event reference of a booking, if any.
func (s *Submission) EventID() (int64, bool) {
	switch v := s.Data["event_id"].(type) {
	case float64:
		return int64(v), v == float64(int64(v))
	case int64:
		return v, true
	}
	return 0, false
}

func (s *Submission) UnmarshalJSON(data []byte) error {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	id, _ := m["formId"].(string)
	if id == "" {
		return fmt.Errorf("formId is required")
	}
	delete(m, "formId")
	s.FormID = id
	s.Data = m
	return nil
}
