package models

import (
	"bytes"
	"encoding/json"
)

// Signal is an optional score. The zero value is unavailable.
type Signal struct {
	value float64
	ok    bool
}

func Value(v float64) Signal { return Signal{value: v, ok: true} }

func Unavailable() Signal { return Signal{} }

// Get returns the value and whether the signal is available.
func (s Signal) Get() (float64, bool) { return s.value, s.ok }

func (s Signal) Available() bool { return s.ok }

func (s Signal) MarshalJSON() ([]byte, error) {
	if !s.ok {
		return []byte("null"), nil
	}
	return json.Marshal(s.value)
}

func (s *Signal) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*s = Unavailable()
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*s = Value(v)
	return nil
}
