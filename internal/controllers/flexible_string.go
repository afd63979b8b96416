package controllers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// FlexibleString accepts a JSON string or number, e.g. a CSV-sourced
// graduation year or a version sent as "3".
type FlexibleString string

func (fs *FlexibleString) UnmarshalJSON(data []byte) error {
	if fs == nil {
		return fmt.Errorf("FlexibleString: nil receiver")
	}
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		*fs = FlexibleString(strings.TrimSpace(s))
		return nil
	}

	var num json.Number
	if err := json.Unmarshal(trimmed, &num); err == nil {
		*fs = FlexibleString(num.String())
		return nil
	}

	return fmt.Errorf("FlexibleString: expected string or number, got %s", string(data))
}

func (fs FlexibleString) String() string {
	return string(fs)
}

// Int64 parses the value; an empty value yields nil.
func (fs *FlexibleString) Int64() (*int64, error) {
	if fs == nil || *fs == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(string(*fs), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("expected an integer, got %q", string(*fs))
	}
	return &v, nil
}
