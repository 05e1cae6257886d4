package bridge

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrMissingArgument is returned when an operation needs a number and none
// was sent.
var ErrMissingArgument = errors.New("missing argument")

func isAbsent(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// Bool coerces a JSON value to a boolean. Absent and null are false,
// numbers are true when non-zero, and the strings true/false, 1/0, on/off
// and yes/no are accepted in any case.
func Bool(raw json.RawMessage) (bool, error) {
	if isAbsent(raw) {
		return false, nil
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false, fmt.Errorf("invalid argument: %w", err)
	}

	switch t := v.(type) {
	case bool:
		return t, nil
	case float64:
		return t != 0, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "1", "on", "yes":
			return true, nil
		case "false", "0", "off", "no", "":
			return false, nil
		}
		return false, fmt.Errorf("cannot use %q as a boolean", t)
	default:
		return false, fmt.Errorf("cannot use %s as a boolean", string(raw))
	}
}

// Number coerces a JSON number or numeric string to a finite float64.
func Number(raw json.RawMessage) (float64, error) {
	if isAbsent(raw) {
		return 0, ErrMissingArgument
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, fmt.Errorf("invalid argument: %w", err)
	}

	var n float64
	switch t := v.(type) {
	case float64:
		n = t
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, fmt.Errorf("cannot use %q as a number", t)
		}
		n = parsed
	default:
		return 0, fmt.Errorf("cannot use %s as a number", string(raw))
	}

	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, fmt.Errorf("cannot use %v as a number", n)
	}
	return n, nil
}
