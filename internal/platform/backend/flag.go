package backend

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Flag is a boolean the backend stores as "s"/"n".
type Flag bool

func (f Flag) String() string {
	if f {
		return "s"
	}
	return "n"
}

func (f Flag) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.String())
}

// UnmarshalJSON accepts "s"/"S"/"n"/"N", JSON booleans, "" and null.
func (f *Flag) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case nil:
		*f = false
	case bool:
		*f = Flag(v)
	case string:
		parsed, err := ParseFlag(v)
		if err != nil {
			return err
		}
		*f = parsed
	default:
		return fmt.Errorf("invalid flag %s", string(data))
	}
	return nil
}

func ParseFlag(s string) (Flag, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "s", "sim", "true":
		return true, nil
	case "n", "nao", "não", "false", "":
		return false, nil
	}
	return false, fmt.Errorf("invalid flag %q", s)
}

// Upper renders the flag as "S"/"N", the form used by patient registration.
func (f Flag) Upper() string {
	return strings.ToUpper(f.String())
}
