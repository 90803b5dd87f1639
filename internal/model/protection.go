package model

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
)

// Protection classifies whether a hierarchy record may be deleted.
// Records discovered through synchronization are Protected; records
// registered from the console are Local.
type Protection int8

const (
	Local     Protection = 0
	Protected Protection = 1
)

// ParseProtection normalizes the legacy representations of the flag.
// Only a value equal to 1 is protected; nil, absent, 0 and anything
// unparseable is local.
func ParseProtection(v any) Protection {
	switch t := v.(type) {
	case nil:
		return Local
	case Protection:
		return t
	case *Protection:
		if t == nil {
			return Local
		}
		return *t
	case bool:
		if t {
			return Protected
		}
	case int:
		return fromInt(int64(t))
	case int8:
		return fromInt(int64(t))
	case int16:
		return fromInt(int64(t))
	case int32:
		return fromInt(int64(t))
	case int64:
		return fromInt(t)
	case uint8:
		return fromInt(int64(t))
	case uint16:
		return fromInt(int64(t))
	case uint32:
		return fromInt(int64(t))
	case uint64:
		if t == 1 {
			return Protected
		}
	case float32:
		if t == 1 {
			return Protected
		}
	case float64:
		if t == 1 {
			return Protected
		}
	case []byte:
		return ParseProtection(string(t))
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err == nil {
			return fromInt(n)
		}
	}
	return Local
}

func fromInt(n int64) Protection {
	if n == 1 {
		return Protected
	}
	return Local
}

// IsProtected reports whether the record must never be deleted.
func (p Protection) IsProtected() bool {
	return p == Protected
}

func (p Protection) String() string {
	if p.IsProtected() {
		return "protected"
	}
	return "local"
}

// Scan implements sql.Scanner.
func (p *Protection) Scan(src any) error {
	*p = ParseProtection(src)
	return nil
}

// Value implements driver.Valuer.
func (p Protection) Value() (driver.Value, error) {
	if p.IsProtected() {
		return int64(1), nil
	}
	return int64(0), nil
}

// MarshalText lets JSON responses carry "protected" / "local".
func (p Protection) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText accepts "protected", "local" or any legacy numeric form.
func (p *Protection) UnmarshalText(b []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(b))) {
	case "protected":
		*p = Protected
	case "local", "":
		*p = Local
	default:
		if _, err := strconv.ParseFloat(string(b), 64); err != nil {
			return fmt.Errorf("invalid protection value %q", string(b))
		}
		*p = ParseProtection(string(b))
	}
	return nil
}
