package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
)

// Count is a non-truncating integer counter. The zero value is 0.
type Count struct {
	v *big.Int
}

func NewCount(n int64) Count {
	return Count{v: big.NewInt(n)}
}

// Bounds on accepted counters. Anything larger is treated as garbage rather
// than materialized.
const (
	MaxCountDigits = 80
	maxCountBits   = 256
)

// ParseCount parses a decimal integer. Float or scientific notation is
// accepted only when the value is integral, e.g. 1.5E+20; 12.7 is rejected.
func ParseCount(s string) (Count, bool) {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > MaxCountDigits {
		return Count{}, false
	}
	if n, ok := new(big.Int).SetString(s, 10); ok {
		return Count{v: n}, true
	}
	f, _, err := big.ParseFloat(s, 10, maxCountBits, big.ToNearestEven)
	if err != nil || f.IsInf() || f.MantExp(nil) > maxCountBits {
		return Count{}, false
	}
	n, acc := f.Int(nil)
	if acc != big.Exact {
		return Count{}, false
	}
	return Count{v: n}, true
}

func MustParseCount(s string) Count {
	c, ok := ParseCount(s)
	if !ok {
		panic(fmt.Sprintf("domain: invalid count %q", s))
	}
	return c
}

func (c Count) String() string {
	if c.v == nil {
		return "0"
	}
	return c.v.String()
}

func (c Count) BigInt() *big.Int {
	if c.v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(c.v)
}

func (c Count) Cmp(o Count) int {
	return c.BigInt().Cmp(o.BigInt())
}

func (c Count) IsZero() bool {
	return c.v == nil || c.v.Sign() == 0
}

func (c Count) Value() (driver.Value, error) {
	return c.String(), nil
}

func (c *Count) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		c.v = nil
		return nil
	case int64:
		c.v = big.NewInt(v)
		return nil
	case string:
		return c.scanString(v)
	case []byte:
		return c.scanString(string(v))
	default:
		return fmt.Errorf("domain: cannot scan %T into Count", src)
	}
}

func (c *Count) scanString(s string) error {
	parsed, ok := ParseCount(s)
	if !ok {
		return fmt.Errorf("domain: invalid count %q", s)
	}
	*c = parsed
	return nil
}

// MarshalJSON emits a JSON string so browser clients never round through float64.
func (c Count) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *Count) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		s = n.String()
	}
	return c.scanString(s)
}
