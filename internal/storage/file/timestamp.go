package file

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var ErrInvalidTimestamp = errors.New("invalid timestamp")

// Timestamp encodes as a string of Unix seconds with a fractional part,
// e.g. "1700000000.123456789". Fewer fraction digits are accepted on input.
type Timestamp time.Time

func (t Timestamp) String() string {
	tt := time.Time(t)
	return fmt.Sprintf("%d.%09d", tt.Unix(), tt.Nanosecond())
}

func ParseTimestamp(s string) (Timestamp, error) {
	s = strings.TrimSpace(s)
	secPart, fracPart, _ := strings.Cut(s, ".")
	secs, err := strconv.ParseInt(secPart, 10, 64)
	if err != nil {
		return Timestamp{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, s)
	}
	var nanos int64
	if fracPart != "" {
		if len(fracPart) > 9 {
			fracPart = fracPart[:9]
		}
		fracPart += strings.Repeat("0", 9-len(fracPart))
		nanos, err = strconv.ParseInt(fracPart, 10, 64)
		if err != nil || nanos < 0 {
			return Timestamp{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, s)
		}
	}
	return Timestamp(time.Unix(secs, nanos).UTC()), nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON also accepts a bare number, which some older files contain.
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("%w: %s", ErrInvalidTimestamp, b)
		}
		s = n.String()
	}
	v, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

func (t Timestamp) MarshalYAML() (any, error) {
	return t.String(), nil
}

func (t *Timestamp) UnmarshalYAML(node *yaml.Node) error {
	v, err := ParseTimestamp(node.Value)
	if err != nil {
		return err
	}
	*t = v
	return nil
}
