// Package validate collects field validation failures into a single error.
package validate

import (
	"net/mail"
	"regexp"
	"strings"
)

var clockPattern = regexp.MustCompile(`^([0-1]?[0-9]|2[0-3]):[0-5][0-9]$`)

// Error is returned when input fails validation. Errors keeps messages in check order;
// Fields maps a field name to its first message.
type Error struct {
	Message string
	Errors  []string
	Fields  map[string]string
}

func (e *Error) Error() string {
	if len(e.Errors) == 0 {
		return e.Message
	}
	return e.Message + ": " + strings.Join(e.Errors, "; ")
}

// Collector accumulates failures.
type Collector struct {
	errs   []string
	fields map[string]string
}

// New returns an empty collector.
func New() *Collector {
	return &Collector{fields: make(map[string]string)}
}

// Check records msg against field when ok is false.
func (c *Collector) Check(ok bool, field, msg string) {
	if ok {
		return
	}
	c.errs = append(c.errs, msg)
	if _, seen := c.fields[field]; !seen {
		c.fields[field] = msg
	}
}

// Valid reports whether nothing was recorded.
func (c *Collector) Valid() bool {
	return len(c.errs) == 0
}

// Err returns nil or an *Error carrying message and the recorded failures.
func (c *Collector) Err(message string) error {
	if c.Valid() {
		return nil
	}
	return &Error{Message: message, Errors: c.errs, Fields: c.fields}
}

// OneOf reports whether v is in allowed.
func OneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

// Clock reports whether v is a 24-hour H:MM or HH:MM time.
func Clock(v string) bool {
	return clockPattern.MatchString(v)
}

// Between reports whether v lies in [lo, hi].
func Between(v, lo, hi float64) bool {
	return v >= lo && v <= hi
}

// Email reports whether v is a bare address with a dotted domain, such as a@b.co.
func Email(v string) bool {
	at := strings.LastIndex(v, "@")
	if at <= 0 || !strings.Contains(v[at:], ".") {
		return false
	}
	addr, err := mail.ParseAddress(v)
	return err == nil && addr.Address == v
}
