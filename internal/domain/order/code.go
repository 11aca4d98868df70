package order

import (
	"fmt"
	"math/rand"
	"time"
)

// CodeSource produces candidate order codes. Uniqueness is enforced by storage.
type CodeSource interface {
	Generate(now time.Time) string
}

// CodeGenerator produces PREFIX-YYYYMMDD-NNNN codes with a random suffix of
// a fixed number of digits (no leading zero).
type CodeGenerator struct {
	prefix   string
	digits   int
	location *time.Location
	intN     func(n int) int
}

func NewCodeGenerator(prefix string, digits int, location *time.Location) *CodeGenerator {
	if digits < 1 {
		digits = 1
	}
	if location == nil {
		location = time.UTC
	}
	return &CodeGenerator{
		prefix:   prefix,
		digits:   digits,
		location: location,
		intN:     rand.Intn,
	}
}

func (g *CodeGenerator) Generate(now time.Time) string {
	low := 1
	for i := 1; i < g.digits; i++ {
		low *= 10
	}
	suffix := low + g.intN(low*10-low)
	return fmt.Sprintf("%s-%s-%d", g.prefix, now.In(g.location).Format("20060102"), suffix)
}
