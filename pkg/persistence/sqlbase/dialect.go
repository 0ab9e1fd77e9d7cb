package sqlbase

import (
	"strconv"
	"strings"
)

// Dialect captures the differences between the supported SQL engines.
type Dialect struct {
	Name string
	// Numbered reports whether bind parameters are written $1, $2 instead of ?.
	Numbered bool
}

var (
	Postgres = Dialect{Name: "postgres", Numbered: true}
	SQLite   = Dialect{Name: "sqlite", Numbered: false}
)

// Rebind rewrites ? placeholders into the dialect's bind parameter syntax.
func (d Dialect) Rebind(query string) string {
	if !d.Numbered {
		return query
	}

	var builder strings.Builder

	builder.Grow(len(query) + 8)

	n := 0

	for _, r := range query {
		if r == '?' {
			n++

			builder.WriteString("$" + strconv.Itoa(n))

			continue
		}

		builder.WriteRune(r)
	}

	return builder.String()
}
