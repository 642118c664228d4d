package kernel

import (
	"fmt"
	"strings"
)

// ID identifies an entity or a relation. IDs are never reused within a
// model.
type ID string

// EntityType is the type tag of an entity, checked against relationship
// definitions.
type EntityType string

// Cardinality constrains how many same-named relations an endpoint may have.
type Cardinality int

const (
	OneToOne Cardinality = iota + 1
	OneToMany
	ManyToOne
	ManyToMany
)

// String returns the snake_case name of the cardinality.
func (c Cardinality) String() string {
	switch c {
	case OneToOne:
		return "one_to_one"
	case OneToMany:
		return "one_to_many"
	case ManyToOne:
		return "many_to_one"
	case ManyToMany:
		return "many_to_many"
	default:
		return fmt.Sprintf("cardinality(%d)", int(c))
	}
}

// Valid reports whether c is one of the four cardinality classes.
func (c Cardinality) Valid() bool {
	return c >= OneToOne && c <= ManyToMany
}

// ParseCardinality parses "one_to_one", "one-to-many", "1:1", "1:N", "N:1",
// "N:M" and similar spellings, case-insensitively.
func ParseCardinality(s string) (Cardinality, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", "_", " ", "_").Replace(norm)
	switch norm {
	case "one_to_one", "onetoone", "1:1":
		return OneToOne, nil
	case "one_to_many", "onetomany", "1:n", "1:m", "1:*":
		return OneToMany, nil
	case "many_to_one", "manytoone", "n:1", "m:1", "*:1":
		return ManyToOne, nil
	case "many_to_many", "manytomany", "n:m", "m:n", "n:n", "*:*":
		return ManyToMany, nil
	default:
		return 0, fmt.Errorf("unknown cardinality %q", s)
	}
}
