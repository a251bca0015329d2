// Package uictl defines narrow read-only control interfaces that let UI code
// observe hardware-backed state without being able to mutate it.
package uictl

import "golang.org/x/exp/constraints"

type Number interface {
	constraints.Integer | constraints.Float
}

// Dial is a control that can read some value.
type Dial[N Number] interface {
	Read() N
}
