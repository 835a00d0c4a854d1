package mlt

import (
	"github.com/df07/go-metropolis-raytracer/pkg/path"
)

// Mutation proposes a new path Y from the current state X together with the
// Metropolis-Hastings acceptance probability for the proposal. A nil path or
// zero acceptance signals a failed/invalid mutation.
type Mutation interface {
	Mutate(x *path.Path) (*path.Path, float64)
}
