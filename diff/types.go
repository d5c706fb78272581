package diff

// Change records one attribute whose stored values must be rewritten to
// reach the desired state.
type Change struct {
	Attr string
	Want []string
	Got  []string
}
