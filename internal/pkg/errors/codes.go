package errors

// ExitCode maps a CoreError's Kind to the process exit code the
// Pipeline Driver returns from main, so a shell caller can distinguish
// a bad flag from a corrupt input file from a write failure.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	ce, ok := err.(*CoreError)
	if !ok {
		return 1
	}
	switch ce.Kind {
	case Config:
		return 2
	case Setup:
		return 3
	case Parse:
		return 4
	case Referential:
		return 5
	case Persistence:
		return 6
	default:
		return 1
	}
}
