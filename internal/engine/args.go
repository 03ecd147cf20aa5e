package engine

// Args is a resolved argument list, ordered as the unit's parameters.
// Each value has already been converted to its parameter's declared type.
type Args []any

// Arg returns argument i as T. It returns the zero value when i is out of
// range or the argument is nil.
//
// Example:
//
//	cond := engine.NewCondition("adult", func(a engine.Args) (bool, error) {
//		return engine.Arg[int](a, 0) >= 18, nil
//	}, match.Param[int]("age"))
func Arg[T any](args Args, i int) T {
	var zero T
	if i < 0 || i >= len(args) || args[i] == nil {
		return zero
	}
	return args[i].(T)
}
