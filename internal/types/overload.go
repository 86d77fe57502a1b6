package types

// FindVariant selects the first variant of an overload set whose parameter
// types accept args, binding variables only for the winner. Generic
// variants are instantiated with fresh variables before each attempt.
func FindVariant(env Env, name string, variants []Type, args []Type, fresh func(string) *Variable) (int, *Function, error) {
	for i, v := range variants {
		if fresh != nil {
			v = Instantiate(v, fresh)
		}
		f, ok := Prune(env, v).(*Function)
		if !ok || len(f.Args) != len(args) {
			continue
		}
		layer := NewLayer(env)
		matched := true
		for j := range args {
			if _, err := Check(layer, f.Args[j], args[j], ModeDef, false); err != nil {
				matched = false
				break
			}
		}
		if matched {
			layer.Commit()
			return i, f, nil
		}
	}
	resolved := make([]Type, len(args))
	for i, a := range args {
		resolved[i] = Resolve(env, a)
	}
	return -1, nil, &NoMatchingOverloadError{Name: name, Args: resolved}
}
