package types

// Mode selects how two types are compared.
type Mode uint8

const (
	// ModeDef compares a binding site (parameter, return, field) with the
	// value flowing into it; subclasses upcast to their ancestors.
	ModeDef Mode = iota
	// ModeList unifies sibling expressions (branches, list items); the
	// result is the nearest common class and numeric widening never applies.
	ModeList
)

func (m Mode) String() string {
	if m == ModeList {
		return "list"
	}
	return "def"
}

// Check unifies expected with actual and returns the unified type. Unbound
// variables on either side become bound in env. A nil side takes the other.
func Check(env Env, expected, actual Type, mode Mode, widen bool) (Type, error) {
	if expected == nil {
		return actual, nil
	}
	if actual == nil {
		return expected, nil
	}
	expected = Prune(env, expected)
	actual = Prune(env, actual)

	if ev, ok := expected.(*Variable); ok {
		if av, ok := actual.(*Variable); ok && av.ID == ev.ID {
			return expected, nil
		}
		if Occurs(env, ev.ID, actual) {
			return nil, mismatch(expected, actual)
		}
		env.Bind(ev.ID, actual)
		return actual, nil
	}
	if av, ok := actual.(*Variable); ok {
		if Occurs(env, av.ID, expected) {
			return nil, mismatch(expected, actual)
		}
		env.Bind(av.ID, expected)
		return expected, nil
	}

	switch et := expected.(type) {
	case *Object:
		at, ok := actual.(*Object)
		if !ok {
			return nil, mismatch(expected, actual)
		}
		return checkObject(env, et, at, mode, widen)

	case *Function:
		if ov, ok := actual.(*Overload); ok {
			return selectVariant(env, et, ov)
		}
		at, ok := actual.(*Function)
		if !ok || len(et.Args) != len(at.Args) || !et.ABI.Compatible(at.ABI) {
			return nil, mismatch(expected, actual)
		}
		args := make([]Type, len(et.Args))
		for i := range et.Args {
			t, err := Check(env, et.Args[i], at.Args[i], mode, false)
			if err != nil {
				return nil, err
			}
			args[i] = t
		}
		ret, err := Check(env, et.Ret, at.Ret, mode, false)
		if err != nil {
			return nil, err
		}
		abi := et.ABI
		if abi == ABIUnknown {
			abi = at.ABI
		}
		return &Function{Args: args, Ret: ret, ABI: abi}, nil

	case *Tuple:
		at, ok := actual.(*Tuple)
		if !ok || len(et.Items) != len(at.Items) {
			return nil, mismatch(expected, actual)
		}
		items, err := checkAll(env, et.Items, at.Items, mode)
		if err != nil {
			return nil, err
		}
		return &Tuple{Items: items}, nil

	case *Record:
		at, ok := actual.(*Record)
		if !ok || len(et.Fields) != len(at.Fields) {
			return nil, mismatch(expected, actual)
		}
		fields := make([]Field, len(et.Fields))
		for i := range et.Fields {
			if et.Fields[i].Name != at.Fields[i].Name {
				return nil, mismatch(expected, actual)
			}
			t, err := Check(env, et.Fields[i].Type, at.Fields[i].Type, mode, false)
			if err != nil {
				return nil, err
			}
			fields[i] = Field{Name: et.Fields[i].Name, Type: t}
		}
		return &Record{Fields: fields}, nil

	case *Ref:
		at, ok := actual.(*Ref)
		if !ok {
			return nil, mismatch(expected, actual)
		}
		elem, err := Check(env, et.Elem, at.Elem, mode, false)
		if err != nil {
			return nil, err
		}
		return &Ref{Elem: elem}, nil

	case *Overload:
		if af, ok := actual.(*Function); ok {
			return selectVariant(env, af, et)
		}
		if ao, ok := actual.(*Overload); ok && Equal(et, ao) {
			return et, nil
		}
	}
	return nil, mismatch(expected, actual)
}

// Expect is Check whose mismatch names the outer types instead of the
// innermost pair that failed.
func Expect(env Env, expected, actual Type, mode Mode) (Type, error) {
	t, err := Check(env, expected, actual, mode, false)
	if err != nil {
		if _, ok := err.(*MismatchError); ok {
			return nil, mismatch(Resolve(env, expected), Resolve(env, actual))
		}
		return nil, err
	}
	return t, nil
}

func checkObject(env Env, et, at *Object, mode Mode, widen bool) (Type, error) {
	if et.Name == at.Name && len(et.Params) == len(at.Params) {
		params, err := checkAll(env, et.Params, at.Params, mode)
		if err != nil {
			return nil, err
		}
		id := et.ID
		if !id.IsValid() {
			id = at.ID
		}
		return &Object{Name: et.Name, ID: id, Params: params}, nil
	}
	if widen && mode == ModeDef && widens(at.Name, et.Name) {
		return et, nil
	}
	if isAncestor(env, at, et) {
		return et, nil
	}
	if mode == ModeList && isAncestor(env, et, at) {
		return at, nil
	}
	return nil, mismatch(et, at)
}

// isAncestor reports whether anc appears in the inheritance chain of o.
func isAncestor(env Env, o, anc *Object) bool {
	if env == nil {
		return false
	}
	for _, p := range env.Ancestors(o) {
		if p.Name == anc.Name && len(anc.Params) == 0 {
			return true
		}
		if p.Name == anc.Name {
			_, err := checkAll(env, anc.Params, p.Params, ModeDef)
			return err == nil
		}
	}
	return false
}

func checkAll(env Env, expected, actual []Type, mode Mode) ([]Type, error) {
	out := make([]Type, len(expected))
	for i := range expected {
		t, err := Check(env, expected[i], actual[i], mode, false)
		if err != nil {
			return nil, err
		}
		out[i] = t
	}
	return out, nil
}

// widens lists the implicit numeric conversions allowed at binding sites.
func widens(from, to string) bool {
	switch from {
	case ByteName:
		return to == IntName || to == RealName
	case IntName:
		return to == RealName
	}
	return false
}

// selectVariant picks the first variant of ov matching want.
func selectVariant(env Env, want *Function, ov *Overload) (Type, error) {
	for _, v := range ov.Variants {
		layer := NewLayer(env)
		t, err := Check(layer, want, v, ModeDef, false)
		if err == nil {
			layer.Commit()
			return t, nil
		}
	}
	return nil, mismatch(want, ov)
}
