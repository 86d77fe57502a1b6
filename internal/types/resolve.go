package types

import "molten/internal/ids"

// Prune follows variable bindings at the top of t.
func Prune(env Env, t Type) Type {
	for {
		v, ok := t.(*Variable)
		if !ok || env == nil {
			return t
		}
		bound, ok := env.Binding(v.ID)
		if !ok {
			return t
		}
		t = bound
	}
}

// Resolve replaces every bound variable inside t by its binding.
func Resolve(env Env, t Type) Type {
	return resolve(env, t, 0)
}

const maxResolveDepth = 256

func resolve(env Env, t Type, depth int) Type {
	if t == nil || depth > maxResolveDepth {
		return t
	}
	t = Prune(env, t)
	switch tt := t.(type) {
	case *Object:
		if len(tt.Params) == 0 {
			return tt
		}
		return &Object{Name: tt.Name, ID: tt.ID, Params: resolveAll(env, tt.Params, depth)}
	case *Function:
		return &Function{Args: resolveAll(env, tt.Args, depth), Ret: resolve(env, tt.Ret, depth+1), ABI: tt.ABI}
	case *Tuple:
		return &Tuple{Items: resolveAll(env, tt.Items, depth)}
	case *Record:
		fields := make([]Field, len(tt.Fields))
		for i, f := range tt.Fields {
			fields[i] = Field{Name: f.Name, Type: resolve(env, f.Type, depth+1)}
		}
		return &Record{Fields: fields}
	case *Ref:
		return &Ref{Elem: resolve(env, tt.Elem, depth+1)}
	case *Overload:
		return &Overload{Variants: resolveAll(env, tt.Variants, depth)}
	}
	return t
}

func resolveAll(env Env, ts []Type, depth int) []Type {
	out := make([]Type, len(ts))
	for i, t := range ts {
		out[i] = resolve(env, t, depth+1)
	}
	return out
}

// Occurs reports whether variable id appears inside t.
func Occurs(env Env, id ids.NodeID, t Type) bool {
	found := false
	Walk(Resolve(env, t), func(sub Type) {
		if v, ok := sub.(*Variable); ok && v.ID == id {
			found = true
		}
	})
	return found
}

// Walk calls fn for t and every type nested inside it.
func Walk(t Type, fn func(Type)) {
	if t == nil {
		return
	}
	fn(t)
	switch tt := t.(type) {
	case *Object:
		for _, p := range tt.Params {
			Walk(p, fn)
		}
	case *Function:
		for _, a := range tt.Args {
			Walk(a, fn)
		}
		Walk(tt.Ret, fn)
	case *Tuple:
		for _, it := range tt.Items {
			Walk(it, fn)
		}
	case *Record:
		for _, f := range tt.Fields {
			Walk(f.Type, fn)
		}
	case *Ref:
		Walk(tt.Elem, fn)
	case *Overload:
		for _, v := range tt.Variants {
			Walk(v, fn)
		}
	}
}

// HasGenerics reports whether t mentions a generic variable.
func HasGenerics(t Type) bool {
	found := false
	Walk(t, func(sub Type) {
		if v, ok := sub.(*Variable); ok && v.Generic {
			found = true
		}
	})
	return found
}

// Instantiate replaces each generic variable of t by a fresh variable,
// consistently within t. Non-generic parts are shared.
func Instantiate(t Type, fresh func(name string) *Variable) Type {
	if !HasGenerics(t) {
		return t
	}
	seen := make(map[ids.NodeID]*Variable)
	return Map(t, func(sub Type) Type {
		v, ok := sub.(*Variable)
		if !ok || !v.Generic {
			return nil
		}
		key := v.ID
		if !key.IsValid() {
			// unbound signature variables are keyed by name
			key = ids.NodeID(hashName(v.Name))
		}
		if nv, ok := seen[key]; ok {
			return nv
		}
		nv := fresh(v.Name)
		seen[key] = nv
		return nv
	})
}

// Map rebuilds t bottom-up; fn may return a replacement or nil to keep going.
func Map(t Type, fn func(Type) Type) Type {
	if t == nil {
		return nil
	}
	if r := fn(t); r != nil {
		return r
	}
	switch tt := t.(type) {
	case *Object:
		if len(tt.Params) == 0 {
			return tt
		}
		return &Object{Name: tt.Name, ID: tt.ID, Params: mapAll(tt.Params, fn)}
	case *Function:
		return &Function{Args: mapAll(tt.Args, fn), Ret: Map(tt.Ret, fn), ABI: tt.ABI}
	case *Tuple:
		return &Tuple{Items: mapAll(tt.Items, fn)}
	case *Record:
		fields := make([]Field, len(tt.Fields))
		for i, f := range tt.Fields {
			fields[i] = Field{Name: f.Name, Type: Map(f.Type, fn)}
		}
		return &Record{Fields: fields}
	case *Ref:
		return &Ref{Elem: Map(tt.Elem, fn)}
	case *Overload:
		return &Overload{Variants: mapAll(tt.Variants, fn)}
	}
	return t
}

func mapAll(ts []Type, fn func(Type) Type) []Type {
	out := make([]Type, len(ts))
	for i, t := range ts {
		out[i] = Map(t, fn)
	}
	return out
}

// hashName gives name-keyed variables a key far above minted ids.
func hashName(name string) uint64 {
	h := uint64(1469598103934665603)
	for i := 0; i < len(name); i++ {
		h ^= uint64(name[i])
		h *= 1099511628211
	}
	return h | 1<<63
}
