package types

import "strings"

// Parse reads a type written in signature syntax:
//
//	Int  Buffer<'item>  ()  (Int, Real)  {a: Int, b: Real}  ref Int
//	(Int, Int) -> Int / MF
//
// Type variables are generic and carry no id.
func Parse(src string) (Type, error) { return ParseWith(src, nil) }

// ParseWith is Parse with fresh supplying the variable for each distinct
// type-variable name.
func ParseWith(src string, fresh func(name string) *Variable) (Type, error) {
	p := &sigParser{src: src, vars: make(map[string]*Variable), fresh: fresh}
	t, err := p.parseType()
	if err != nil {
		return nil, err
	}
	p.skip()
	if p.pos != len(p.src) {
		return nil, p.errorf("unexpected trailing input")
	}
	return t, nil
}

// MustParse panics on malformed input; for static tables and tests.
func MustParse(src string) Type {
	t, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return t
}

type sigParser struct {
	src   string
	pos   int
	vars  map[string]*Variable
	fresh func(string) *Variable
}

func (p *sigParser) errorf(msg string) error {
	return &ParseError{Src: p.src, Pos: p.pos, Msg: msg}
}

func (p *sigParser) skip() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t' || p.src[p.pos] == '\n') {
		p.pos++
	}
}

func (p *sigParser) peek(s string) bool {
	p.skip()
	return strings.HasPrefix(p.src[p.pos:], s)
}

func (p *sigParser) expect(s string) error {
	if !p.peek(s) {
		return p.errorf("expected " + s)
	}
	p.pos += len(s)
	return nil
}

func (p *sigParser) ident() string {
	p.skip()
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == '_' || c == '.' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' {
			p.pos++
			continue
		}
		break
	}
	return p.src[start:p.pos]
}

func (p *sigParser) parseType() (Type, error) {
	switch {
	case p.peek("("):
		return p.parseParen()
	case p.peek("{"):
		return p.parseRecord()
	case p.peek("'"):
		p.pos++
		name := p.ident()
		if name == "" {
			return nil, p.errorf("expected type variable name")
		}
		return p.variable(name), nil
	}
	name := p.ident()
	if name == "" {
		return nil, p.errorf("expected type")
	}
	if name == "ref" {
		elem, err := p.parseType()
		if err != nil {
			return nil, err
		}
		return &Ref{Elem: elem}, nil
	}
	obj := &Object{Name: name}
	if p.peek("<") {
		p.pos++
		params, _, err := p.parseList(">")
		if err != nil {
			return nil, err
		}
		obj.Params = params
	}
	return obj, nil
}

func (p *sigParser) variable(name string) *Variable {
	if v, ok := p.vars[name]; ok {
		return v
	}
	var v *Variable
	if p.fresh != nil {
		v = p.fresh(name)
		v.Generic = true
	} else {
		v = &Variable{Name: name, Generic: true}
	}
	p.vars[name] = v
	return v
}

// parseList reads comma-separated types up to and including closer.
func (p *sigParser) parseList(closer string) ([]Type, bool, error) {
	var items []Type
	trailing := false
	if p.peek(closer) {
		p.pos += len(closer)
		return items, false, nil
	}
	for {
		t, err := p.parseType()
		if err != nil {
			return nil, false, err
		}
		items = append(items, t)
		trailing = false
		if p.peek(",") {
			p.pos++
			trailing = true
			if p.peek(closer) {
				break
			}
			continue
		}
		break
	}
	if err := p.expect(closer); err != nil {
		return nil, false, err
	}
	return items, trailing, nil
}

func (p *sigParser) parseParen() (Type, error) {
	p.pos++ // (
	items, trailing, err := p.parseList(")")
	if err != nil {
		return nil, err
	}
	if p.peek("->") {
		p.pos += 2
		ret, err := p.parseType()
		if err != nil {
			return nil, err
		}
		abi := ABIUnknown
		if p.peek("/") {
			p.pos++
			abi, err = ParseABI(p.ident())
			if err != nil {
				return nil, p.errorf(err.Error())
			}
		}
		return &Function{Args: items, Ret: ret, ABI: abi}, nil
	}
	switch {
	case len(items) == 0:
		return Unit(), nil
	case len(items) == 1 && !trailing:
		return items[0], nil
	}
	return &Tuple{Items: items}, nil
}

func (p *sigParser) parseRecord() (Type, error) {
	p.pos++ // {
	rec := &Record{}
	if p.peek("}") {
		p.pos++
		return rec, nil
	}
	for {
		name := p.ident()
		if name == "" {
			return nil, p.errorf("expected field name")
		}
		if err := p.expect(":"); err != nil {
			return nil, err
		}
		t, err := p.parseType()
		if err != nil {
			return nil, err
		}
		rec.Fields = append(rec.Fields, Field{Name: name, Type: t})
		if p.peek(",") {
			p.pos++
			continue
		}
		break
	}
	if err := p.expect("}"); err != nil {
		return nil, err
	}
	return rec, nil
}
