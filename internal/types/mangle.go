package types

import (
	"strconv"
	"strings"
)

// Mangle encodes a function name with its ordered parameter types. The
// name is length-prefixed and the argument encoding is prefix-free, so
// distinct (name, args) pairs never collide whatever characters the name
// holds. Callers pass resolved types.
func Mangle(name string, args []Type) string {
	var sb strings.Builder
	encodeName(&sb, name)
	sb.WriteByte('$')
	sb.WriteString(strconv.Itoa(len(args)))
	sb.WriteByte('_')
	for _, a := range args {
		encode(&sb, a)
	}
	return sb.String()
}

func encode(sb *strings.Builder, t Type) {
	switch tt := t.(type) {
	case *Object:
		sb.WriteByte('O')
		encodeName(sb, tt.Name)
		encodeList(sb, tt.Params)
	case *Function:
		sb.WriteByte('F')
		sb.WriteByte("umfc"[tt.ABI])
		encodeList(sb, tt.Args)
		encode(sb, tt.Ret)
	case *Tuple:
		sb.WriteByte('T')
		encodeList(sb, tt.Items)
	case *Record:
		sb.WriteByte('R')
		sb.WriteString(strconv.Itoa(len(tt.Fields)))
		sb.WriteByte('_')
		for _, f := range tt.Fields {
			encodeName(sb, f.Name)
			encode(sb, f.Type)
		}
	case *Variable:
		sb.WriteByte('V')
		encodeName(sb, tt.Name)
	case *Ref:
		sb.WriteByte('P')
		encode(sb, tt.Elem)
	case *Overload:
		sb.WriteByte('X')
		encodeList(sb, tt.Variants)
	default:
		sb.WriteByte('Z')
	}
}

func encodeName(sb *strings.Builder, name string) {
	sb.WriteString(strconv.Itoa(len(name)))
	sb.WriteByte('_')
	sb.WriteString(name)
}

func encodeList(sb *strings.Builder, ts []Type) {
	sb.WriteString(strconv.Itoa(len(ts)))
	sb.WriteByte('_')
	for _, t := range ts {
		encode(sb, t)
	}
}
