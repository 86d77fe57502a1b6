package vm

import (
	"io"
	"strings"

	"fortio.org/safecast"
)

// externFunc implements a C function the generated code links against.
type externFunc func(vm *VM, args []Value) (Value, *VMError)

// externs are the C functions the VM provides by name.
var externs = map[string]externFunc{
	"puts":    externPuts,
	"gets":    externGets,
	"strlen":  externStrlen,
	"strcmp":  externStrcmp,
	"memcpy":  externMemcpy,
	"sprintf": unsupported("sprintf"),
}

func unsupported(name string) externFunc {
	return func(vm *VM, _ []Value) (Value, *VMError) {
		return Value{}, vm.eb.unsupportedExtern(name)
	}
}

func externPuts(vm *VM, args []Value) (Value, *VMError) {
	if len(args) != 1 {
		return Value{}, vm.eb.arity("puts", 1, len(args))
	}
	s, vmErr := vm.str(args[0])
	if vmErr != nil {
		return Value{}, vmErr
	}
	_, _ = io.WriteString(vm.RT.Stdout(), s+"\n")
	return MakeUnit(), nil
}

// externGets ignores its buffer argument and returns the next input line.
func externGets(vm *VM, args []Value) (Value, *VMError) {
	if len(args) != 1 {
		return Value{}, vm.eb.arity("gets", 1, len(args))
	}
	line, err := vm.stdin.ReadString('\n')
	if err != nil && line == "" {
		return MakeNull(), nil
	}
	return MakeStr(strings.TrimRight(line, "\r\n")), nil
}

func externStrlen(vm *VM, args []Value) (Value, *VMError) {
	if len(args) != 1 {
		return Value{}, vm.eb.arity("strlen", 1, len(args))
	}
	s, vmErr := vm.str(args[0])
	if vmErr != nil {
		return Value{}, vmErr
	}
	return MakeInt(int64(len(s))), nil
}

func externStrcmp(vm *VM, args []Value) (Value, *VMError) {
	if len(args) != 2 {
		return Value{}, vm.eb.arity("strcmp", 2, len(args))
	}
	a, vmErr := vm.str(args[0])
	if vmErr != nil {
		return Value{}, vmErr
	}
	b, vmErr := vm.str(args[1])
	if vmErr != nil {
		return Value{}, vmErr
	}
	return MakeInt(int64(strings.Compare(a, b))), nil
}

// externMemcpy copies n cells; sizes are counted in cells, not bytes.
func externMemcpy(vm *VM, args []Value) (Value, *VMError) {
	if len(args) != 3 {
		return Value{}, vm.eb.arity("memcpy", 3, len(args))
	}
	n, err := safecast.Conv[int](args[2].Int)
	if err != nil || n < 0 {
		return Value{}, vm.eb.badSize(args[2].Int)
	}
	for i := range n {
		src, vmErr := vm.offset(args[1], int64(i))
		if vmErr != nil {
			return Value{}, vmErr
		}
		dst, vmErr := vm.offset(args[0], int64(i))
		if vmErr != nil {
			return Value{}, vmErr
		}
		from, vmErr := vm.cell(src)
		if vmErr != nil {
			return Value{}, vmErr
		}
		to, vmErr := vm.cell(dst)
		if vmErr != nil {
			return Value{}, vmErr
		}
		*to = *from
	}
	return args[0], nil
}
