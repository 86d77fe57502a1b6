package vm

import (
	"fmt"

	"fortio.org/safecast"

	"molten/internal/mir"
)

// Object is one heap allocation: a struct, a reference cell or a buffer.
// Every field occupies one cell; structs are never stored inline.
type Object struct {
	AllocID uint64
	Cells   []Value
	Freed   bool
}

// Pointer addresses cell Index of an object.
type Pointer struct {
	Obj   *Object
	Index int
}

func (p Pointer) String() string {
	if p.Obj == nil {
		return "null"
	}
	return fmt.Sprintf("#%d+%d", p.Obj.AllocID, p.Index)
}

// Heap allocates runtime objects for the VM. Objects are reclaimed by the
// Go collector; Free only marks them so later accesses fail.
type Heap struct {
	nextAllocID uint64
	live        int
	total       int
}

func (h *Heap) alloc(cells []Value) *Object {
	h.nextAllocID++
	h.live++
	h.total++
	return &Object{AllocID: h.nextAllocID, Cells: cells}
}

func (h *Heap) free(obj *Object) {
	if obj != nil && !obj.Freed {
		obj.Freed = true
		h.live--
	}
}

// Stats reports the number of live objects and of all allocations.
func (h *Heap) Stats() (live, total int) {
	return h.live, h.total
}

// allocType allocates zeroed storage for one value of t. Struct types get
// one cell per field.
func (vm *VM) allocType(mod *module, t *mir.Type) (Pointer, *VMError) {
	fields, vmErr := vm.structFields(mod, t)
	if vmErr != nil {
		return Pointer{}, vmErr
	}
	if fields == nil {
		return Pointer{Obj: vm.Heap.alloc([]Value{zeroOf(t)})}, nil
	}
	cells := make([]Value, len(fields))
	for i, f := range fields {
		cells[i] = zeroOf(f)
	}
	return Pointer{Obj: vm.Heap.alloc(cells)}, nil
}

// allocCells allocates n null cells for malloc and buffers.
func (vm *VM) allocCells(n int64) (Pointer, *VMError) {
	size, err := safecast.Conv[int](n)
	if err != nil || size < 0 {
		return Pointer{}, vm.eb.badSize(n)
	}
	cells := make([]Value, size)
	for i := range cells {
		cells[i] = MakeNull()
	}
	return Pointer{Obj: vm.Heap.alloc(cells)}, nil
}

// structFields returns the field types of a struct type, or nil when t is
// not a struct.
func (vm *VM) structFields(mod *module, t *mir.Type) ([]*mir.Type, *VMError) {
	switch t.Kind {
	case mir.TypeStruct:
		return t.Items, nil
	case mir.TypeNamed:
		s, ok := mod.structs[t.ID]
		if !ok {
			return nil, vm.eb.unknownStruct(t.Name)
		}
		return s.Fields, nil
	}
	return nil, nil
}

// cell returns the cell p addresses.
func (vm *VM) cell(p Value) (*Value, *VMError) {
	switch p.Kind {
	case VKNull:
		return nil, vm.eb.nullDeref()
	case VKPtr:
	default:
		return nil, vm.eb.typeMismatch("ptr", p.Kind.String())
	}
	obj := p.Ptr.Obj
	if obj.Freed {
		return nil, vm.eb.useAfterFree(p.Ptr)
	}
	if p.Ptr.Index < 0 || p.Ptr.Index >= len(obj.Cells) {
		return nil, vm.eb.outOfBounds(p.Ptr.Index, len(obj.Cells))
	}
	return &obj.Cells[p.Ptr.Index], nil
}

// offset moves p by n cells.
func (vm *VM) offset(p Value, n int64) (Value, *VMError) {
	if p.Kind == VKNull {
		return Value{}, vm.eb.nullDeref()
	}
	if p.Kind != VKPtr {
		return Value{}, vm.eb.typeMismatch("ptr", p.Kind.String())
	}
	k, err := safecast.Conv[int](n)
	if err != nil {
		return Value{}, vm.eb.badSize(n)
	}
	return MakePtr(Pointer{Obj: p.Ptr.Obj, Index: p.Ptr.Index + k}), nil
}

// resize copies the cells of p into a new object of n cells.
func (vm *VM) resize(p Value, n int64) (Value, *VMError) {
	if p.Kind == VKNull {
		np, vmErr := vm.allocCells(n)
		if vmErr != nil {
			return Value{}, vmErr
		}
		return MakePtr(np), nil
	}
	if p.Kind != VKPtr {
		return Value{}, vm.eb.typeMismatch("ptr", p.Kind.String())
	}
	old := p.Ptr.Obj
	if old.Freed {
		return Value{}, vm.eb.useAfterFree(p.Ptr)
	}
	if p.Ptr.Index < 0 || p.Ptr.Index > len(old.Cells) {
		return Value{}, vm.eb.outOfBounds(p.Ptr.Index, len(old.Cells))
	}
	np, vmErr := vm.allocCells(n)
	if vmErr != nil {
		return Value{}, vmErr
	}
	copy(np.Obj.Cells, old.Cells[p.Ptr.Index:])
	vm.Heap.free(old)
	return MakePtr(np), nil
}
