package builtins

import "molten/internal/types"

// Op names the code a backend supplies for a builtin function.
type Op string

const (
	// OpExternal marks a C function linked from outside the module.
	OpExternal Op = ""

	OpInit     Op = "init"
	OpMalloc   Op = "malloc"
	OpRealloc  Op = "realloc"
	OpFree     Op = "free"
	OpPrint    Op = "print"
	OpPrintln  Op = "println"
	OpReadline Op = "readline"
	OpSizeof   Op = "sizeof"
	OpStrGet   Op = "string_get"

	OpBufAlloc  Op = "buffer_alloc"
	OpBufResize Op = "buffer_resize"
	OpBufGet    Op = "buffer_get"
	OpBufSet    Op = "buffer_set"
	OpBufLen    Op = "buffer_len"

	OpTrue  Op = "always_true"
	OpFalse Op = "always_false"

	OpEqBool  Op = "eq_bool"
	OpNeBool  Op = "ne_bool"
	OpNotBool Op = "not_bool"

	OpAddInt Op = "add_int"
	OpSubInt Op = "sub_int"
	OpMulInt Op = "mul_int"
	OpDivInt Op = "div_int"
	OpModInt Op = "mod_int"
	OpAndInt Op = "and_int"
	OpOrInt  Op = "or_int"
	OpLtInt  Op = "lt_int"
	OpGtInt  Op = "gt_int"
	OpLeInt  Op = "lte_int"
	OpGeInt  Op = "gte_int"
	OpEqInt  Op = "eq_int"
	OpNeInt  Op = "ne_int"
	OpComInt Op = "com_int"
	OpNotInt Op = "not_int"

	OpLtChar Op = "lt_char"
	OpGtChar Op = "gt_char"
	OpLeChar Op = "lte_char"
	OpGeChar Op = "gte_char"
	OpEqChar Op = "eq_char"
	OpNeChar Op = "ne_char"

	OpAddReal Op = "add_real"
	OpSubReal Op = "sub_real"
	OpMulReal Op = "mul_real"
	OpDivReal Op = "div_real"
	OpModReal Op = "mod_real"
	OpPowReal Op = "pow_real"
	OpLtReal  Op = "lt_real"
	OpGtReal  Op = "gt_real"
	OpLeReal  Op = "lte_real"
	OpGeReal  Op = "gte_real"
	OpEqReal  Op = "eq_real"
	OpNeReal  Op = "ne_real"

	OpCharOfInt Op = "char_int"
	OpIntOfChar Op = "int_char"
	OpIntOfReal Op = "int_real"
	OpRealOfInt Op = "real_int"
	OpStrOfInt  Op = "str_int"
	OpStrOfReal Op = "str_real"
)

// Class is a primitive class.
type Class struct {
	Name   string
	Params []string
}

// Entry is one builtin function as written in the table.
type Entry struct {
	Name string
	Sig  string
	Op   Op
}

var classes = []Class{
	{Name: types.UnitName},
	{Name: types.NilName},
	{Name: types.BoolName},
	{Name: types.ByteName},
	{Name: types.CharName},
	{Name: types.IntName},
	{Name: types.RealName},
	{Name: types.StringName},
	{Name: types.BufferName, Params: []string{"item"}},
}

// Member is a builtin function defined in the member scope of a
// primitive class. Methods take the instance as their first argument;
// the others are reached through Class::name.
type Member struct {
	Class string
	Entry
}

// Buffers carry their length, so list literals refine to buffers that
// for-loops and indexing can walk.
var members = []Member{
	{types.BufferName, Entry{"new", "(Int) -> Buffer<'item> / C", OpBufAlloc}},
	{types.BufferName, Entry{"resize", "(Buffer<'item>, Int) -> Buffer<'item> / C", OpBufResize}},
	{types.BufferName, Entry{"len", "(Buffer<'item>) -> Int / C", OpBufLen}},
	{types.BufferName, Entry{"get", "(Buffer<'item>, Int) -> 'item / C", OpBufGet}},
	{types.BufferName, Entry{"[]", "(Buffer<'item>, Int) -> 'item / C", OpBufGet}},
	{types.BufferName, Entry{"[]", "(Buffer<'item>, Int, 'item) -> () / C", OpBufSet}},
}

var entries = []Entry{
	{"molten_init", "() -> () / C", OpInit},
	{"molten_malloc", "(Int) -> 'ptr / C", OpMalloc},
	{"molten_realloc", "('ptr, Int) -> 'ptr / C", OpRealloc},
	{"molten_free", "('ptr) -> () / C", OpFree},

	{"memcpy", "('ptr, 'ptr, Int) -> 'ptr / C", OpExternal},
	{"strcmp", "(String, String) -> Int / C", OpExternal},
	{"puts", "(String) -> () / C", OpExternal},
	{"gets", "(String) -> String / C", OpExternal},
	{"strlen", "(String) -> Int / C", OpExternal},
	{"sprintf", "(String, String, 'a1, 'a2) -> () / C", OpExternal},

	{"print", "(String) -> () / C", OpPrint},
	{"println", "(String) -> () / C", OpPrintln},
	{"readline", "() -> String / C", OpReadline},
	{"sizeof", "('ptr) -> Int / C", OpSizeof},

	{"getindex", "(String, Int) -> Char / C", OpStrGet},
	{"bufalloc", "(Int) -> Buffer<'item> / C", OpBufAlloc},
	{"bufresize", "(Buffer<'item>, Int) -> Buffer<'item> / C", OpBufResize},
	{"bufget", "(Buffer<'item>, Int) -> 'item / C", OpBufGet},
	{"bufset", "(Buffer<'item>, Int, 'item) -> () / C", OpBufSet},
	{"buflen", "(Buffer<'item>) -> Int / C", OpBufLen},

	{"==", "((), ()) -> Bool / MF", OpTrue},
	{"!=", "((), ()) -> Bool / MF", OpFalse},

	{"==", "(Bool, Bool) -> Bool / MF", OpEqBool},
	{"!=", "(Bool, Bool) -> Bool / MF", OpNeBool},
	{"not", "(Bool) -> Bool / MF", OpNotBool},

	{"+", "(Int, Int) -> Int / MF", OpAddInt},
	{"-", "(Int, Int) -> Int / MF", OpSubInt},
	{"*", "(Int, Int) -> Int / MF", OpMulInt},
	{"/", "(Int, Int) -> Int / MF", OpDivInt},
	{"%", "(Int, Int) -> Int / MF", OpModInt},
	{"&", "(Int, Int) -> Int / MF", OpAndInt},
	{"|", "(Int, Int) -> Int / MF", OpOrInt},
	{"<", "(Int, Int) -> Bool / MF", OpLtInt},
	{">", "(Int, Int) -> Bool / MF", OpGtInt},
	{"<=", "(Int, Int) -> Bool / MF", OpLeInt},
	{">=", "(Int, Int) -> Bool / MF", OpGeInt},
	{"==", "(Int, Int) -> Bool / MF", OpEqInt},
	{"!=", "(Int, Int) -> Bool / MF", OpNeInt},
	{"~", "(Int) -> Int / MF", OpComInt},
	{"not", "(Int) -> Bool / MF", OpNotInt},

	{"<", "(Char, Char) -> Bool / MF", OpLtChar},
	{">", "(Char, Char) -> Bool / MF", OpGtChar},
	{"<=", "(Char, Char) -> Bool / MF", OpLeChar},
	{">=", "(Char, Char) -> Bool / MF", OpGeChar},
	{"==", "(Char, Char) -> Bool / MF", OpEqChar},
	{"!=", "(Char, Char) -> Bool / MF", OpNeChar},

	{"+", "(Real, Real) -> Real / MF", OpAddReal},
	{"-", "(Real, Real) -> Real / MF", OpSubReal},
	{"*", "(Real, Real) -> Real / MF", OpMulReal},
	{"/", "(Real, Real) -> Real / MF", OpDivReal},
	{"%", "(Real, Real) -> Real / MF", OpModReal},
	{"^", "(Real, Real) -> Real / MF", OpPowReal},
	{"<", "(Real, Real) -> Bool / MF", OpLtReal},
	{">", "(Real, Real) -> Bool / MF", OpGtReal},
	{"<=", "(Real, Real) -> Bool / MF", OpLeReal},
	{">=", "(Real, Real) -> Bool / MF", OpGeReal},
	{"==", "(Real, Real) -> Bool / MF", OpEqReal},
	{"!=", "(Real, Real) -> Bool / MF", OpNeReal},

	{"char", "(Int) -> Char / MF", OpCharOfInt},
	{"int", "(Char) -> Int / MF", OpIntOfChar},
	{"int", "(Real) -> Int / MF", OpIntOfReal},
	{"real", "(Int) -> Real / MF", OpRealOfInt},
	{"str", "(Int) -> String / MF", OpStrOfInt},
	{"str", "(Real) -> String / MF", OpStrOfReal},
}
