// Package symbols holds the lexical symbol tables of a compilation unit:
// scopes with separate value and type namespaces, the links between them,
// and the Map that owns every scope by the id of the node that opened it.
package symbols
