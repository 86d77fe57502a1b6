// Package diag defines the diagnostics produced by the molten middle-end:
// stable codes grouped by phase, a bounded Bag, the Reporter contract used
// by the driver, and Error, the position-carrying wrapper every phase
// returns for the first failure of a unit.
//
// Code ranges:
//
//	3000-3999  SEM  binding and type checking
//	4000-4999  LOW  lowering
//	5000-5999  IO   loading inputs and declaration files
//	6000-6999  PRJ  project manifest
//	9000-9999  INT  internal invariant violations
package diag
