// Package term provides ground terms and the s-expression reader shared by
// terms and patterns.
//
// A term is an operator symbol applied to zero or more child terms:
//
//	x            leaf with operator "x"
//	(+ x y)      operator "+" with two leaf children
//	(* (+ a b) 2)
//
// Symbols are any run of characters other than whitespace and parentheses.
// They are NFC normalized when read, so two spellings of the same text always
// produce the same operator.
package term
