/*
Package compiler turns a syntax tree into x86-64 assembly.

Process of compilation

	Syntax Tree (ast, decoded from yaml) ->
		lower (front): constant folding, implicit casts, checks ->
	Intermediate Representation (ir) ->
		generate (back): storage allocation, instruction selection ->
	Assembly Text (GNU as, AT&T syntax) ->
		assemble, link ->
	Binary Executable
*/
package compiler
