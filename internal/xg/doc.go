// Package xg parses the block-structured text export written by the
// late-phase hydrodynamics code (".xg" files).
//
// Each block starts with a header line containing "Time" whose last field is
// the time value, followed by two-column (mass coordinate, value) rows and a
// blank separator line:
//
//	"Time =   1.2500000E-02
//	 2.7841E+33   3.6812E+09
//	 2.7905E+33   3.6790E+09
//
// Parsed blocks are collected into a [Profile] keyed by time.
package xg
