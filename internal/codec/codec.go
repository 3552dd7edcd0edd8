// Package codec implements the table-literal serialization format used for
// portable settings snapshots.
//
// A value graph is one of: nil, bool, float64, string, []any, or a mapping
// (map[string]any or map[any]any) whose keys are strings or numbers. The
// textual form is a single expression: a quoted string, a decimal number,
// true/false, nil, or a brace-delimited sequence of [key]=value entries.
// Serialization is deterministic: number keys are emitted first in ascending
// order, then string keys in lexical order, so equal graphs produce equal
// text.
//
// Deserialization is a hand-written scanner and recursive-descent parser
// that only constructs data. Transported text is never evaluated as code.
package codec

// MaxDepth bounds nesting during both serialization and parsing. Graphs or
// literals deeper than this fail with ErrRecursion instead of exhausting the
// stack.
const MaxDepth = 128
