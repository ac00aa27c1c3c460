// Package port declares the typed input and output ports of each
// node kind, and which port types may be connected.
package port

// Type is the type of value a port produces or accepts.
type Type string

const (
	Any     Type = "any"
	String  Type = "string"
	Number  Type = "number"
	Boolean Type = "boolean"
	Object  Type = "object"
	Array   Type = "array"
)

// flowsInto lists, for each produced type, the accepted types
// it may be connected to. An 'any' producer is a pass-through of
// upstream data, so it can't be ruled out statically.
var flowsInto = map[Type][]Type{
	String:  {String},
	Number:  {Number, String},
	Boolean: {Boolean, String},
	Object:  {Object},
	Array:   {Array},
	Any:     {Any, String, Number, Boolean, Object, Array},
}

// Compatible returns true if a value of the produced type can flow
// into a port accepting the accepted type. An 'any' port accepts everything;
// unknown pairs are incompatible.
func Compatible(produced, accepted Type) bool {
	if accepted == Any {
		return true
	}
	for _, t := range flowsInto[produced] {
		if t == accepted {
			return true
		}
	}
	return false
}

// CompatibleWithAny returns true if the produced type is compatible
// with at least one of the accepted types.
func CompatibleWithAny(produced Type, accepted []Type) bool {
	for _, a := range accepted {
		if Compatible(produced, a) {
			return true
		}
	}
	return false
}
