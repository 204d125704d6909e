package atm

import "fmt"

// Kind identifies a primitive type.
type Kind int

const (
	Boolean Kind = iota + 1
	Byte
	Short
	Char
	Int
	Long
	Float
	Double
)

var kindNames = map[Kind]string{
	Boolean: "boolean",
	Byte:    "byte",
	Short:   "short",
	Char:    "char",
	Int:     "int",
	Long:    "long",
	Float:   "float",
	Double:  "double",
}

// Kinds lists every primitive kind in declaration order.
var Kinds = []Kind{Boolean, Byte, Short, Char, Int, Long, Float, Double}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Valid reports whether k is one of the eight primitive kinds.
func (k Kind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

// ParseKind returns the primitive kind spelled by name.
func ParseKind(name string) (Kind, bool) {
	for k, n := range kindNames {
		if n == name {
			return k, true
		}
	}
	return 0, false
}

// DeclKind is the element kind of a declaration.
type DeclKind int

const (
	ClassKind DeclKind = iota
	InterfaceKind
	EnumKind
	AnnotationKind
)

var declKindNames = map[DeclKind]string{
	ClassKind:      "class",
	InterfaceKind:  "interface",
	EnumKind:       "enum",
	AnnotationKind: "annotation",
}

func (k DeclKind) String() string {
	if name, ok := declKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("DeclKind(%d)", int(k))
}

// ParseDeclKind accepts "class", "interface", "enum" or "annotation". An
// empty string means class.
func ParseDeclKind(name string) (DeclKind, error) {
	if name == "" {
		return ClassKind, nil
	}
	for k, n := range declKindNames {
		if n == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown declaration kind %q", name)
}
