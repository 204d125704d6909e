package atm

// Node is a plain, acyclic view of a type graph for debugging output and
// test diffs. Type-variable bounds are rendered as strings so that cyclic
// bounds terminate.
type Node struct {
	Variant    string
	Qualifiers []string `json:",omitempty"`
	Name       string   `json:",omitempty"`
	Raw        bool     `json:",omitempty"`
	Args       []Node   `json:",omitempty"`
	Component  *Node    `json:",omitempty"`
	Bound      string   `json:",omitempty"`
}

// Dump converts t into a Node tree.
func Dump(t Type) Node {
	if t == nil {
		return Node{Variant: "nil"}
	}
	n := Node{Qualifiers: t.annotated().quals.Names()}
	switch typ := t.(type) {
	case *Primitive:
		n.Variant = "primitive"
		n.Name = typ.Kind.String()
	case *Declared:
		n.Variant = "declared"
		n.Name = string(typ.Name)
		n.Raw = typ.Raw
		for _, arg := range typ.Args {
			n.Args = append(n.Args, Dump(arg))
		}
	case *Array:
		n.Variant = "array"
		comp := Dump(typ.Component)
		n.Component = &comp
	case *TypeVar:
		n.Variant = "typevar"
		if typ.Param != nil {
			n.Name = typ.Param.Name
		}
		if typ.Upper != nil {
			n.Bound = typ.Upper.String()
		}
	case *Wildcard:
		n.Variant = "wildcard"
		if typ.Super != nil {
			n.Bound = "super " + typ.Super.String()
		} else if typ.Extends != nil {
			n.Bound = "extends " + typ.Extends.String()
		}
	case *Null:
		n.Variant = "null"
	case *NoType:
		n.Variant = "none"
	}
	return n
}

// DumpAll converts every type in ts.
func DumpAll(ts []Type) []Node {
	nodes := make([]Node, len(ts))
	for i, t := range ts {
		nodes[i] = Dump(t)
	}
	return nodes
}
