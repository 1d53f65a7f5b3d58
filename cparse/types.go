package cparse

import (
	"github.com/benbjohnson/smg/c"
	"github.com/pkg/errors"
	"rsc.io/c2go/cc"
)

// specType returns the type named by a declaration specifier. Struct, union
// and enum bodies are declared in the parser's scope as a side effect.
func (p *Parser) specType(spec *typeSpec) (*c.Type, error) {
	switch {
	case spec.Aggregate != nil:
		return p.aggregateType(spec.Aggregate)
	case spec.Enum != nil:
		return p.enumType(spec.Enum)
	default:
		return basicType(spec.Basic)
	}
}

// basicType returns the type named by a list of basic type keywords.
func basicType(keywords []string) (*c.Type, error) {
	var signed, unsigned, char, short, integer, void, boolean, float, double bool
	var long int
	for _, kw := range keywords {
		switch kw {
		case "signed":
			signed = true
		case "unsigned":
			unsigned = true
		case "char":
			char = true
		case "short":
			short = true
		case "int":
			integer = true
		case "long":
			long++
		case "void":
			void = true
		case "_Bool":
			boolean = true
		case "float":
			float = true
		case "double":
			double = true
		}
	}
	if signed && unsigned {
		return nil, errors.New("both signed and unsigned in declaration specifiers")
	}

	switch {
	case void:
		return c.VoidType, nil
	case boolean:
		return c.BoolType, nil
	case float:
		return c.FloatType, nil
	case double && long > 0:
		return c.LongDoubleType, nil
	case double:
		return c.DoubleType, nil
	case char && unsigned:
		return c.UCharType, nil
	case char && signed:
		return c.SCharType, nil
	case char:
		return c.CharType, nil
	case short && unsigned:
		return c.UShortType, nil
	case short:
		return c.ShortType, nil
	case long >= 2 && unsigned:
		return c.ULongLongType, nil
	case long >= 2:
		return c.LongLongType, nil
	case long == 1 && unsigned:
		return c.ULongType, nil
	case long == 1:
		return c.LongType, nil
	case unsigned:
		return c.UIntType, nil
	case integer || signed:
		return c.IntType, nil
	default:
		return nil, errors.New("missing type specifier")
	}
}

func (p *Parser) aggregateType(spec *aggregateSpec) (*c.Type, error) {
	kind := c.Struct
	if spec.Kind == "union" {
		kind = c.Union
	}

	t, err := p.scope.tagType(kind, spec.Tag)
	if err != nil {
		return nil, err
	} else if spec.Body == "" {
		return t, nil
	} else if t.Fields != nil {
		return nil, errors.Errorf("redefinition of %s %s", kind, spec.Tag)
	}

	fields := make([]*c.Field, 0, len(spec.Fields))
	for _, fd := range spec.Fields {
		base, err := p.specType(fd.Spec)
		if err != nil {
			return nil, err
		}
		for _, d := range fd.Declarators {
			typ, err := p.declaratorType(base, d.Declarator)
			if err != nil {
				return nil, err
			}

			if d.Width != nil {
				width, err := p.constExpr(d.Width)
				if err != nil {
					return nil, err
				} else if !typ.IsInteger() || width <= 0 {
					return nil, errors.Errorf("invalid bit-field %q", d.Declarator.Name)
				}
				typ = c.NewBitField(typ, int(width))
			}
			fields = append(fields, &c.Field{Name: d.Declarator.Name, Type: typ})
		}
	}
	t.Fields = fields
	return t, nil
}

func (p *Parser) enumType(spec *enumSpec) (*c.Type, error) {
	t, err := p.scope.tagType(c.Enum, spec.Tag)
	if err != nil || spec.Body == "" {
		return t, err
	}

	var next int64
	for _, m := range spec.Members {
		if m.Value != nil {
			if next, err = p.constExpr(m.Value); err != nil {
				return nil, err
			}
		}
		if err := p.scope.Declare(c.NewEnumerator(m.Name, next)); err != nil {
			return nil, err
		}
		next++
	}
	return t, nil
}

// declaratorType applies the pointer, function and array parts of a
// declarator to base.
func (p *Parser) declaratorType(base *c.Type, d *declarator) (*c.Type, error) {
	typ := base
	for range d.Pointers {
		typ = c.NewPointer(typ)
	}

	if d.Params != nil {
		if len(d.Dims) > 0 {
			return nil, errors.Errorf("%q declared as array of functions", d.Name)
		}
		return p.functionType(typ, d.Params)
	}
	return p.arrayType(typ, d.Dims)
}

func (p *Parser) functionType(result *c.Type, list *paramList) (*c.Type, error) {
	var params []*c.Type
	var variadic bool
	for _, prm := range list.Params {
		if prm.Ellipsis {
			variadic = true
			continue
		}

		base, err := p.specType(prm.Spec)
		if err != nil {
			return nil, err
		}
		typ := base
		for range prm.Pointers {
			typ = c.NewPointer(typ)
		}
		if typ, err = p.arrayType(typ, prm.Dims); err != nil {
			return nil, err
		}

		// Parameters of array type are adjusted to pointers.
		if typ.IsArray() {
			typ = c.NewPointer(typ.Elem)
		}
		params = append(params, typ)
	}

	// f(void) takes no parameters.
	if len(params) == 1 && params[0] == c.VoidType {
		params = nil
	}
	return c.NewFunction(result, params, variadic), nil
}

// arrayType wraps elem in the dimensions of a declarator. The first
// dimension is the outermost.
func (p *Parser) arrayType(elem *c.Type, dims []*dimension) (*c.Type, error) {
	typ := elem
	for i := len(dims) - 1; i >= 0; i-- {
		if dims[i].Len == nil {
			typ = &c.Type{Kind: c.Array, Elem: typ}
			continue
		}

		n, err := p.convertExpr(dims[i].Len)
		if err != nil {
			return nil, err
		} else if !n.Type().IsInteger() {
			return nil, errors.Errorf("size of array has non-integer type %s", n.Type())
		}

		if k, ok := c.ConstValue(n); ok {
			if k < 0 {
				return nil, errors.Errorf("size of array is negative: %d", k)
			}
			typ = c.NewArray(typ, k)
		} else {
			typ = c.NewVariableArray(typ, n)
		}
	}
	return typ, nil
}

// ccType converts a type name parsed by the C expression parser.
func (p *Parser) ccType(t *cc.Type) (*c.Type, error) {
	if t == nil {
		return nil, errors.New("missing type")
	}

	switch t.Kind {
	case cc.Void:
		return c.VoidType, nil
	case cc.Char:
		return c.CharType, nil
	case cc.Uchar:
		return c.UCharType, nil
	case cc.Short:
		return c.ShortType, nil
	case cc.Ushort:
		return c.UShortType, nil
	case cc.Int:
		return c.IntType, nil
	case cc.Uint:
		return c.UIntType, nil
	case cc.Long:
		return c.LongType, nil
	case cc.Ulong:
		return c.ULongType, nil
	case cc.Longlong:
		return c.LongLongType, nil
	case cc.Ulonglong:
		return c.ULongLongType, nil
	case cc.Float:
		return c.FloatType, nil
	case cc.Double:
		return c.DoubleType, nil
	case cc.Struct:
		return p.scope.tagType(c.Struct, t.Tag)
	case cc.Union:
		return p.scope.tagType(c.Union, t.Tag)
	case cc.Enum:
		return p.scope.tagType(c.Enum, t.Tag)
	case cc.Ptr:
		base, err := p.ccType(t.Base)
		if err != nil {
			return nil, err
		}
		return c.NewPointer(base), nil
	case cc.Array:
		elem, err := p.ccType(t.Base)
		if err != nil {
			return nil, err
		} else if t.Width == nil {
			return &c.Type{Kind: c.Array, Elem: elem}, nil
		}
		n, err := p.expr(t.Width)
		if err != nil {
			return nil, err
		}
		k, ok := c.ConstValue(n)
		if !ok {
			return nil, errors.Errorf("array size in type name is not constant: %s", n)
		}
		return c.NewArray(elem, k), nil
	default:
		return nil, errors.Errorf("unsupported type name: %s", t)
	}
}
