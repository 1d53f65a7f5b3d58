package cparse

import (
	"strconv"
	"strings"

	"github.com/benbjohnson/smg/c"
	"github.com/pkg/errors"
	"rsc.io/c2go/cc"
)

// ParseExpr parses a C expression and types it against the declarations in
// the parser's scope.
func (p *Parser) ParseExpr(s string) (c.Expr, error) {
	x, err := cc.ParseExpr(s)
	if err != nil {
		return nil, err
	}
	return p.expr(x)
}

func (p *Parser) convertExpr(e *expr) (c.Expr, error) {
	return p.ParseExpr(e.String())
}

// constExpr evaluates an integer constant expression.
func (p *Parser) constExpr(e *expr) (int64, error) {
	x, err := p.convertExpr(e)
	if err != nil {
		return 0, err
	}
	v, ok := c.ConstValue(x)
	if !ok {
		return 0, errors.Errorf("not an integer constant: %s", e)
	}
	return v, nil
}

var binaryOps = map[cc.ExprOp]c.BinaryOp{
	cc.Add:   c.Plus,
	cc.Sub:   c.Minus,
	cc.Mul:   c.Multiply,
	cc.Div:   c.Divide,
	cc.Mod:   c.Modulo,
	cc.Lsh:   c.ShiftLeft,
	cc.Rsh:   c.ShiftRight,
	cc.And:   c.BinaryAnd,
	cc.Or:    c.BinaryOr,
	cc.Xor:   c.BinaryXor,
	cc.EqEq:  c.Equals,
	cc.NotEq: c.NotEquals,
	cc.Lt:    c.LessThan,
	cc.LtEq:  c.LessEqual,
	cc.Gt:    c.GreaterThan,
	cc.GtEq:  c.GreaterEqual,
}

var unaryOps = map[cc.ExprOp]c.UnaryOp{
	cc.Minus: c.UnaryMinus,
	cc.Plus:  c.UnaryPlus,
	cc.Twid:  c.UnaryTilde,
	cc.Not:   c.UnaryNot,
}

// expr converts a parsed expression into a typed expression.
func (p *Parser) expr(x *cc.Expr) (c.Expr, error) {
	if op, ok := binaryOps[x.Op]; ok {
		l, err := p.expr(x.Left)
		if err != nil {
			return nil, err
		}
		r, err := p.expr(x.Right)
		if err != nil {
			return nil, err
		}
		return p.binary(op, l, r)
	}
	if op, ok := unaryOps[x.Op]; ok {
		operand, err := p.expr(x.Left)
		if err != nil {
			return nil, err
		}
		return p.unary(op, operand)
	}

	switch x.Op {
	case cc.Paren:
		return p.expr(x.Left)
	case cc.Number:
		return p.number(x.Text)
	case cc.String:
		return p.stringLiteral(x.Texts)
	case cc.Name:
		return p.name(x.Text)
	case cc.Addr:
		operand, err := p.expr(x.Left)
		if err != nil {
			return nil, err
		}
		return &c.UnaryExpr{Op: c.UnaryAmper, Operand: operand, T: c.NewPointer(operand.Type())}, nil
	case cc.Indir:
		operand, err := p.expr(x.Left)
		if err != nil {
			return nil, err
		}
		return p.indirect(operand)
	case cc.Dot, cc.Arrow:
		owner, err := p.expr(x.Left)
		if err != nil {
			return nil, err
		}
		return p.field(owner, x.Text, x.Op == cc.Arrow)
	case cc.Index:
		return p.index(x)
	case cc.Call:
		return p.call(x)
	case cc.Cast:
		typ, err := p.ccType(x.Type)
		if err != nil {
			return nil, err
		}
		operand, err := p.expr(x.Left)
		if err != nil {
			return nil, err
		}
		return &c.CastExpr{Operand: operand, T: typ}, nil
	case cc.SizeofExpr:
		operand, err := p.expr(x.Left)
		if err != nil {
			return nil, err
		}
		return &c.UnaryExpr{Op: c.UnarySizeof, Operand: operand, T: p.machine.SizeType()}, nil
	case cc.SizeofType:
		typ, err := p.ccType(x.Type)
		if err != nil {
			return nil, err
		}
		return &c.TypeIdExpr{Op: c.SizeofType, Operand: typ, T: p.machine.SizeType()}, nil
	default:
		return nil, errors.Errorf("unsupported expression operator: %s", x.Op)
	}
}

// decay returns the type an operand of type t is converted to in a value
// context.
func decay(t *c.Type) *c.Type {
	switch t.Kind {
	case c.Array:
		return c.NewPointer(t.Elem)
	case c.Function:
		return c.NewPointer(t)
	default:
		return t
	}
}

func (p *Parser) binary(op c.BinaryOp, l, r c.Expr) (c.Expr, error) {
	lt, rt := decay(l.Type()), decay(r.Type())

	var typ *c.Type
	switch {
	case op.IsRelational():
		if lt.IsPointer() != rt.IsPointer() && !isNullConstant(l) && !isNullConstant(r) {
			return nil, errors.Errorf("comparison between pointer and integer: %s %s %s", l, op, r)
		}
		typ = c.IntType
	case op == c.Minus && lt.IsPointer() && rt.IsPointer():
		typ = p.machine.PtrdiffType()
	case (op == c.Plus || op == c.Minus) && lt.IsPointer() && rt.IsInteger():
		typ = lt
	case op == c.Plus && lt.IsInteger() && rt.IsPointer():
		typ = rt
	case lt.IsPointer() || rt.IsPointer():
		return nil, errors.Errorf("invalid operands to binary %s: %s and %s", op, lt, rt)
	case !lt.IsArithmetic() || !rt.IsArithmetic():
		return nil, errors.Errorf("invalid operands to binary %s: %s and %s", op, lt, rt)
	case op == c.ShiftLeft || op == c.ShiftRight:
		typ = p.machine.Promote(lt)
	default:
		typ = p.machine.CommonType(lt, rt)
	}
	return &c.BinaryExpr{Op: op, Left: l, Right: r, T: typ}, nil
}

// isNullConstant returns true for the integer constant zero.
func isNullConstant(e c.Expr) bool {
	if !e.Type().IsInteger() {
		return false
	}
	v, ok := c.ConstValue(e)
	return ok && v == 0
}

func (p *Parser) unary(op c.UnaryOp, operand c.Expr) (c.Expr, error) {
	t := decay(operand.Type())
	switch {
	case op == c.UnaryNot:
		return &c.UnaryExpr{Op: op, Operand: operand, T: c.IntType}, nil
	case !t.IsArithmetic():
		return nil, errors.Errorf("invalid argument type %s to unary %s", t, op)
	case op == c.UnaryTilde && !t.IsInteger():
		return nil, errors.Errorf("invalid argument type %s to unary %s", t, op)
	}
	return &c.UnaryExpr{Op: op, Operand: operand, T: p.machine.Promote(t)}, nil
}

func (p *Parser) indirect(operand c.Expr) (c.Expr, error) {
	t := operand.Type()
	switch t.Kind {
	case c.Pointer, c.Array:
		return &c.PointerExpr{Operand: operand, T: t.Elem}, nil
	case c.Function:
		return operand, nil
	default:
		return nil, errors.Errorf("indirection requires pointer operand: %s", operand)
	}
}

func (p *Parser) field(owner c.Expr, name string, deref bool) (c.Expr, error) {
	t := owner.Type()
	if deref {
		if t.Kind != c.Pointer && t.Kind != c.Array {
			return nil, errors.Errorf("member reference type %s is not a pointer", t)
		}
		t = t.Elem
	}
	if !t.IsAggregate() {
		return nil, errors.Errorf("member reference base type %s is not a structure or union", t)
	}

	f := t.Field(name)
	if f == nil {
		return nil, errors.Errorf("no member named %q in %s", name, t)
	}
	return &c.FieldRef{Owner: owner, Name: name, Deref: deref, T: f.Type}, nil
}

func (p *Parser) index(x *cc.Expr) (c.Expr, error) {
	a, err := p.expr(x.Left)
	if err != nil {
		return nil, err
	}
	i, err := p.expr(x.Right)
	if err != nil {
		return nil, err
	}

	// i[a] is a[i].
	if !a.Type().IsAddress() && i.Type().IsAddress() {
		a, i = i, a
	}

	t := a.Type()
	if t.Kind != c.Pointer && t.Kind != c.Array {
		return nil, errors.Errorf("subscripted value is not an array or pointer: %s", a)
	} else if !i.Type().IsInteger() {
		return nil, errors.Errorf("array subscript is not an integer: %s", i)
	}
	return &c.ArraySubscript{Array: a, Subscript: i, T: t.Elem}, nil
}

func (p *Parser) call(x *cc.Expr) (c.Expr, error) {
	var fn c.Expr
	if x.Left.Op == cc.Name && p.scope.Lookup(x.Left.Text) == nil {
		fn = p.implicitFunction(x.Left.Text)
	} else {
		var err error
		if fn, err = p.expr(x.Left); err != nil {
			return nil, err
		}
	}

	t := fn.Type()
	if t.Kind == c.Pointer && t.Elem.IsFunction() {
		t = t.Elem
	}
	if !t.IsFunction() {
		return nil, errors.Errorf("called object is not a function: %s", fn)
	}

	args := make([]c.Expr, len(x.List))
	for i, arg := range x.List {
		var err error
		if args[i], err = p.expr(arg); err != nil {
			return nil, err
		}
	}
	if len(args) < len(t.Params) || (len(args) > len(t.Params) && !t.Variadic && len(t.Params) > 0) {
		return nil, errors.Errorf("wrong number of arguments to %s: %d", fn, len(args))
	}
	return &c.CallExpr{Func: fn, Args: args, T: t.Elem}, nil
}

// implicitFunction declares a call to an undeclared function as an external
// function returning int.
func (p *Parser) implicitFunction(name string) *c.IdExpr {
	logger.Warningf("implicit declaration of function %q", name)
	decl := c.NewFunctionDecl(name, c.NewFunction(c.IntType, nil, true), false)
	if err := p.scope.Declare(decl); err != nil {
		panic(err)
	}
	return &c.IdExpr{Name: name, Decl: decl}
}

func (p *Parser) name(name string) (c.Expr, error) {
	decl := p.scope.Lookup(name)
	if decl == nil {
		if name == "NULL" {
			return &c.CastExpr{Operand: &c.IntLiteral{Value: 0, T: c.IntType}, T: c.NewPointer(c.VoidType)}, nil
		}
		return nil, errors.Errorf("use of undeclared identifier %q", name)
	}
	return &c.IdExpr{Name: name, Decl: decl}, nil
}

// number converts a numeric or character constant.
func (p *Parser) number(text string) (c.Expr, error) {
	if strings.HasPrefix(text, "'") {
		v, err := charValue(text)
		if err != nil {
			return nil, err
		}
		return &c.CharLiteral{Value: v, T: c.IntType}, nil
	}

	decimal := !strings.HasPrefix(text, "0") || text == "0"
	if isHex := strings.HasPrefix(text, "0x") || strings.HasPrefix(text, "0X"); !isHex && strings.ContainsAny(text, ".eE") {
		typ := c.DoubleType
		s := text
		switch {
		case strings.HasSuffix(s, "f") || strings.HasSuffix(s, "F"):
			typ, s = c.FloatType, s[:len(s)-1]
		case strings.HasSuffix(s, "l") || strings.HasSuffix(s, "L"):
			typ, s = c.LongDoubleType, s[:len(s)-1]
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, errors.Errorf("invalid floating constant: %s", text)
		}
		return &c.FloatLiteral{Value: v, T: typ}, nil
	}

	digits := strings.TrimRight(text, "uUlL")
	suffix := strings.ToLower(text[len(digits):])
	u, err := strconv.ParseUint(digits, 0, 64)
	if err != nil {
		return nil, errors.Errorf("invalid integer constant: %s", text)
	}

	// The type is the first of the candidates that can represent the value.
	unsigned := strings.Contains(suffix, "u")
	var candidates []*c.Type
	switch strings.Count(suffix, "l") {
	case 0:
		candidates = []*c.Type{c.IntType, c.UIntType, c.LongType, c.ULongType, c.LongLongType, c.ULongLongType}
	case 1:
		candidates = []*c.Type{c.LongType, c.ULongType, c.LongLongType, c.ULongLongType}
	default:
		candidates = []*c.Type{c.LongLongType, c.ULongLongType}
	}
	for _, typ := range candidates {
		if unsigned && !typ.IsUnsigned() {
			continue
		} else if !unsigned && decimal && typ.IsUnsigned() {
			continue
		} else if p.fits(u, typ) {
			return &c.IntLiteral{Value: int64(u), T: typ}, nil
		}
	}
	return &c.IntLiteral{Value: int64(u), T: c.ULongLongType}, nil
}

// charValue returns the value of a character constant as a signed char.
func charValue(text string) (int64, error) {
	body := strings.TrimSuffix(strings.TrimPrefix(text, "'"), "'")
	if body == `\0` {
		return 0, nil
	}
	r, _, tail, err := strconv.UnquoteChar(body, '\'')
	if err != nil || tail != "" {
		return 0, errors.Errorf("invalid character constant: %s", text)
	}
	return int64(int8(r)), nil
}

// fits returns true if u is representable in the integer type t.
func (p *Parser) fits(u uint64, t *c.Type) bool {
	bits, _ := p.machine.SizeofBits(t)
	if p.machine.IsSigned(t) {
		bits--
	}
	return bits >= 64 || u < uint64(1)<<uint(bits)
}

func (p *Parser) stringLiteral(texts []string) (c.Expr, error) {
	var buf strings.Builder
	for _, text := range texts {
		s, err := strconv.Unquote(text)
		if err != nil {
			s = strings.Trim(text, `"`)
		}
		buf.WriteString(s)
	}
	s := buf.String()
	return &c.StringLiteral{Value: s, T: c.NewArray(c.CharType, int64(len(s))+1)}, nil
}
