package c

import (
	"fmt"
	"strconv"
	"strings"
)

// Expr represents a typed C expression.
type Expr interface {
	Type() *Type
	String() string
	expr()
}

func (*IntLiteral) expr()     {}
func (*CharLiteral) expr()    {}
func (*FloatLiteral) expr()   {}
func (*StringLiteral) expr()  {}
func (*IdExpr) expr()         {}
func (*UnaryExpr) expr()      {}
func (*PointerExpr) expr()    {}
func (*FieldRef) expr()       {}
func (*ArraySubscript) expr() {}
func (*BinaryExpr) expr()     {}
func (*CastExpr) expr()       {}
func (*CallExpr) expr()       {}
func (*TypeIdExpr) expr()     {}

// IntLiteral represents an integer constant.
type IntLiteral struct {
	Value int64
	T     *Type
}

func (e *IntLiteral) Type() *Type    { return e.T }
func (e *IntLiteral) String() string { return strconv.FormatInt(e.Value, 10) }

// CharLiteral represents a character constant.
type CharLiteral struct {
	Value int64
	T     *Type
}

func (e *CharLiteral) Type() *Type { return e.T }
func (e *CharLiteral) String() string {
	return strconv.QuoteRune(rune(e.Value))
}

// FloatLiteral represents a floating point constant.
type FloatLiteral struct {
	Value float64
	T     *Type
}

func (e *FloatLiteral) Type() *Type { return e.T }
func (e *FloatLiteral) String() string {
	return strconv.FormatFloat(e.Value, 'g', -1, 64)
}

// StringLiteral represents a string constant. Its type is a char array.
type StringLiteral struct {
	Value string
	T     *Type
}

func (e *StringLiteral) Type() *Type    { return e.T }
func (e *StringLiteral) String() string { return strconv.Quote(e.Value) }

// IdExpr represents a reference to a declared name.
type IdExpr struct {
	Name string
	Decl *Decl
}

func (e *IdExpr) Type() *Type    { return e.Decl.Type }
func (e *IdExpr) String() string { return e.Name }

// UnaryOp represents a unary operator.
type UnaryOp int

// Unary operators.
const (
	UnaryMinus = UnaryOp(iota + 1)
	UnaryPlus
	UnaryTilde
	UnaryNot
	UnaryAmper
	UnarySizeof
	UnaryAlignof
)

var unaryOps = [...]string{
	UnaryMinus:   "-",
	UnaryPlus:    "+",
	UnaryTilde:   "~",
	UnaryNot:     "!",
	UnaryAmper:   "&",
	UnarySizeof:  "sizeof ",
	UnaryAlignof: "_Alignof ",
}

// String returns the C token for the operator.
func (op UnaryOp) String() string {
	if op > 0 && op < UnaryOp(len(unaryOps)) {
		return unaryOps[op]
	}
	return fmt.Sprintf("UnaryOp<%d>", op)
}

// UnaryExpr represents a unary operator applied to an operand.
// Dereference is represented separately by PointerExpr.
type UnaryExpr struct {
	Op      UnaryOp
	Operand Expr
	T       *Type
}

func (e *UnaryExpr) Type() *Type { return e.T }
func (e *UnaryExpr) String() string {
	return fmt.Sprintf("%s(%s)", e.Op, e.Operand)
}

// PointerExpr represents a dereference: *Operand.
type PointerExpr struct {
	Operand Expr
	T       *Type
}

func (e *PointerExpr) Type() *Type    { return e.T }
func (e *PointerExpr) String() string { return fmt.Sprintf("*(%s)", e.Operand) }

// FieldRef represents a member access: Owner.Name or Owner->Name.
type FieldRef struct {
	Owner Expr
	Name  string
	Deref bool
	T     *Type
}

func (e *FieldRef) Type() *Type { return e.T }
func (e *FieldRef) String() string {
	if e.Deref {
		return fmt.Sprintf("%s->%s", e.Owner, e.Name)
	}
	return fmt.Sprintf("%s.%s", e.Owner, e.Name)
}

// ArraySubscript represents Array[Subscript].
type ArraySubscript struct {
	Array     Expr
	Subscript Expr
	T         *Type
}

func (e *ArraySubscript) Type() *Type { return e.T }
func (e *ArraySubscript) String() string {
	return fmt.Sprintf("%s[%s]", e.Array, e.Subscript)
}

// BinaryOp represents a binary operator.
type BinaryOp int

// Binary operators.
const (
	arithmeticOpBegin = BinaryOp(iota)
	Plus
	Minus
	Multiply
	Divide
	Modulo
	ShiftLeft
	ShiftRight
	BinaryAnd
	BinaryOr
	BinaryXor
	arithmeticOpEnd

	relationalOpBegin
	Equals
	NotEquals
	LessThan
	LessEqual
	GreaterThan
	GreaterEqual
	relationalOpEnd
)

var binaryOps = [...]string{
	Plus:         "+",
	Minus:        "-",
	Multiply:     "*",
	Divide:       "/",
	Modulo:       "%",
	ShiftLeft:    "<<",
	ShiftRight:   ">>",
	BinaryAnd:    "&",
	BinaryOr:     "|",
	BinaryXor:    "^",
	Equals:       "==",
	NotEquals:    "!=",
	LessThan:     "<",
	LessEqual:    "<=",
	GreaterThan:  ">",
	GreaterEqual: ">=",
}

// String returns the C token for the operator.
func (op BinaryOp) String() string {
	if op >= 0 && op < BinaryOp(len(binaryOps)) && binaryOps[op] != "" {
		return binaryOps[op]
	}
	return fmt.Sprintf("BinaryOp<%d>", op)
}

// IsArithmetic returns true for arithmetic, bitwise and shift operators.
func (op BinaryOp) IsArithmetic() bool {
	return op > arithmeticOpBegin && op < arithmeticOpEnd
}

// IsRelational returns true for the six relational and equality operators.
func (op BinaryOp) IsRelational() bool {
	return op > relationalOpBegin && op < relationalOpEnd
}

// Negate returns the operator that holds exactly when op does not.
func (op BinaryOp) Negate() BinaryOp {
	switch op {
	case Equals:
		return NotEquals
	case NotEquals:
		return Equals
	case LessThan:
		return GreaterEqual
	case LessEqual:
		return GreaterThan
	case GreaterThan:
		return LessEqual
	case GreaterEqual:
		return LessThan
	default:
		panic(fmt.Sprintf("c: cannot negate %s", op))
	}
}

// Swap returns the operator with its operands exchanged: a < b == b > a.
func (op BinaryOp) Swap() BinaryOp {
	switch op {
	case LessThan:
		return GreaterThan
	case LessEqual:
		return GreaterEqual
	case GreaterThan:
		return LessThan
	case GreaterEqual:
		return LessEqual
	default:
		return op
	}
}

// BinaryExpr represents Left Op Right.
type BinaryExpr struct {
	Op    BinaryOp
	Left  Expr
	Right Expr
	T     *Type
}

func (e *BinaryExpr) Type() *Type { return e.T }
func (e *BinaryExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", e.Left, e.Op, e.Right)
}

// CastExpr represents (T)Operand.
type CastExpr struct {
	Operand Expr
	T       *Type
}

func (e *CastExpr) Type() *Type { return e.T }
func (e *CastExpr) String() string {
	return fmt.Sprintf("(%s)%s", e.T, e.Operand)
}

// CallExpr represents a function call.
type CallExpr struct {
	Func Expr
	Args []Expr
	T    *Type
}

func (e *CallExpr) Type() *Type { return e.T }
func (e *CallExpr) String() string {
	args := make([]string, len(e.Args))
	for i, arg := range e.Args {
		args[i] = arg.String()
	}
	return fmt.Sprintf("%s(%s)", e.Func, strings.Join(args, ", "))
}

// FuncName returns the name of the called function if it is called directly.
func (e *CallExpr) FuncName() string {
	if id, ok := e.Func.(*IdExpr); ok && id.Decl != nil && id.Decl.Kind == FunctionDecl {
		return id.Name
	}
	return ""
}

// TypeIdOp represents an operator applied to a type name.
type TypeIdOp int

// Type operators.
const (
	SizeofType = TypeIdOp(iota + 1)
	AlignofType
)

// TypeIdExpr represents sizeof(T) or _Alignof(T).
type TypeIdExpr struct {
	Op      TypeIdOp
	Operand *Type
	T       *Type
}

func (e *TypeIdExpr) Type() *Type { return e.T }
func (e *TypeIdExpr) String() string {
	if e.Op == AlignofType {
		return fmt.Sprintf("_Alignof(%s)", e.Operand)
	}
	return fmt.Sprintf("sizeof(%s)", e.Operand)
}

// IsLvalue returns true if e designates an object.
func IsLvalue(e Expr) bool {
	switch e := e.(type) {
	case *IdExpr:
		return e.Decl != nil && e.Decl.Kind == VariableDecl
	case *FieldRef, *ArraySubscript, *PointerExpr:
		return true
	default:
		return false
	}
}

// StripCasts returns the innermost operand of a chain of casts.
func StripCasts(e Expr) Expr {
	for {
		cast, ok := e.(*CastExpr)
		if !ok {
			return e
		}
		e = cast.Operand
	}
}

// ConstValue returns the value of an integer constant expression built from
// literals, enumerators, unary minus and casts.
func ConstValue(e Expr) (int64, bool) {
	switch e := e.(type) {
	case *IntLiteral:
		return e.Value, true
	case *CharLiteral:
		return e.Value, true
	case *IdExpr:
		if e.Decl != nil && e.Decl.Kind == EnumeratorDecl {
			return e.Decl.Value, true
		}
	case *CastExpr:
		if e.T.IsInteger() {
			return ConstValue(e.Operand)
		}
	case *UnaryExpr:
		if e.Op == UnaryMinus {
			if v, ok := ConstValue(e.Operand); ok {
				return -v, true
			}
		}
	}
	return 0, false
}
