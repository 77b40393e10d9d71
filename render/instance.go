// Package render drives compiled units. An Instance is one render in
// progress: it advances through its unit's instruction stream, writing into
// a Sink, and suspends whenever it needs data that has not arrived or the
// sink signals backpressure. Suspension detaches the full live state (local
// slots, operand stack, in-flight callee) onto the instance, so it can move
// between goroutines and resume later exactly where it left off.
package render

import (
	"context"
	"fmt"

	"github.com/gofrs/uuid"

	"github.com/deepnoodle-ai/stencil/op"
	"github.com/deepnoodle-ai/stencil/unit"
)

// Resolver loads units by name during rendering, for call targets and
// reconstructed content blocks. unit.Set and loader.Loader both satisfy it.
type Resolver interface {
	ResolveUnit(name string) (*unit.Unit, error)
}

// Context cancellation is checked deterministically every N instructions.
const contextCheckInterval = 64

// Instance is one render of a unit in progress. It is not safe for
// concurrent use: advancing from two goroutines at once is a caller bug.
// Between suspensions it may be handed to another goroutine freely.
type Instance struct {
	id       string
	unit     *unit.Unit
	code     *unit.Code
	resolver Resolver

	params map[string]any
	locals []any

	// Suspension state. resumePoint indexes the code's suspension table;
	// -1 means the instance starts from the beginning.
	resumePoint int
	savedStack  []any
	callee      *Instance

	done   bool
	failed error
}

// NewInstance constructs a render instance for a unit. The params map is
// copied. Values may include *Future for data that arrives later. Required
// parameters must be present unless declared lazy.
func NewInstance(u *unit.Unit, params map[string]any, resolver Resolver) (*Instance, error) {
	if u.Kind() == unit.KindFactory {
		return nil, fmt.Errorf("render: factory unit %q carries no code", u.Name())
	}
	for i := 0; i < u.ParamCount(); i++ {
		p := u.ParamAt(i)
		if _, ok := params[p.Name]; !ok && p.Required && !p.Lazy {
			return nil, fmt.Errorf("render: unit %q missing required parameter %q", u.Name(), p.Name)
		}
	}
	owned := make(map[string]any, len(params))
	for k, v := range params {
		owned[k] = v
	}
	return &Instance{
		id:          uuid.Must(uuid.NewV4()).String(),
		unit:        u,
		code:        u.Code(),
		resolver:    resolver,
		params:      owned,
		locals:      make([]any, u.Code().LocalCount()),
		resumePoint: -1,
	}, nil
}

// ID returns the unique identifier of this render instance.
func (in *Instance) ID() string {
	return in.id
}

// Unit returns the unit this instance renders.
func (in *Instance) Unit() *unit.Unit {
	return in.unit
}

// Done reports whether rendering has completed.
func (in *Instance) Done() bool {
	return in.done
}

// SetParam supplies a parameter value, typically late data for a lazy
// parameter between suspensions. It must not be called while Advance runs.
func (in *Instance) SetParam(name string, value any) {
	in.params[name] = value
}

// paramReady reports whether reading the named parameter would succeed now.
func (in *Instance) paramReady(name string) bool {
	v, ok := in.params[name]
	if !ok {
		return false
	}
	if f, isFuture := v.(*Future); isFuture {
		return f.Ready()
	}
	return true
}

func (in *Instance) paramValue(name string) (any, error) {
	v, ok := in.params[name]
	if !ok {
		return nil, nil
	}
	if f, isFuture := v.(*Future); isFuture {
		if !f.Ready() {
			return nil, fmt.Errorf("read of unresolved parameter %q", name)
		}
		return f.Value(), nil
	}
	return v, nil
}

// Advance runs the instance until it completes, suspends, or fails. A
// DataUnavailable or OutputLimited status means the instance saved its state
// and a later Advance will continue from the suspension point without
// repeating any output. After an error the instance is permanently failed.
func (in *Instance) Advance(ctx context.Context, sink Sink) (unit.Status, error) {
	if in.failed != nil {
		return 0, in.failed
	}
	if in.done {
		return unit.StatusDone, nil
	}

	code := in.code
	ip := 0
	var stack []any
	if in.resumePoint >= 0 {
		ip = code.SuspensionPointAt(in.resumePoint).ResumeIP
		stack = in.savedStack
		in.resumePoint = -1
		in.savedStack = nil
	}

	push := func(v any) { stack = append(stack, v) }
	pop := func() any {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return v
	}
	fetch := func() uint16 {
		v := uint16(code.InstructionAt(ip))
		ip++
		return v
	}
	suspend := func(point uint16, status unit.Status) unit.Status {
		in.resumePoint = int(point)
		in.savedStack = append([]any(nil), stack...)
		return status
	}
	fail := func(at int, format string, args ...any) error {
		err := fmt.Errorf(format, args...)
		if loc := code.LocationAt(at); !loc.IsZero() {
			err = fmt.Errorf("%s: %s: %w", in.unit.Name(), loc, err)
		} else {
			err = fmt.Errorf("%s: %w", in.unit.Name(), err)
		}
		in.failed = err
		return err
	}

	doneChan := ctx.Done()
	var sinceCheck int

	for ip < code.InstructionCount() {
		if doneChan != nil {
			sinceCheck++
			if sinceCheck >= contextCheckInterval {
				sinceCheck = 0
				select {
				case <-doneChan:
					return 0, fail(ip, "render cancelled: %v", ctx.Err())
				default:
				}
			}
		}

		base := ip
		opcode := code.InstructionAt(ip)
		ip++

		switch opcode {
		case op.Nop:
		case op.ReturnStatus:
			status := unit.Status(fetch())
			if status == unit.StatusDone {
				in.done = true
			}
			return status, nil
		case op.JumpForward:
			delta := int(fetch())
			ip = base + delta
		case op.JumpBackward:
			delta := int(fetch())
			ip = base - delta
		case op.PopJumpForwardIfFalse:
			delta := int(fetch())
			if !Truthy(pop()) {
				ip = base + delta
			}
		case op.PopJumpForwardIfTrue:
			delta := int(fetch())
			if Truthy(pop()) {
				ip = base + delta
			}
		case op.PopJumpForwardIfNil:
			delta := int(fetch())
			if pop() == nil {
				ip = base + delta
			}
		case op.PopJumpForwardIfNotNil:
			delta := int(fetch())
			if pop() != nil {
				ip = base + delta
			}
		case op.LoadConst:
			push(code.ConstantAt(int(fetch())))
		case op.LoadLocal:
			push(in.locals[fetch()])
		case op.StoreLocal:
			in.locals[fetch()] = pop()
		case op.LoadParam:
			name, ok := code.ConstantAt(int(fetch())).(string)
			if !ok {
				return 0, fail(base, "corrupt parameter name constant")
			}
			v, err := in.paramValue(name)
			if err != nil {
				return 0, fail(base, "%v", err)
			}
			push(v)
		case op.EmitText:
			text, ok := code.ConstantAt(int(fetch())).(string)
			if !ok {
				return 0, fail(base, "corrupt text constant")
			}
			if _, err := sink.WriteString(text); err != nil {
				return 0, fail(base, "write: %v", err)
			}
		case op.EmitValue:
			text, err := Stringify(pop())
			if err != nil {
				return 0, fail(base, "%v", err)
			}
			if _, err := sink.WriteString(text); err != nil {
				return 0, fail(base, "write: %v", err)
			}
		case op.YieldIfLimited:
			point := fetch()
			if sink.SoftLimited() {
				return suspend(point, unit.StatusOutputLimited), nil
			}
		case op.CheckAvail:
			name, ok := code.ConstantAt(int(fetch())).(string)
			if !ok {
				return 0, fail(base, "corrupt parameter name constant")
			}
			push(in.paramReady(name))
		case op.Suspend:
			point := fetch()
			status := unit.Status(fetch())
			return suspend(point, status), nil
		case op.BinaryOp:
			opType := op.BinaryOpType(fetch())
			right := pop()
			left := pop()
			result, err := binaryOp(opType, left, right)
			if err != nil {
				return 0, fail(base, "%v", err)
			}
			push(result)
		case op.CompareOp:
			opType := op.CompareOpType(fetch())
			right := pop()
			left := pop()
			result, err := compareOp(opType, left, right)
			if err != nil {
				return 0, fail(base, "%v", err)
			}
			push(result)
		case op.UnaryNot:
			push(!Truthy(pop()))
		case op.UnaryMinus:
			result, err := negate(pop())
			if err != nil {
				return 0, fail(base, "%v", err)
			}
			push(result)
		case op.BuildList:
			count := int(fetch())
			items := make([]any, count)
			for i := count - 1; i >= 0; i-- {
				items[i] = pop()
			}
			push(items)
		case op.BuildMap:
			count := int(fetch())
			m := make(map[string]any, count)
			for i := 0; i < count; i++ {
				value := pop()
				key, ok := pop().(string)
				if !ok {
					return 0, fail(base, "corrupt map key")
				}
				m[key] = value
			}
			push(m)
		case op.BinarySubscr:
			key := pop()
			container := pop()
			result, err := subscript(container, key)
			if err != nil {
				return 0, fail(base, "%v", err)
			}
			push(result)
		case op.Length:
			n, err := lengthOf(pop())
			if err != nil {
				return 0, fail(base, "%v", err)
			}
			push(n)
		case op.GetIter:
			it, err := getIter(pop())
			if err != nil {
				return 0, fail(base, "%v", err)
			}
			push(it)
		case op.ForIter:
			delta := int(fetch())
			it, ok := stack[len(stack)-1].(iterator)
			if !ok {
				return 0, fail(base, "loop over non-iterator %T", stack[len(stack)-1])
			}
			if v, more := it.next(); more {
				push(v)
			} else {
				pop()
				ip = base + delta
			}
		case op.PopTop:
			pop()
		case op.Copy:
			depth := int(fetch())
			push(stack[len(stack)-1-depth])
		case op.Nil:
			push(nil)
		case op.True:
			push(true)
		case op.False:
			push(false)
		case op.CheckCast:
			ref, ok := code.ConstantAt(int(fetch())).(unit.TypeRef)
			if !ok {
				return 0, fail(base, "corrupt type constant")
			}
			if top := stack[len(stack)-1]; !valueMatches(top, ref.Type) {
				return 0, fail(base, "value of type %T is not a %s", top, ref.Type)
			}
		case op.ConstructUnit:
			ref, ok := code.ConstantAt(int(fetch())).(unit.Ref)
			if !ok {
				return 0, fail(base, "corrupt unit reference constant")
			}
			args, ok := pop().(map[string]any)
			if !ok {
				return 0, fail(base, "corrupt construction arguments")
			}
			if in.resolver == nil {
				return 0, fail(base, "no resolver to load unit %q", ref.Name)
			}
			target, err := in.resolver.ResolveUnit(ref.Name)
			if err != nil {
				return 0, fail(base, "load unit %q: %v", ref.Name, err)
			}
			child, err := NewInstance(target, args, in.resolver)
			if err != nil {
				return 0, fail(base, "%v", err)
			}
			push(child)
		case op.AdvanceUnit:
			point := fetch()
			var child *Instance
			if in.callee != nil {
				// Resuming: the in-flight callee was held aside and its
				// operand already consumed before the suspension.
				child = in.callee
				in.callee = nil
			} else {
				c, ok := pop().(*Instance)
				if !ok {
					return 0, fail(base, "advance of non-instance value")
				}
				child = c
			}
			status, err := child.Advance(ctx, sink)
			if err != nil {
				in.failed = err
				return 0, err
			}
			if status != unit.StatusDone {
				// The callee suspended; hold it and propagate transitively.
				in.callee = child
				return suspend(point, status), nil
			}
		default:
			return 0, fail(base, "unknown opcode %d", opcode)
		}
	}

	in.done = true
	return unit.StatusDone, nil
}
