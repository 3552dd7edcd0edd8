// Package hook implements the interception chain wrapped around engine and
// pipeline operations.
//
// Hooks are explicit and ordered: pre-hooks run in registration order and
// may rewrite the operation's arguments, post-hooks run in registration
// order and only observe. There is no name-based dynamic dispatch; a hook
// exists because something registered it on this chain.
package hook

import (
	"sync"
)

// Op identifies an interceptable operation.
type Op uint8

const (
	// OpResolve is a single-control read.
	OpResolve Op = iota
	// OpSet is a single-control write.
	OpSet
	// OpSwitchProfile flips the active store.
	OpSwitchProfile
	// OpExport produces a portable blob.
	OpExport
	// OpImport consumes a portable blob.
	OpImport
)

// String returns the operation name.
func (o Op) String() string {
	switch o {
	case OpResolve:
		return "resolve"
	case OpSet:
		return "set"
	case OpSwitchProfile:
		return "switchProfile"
	case OpExport:
		return "export"
	case OpImport:
		return "import"
	default:
		return "unknown"
	}
}

// HookID uniquely identifies a registered hook.
type HookID uint64

// Invocation carries one operation's arguments. Pre-hooks receive it by
// pointer and may rewrite any field; post-hooks receive a copy.
type Invocation struct {
	Op         Op
	PanelKey   string
	ControlKey string
	Value      any
}

// PreFunc runs before an operation and may transform its arguments.
type PreFunc func(inv *Invocation)

// PostFunc runs after an operation completes, observing the final
// invocation, the result value (nil for operations without one), and the
// error if the operation failed.
type PostFunc func(inv Invocation, result any, err error)

// Chain holds the pre and post hooks for each operation.
type Chain struct {
	mu     sync.RWMutex
	pre    map[Op][]preReg
	post   map[Op][]postReg
	nextID HookID
}

type preReg struct {
	id HookID
	fn PreFunc
}

type postReg struct {
	id HookID
	fn PostFunc
}

// NewChain creates an empty hook chain.
func NewChain() *Chain {
	return &Chain{
		pre:  make(map[Op][]preReg),
		post: make(map[Op][]postReg),
	}
}

// RegisterPre adds a pre-hook for an operation.
func (c *Chain) RegisterPre(op Op, fn PreFunc) HookID {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	id := c.nextID
	c.pre[op] = append(c.pre[op], preReg{id: id, fn: fn})
	return id
}

// RegisterPost adds a post-hook for an operation.
func (c *Chain) RegisterPost(op Op, fn PostFunc) HookID {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	id := c.nextID
	c.post[op] = append(c.post[op], postReg{id: id, fn: fn})
	return id
}

// Unregister removes a hook by ID. Returns false if no hook had the ID.
func (c *Chain) Unregister(id HookID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for op, regs := range c.pre {
		for i := range regs {
			if regs[i].id == id {
				c.pre[op] = append(regs[:i], regs[i+1:]...)
				return true
			}
		}
	}
	for op, regs := range c.post {
		for i := range regs {
			if regs[i].id == id {
				c.post[op] = append(regs[:i], regs[i+1:]...)
				return true
			}
		}
	}
	return false
}

// RunPre runs the operation's pre-hooks in registration order. Each hook
// sees the transformations of the hooks before it.
func (c *Chain) RunPre(op Op, inv *Invocation) {
	c.mu.RLock()
	regs := c.pre[op]
	fns := make([]PreFunc, len(regs))
	for i := range regs {
		fns[i] = regs[i].fn
	}
	c.mu.RUnlock()

	for _, fn := range fns {
		fn(inv)
	}
}

// RunPost runs the operation's post-hooks in registration order. Hooks
// receive a copy of the invocation; their mutations go nowhere.
func (c *Chain) RunPost(op Op, inv Invocation, result any, err error) {
	c.mu.RLock()
	regs := c.post[op]
	fns := make([]PostFunc, len(regs))
	for i := range regs {
		fns[i] = regs[i].fn
	}
	c.mu.RUnlock()

	for _, fn := range fns {
		fn(inv, result, err)
	}
}

// Count reports how many hooks are registered for an operation.
func (c *Chain) Count(op Op) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.pre[op]) + len(c.post[op])
}
