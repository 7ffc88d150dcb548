// Package ztree turns query shapes into Morton key ranges by walking a
// 2^N-ary partition of the key space from an optimised root cell.
//
// One tree serves every layout: the layout decides the axis count and which
// axes carry height and time intervals. A Tree is read-only after New and
// may be queried from many goroutines at once.
package ztree

import (
	"go.uber.org/zap"

	"zrange/pkg/common"
	"zrange/pkg/geometry"
	"zrange/pkg/morton"
)

type Tree struct {
	domain *Domain
	codec  *morton.Codec
	policy DepthPolicy
	logger *zap.Logger

	rootCode  common.Key
	rootLevel uint
	rootCell  geometry.Cell
}

type Option func(*Tree)

func WithLogger(l *zap.Logger) Option {
	return func(t *Tree) {
		if l != nil {
			t.logger = l
		}
	}
}

func WithDepthPolicy(p DepthPolicy) Option {
	return func(t *Tree) { t.policy = p }
}

func New(domain *Domain, opts ...Option) (*Tree, error) {
	codec, err := morton.NewCodec(domain.Dims(), domain.bits)
	if err != nil {
		return nil, err
	}
	t := &Tree{
		domain: domain,
		codec:  codec,
		policy: DefaultDepthPolicy(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.findRoot()
	t.logger.Debug("z-order tree ready",
		zap.Stringer("domain", domain),
		zap.Uint("root_level", t.rootLevel),
		zap.String("root_code", t.rootCode.Dec()))
	return t, nil
}

// findRoot descends from the whole key space while exactly one child
// overlaps the domain box, so queries skip levels that cannot prune.
func (t *Tree) findRoot() {
	box := t.domain.Box()
	cell := geometry.RootCell(t.domain.Dims(), t.domain.bits)
	var code common.Key
	level := uint(0)

	for level < t.domain.bits {
		only := -1
		for i := 0; i < t.codec.Fanout(); i++ {
			r, _ := geometry.Relate(cell.Child(i), box)
			if r == geometry.Disjoint {
				continue
			}
			if only >= 0 {
				only = -2
				break
			}
			only = i
		}
		if only < 0 {
			break
		}
		cell = cell.Child(only)
		code = t.codec.Child(code, only)
		level++
	}
	t.rootCode, t.rootLevel, t.rootCell = code, level, cell
}

// Root returns the code and level of the cell queries start from.
func (t *Tree) Root() (common.Key, uint) { return t.rootCode, t.rootLevel }

func (t *Tree) Domain() *Domain { return t.domain }

func (t *Tree) Codec() *morton.Codec { return t.codec }
