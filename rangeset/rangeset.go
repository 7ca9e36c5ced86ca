package rangeset

import (
	"autoblock/ipaddresses"

	"github.com/google/btree"
)

// RangeSet is a union of closed IPv4 ranges. Overlapping and adjacent ranges are merged on insert,
// so the tree always holds disjoint ranges ordered by their low address.
type RangeSet struct {
	tree *btree.BTree
}

// New creates an empty range set.
func New() *RangeSet {
	return &RangeSet{tree: btree.New(2)}
}

type rangeNode struct {
	Low  uint32
	High uint32
}

func (node rangeNode) Less(other btree.Item) bool {
	return node.Low < other.(rangeNode).Low
}

// AddCIDR adds the network through broadcast range of a CIDR block.
func (rs *RangeSet) AddCIDR(cidr string) (err error) {
	low, high, err := ipaddresses.CIDRBounds(cidr)
	if err != nil {
		return
	}

	rs.AddRange(low, high)
	return
}

// AddRange adds the closed range [low, high]. Ranges with low greater than high are ignored.
func (rs *RangeSet) AddRange(low uint32, high uint32) {
	if low > high {
		return
	}

	merged := rangeNode{Low: low, High: high}

	// A range starting at or before low may overlap or touch the new one.
	if prev, ok := rs.floor(low); ok && uint64(prev.High)+1 >= uint64(low) {
		merged.Low = prev.Low
		if prev.High > merged.High {
			merged.High = prev.High
		}
	}

	var absorbed []rangeNode
	rs.tree.AscendGreaterOrEqual(rangeNode{Low: merged.Low}, func(i btree.Item) bool {
		node := i.(rangeNode)
		if uint64(node.Low) > uint64(merged.High)+1 {
			return false
		}
		absorbed = append(absorbed, node)
		if node.High > merged.High {
			merged.High = node.High
		}
		return true
	})

	for _, node := range absorbed {
		rs.tree.Delete(node)
	}
	rs.tree.ReplaceOrInsert(merged)
}

// Contains reports whether ip lies within any range of the set.
func (rs *RangeSet) Contains(ip uint32) bool {
	node, ok := rs.floor(ip)
	return ok && ip <= node.High
}

// Len returns the number of disjoint ranges in the set.
func (rs *RangeSet) Len() int {
	return rs.tree.Len()
}

func (rs *RangeSet) floor(ip uint32) (node rangeNode, ok bool) {
	rs.tree.DescendLessOrEqual(rangeNode{Low: ip}, func(i btree.Item) bool {
		node = i.(rangeNode)
		ok = true
		return false
	})
	return
}
