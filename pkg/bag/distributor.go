package bag

// distributor is a fixed visiting order over levels in which level i appears
// i+1 times, spread as evenly as possible. Walking it round-robin selects
// high levels more often while visiting every level once per sweep.
type distributor struct {
	order []int
}

func newDistributor(levels int) *distributor {
	size := levels * (levels + 1) / 2
	order := make([]int, size)
	for i := range order {
		order[i] = -1
	}

	index := 0
	for rank := levels; rank > 0; rank-- {
		for range rank {
			index = (size/rank + index) % size
			for order[index] >= 0 {
				index = (index + 1) % size
			}
			order[index] = rank - 1
		}
	}

	return &distributor{order: order}
}

func (d *distributor) len() int { return len(d.order) }

func (d *distributor) pick(pos int) int { return d.order[pos] }

func (d *distributor) next(pos int) int { return (pos + 1) % len(d.order) }
