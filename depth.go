package cbor

// level is an open container on the depth stack.
type level struct {
	major MajorType

	// indefinite containers are closed by a break byte, not by a count.
	indefinite bool

	// remaining is the number of child items still expected by
	// a definite-length container. Maps count keys and values separately.
	remaining uint64

	// items is the number of child items completed in an indefinite container.
	items uint64
}

// depthTracker is the stack of open containers of a decode session.
// It turns the completion of a child item into End events for every
// definite-length container that is satisfied by it.
type depthTracker struct {
	levels []level
}

func (t *depthTracker) depth() int {
	return len(t.levels)
}

// top returns the innermost open container, or nil.
func (t *depthTracker) top() *level {
	if len(t.levels) == 0 {
		return nil
	}
	return &t.levels[len(t.levels)-1]
}

func (t *depthTracker) pushDefinite(major MajorType, items uint64) {
	t.levels = append(t.levels, level{major: major, remaining: items})
}

func (t *depthTracker) pushIndefinite(major MajorType) {
	t.levels = append(t.levels, level{major: major, indefinite: true})
}

func (t *depthTracker) pop() level {
	l := t.levels[len(t.levels)-1]
	t.levels = t.levels[:len(t.levels)-1]
	return l
}

// complete records that a child item of the innermost container has ended.
// It calls end for each definite-length container closed as a result,
// innermost first; one item can close a whole line of nested containers.
func (t *depthTracker) complete(end func(major MajorType)) {
	for len(t.levels) > 0 {
		top := &t.levels[len(t.levels)-1]
		if top.indefinite {
			top.items++
			return
		}
		top.remaining--
		if top.remaining > 0 {
			return
		}
		l := t.pop()
		end(l.major)
	}
}
