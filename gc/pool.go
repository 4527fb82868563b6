package gc

import (
	"sync"

	scriptruntime "github.com/moikas-code/script-sub004"
)

// Scratch buffers for graph traversal. Scan stacks and child lists churn on
// every pass, so they are pooled rather than reallocated.
var handleBufPool = sync.Pool{
	New: func() any {
		buf := make([]scriptruntime.Handle, 0, 64)
		return &buf
	},
}

func getHandleBuf() []scriptruntime.Handle {
	return (*handleBufPool.Get().(*[]scriptruntime.Handle))[:0]
}

func putHandleBuf(buf []scriptruntime.Handle) {
	handleBufPool.Put(&buf)
}
