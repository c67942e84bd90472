package saak

import (
	"reflect"
	"sync"
	"unsafe"
)

var rowPool = make(map[int]map[int]*sync.Pool)
var rowPoolMu sync.Mutex

// MakeRows returns m row views of length n over a flat, row-major backing.
// Writes through the views land in backing. Hand the views back with ReturnRows when done.
func MakeRows(backing []float32, m, n int) (retVal [][]float32) {
	retVal = borrowRows(m, n)
	for i := range retVal {
		start := i * n
		hdr := (*reflect.SliceHeader)(unsafe.Pointer(&retVal[i]))
		hdr.Data = uintptr(unsafe.Pointer(&backing[start]))
		hdr.Len = n
		hdr.Cap = n
	}
	return
}

func borrowRows(m, n int) [][]float32 {
	rowPoolMu.Lock()
	defer rowPoolMu.Unlock()
	if d, ok := rowPool[m]; ok {
		if d2, ok := d[n]; ok {
			return d2.Get().([][]float32)
		}
	}
	return make([][]float32, m)
}

// ReturnRows returns views obtained from MakeRows to the pool.
func ReturnRows(m, n int, it [][]float32) {
	for i := range it {
		it[i] = nil
	}
	rowPoolMu.Lock()
	defer rowPoolMu.Unlock()
	d, ok := rowPool[m]
	if !ok {
		d = make(map[int]*sync.Pool)
		rowPool[m] = d
	}
	if _, ok := d[n]; !ok {
		d[n] = &sync.Pool{
			New: func() interface{} { return make([][]float32, m) },
		}
	}
	d[n].Put(it)
}
