package memory

import (
	"fmt"
	"runtime"
)

// Usage is a snapshot of the heap while tables are held in memory
type Usage struct {
	HeapInUse   uint64
	TotalAlloc  uint64
	HeapObjects uint64
	NumGC       uint32
}

// ReadUsage captures the current heap usage
func ReadUsage() Usage {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return Usage{
		HeapInUse:   m.HeapInuse,
		TotalAlloc:  m.TotalAlloc,
		HeapObjects: m.HeapObjects,
		NumGC:       m.NumGC,
	}
}

// Since reports the bytes allocated and collections run after earlier was taken
func (u Usage) Since(earlier Usage) (allocated uint64, collections uint32) {
	return u.TotalAlloc - earlier.TotalAlloc, u.NumGC - earlier.NumGC
}

func (u Usage) String() string {
	return fmt.Sprintf("%s in use, %s allocated, %d heap objects, %d GC cycles",
		FormatBytes(u.HeapInUse), FormatBytes(u.TotalAlloc), u.HeapObjects, u.NumGC)
}

var byteUnits = []string{"KB", "MB", "GB", "TB"}

// FormatBytes renders n with binary units and one decimal place
func FormatBytes(n uint64) string {
	if n < 1024 {
		return fmt.Sprintf("%d B", n)
	}
	v := float64(n) / 1024
	unit := 0
	for v >= 1024 && unit < len(byteUnits)-1 {
		v /= 1024
		unit++
	}
	return fmt.Sprintf("%.1f %s", v, byteUnits[unit])
}
