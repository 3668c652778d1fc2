package indicator

import "time"

// Point is one (price, RSI) observation in a rolling window.
type Point struct {
	Price float64
	RSI   float64
	At    time.Time
}

// window is a fixed-capacity ring of Points; the oldest point is evicted
// on overflow so memory stays bounded regardless of uptime.
type window struct {
	points []Point
	head   int
	size   int
}

func newWindow(capacity int) *window {
	return &window{points: make([]Point, capacity)}
}

func (w *window) push(p Point) {
	if w.size < len(w.points) {
		w.points[(w.head+w.size)%len(w.points)] = p
		w.size++
		return
	}
	w.points[w.head] = p
	w.head = (w.head + 1) % len(w.points)
}

// slice returns the points oldest-first as a fresh slice.
func (w *window) slice() []Point {
	out := make([]Point, w.size)
	for i := 0; i < w.size; i++ {
		out[i] = w.points[(w.head+i)%len(w.points)]
	}
	return out
}

func (w *window) last() (Point, bool) {
	if w.size == 0 {
		return Point{}, false
	}
	return w.points[(w.head+w.size-1)%len(w.points)], true
}
