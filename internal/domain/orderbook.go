package domain

import "sort"

// OrderBook representa el libro de un mercado binario de Kalshi.
// Cada lado es una escalera de bids; el adapter la deja ordenada de menor a
// mayor precio (el orden nativo del exchange).
type OrderBook struct {
	Ticker string
	Yes    []BookEntry
	No     []BookEntry
}

// BookEntry es un nivel de precio en el orderbook.
type BookEntry struct {
	Price float64
	Size  float64
}

// Side devuelve la escalera del lado pedido.
func (ob OrderBook) Side(s Side) []BookEntry {
	if s == SideNo {
		return ob.No
	}
	return ob.Yes
}

// HasDepth devuelve true si ambos lados tienen al menos un nivel.
func (ob OrderBook) HasDepth() bool {
	return len(ob.Yes) > 0 && len(ob.No) > 0
}

// BestBid devuelve el mayor precio del lado dado.
// Devuelve 0 si el lado está vacío.
func (ob OrderBook) BestBid(s Side) float64 {
	return TopOfBook(ob.Side(s))
}

// TopLevels devuelve hasta n niveles del lado dado, del mejor al peor precio.
func (ob OrderBook) TopLevels(s Side, n int) []BookEntry {
	levels := append([]BookEntry(nil), ob.Side(s)...)
	sort.SliceStable(levels, func(i, j int) bool {
		return levels[i].Price > levels[j].Price
	})
	if len(levels) > n {
		levels = levels[:n]
	}
	return levels
}

// TopOfBook devuelve el mejor bid (mayor precio) de una escalera,
// sin asumir ningún orden. Devuelve 0 si está vacía.
func TopOfBook(levels []BookEntry) float64 {
	var best float64
	for _, l := range levels {
		if l.Price > best {
			best = l.Price
		}
	}
	return best
}

// CumulativeDepth convierte una escalera en su curva de profundidad acumulada:
// la posición i conserva el precio del nivel i y la cantidad acumulada desde el
// primer nivel hasta i. La cantidad acumulada nunca decrece.
func CumulativeDepth(levels []BookEntry) []BookEntry {
	curve := make([]BookEntry, len(levels))
	var sum float64
	for i, l := range levels {
		sum += l.Size
		curve[i] = BookEntry{Price: l.Price, Size: sum}
	}
	return curve
}

// EdgeIndex localiza el borde de liquidez de una curva para un tamaño objetivo:
// el último índice cuya cantidad acumulada sigue siendo estrictamente menor que
// target. Si la curva nunca alcanza target devuelve el último índice; si ya el
// primer nivel lo alcanza devuelve 0. Devuelve -1 solo para una curva vacía.
func EdgeIndex(curve []BookEntry, target float64) int {
	if len(curve) == 0 {
		return -1
	}
	edge := 0
	for i, l := range curve {
		if l.Size >= target {
			break
		}
		edge = i
	}
	return edge
}
