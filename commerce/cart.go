package commerce

import "math"

// Cart is an ordered list of lines with at most one line per product.
// It is not safe for concurrent use; Store serializes access.
type Cart struct {
	lines []CartLine
}

// AddItem increments the line for p or appends a new line with quantity 1.
// A product without an ID is ignored.
func (c *Cart) AddItem(p Product) {
	if p.ID == "" {
		return
	}
	next := cloneLines(c.lines)
	for i := range next {
		if next[i].Product.ID == p.ID {
			if next[i].Quantity < math.MaxInt {
				next[i].Quantity++
			}
			c.lines = next
			return
		}
	}
	c.lines = append(next, CartLine{Product: p.Clone(), Quantity: 1})
}

// BuyNow adds p only when it is not already in the cart. It reports
// whether a line was added.
func (c *Cart) BuyNow(p Product) bool {
	if p.ID == "" || c.Contains(p.ID) {
		return false
	}
	c.AddItem(p)
	return true
}

// UpdateQuantity shifts a line's quantity by delta, clamping at zero and
// saturating at math.MaxInt. A line that reaches zero is removed. Unknown
// IDs are ignored.
func (c *Cart) UpdateQuantity(productID string, delta int) {
	next := make([]CartLine, 0, len(c.lines))
	for _, line := range c.lines {
		if line.Product.ID == productID {
			line.Quantity = addQuantity(line.Quantity, delta)
			if line.Quantity == 0 {
				continue
			}
		}
		next = append(next, line)
	}
	c.lines = next
}

// ComputeTotals sums MRP and price over the current lines
func (c *Cart) ComputeTotals() Totals {
	var t Totals
	for _, line := range c.lines {
		t.MRP += line.Product.MRP * line.Quantity
		t.Price += line.Product.Price * line.Quantity
	}
	t.Savings = t.MRP - t.Price
	return t
}

// Count returns the total quantity across lines
func (c *Cart) Count() int {
	n := 0
	for _, line := range c.lines {
		n += line.Quantity
	}
	return n
}

// Contains reports whether productID has a line
func (c *Cart) Contains(productID string) bool {
	for _, line := range c.lines {
		if line.Product.ID == productID {
			return true
		}
	}
	return false
}

// Len returns the number of lines
func (c *Cart) Len() int { return len(c.lines) }

// Lines returns a deep copy of the lines
func (c *Cart) Lines() []CartLine {
	out := cloneLines(c.lines)
	if out == nil {
		out = []CartLine{}
	}
	return out
}

// Clear empties the cart
func (c *Cart) Clear() {
	c.lines = nil
}

// addQuantity returns max(0, q+delta) without wrapping. q is never negative.
func addQuantity(q, delta int) int {
	if delta > 0 && q > math.MaxInt-delta {
		return math.MaxInt
	}
	return max(0, q+delta)
}
