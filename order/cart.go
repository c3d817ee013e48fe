package order

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"restobar/model"
)

var ErrLineNotFound = errors.New("cart line not found")

// Line is a cart entry before submission. Lines are keyed by their own id so
// that the same product can appear twice with different notes.
type Line struct {
	ID       string        `json:"id"`
	Product  model.Product `json:"product"`
	Quantity int           `json:"quantity"`
	Note     string        `json:"note"`
}

func (l Line) Subtotal() decimal.Decimal {
	return l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart is a draft order for one table. It is not safe for concurrent use;
// Registry serializes access.
type Cart struct {
	Lines []Line `json:"lines"`

	newID func() string
}

func NewCart() *Cart {
	return &Cart{Lines: []Line{}, newID: uuid.NewString}
}

func (c *Cart) find(id string) int {
	for i, l := range c.Lines {
		if l.ID == id {
			return i
		}
	}
	return -1
}

// AddProduct bumps the quantity of the product's note-less line, or starts a
// new line with quantity 1.
func (c *Cart) AddProduct(p model.Product) Line {
	for i, l := range c.Lines {
		if l.Product.ID == p.ID && l.Note == "" {
			c.Lines[i].Quantity++
			return c.Lines[i]
		}
	}
	if c.newID == nil {
		c.newID = uuid.NewString
	}
	line := Line{ID: c.newID(), Product: p, Quantity: 1}
	c.Lines = append(c.Lines, line)
	return line
}

// SetNote replaces a line's note. When another line of the same product
// already carries that note, the edited line is folded into it and removed.
// It returns the id of the line that now holds the quantity.
func (c *Cart) SetNote(lineID, text string) (string, error) {
	idx := c.find(lineID)
	if idx < 0 {
		return "", ErrLineNotFound
	}
	note := strings.TrimSpace(text)
	current := c.Lines[idx]

	for i, l := range c.Lines {
		if i == idx || l.Product.ID != current.Product.ID {
			continue
		}
		if strings.TrimSpace(l.Note) == note {
			c.Lines[i].Quantity += current.Quantity
			target := l.ID
			c.Lines = append(c.Lines[:idx], c.Lines[idx+1:]...)
			return target, nil
		}
	}

	c.Lines[idx].Note = note
	return lineID, nil
}

// UpdateQuantity adds delta to the line's quantity, never going below 1.
func (c *Cart) UpdateQuantity(lineID string, delta int) error {
	idx := c.find(lineID)
	if idx < 0 {
		return ErrLineNotFound
	}
	q := c.Lines[idx].Quantity + delta
	if q < 1 {
		q = 1
	}
	c.Lines[idx].Quantity = q
	return nil
}

func (c *Cart) Remove(lineID string) error {
	idx := c.find(lineID)
	if idx < 0 {
		return ErrLineNotFound
	}
	c.Lines = append(c.Lines[:idx], c.Lines[idx+1:]...)
	return nil
}

func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.Lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// Count is the number of units in the cart.
func (c *Cart) Count() int {
	n := 0
	for _, l := range c.Lines {
		n += l.Quantity
	}
	return n
}

func (c *Cart) Empty() bool {
	return len(c.Lines) == 0
}

func (c *Cart) Clone() *Cart {
	out := &Cart{Lines: make([]Line, len(c.Lines)), newID: c.newID}
	copy(out.Lines, c.Lines)
	return out
}
