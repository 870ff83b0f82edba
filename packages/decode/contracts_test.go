package decode

type Shape interface {
	Contract
	Area() float64
}

type Circle struct {
	Radius float64 `json:"radius"`
}

func (Circle) ContractName() string { return "Circle" }
func (c Circle) Area() float64      { return 3 * c.Radius * c.Radius }

type Square struct {
	Side float64 `json:"side"`
}

func (Square) ContractName() string { return "Square" }
func (s Square) Area() float64      { return s.Side * s.Side }

// Label carries the marker but implements no declared abstract contract.
type Label struct {
	Text string `json:"text"`
}

func (Label) ContractName() string { return "Label" }

type Plain struct {
	Value int `json:"value"`
}

type hidden struct{}

func newShapeRegistry() *Registry {
	r := NewRegistry()
	r.MustDeclare((*Shape)(nil), Circle{}, &Square{}, Label{}, Plain{})
	return r
}

type Drawing struct {
	Title  string           `json:"title"`
	Main   Shape            `json:"main"`
	Layers []Shape          `json:"layers,omitempty"`
	Named  map[string]Shape `json:"named,omitempty"`
	Frame  *Square          `json:"frame,omitempty"`
}
