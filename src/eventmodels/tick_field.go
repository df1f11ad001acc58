package eventmodels

type TickField string

const (
	TickFieldLast  TickField = "LAST"
	TickFieldBid   TickField = "BID"
	TickFieldAsk   TickField = "ASK"
	TickFieldMark  TickField = "MARK"
	TickFieldDelta TickField = "DELTA"
	TickFieldGamma TickField = "GAMMA"
	TickFieldVega  TickField = "VEGA"
	TickFieldTheta TickField = "THETA"
	TickFieldIV    TickField = "IV"
)

// Greeks is the option computation payload delivered in a single callback.
type Greeks struct {
	ImpliedVol float64
	Delta      float64
	Gamma      float64
	Vega       float64
	Theta      float64
	OptPrice   float64
}
