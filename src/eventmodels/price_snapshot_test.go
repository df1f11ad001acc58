package eventmodels

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_PriceSnapshot(t *testing.T) {
	required := []TickField{TickFieldLast, TickFieldAsk, TickFieldBid}

	t.Run("completeness is monotonic", func(t *testing.T) {
		// arrange
		snapshot := NewPriceSnapshot()

		// act & assert
		assert.False(t, snapshot.IsComplete(required))

		snapshot.Update(TickFieldLast, 55.0)
		assert.False(t, snapshot.IsComplete(required))

		snapshot.Update(TickFieldAsk, 55.1)
		snapshot.Update(TickFieldBid, 54.9)
		assert.True(t, snapshot.IsComplete(required))

		// a fresher value never un-completes the snapshot
		snapshot.Update(TickFieldLast, 55.2)
		assert.True(t, snapshot.IsComplete(required))
	})

	t.Run("last write wins per field", func(t *testing.T) {
		// arrange
		snapshot := NewPriceSnapshot()
		snapshot.Update(TickFieldLast, 55.0)

		// act
		snapshot.Update(TickFieldLast, 56.0)

		// assert
		value, ok := snapshot.Get(TickFieldLast)
		assert.True(t, ok)
		assert.Equal(t, 56.0, value)
	})
}

func Test_PriceSnapshot_InstrumentValue(t *testing.T) {
	t.Run("undefined until a qualifying field arrives", func(t *testing.T) {
		snapshot := NewPriceSnapshot()

		_, ok := snapshot.InstrumentValue()

		assert.False(t, ok)
	})

	t.Run("bid alone is not enough", func(t *testing.T) {
		snapshot := NewPriceSnapshot()
		snapshot.Update(TickFieldBid, 54.9)

		_, ok := snapshot.InstrumentValue()

		assert.False(t, ok)
	})

	t.Run("falls back to last trade", func(t *testing.T) {
		snapshot := NewPriceSnapshot()
		snapshot.Update(TickFieldLast, 55.0)

		value, ok := snapshot.InstrumentValue()

		assert.True(t, ok)
		assert.Equal(t, 55.0, value)
	})

	t.Run("midpoint beats last trade", func(t *testing.T) {
		snapshot := NewPriceSnapshot()
		snapshot.Update(TickFieldLast, 55.0)
		snapshot.Update(TickFieldBid, 54.0)
		snapshot.Update(TickFieldAsk, 56.0)

		value, ok := snapshot.InstrumentValue()

		assert.True(t, ok)
		assert.Equal(t, 55.0, value)
	})

	t.Run("mark beats midpoint", func(t *testing.T) {
		snapshot := NewPriceSnapshot()
		snapshot.Update(TickFieldBid, 54.0)
		snapshot.Update(TickFieldAsk, 56.0)
		snapshot.Update(TickFieldMark, 55.5)

		value, ok := snapshot.InstrumentValue()

		assert.True(t, ok)
		assert.Equal(t, 55.5, value)
	})
}
