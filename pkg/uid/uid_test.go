package uid

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_IsValid(t *testing.T) {
	id := New()
	assert.True(t, IsValid(id))
	assert.False(t, IsValid("not-a-uuid"))
}

func TestOrderID_Shape(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 200; i++ {
		id := OrderID()
		assert.Len(t, id, len("ORDER-XXXXX-XXXXX-XXXXX"))
		assert.True(t, IsOrderID(id), "bad order id %q", id)
		seen[id] = struct{}{}
	}
	assert.Len(t, seen, 200)
}

func TestIsOrderID_Rejects(t *testing.T) {
	assert.False(t, IsOrderID("ORDER-abcde-12345-ABCDE"))
	assert.False(t, IsOrderID("ORDER-ABCDE-12345"))
	assert.False(t, IsOrderID("BUY-ABCDE-12345-ABCDE"))
}
