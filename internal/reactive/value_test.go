package reactive

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValueSetNotifiesSubscribers(t *testing.T) {
	v := NewValue([]string{"a"})

	var seen [][]string
	unsubscribe := v.Subscribe(func(next []string) {
		seen = append(seen, next)
	})

	v.Set([]string{"a", "b"})
	v.Set(nil)
	unsubscribe()
	v.Set([]string{"c"})

	assert.Equal(t, [][]string{{"a", "b"}, nil}, seen)
	assert.Equal(t, []string{"c"}, v.Get())
	assert.Equal(t, uint64(3), v.Version())
}

func TestValueZeroValueIsUsable(t *testing.T) {
	var v Value[int]
	calls := 0
	v.Subscribe(func(int) { calls++ })
	v.Set(4)

	assert.Equal(t, 4, v.Get())
	assert.Equal(t, 1, calls)
}
