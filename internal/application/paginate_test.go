package application_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmarchetti/credpanel/internal/application"
)

func intRange(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

func TestPaginate_FortySevenOverTen(t *testing.T) {
	items := intRange(47)

	slice, page, totalPages := application.Paginate(items, 5, 10)
	assert.Equal(t, 5, totalPages)
	assert.Equal(t, 5, page)
	assert.Len(t, slice, 7)
	assert.Equal(t, 41, slice[0])
	assert.Equal(t, 47, slice[6])
}

func TestPaginate_ClampsOutOfRange(t *testing.T) {
	items := intRange(25)

	t.Run("beyond last page returns last page", func(t *testing.T) {
		slice, page, totalPages := application.Paginate(items, 99, 10)
		assert.Equal(t, 3, totalPages)
		assert.Equal(t, 3, page)
		assert.Len(t, slice, 5)
	})

	t.Run("zero and negative return first page", func(t *testing.T) {
		for _, p := range []int{0, -3} {
			slice, page, _ := application.Paginate(items, p, 10)
			assert.Equal(t, 1, page)
			assert.Equal(t, 1, slice[0])
		}
	})
}

func TestPaginate_Empty(t *testing.T) {
	slice, page, totalPages := application.Paginate([]int{}, 4, 10)
	assert.Equal(t, 1, totalPages)
	assert.Equal(t, 1, page)
	assert.Empty(t, slice)
}

func TestPaginate_ExactMultiple(t *testing.T) {
	slice, _, totalPages := application.Paginate(intRange(30), 3, 10)
	assert.Equal(t, 3, totalPages)
	assert.Len(t, slice, 10)
}

func TestPaginate_DefaultPageSize(t *testing.T) {
	slice, _, totalPages := application.Paginate(intRange(15), 1, 0)
	assert.Equal(t, 2, totalPages)
	assert.Len(t, slice, application.DefaultPageSize)
}
