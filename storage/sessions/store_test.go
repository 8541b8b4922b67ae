package sessions

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/schoolboard/core/views"
)

type nopView struct{}

func (nopView) Load(context.Context) error { return nil }

func TestStore_Get(t *testing.T) {
	st := NewStore(time.Minute)

	s1 := st.Get("a")
	s2 := st.Get("a")
	s3 := st.Get("b")

	assert.Same(t, s1, s2)
	assert.NotSame(t, s1, s3)
	assert.Equal(t, "a", s1.ID)
	assert.Equal(t, 2, st.Len())
}

func TestStore_Delete(t *testing.T) {
	st := NewStore(time.Minute)
	s := st.Get("a")
	_, _, err := s.Mount("express:students", false, func() (views.View, error) { return nopView{}, nil })
	assert.NoError(t, err)

	st.Delete("a")

	_, mounted := s.Mounted("express:students")
	assert.False(t, mounted)
	assert.Equal(t, 0, st.Len())
	assert.NotSame(t, s, st.Get("a"))
}

func TestStore_Expiry(t *testing.T) {
	st := NewStore(20 * time.Millisecond)
	s := st.Get("a")
	time.Sleep(40 * time.Millisecond)

	assert.NotSame(t, s, st.Get("a"))
}
