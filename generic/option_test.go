package generic

import (
	"encoding/json"
	"testing"

	assert_ "github.com/stretchr/testify/assert"
)

func TestOption(t *testing.T) {
	assert := assert_.New(t)

	some := Some(720)
	none := None[int]()
	assert.True(some.IsSome())
	assert.True(none.IsNone())
	assert.Equal(720, some.Unwrap())
	assert.Equal(1080, none.UnwrapOr(1080))
	assert.Equal(0, none.UnwrapOrDefault())
	assert.Equal(720, none.Or(some).Unwrap())
	assert.Equal(720, some.OrElse(func() Option[int] { return Some(1) }).Unwrap())
	assert.Panics(func() { none.Unwrap() })

	var p *int
	assert.True(FromPointer(p).IsNone())
	v := 3
	assert.Equal(3, FromPointer(&v).Unwrap())
}

func TestOptionJSON(t *testing.T) {
	assert := assert_.New(t)

	type wrapper struct {
		Height Option[int]     `json:"height"`
		TBR    Option[float64] `json:"tbr"`
	}

	data, err := json.Marshal(wrapper{Height: Some(480)})
	assert.NoError(err)
	assert.JSONEq(`{"height": 480, "tbr": null}`, string(data))

	var w wrapper
	assert.NoError(json.Unmarshal([]byte(`{"height": null, "tbr": 812.5}`), &w))
	assert.True(w.Height.IsNone())
	assert.Equal(812.5, w.TBR.Unwrap())

	// Missing fields stay None
	w = wrapper{}
	assert.NoError(json.Unmarshal([]byte(`{}`), &w))
	assert.True(w.Height.IsNone())
}

func TestResult(t *testing.T) {
	assert := assert_.New(t)

	ok := NewResult(1, nil)
	assert.True(ok.IsOk())
	assert.Equal(1, ok.Ok().Unwrap())
	v, err := ok.Parts()
	assert.Equal(1, v)
	assert.NoError(err)

	bad := Err[int](assert_.AnError)
	assert.True(bad.IsErr())
	assert.True(bad.Ok().IsNone())
	assert.Panics(func() { bad.Unwrap() })
	assert.Panics(func() { Unwrap_(assert_.AnError) })
}
