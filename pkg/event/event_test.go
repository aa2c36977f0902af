package event

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseType(t *testing.T) {
	et, err := ParseType("product.created")
	require.NoError(t, err)
	assert.Equal(t, ProductCreated, et)

	_, err = ParseType("product.exploded")
	assert.True(t, errors.Is(err, ErrUnknownEventType))
	assert.Contains(t, err.Error(), "product.exploded")
}

func TestTypesSorted(t *testing.T) {
	types := Types()
	require.Len(t, types, len(knownTypes))
	for i := 1; i < len(types); i++ {
		assert.Less(t, string(types[i-1]), string(types[i]))
	}
	for _, et := range types {
		info, ok := Lookup(et)
		assert.True(t, ok)
		assert.LessOrEqual(t, info.Since, RegistryVersion)
	}
}

func TestListenerResolve(t *testing.T) {
	called := 0
	fn := func(ctx context.Context, et EventType, p Payload) error {
		called++
		return nil
	}

	direct := Direct("direct", fn)
	assert.False(t, direct.IsReference())
	got, err := direct.Resolve(nil)
	require.NoError(t, err)
	require.NoError(t, got(context.Background(), ProductCreated, nil))
	assert.Equal(t, 1, called)

	ref := Reference("missing")
	assert.True(t, ref.IsReference())
	_, err = ref.Resolve(nil)
	assert.True(t, errors.Is(err, ErrUnresolvedListener))

	reg := NewListenerRegistry()
	registered, err := reg.Register("notify", fn)
	require.NoError(t, err)
	assert.Equal(t, "notify", registered.Name())

	got, err = registered.Resolve(reg)
	require.NoError(t, err)
	require.NoError(t, got(context.Background(), ProductCreated, nil))
	assert.Equal(t, 2, called)

	_, err = reg.Resolve("nope")
	assert.True(t, errors.Is(err, ErrUnresolvedListener))

	_, err = reg.Register("", fn)
	assert.ErrorIs(t, err, ErrUnnamedListener)
}

func TestPayloadParams(t *testing.T) {
	var p Payload
	require.NoError(t, json.Unmarshal([]byte(`{"name":"Test Product","count":3,"meta":{"a":1},"reward":1500000,"ratio":2.5,"owner":null}`), &p))

	params := p.Params()
	assert.Equal(t, "Test Product", params["name"])
	assert.Equal(t, "3", params["count"])
	assert.Equal(t, `{"a":1}`, params["meta"])
	assert.Equal(t, "1500000", params["reward"])
	assert.Equal(t, "2.5", params["ratio"])
	assert.Equal(t, "None", params["owner"])
	assert.Equal(t, "", p.String("absent"))
	assert.Equal(t, "", p.String("owner"))

	// A payload built in-process renders the same as one decoded from a task.
	inline := Payload{"reward": 1500000, "ratio": 2.5, "owner": nil}.Params()
	assert.Equal(t, params["reward"], inline["reward"])
	assert.Equal(t, params["ratio"], inline["ratio"])
	assert.Equal(t, params["owner"], inline["owner"])
}

func TestPayloadUUIDs(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	p := Payload{
		"single": a.String(),
		"many":   []interface{}{a.String(), "garbage", b.String()},
		"typed":  []string{b.String()},
	}

	id, ok := p.UUID("single")
	assert.True(t, ok)
	assert.Equal(t, a, id)
	assert.Equal(t, []uuid.UUID{a}, p.UUIDs("single"))
	assert.Equal(t, []uuid.UUID{a, b}, p.UUIDs("many"))
	assert.Equal(t, []uuid.UUID{b}, p.UUIDs("typed"))
	assert.Nil(t, p.UUIDs("absent"))
}

func TestEventIDContext(t *testing.T) {
	_, ok := EventIDFromContext(context.Background())
	assert.False(t, ok)

	id := uuid.New()
	got, ok := EventIDFromContext(WithEventID(context.Background(), id))
	assert.True(t, ok)
	assert.Equal(t, id, got)
}
