package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluate(t *testing.T) {
	e := New()

	ctx := &Context{
		Variables: map[string]any{
			"amount":   float64(250),
			"approved": true,
			"customer": "acme",
			"tags":     []any{"vip", "b2b"},
			"order":    map[string]any{"id": "o-47", "items": float64(3)},
		},
	}

	tests := map[string]bool{
		// literals
		"true":  true,
		"false": false,
		"null":  false,
		"1":     true,
		"0":     false,
		"'a'":   true,
		"''":    false,

		// comparison
		"variables.amount > 100":              true,
		"variables.amount >= 250":             true,
		"variables.amount < 100":              false,
		"variables.amount == 250":             true,
		"variables.amount != 250":             false,
		"variables.customer == 'acme'":        true,
		"variables.customer == \"acme\"":      true,
		"variables.approved == true":          true,
		"variables.missing == null":           true,
		"variables.tags == variables.tags":    false, // non-scalar operands never compare equal
		"variables.order != variables.order":  true,
		"variables.order.items == 3":          true,
		"variables.order.missing == null":     true,

		// interpolation
		"${amount} > 100":          true,
		"${ amount } > 100":        true,
		"${order.id} == 'o-47'":    true,

		// logical
		"variables.amount > 100 && variables.approved": true,
		"variables.amount > 500 || variables.approved": true,
		"!variables.approved":                          false,
		"!(variables.amount > 500)":                    true,

		// arithmetic
		"variables.amount / 2 == 125":     true,
		"variables.amount + 50 == 300":    true,
		"-variables.amount == -250":       true,
		"variables.amount * 2 - 100 > 0":  true,

		// numeric string coercion
		"'250' == variables.amount": true,

		// functions
		"upper(variables.customer) == 'ACME'":     true,
		"contains(variables.customer, 'cm')":      true,
		"startsWith(variables.order.id, 'o-')":    true,
		"includes(variables.tags, 'vip')":         true,
		"size(variables.tags) == 2":               true,
		"min(variables.amount, 100) == 100":       true,
		"isNumber(variables.amount)":              true,
		"isNil(variables.missing)":                true,
		"isEmpty(variables.customer)":             false,
	}

	for expression, expected := range tests {
		t.Run(expression, func(t *testing.T) {
			assert.Equal(t, expected, e.Evaluate(expression, ctx), "expression: %s", expression)
		})
	}
}

func TestEvaluateExpression(t *testing.T) {
	assert := assert.New(t)

	e := New()

	ctx := &Context{
		Variables: map[string]any{"a": float64(2), "b": float64(3), "name": "jane"},
	}

	assert.Equal(float64(5), e.EvaluateExpression("variables.a + variables.b", ctx))
	assert.Equal(float64(8), e.EvaluateExpression("variables.a * (1 + variables.b)", ctx))
	assert.Equal("jane doe", e.EvaluateExpression("variables.name + ' doe'", ctx))
	assert.Equal("JANE", e.EvaluateExpression("upper(${name})", ctx))

	// failures evaluate to nil
	assert.Nil(e.EvaluateExpression("variables.a +", ctx))
	assert.Nil(e.EvaluateExpression("1 / 0", ctx))
}

func TestEvaluateFailsClosed(t *testing.T) {
	assert := assert.New(t)

	e := New()

	// parse and evaluation failures must not pass a gateway condition
	assert.False(e.Evaluate("variables.amount >", nil))
	assert.False(e.Evaluate("", nil))
	assert.False(e.Evaluate("unknown == true", nil))
	assert.False(e.Evaluate("variables.a / 0 == 0", &Context{Variables: map[string]any{"a": float64(1)}}))
}

func TestValidate(t *testing.T) {
	assert := assert.New(t)

	e := New()

	assert.NoError(e.Validate("variables.amount > 100"))
	assert.NoError(e.Validate("${amount} > 100"))
	assert.Error(e.Validate("variables.amount >"))
	assert.Error(e.Validate(""))
	assert.Error(e.Validate("1 ? 2"))
}

func TestAddFunction(t *testing.T) {
	assert := assert.New(t)

	e := New()

	e.AddFunction("double", func(args ...any) (any, error) {
		n, err := toNumber(args[0])
		return n * 2, err
	})

	assert.Equal(float64(10), e.EvaluateExpression("double(5)", nil))

	// a bare call of a registered function is qualified during preprocessing
	assert.True(e.Evaluate("double(${amount}) == 500", &Context{Variables: map[string]any{"amount": float64(250)}}))

	e.RemoveFunction("double")
	assert.Nil(e.EvaluateExpression("double(5)", nil))
}

func TestContextResolution(t *testing.T) {
	assert := assert.New(t)

	e := New()

	type instance struct {
		BusinessKey string
	}

	ctx := &Context{
		Instance: instance{BusinessKey: "o-47"},
		Ext:      map[string]any{"region": "eu"},
	}

	assert.True(e.Evaluate("instance.businessKey == 'o-47'", ctx))
	assert.True(e.Evaluate("region == 'eu'", ctx))
	assert.True(e.Evaluate("instance.missing == null", ctx))
}
