package fragment_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Sumatoshi-tech/rb2js/pkg/fragment"
)

func TestFlatten(t *testing.T) {
	t.Parallel()

	frag := fragment.Seq(
		fragment.Text("f("),
		fragment.Join(fragment.Text(", "), []fragment.Fragment{fragment.Text("a"), fragment.Textf("%d", 2)}),
		fragment.Text(")"),
	)

	assert.Equal(t, "f(a, 2)", fragment.Flatten(frag))
	assert.False(t, fragment.Multiline(frag))
}

func TestMultiline(t *testing.T) {
	t.Parallel()

	frag := fragment.Seq(fragment.Text("{"), fragment.Body(fragment.Statement(fragment.Text("x"))), fragment.Text("}"))

	assert.True(t, fragment.Multiline(frag))
	assert.True(t, fragment.Multiline(fragment.Text("a\nb")))
}

func TestSeqDropsNil(t *testing.T) {
	t.Parallel()

	assert.Len(t, fragment.Seq(nil, fragment.Text("a"), nil), 1)
	assert.True(t, fragment.Empty(fragment.Seq(nil, fragment.Text(""))))
	assert.False(t, fragment.Empty(fragment.Newline{}))
	assert.True(t, fragment.Empty(nil))
}

func TestStatementAndLine(t *testing.T) {
	t.Parallel()

	assert.Equal(t,
		fragment.Group{fragment.Text("a"), fragment.Boundary{}, fragment.Newline{}},
		fragment.Statement(fragment.Text("a")))
	assert.Equal(t,
		fragment.Group{fragment.Text("}"), fragment.Newline{}},
		fragment.Line(fragment.Text("}")))
}
