package htmlutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

func TestNormalizeText(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
	}{
		{input: "  21CSC204J ", expected: "21CSC204J"},
		{input: "Design and\n\t Analysis", expected: "Design and Analysis"},
		{input: "Month / Year", expected: "Month / Year"},
		{input: "\u200bTotal", expected: "Total"},
		{input: "", expected: ""},
	}

	for _, test := range testCases {
		require.Equal(t, test.expected, NormalizeText(test.input))
	}
}

func TestNodeText(t *testing.T) {
	doc, err := html.Parse(strings.NewReader(`<td> <b>Att.</b>
		Hours </td>`))
	require.NoError(t, err)
	require.Equal(t, "Att. Hours", NodeText(doc))
}
