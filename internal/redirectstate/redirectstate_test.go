package redirectstate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		want      string
		wantFound bool
	}{
		{name: "absent", query: "foo=bar", wantFound: false},
		{name: "empty query", query: "", wantFound: false},
		{name: "empty value", query: "next=", wantFound: false},
		{name: "plain", query: "next=/dashboard", want: "/dashboard", wantFound: true},
		{name: "leading question mark", query: "?next=/dashboard", want: "/dashboard", wantFound: true},
		{name: "percent encoded", query: "next=%2Fhome", want: "/home", wantFound: true},
		{name: "plus is space", query: "next=a+b", want: "a b", wantFound: true},
		{name: "encoded plus stays plus", query: "next=a%2Bb", want: "a+b", wantFound: true},
		{name: "among others", query: "a=1&next=%2Fx%3Fy%3D1&b=2", want: "/x?y=1", wantFound: true},
		{name: "first wins", query: "next=/one&next=/two", want: "/one", wantFound: true},
		{name: "suffix match ignored", query: "nonext=/x", wantFound: false},
		{name: "key without value", query: "next", wantFound: false},
		{name: "malformed escape passes through", query: "next=%zz+1", want: "%zz 1", wantFound: true},
		{name: "encodes to empty", query: "next=%20", want: " ", wantFound: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := Resolve(tt.query)
			assert.Equal(t, tt.wantFound, found)
			assert.Equal(t, tt.want, got)
		})
	}
}
