package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureScheme(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"https kept", "https://www.ebay.com/sch/i.html?_nkw=lamp", "https://www.ebay.com/sch/i.html?_nkw=lamp", false},
		{"http kept", "http://example.com/list", "http://example.com/list", false},
		{"missing scheme completed", "www.ebay.com/sch/i.html", "https://www.ebay.com/sch/i.html", false},
		{"ftp rejected", "ftp://example.com/file", "", true},
		{"scheme without host", "https:///path", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ensureScheme(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
