package data

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	efs "github.com/xynehq/xyne-report/internal/assets"
)

// TestDataEmbedded asserts the report templates and the query catalog are
// present in the embedded FS.
func TestDataEmbedded(t *testing.T) {
	efs.UpdateData(&FS)

	tests := []struct {
		name string
		dir  string
		want []string
	}{
		{
			name: "report-templates",
			dir:  "templates",
			want: []string{"templates/report/report.html"},
		},
		{
			name: "query-catalog",
			dir:  "queries",
			want: []string{"queries/queries.yaml"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := efs.GetAllFilenames(efs.GetData(), tt.dir)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			for _, f := range got {
				content, err := efs.ReadFile(f)
				require.NoError(t, err)
				assert.NotEmpty(t, content, f)
			}
		})
	}
}
