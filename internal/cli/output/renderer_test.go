package output

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRenderer(mode OutputMode, isTTY bool) (*Renderer, *bytes.Buffer, *bytes.Buffer) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	return NewRendererWithTTY(out, errOut, isTTY, mode), out, errOut
}

func TestMode(t *testing.T) {
	assert.Equal(t, ModeJSON, Mode("json"))
	assert.Equal(t, ModeCSV, Mode("csv"))
	assert.Equal(t, ModeAuto, Mode(""))
	assert.Equal(t, ModeAuto, Mode("xml"))
}

func TestRenderer_EffectiveMode(t *testing.T) {
	tests := []struct {
		mode  OutputMode
		isTTY bool
		want  OutputMode
	}{
		{ModeAuto, true, ModeText},
		{ModeAuto, false, ModeMarkdown},
		{ModeJSON, true, ModeJSON},
		{ModeText, false, ModeText},
	}
	for _, tt := range tests {
		r, _, _ := newTestRenderer(tt.mode, tt.isTTY)
		assert.Equal(t, tt.want, r.EffectiveMode(), "mode=%s tty=%v", tt.mode, tt.isTTY)
	}
}

var (
	cols = []string{"order_id", "product", "purchase_state"}
	rows = [][]any{
		{int32(1), "iphone", "MA"},
		{int32(5), "aa batteries (4-pack)", nil},
	}
)

func TestRenderer_Table(t *testing.T) {
	t.Run("text", func(t *testing.T) {
		r, out, _ := newTestRenderer(ModeText, false)
		require.NoError(t, r.Table(cols, rows))
		s := out.String()
		assert.Contains(t, s, "┌")
		assert.Contains(t, s, "ORDER_ID")
		assert.Contains(t, s, "aa batteries (4-pack)")
		assert.Contains(t, s, "NULL")
		assert.Contains(t, s, "(2 rows)")
	})

	t.Run("markdown", func(t *testing.T) {
		r, out, _ := newTestRenderer(ModeMarkdown, false)
		require.NoError(t, r.Table(cols, rows))
		s := out.String()
		assert.Contains(t, s, "| order_id | product | purchase_state |")
		assert.Contains(t, s, "| 1 | iphone | MA |")
		assert.Contains(t, s, "(2 rows)")
	})

	t.Run("csv", func(t *testing.T) {
		r, out, _ := newTestRenderer(ModeCSV, false)
		require.NoError(t, r.Table(cols, rows))
		assert.Equal(t, "order_id,product,purchase_state\n1,iphone,MA\n5,aa batteries (4-pack),NULL\n", out.String())
	})

	t.Run("json", func(t *testing.T) {
		r, out, _ := newTestRenderer(ModeJSON, false)
		require.NoError(t, r.Table(cols, rows))
		var got []map[string]any
		require.NoError(t, json.Unmarshal(out.Bytes(), &got))
		require.Len(t, got, 2)
		assert.Equal(t, "iphone", got[0]["product"])
		assert.InDelta(t, 5, got[1]["order_id"], 0)
		assert.Nil(t, got[1]["purchase_state"])
	})

	t.Run("empty", func(t *testing.T) {
		r, out, _ := newTestRenderer(ModeText, false)
		require.NoError(t, r.Table(cols, nil))
		assert.Equal(t, "(0 rows)\n", out.String())
	})
}

type pointerStringer struct{ v int }

func (p *pointerStringer) String() string { return "ptr" }

func TestFormatValue(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, "NULL"},
		{"x", "x"},
		{[]byte("raw"), "raw"},
		{int64(42), "42"},
		{time.Date(2023, 1, 22, 0, 0, 0, 0, time.UTC), "2023-01-22"},
		{time.Date(2023, 1, 22, 21, 25, 0, 0, time.UTC), "2023-01-22 21:25:00"},
		{pointerStringer{v: 1}, "ptr"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatValue(tt.in))
	}
}

func TestRenderer_Messages(t *testing.T) {
	r, out, errOut := newTestRenderer(ModeMarkdown, false)

	r.Header(1, "Run summary")
	r.KeyValue("rows_read", 5)
	r.Success("done")
	r.Warning("careful")
	r.Error("broken")

	assert.Contains(t, out.String(), "# Run summary")
	assert.Contains(t, out.String(), "- **rows_read:** 5")
	assert.Contains(t, out.String(), "✓ done")
	assert.Contains(t, errOut.String(), "! careful")
	assert.Contains(t, errOut.String(), "✗ broken")
}

func TestRenderer_Styles(t *testing.T) {
	tests := []struct {
		name    string
		isTTY   bool
		noColor string
		colored bool
	}{
		{name: "terminal", isTTY: true, colored: true},
		{name: "pipe", isTTY: false, colored: false},
		{name: "terminal with NO_COLOR", isTTY: true, noColor: "1", colored: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("NO_COLOR", tt.noColor)
			if tt.noColor == "" {
				require.NoError(t, os.Unsetenv("NO_COLOR"))
			}
			t.Setenv("CLICOLOR", "1")

			r, _, _ := newTestRenderer(ModeText, tt.isTTY)
			_, plain := r.Styles().Success.GetForeground().(lipgloss.NoColor)
			assert.Equal(t, tt.colored, !plain)
		})
	}
}
