package calibration

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spvis/spvis-go/pkg/wire"
)

func TestParse(t *testing.T) {
	t.Run("TabSeparatedWithHeader", func(t *testing.T) {
		in := "# serial: LDA~G40090129\n# usage: 2\n380\t0.5\n381\t0.75\n382\t1\n"
		p, err := Parse(strings.NewReader(in))
		require.NoError(t, err)
		assert.Equal(t, "LDA~G40090129", p.Serial)
		assert.Equal(t, wire.UsageModeIlluminance, p.UsageMode)
		assert.Equal(t, []float64{380, 381, 382}, p.Wavelengths)
		assert.Equal(t, []float64{0.5, 0.75, 1}, p.StandardLampSpectrum)
	})

	t.Run("MixedSeparators", func(t *testing.T) {
		in := "Wavelength;Radiance\n400;1.5\n410, 2.5\n420 3.5\n"
		p, err := Parse(strings.NewReader(in))
		require.NoError(t, err)
		assert.Equal(t, 3, p.Len())
		lo, hi := p.Range()
		assert.Equal(t, 400.0, lo)
		assert.Equal(t, 420.0, hi)
	})

	t.Run("Empty", func(t *testing.T) {
		_, err := Parse(strings.NewReader("# nothing here\n"))
		assert.ErrorIs(t, err, ErrEmpty)
	})

	t.Run("NotAscending", func(t *testing.T) {
		_, err := Parse(strings.NewReader("400 1\n399 2\n"))
		assert.ErrorIs(t, err, ErrNotAscending)
	})

	t.Run("MissingValue", func(t *testing.T) {
		_, err := Parse(strings.NewReader("400 1\n401\n"))
		assert.Error(t, err)
	})

	t.Run("BadUsage", func(t *testing.T) {
		_, err := Parse(strings.NewReader("# usage: 9\n400 1\n"))
		assert.Error(t, err)
	})
}

func TestNewProfile(t *testing.T) {
	_, err := NewProfile("", wire.UsageModeRadiance, []float64{1, 2}, []float64{1})
	assert.ErrorIs(t, err, ErrLengthMismatch)

	wl := []float64{1, 2}
	p, err := NewProfile("S1", wire.UsageModeRadiance, wl, []float64{3, 4})
	require.NoError(t, err)
	wl[0] = 100
	assert.Equal(t, 1.0, p.Wavelengths[0])
}

func TestWriteParse(t *testing.T) {
	p, err := NewProfile("SN-1", wire.UsageModeLuminousFlux,
		[]float64{380, 380.5, 381}, []float64{1e-6, 0.125, 3})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, p))

	got, err := Parse(&buf)
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestSaveLoad(t *testing.T) {
	dir := t.TempDir()
	p, err := NewProfile("SN-2", wire.UsageModeRadiance, []float64{500, 600}, []float64{1, 2})
	require.NoError(t, err)

	path := filepath.Join(dir, "nested", FileName(p.Serial))
	require.NoError(t, Save(path, p))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, p, got)

	_, err = Load(filepath.Join(dir, "missing.txt"))
	assert.Error(t, err)
}

func TestSaveReplacesExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName("SN-3"))

	first, err := NewProfile("SN-3", wire.UsageModeRadiance, []float64{500, 600}, []float64{1, 2})
	require.NoError(t, err)
	require.NoError(t, Save(path, first))

	second, err := NewProfile("SN-3", wire.UsageModeIlluminance, []float64{400, 500, 600}, []float64{3, 4, 5})
	require.NoError(t, err)
	require.NoError(t, Save(path, second))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, second, got)

	// An invalid profile leaves the saved file untouched.
	err = Save(path, &Profile{Serial: "SN-3"})
	assert.ErrorIs(t, err, ErrEmpty)
	got, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, second, got)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "no temporary file left behind")
	assert.Equal(t, FileName("SN-3"), entries[0].Name())
}

func TestResolvePath(t *testing.T) {
	assert.Equal(t, "/tmp/cal.txt", ResolvePath("/tmp/cal.txt", "X"))
	assert.Equal(t, "/tmp/CAL.TXT", ResolvePath("/tmp/CAL.TXT", "X"))
	assert.Equal(t, filepath.Join("/tmp/cal", "Sp_X.txt"), ResolvePath("/tmp/cal", "X"))
}
