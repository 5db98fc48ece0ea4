package version

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveLatestPicksNumericMaximum(t *testing.T) {
	got, err := Resolve(Latest, []string{"v1.0.0", "v1.2.0", "v1.10.0"}, Options{Prefix: "v"})
	require.NoError(t, err)
	assert.Equal(t, "v1.10.0", got.Tag)
	assert.Equal(t, "1.10.0", got.Version)
}

func TestResolveLatestNotLexicographic(t *testing.T) {
	tags := []string{"v1.9.0", "v1.10.0", "v1.9.9"}
	got, err := Resolve(Latest, tags, Options{Prefix: "v"})
	require.NoError(t, err)
	assert.Equal(t, "v1.10.0", got.Tag)

	// Reordering the input must not change the answer.
	got, err = Resolve(Latest, []string{"v1.10.0", "v1.9.9", "v1.9.0"}, Options{Prefix: "v"})
	require.NoError(t, err)
	assert.Equal(t, "v1.10.0", got.Tag)
}

func TestResolveEmptySpecMeansLatest(t *testing.T) {
	got, err := Resolve("", []string{"v2.0.0", "v2.1.0"}, Options{Prefix: "v"})
	require.NoError(t, err)
	assert.Equal(t, "v2.1.0", got.Tag)
}

func TestResolveLatestExcludesPreReleases(t *testing.T) {
	tags := []string{"v2.44.0", "v2.45.0-rc0", "v2.45.0-rc1", "v2.43.2"}
	got, err := Resolve(Latest, tags, Options{Prefix: "v", Exclude: regexp.MustCompile(`-rc`)})
	require.NoError(t, err)
	assert.Equal(t, "v2.44.0", got.Tag)
}

func TestResolveLatestRequiresPrefix(t *testing.T) {
	tags := []string{"openssl-3.1.4", "openssl-3.2.1", "OpenSSL_1_1_1w", "v9.9.9"}
	got, err := Resolve(Latest, tags, Options{Prefix: "openssl-"})
	require.NoError(t, err)
	assert.Equal(t, "openssl-3.2.1", got.Tag)
	assert.Equal(t, "3.2.1", got.Version)
}

func TestResolveLatestNoTags(t *testing.T) {
	_, err := Resolve(Latest, []string{"release", "vnext"}, Options{Prefix: "v"})
	require.ErrorIs(t, err, ErrNoTagsFound)

	_, err = Resolve(Latest, nil, Options{Prefix: "v"})
	require.ErrorIs(t, err, ErrNoTagsFound)
}

func TestResolveExplicit(t *testing.T) {
	got, err := Resolve("1.24.0", []string{"v1.23.0", "v1.24.0"}, Options{Prefix: "v"})
	require.NoError(t, err)
	assert.Equal(t, Resolved{Version: "1.24.0", Tag: "v1.24.0"}, got)
}

func TestResolveExplicitIgnoresExclude(t *testing.T) {
	got, err := Resolve("2.45.0-rc1", []string{"v2.45.0-rc1"}, Options{Prefix: "v", Exclude: regexp.MustCompile(`-rc`)})
	require.NoError(t, err)
	assert.Equal(t, "v2.45.0-rc1", got.Tag)
}

func TestResolveExplicitTagNotFound(t *testing.T) {
	_, err := Resolve("1.25.0", []string{"v1.23.0", "v1.24.0"}, Options{Prefix: "v"})
	require.ErrorIs(t, err, ErrTagNotFound)
	assert.Contains(t, err.Error(), "v1.25.0")
}

func TestResolveInvalidVersion(t *testing.T) {
	for _, spec := range []string{"v1.2.3", "newest", "-1", "1 2"} {
		_, err := Resolve(spec, []string{"v1.2.3"}, Options{Prefix: "v"})
		assert.ErrorIs(t, err, ErrInvalidVersion, spec)
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.10.0", "1.9.0", 1},
		{"1.9.0", "1.10.0", -1},
		{"1.2.3", "1.2.3", 0},
		{"2.0.0-rc1", "2.0.0", -1},
		{"1.1.1.4", "1.1.1.10", -1},
		{"5.9", "5.10", -1},
		{"3.13.0a1", "3.13.0", -1},
		{"3.13.0b2", "3.13.0a7", 1},
		{"1.0.1", "1.0", 1},
		{"010", "9", 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Compare(tt.a, tt.b), "Compare(%q, %q)", tt.a, tt.b)
	}
}

func TestSort(t *testing.T) {
	tags := []string{"v1.10.0", "v1.2.0", "v1.9.1", "v1.0.0"}
	Sort(tags, "v")
	assert.Equal(t, []string{"v1.0.0", "v1.2.0", "v1.9.1", "v1.10.0"}, tags)
}

func TestResolvedString(t *testing.T) {
	assert.Equal(t, "1.2.0 (tag v1.2.0)", Resolved{Version: "1.2.0", Tag: "v1.2.0"}.String())
	assert.Equal(t, "5.9", Resolved{Version: "5.9", Tag: "5.9"}.String())
}
