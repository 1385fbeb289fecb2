package concepts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weftlabs/weft/internal/ir"
)

func openShortener(t *testing.T) *UrlShortening {
	t.Helper()
	u, err := OpenUrlShortening(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { u.Close() })
	return u
}

func registerInput(suffix, base, target string) ir.Object {
	return ir.Object{
		"shortUrlSuffix": ir.String(suffix),
		"shortUrlBase":   ir.String(base),
		"targetUrl":      ir.String(target),
	}
}

func TestUrlShortening_RegisterAndLookup(t *testing.T) {
	ctx := context.Background()
	u := openShortener(t)

	out, err := u.Perform(ctx, "register", registerInput("x7", "sho.rt", "https://example.com/long"))
	require.NoError(t, err)
	assert.True(t, ir.Equal(ir.String("sho.rt/x7"), out["shortUrl"]))
	_, hasErr := out["error"]
	assert.False(t, hasErr)

	rows, err := u.Query(ctx, "_lookup", ir.Object{"shortUrl": ir.String("sho.rt/x7")})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, ir.Equal(ir.String("https://example.com/long"), rows[0]["targetUrl"]))
}

func TestUrlShortening_LookupUnknownYieldsNoRows(t *testing.T) {
	u := openShortener(t)

	rows, err := u.Query(context.Background(), "_lookup", ir.Object{"shortUrl": ir.String("sho.rt/none")})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestUrlShortening_RegisterTakenIsBusinessError(t *testing.T) {
	ctx := context.Background()
	u := openShortener(t)

	_, err := u.Perform(ctx, "register", registerInput("x7", "sho.rt", "https://a.example"))
	require.NoError(t, err)

	out, err := u.Perform(ctx, "register", registerInput("x7", "sho.rt", "https://b.example"))
	require.NoError(t, err, "a taken suffix settles with a business error, not a Go error")
	assert.True(t, ir.Equal(ir.String("short url already registered"), out["error"]))

	// The original mapping is untouched.
	rows, err := u.Query(ctx, "_lookup", ir.Object{"shortUrl": ir.String("sho.rt/x7")})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, ir.Equal(ir.String("https://a.example"), rows[0]["targetUrl"]))
}

func TestUrlShortening_Delete(t *testing.T) {
	ctx := context.Background()
	u := openShortener(t)

	_, err := u.Perform(ctx, "register", registerInput("x7", "sho.rt", "https://example.com"))
	require.NoError(t, err)

	out, err := u.Perform(ctx, "delete", ir.Object{"shortUrl": ir.String("sho.rt/x7")})
	require.NoError(t, err)
	_, hasErr := out["error"]
	assert.False(t, hasErr)

	rows, err := u.Query(ctx, "_lookup", ir.Object{"shortUrl": ir.String("sho.rt/x7")})
	require.NoError(t, err)
	assert.Empty(t, rows)

	out, err = u.Perform(ctx, "delete", ir.Object{"shortUrl": ir.String("sho.rt/x7")})
	require.NoError(t, err)
	assert.True(t, ir.Equal(ir.String("short url not registered"), out["error"]))
}

func TestUrlShortening_MissingFieldsAreBusinessErrors(t *testing.T) {
	ctx := context.Background()
	u := openShortener(t)

	out, err := u.Perform(ctx, "register", ir.Object{"targetUrl": ir.String("https://example.com")})
	require.NoError(t, err)
	_, hasErr := out["error"]
	assert.True(t, hasErr)
}
